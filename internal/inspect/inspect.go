// Package inspect runs the load, check and summarize pipeline with logging
// and metrics around each stage
package inspect

import (
	"context"
	"io/fs"
	"time"

	"github.com/nainya/zarrdump/internal/logger"
	"github.com/nainya/zarrdump/internal/metrics"
	"github.com/nainya/zarrdump/pkg/cf"
	"github.com/nainya/zarrdump/pkg/chunk"
	"github.com/nainya/zarrdump/pkg/ingest"
	"github.com/nainya/zarrdump/pkg/metadata"
	"github.com/nainya/zarrdump/pkg/storage"
)

// Options configures an Inspector.
type Options struct {
	Check   cf.Options
	Storage storage.Options
}

// Inspector opens stores and runs checks against them.
type Inspector struct {
	log     *logger.Logger
	metrics *metrics.Metrics
	opts    Options
}

// New creates an Inspector. log and m must be non-nil.
func New(log *logger.Logger, m *metrics.Metrics, opts Options) *Inspector {
	return &Inspector{log: log, metrics: m, opts: opts}
}

// Dataset is one loaded store.
type Dataset struct {
	Location string
	Metadata *metadata.ZarrMetadata
	Strategy ingest.Strategy
	Reader   chunk.Reader

	store *storage.Store
	log   *logger.Logger
}

// Close releases the store.
func (d *Dataset) Close() error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}

// Open resolves location and loads its metadata.
func (i *Inspector) Open(ctx context.Context, location string) (*Dataset, error) {
	sopts := i.opts.Storage
	sopts.Logger = *i.log.StoreLogger(location).GetZerolog()
	store, err := storage.Open(ctx, location, sopts)
	if err != nil {
		return nil, err
	}
	ds, err := i.Load(store.FS, location)
	if err != nil {
		store.Close()
		return nil, err
	}
	ds.store = store
	return ds, nil
}

// Load builds a dataset from an already opened filesystem.
func (i *Inspector) Load(fsys fs.FS, location string) (*Dataset, error) {
	log := i.log.StoreLogger(location)
	start := time.Now()
	res, err := ingest.Load(fsys, ingest.Options{Logger: *log.GetZerolog()})
	duration := time.Since(start)
	if err != nil {
		i.metrics.RecordLoad("none", "error", duration, 0, 0)
		log.LogLoad("", duration, 0, 0, err)
		return nil, err
	}

	md := res.Metadata
	i.metrics.RecordLoad(string(res.Strategy), "success", duration, len(md.Variables), len(md.Dimensions))
	log.LogLoad(string(res.Strategy), duration, len(md.Variables), len(md.Dimensions), nil)

	return &Dataset{
		Location: location,
		Metadata: md,
		Strategy: res.Strategy,
		Reader:   &countingReader{next: chunk.NewFSReader(fsys), metrics: i.metrics},
		log:      log,
	}, nil
}

// Check runs the CF checker over ds.
func (i *Inspector) Check(ctx context.Context, ds *Dataset) *cf.Report {
	start := time.Now()
	report := cf.Check(ctx, ds.Metadata, ds.Reader, i.opts.Check)
	duration := time.Since(start)

	infos := len(report.Issues()) - report.Warnings() - report.Errors()
	i.metrics.RecordIssues(infos, report.Warnings(), report.Errors())
	ds.logger(i.log).LogCheck(duration, report.Warnings(), report.Errors())
	return report
}

// Summarize derives the axis summary for ds.
func (i *Inspector) Summarize(ds *Dataset) *cf.Summary {
	return cf.Summarize(ds.Metadata)
}

func (d *Dataset) logger(fallback *logger.Logger) *logger.Logger {
	if d.log != nil {
		return d.log
	}
	return fallback
}

// countingReader records every subset read.
type countingReader struct {
	next    chunk.Reader
	metrics *metrics.Metrics
}

func (r *countingReader) ReadFloat64(ctx context.Context, path string, ranges []chunk.Range) ([]float64, error) {
	data, err := r.next.ReadFloat64(ctx, path, ranges)
	status := "success"
	if err != nil {
		status = "error"
	}
	r.metrics.RecordSampleRead(status)
	return data, err
}
