package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nainya/zarrdump/pkg/metadata"
)

// Strategy names which encoding produced a model.
type Strategy string

const (
	StrategyV3             Strategy = "v3"
	StrategyV3Consolidated Strategy = "v3-consolidated"
	StrategyConsolidated   Strategy = "consolidated"
	StrategyHierarchical   Strategy = "hierarchical"
)

// Options configures Load.
type Options struct {
	Logger zerolog.Logger
}

// Result is a loaded model and the strategy that built it.
type Result struct {
	Metadata *metadata.ZarrMetadata
	Strategy Strategy
}

// Load tries, in order: a v3 zarr.json at the root, a v2 .zmetadata index,
// and a hierarchical directory scan. A *ParseError stops the chain; any other
// failure moves on to the next strategy, and the hierarchical scan's error is
// returned once all have failed.
func Load(fsys fs.FS, opts Options) (*Result, error) {
	log := opts.Logger

	md, consolidated, err := LoadV3(fsys)
	if err == nil {
		s := StrategyV3
		if consolidated {
			s = StrategyV3Consolidated
		}
		log.Debug().Str("strategy", string(s)).Msg("Loaded Zarr v3 metadata")
		return &Result{Metadata: md, Strategy: s}, nil
	}
	if isFatal(err) {
		return nil, err
	}
	logFallback(log, StrategyV3, err)

	md, err = LoadConsolidated(fsys)
	if err == nil {
		log.Debug().Str("strategy", string(StrategyConsolidated)).Msg("Loaded consolidated metadata")
		return &Result{Metadata: md, Strategy: StrategyConsolidated}, nil
	}
	if isFatal(err) {
		return nil, err
	}
	logFallback(log, StrategyConsolidated, err)

	md, err = LoadHierarchical(fsys)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrNotStore, err)
		}
		return nil, err
	}
	log.Debug().Str("strategy", string(StrategyHierarchical)).Msg("Loaded hierarchical metadata")
	return &Result{Metadata: md, Strategy: StrategyHierarchical}, nil
}

// isFatal reports whether err comes from a present but malformed document.
func isFatal(err error) bool {
	var perr *ParseError
	return errors.As(err, &perr)
}

func logFallback(log zerolog.Logger, s Strategy, err error) {
	event := log.Warn()
	if errors.Is(err, fs.ErrNotExist) {
		event = log.Debug()
	}
	event.Str("strategy", string(s)).Err(err).Msg("Metadata strategy failed, trying next")
}

func joinKey(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// linkChildren records each node's name on its parent group.
func linkChildren(md *metadata.ZarrMetadata) {
	add := func(key string) {
		if key == "" {
			return
		}
		parent, name := "", key
		if i := strings.LastIndex(key, "/"); i >= 0 {
			parent, name = key[:i], key[i+1:]
		}
		g := md.RootGroup
		if parent != "" {
			g = md.Groups[parent]
		}
		if g != nil {
			g.Children = append(g.Children, name)
		}
	}

	md.RootGroup.Children = nil
	for _, g := range md.Groups {
		g.Children = nil
	}
	for _, p := range md.GroupPaths() {
		add(p)
	}
	for _, p := range md.VariablePaths() {
		add(p)
	}
}
