package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const emulatorHostEnv = "STORAGE_EMULATOR_HOST"

// GCSFS exposes a bucket prefix as a read-only filesystem. Object names are
// slash-separated; directories are implied by common prefixes.
type GCSFS struct {
	ctx    context.Context
	client *gcs.Client
	bucket *gcs.BucketHandle
	prefix string
}

var (
	_ fs.ReadFileFS = (*GCSFS)(nil)
	_ fs.ReadDirFS  = (*GCSFS)(nil)
	_ fs.StatFS     = (*GCSFS)(nil)
)

// NewGCSFS creates a client and binds it to bucket/prefix. ctx bounds every
// request made through the filesystem.
func NewGCSFS(ctx context.Context, bucket, prefix string, opts Options) (*GCSFS, error) {
	var clientOpts []option.ClientOption
	switch {
	case os.Getenv(emulatorHostEnv) != "":
		clientOpts = append(clientOpts, option.WithoutAuthentication())
	case opts.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	clientOpts = append(clientOpts, option.WithScopes(gcs.ScopeReadOnly))

	client, err := gcs.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: create bucket client: %w", err)
	}
	return &GCSFS{
		ctx:    ctx,
		client: client,
		bucket: client.Bucket(bucket),
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

// Close closes the client.
func (g *GCSFS) Close() error {
	return g.client.Close()
}

// objectName maps a valid fs path to an object name.
func (g *GCSFS) objectName(name string) string {
	if name == "." {
		return g.prefix
	}
	if g.prefix == "" {
		return name
	}
	return g.prefix + "/" + name
}

// dirPrefix is the listing prefix for a directory path.
func (g *GCSFS) dirPrefix(name string) string {
	if p := g.objectName(name); p != "" {
		return p + "/"
	}
	return ""
}

func (g *GCSFS) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) || name == "." {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrInvalid}
	}
	r, err := g.bucket.Object(g.objectName(name)).NewReader(g.ctx)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: mapError(err)}
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	return data, nil
}

func (g *GCSFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	prefix := g.dirPrefix(name)
	it := g.bucket.Objects(g.ctx, &gcs.Query{Prefix: prefix, Delimiter: "/"})

	var entries []fs.DirEntry
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: mapError(err)}
		}
		if attrs.Prefix != "" {
			entries = append(entries, &objectInfo{name: path.Base(strings.TrimSuffix(attrs.Prefix, "/")), dir: true})
			continue
		}
		if attrs.Name == prefix {
			// zero-byte directory placeholder
			continue
		}
		entries = append(entries, &objectInfo{name: path.Base(attrs.Name), size: attrs.Size, modTime: attrs.Updated})
	}

	if len(entries) == 0 && name != "." {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (g *GCSFS) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		return &objectInfo{name: ".", dir: true}, nil
	}

	attrs, err := g.bucket.Object(g.objectName(name)).Attrs(g.ctx)
	if err == nil {
		return &objectInfo{name: path.Base(name), size: attrs.Size, modTime: attrs.Updated}, nil
	}
	if !errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}

	it := g.bucket.Objects(g.ctx, &gcs.Query{Prefix: g.dirPrefix(name)})
	if _, err := it.Next(); err != nil {
		if errors.Is(err, iterator.Done) {
			err = fs.ErrNotExist
		}
		return nil, &fs.PathError{Op: "stat", Path: name, Err: mapError(err)}
	}
	return &objectInfo{name: path.Base(name), dir: true}, nil
}

// Open returns a buffered file for objects and a listing for directories.
func (g *GCSFS) Open(name string) (fs.File, error) {
	info, err := g.Stat(name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		entries, err := g.ReadDir(name)
		if err != nil {
			return nil, err
		}
		return &dirFile{info: info, entries: entries}, nil
	}
	data, err := g.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return &objectFile{info: info, Reader: bytes.NewReader(data)}, nil
}

func mapError(err error) error {
	if errors.Is(err, gcs.ErrObjectNotExist) || errors.Is(err, gcs.ErrBucketNotExist) {
		return fs.ErrNotExist
	}
	return err
}

// objectInfo serves as both fs.FileInfo and fs.DirEntry.
type objectInfo struct {
	name    string
	size    int64
	modTime time.Time
	dir     bool
}

func (o *objectInfo) Name() string       { return o.name }
func (o *objectInfo) Size() int64        { return o.size }
func (o *objectInfo) ModTime() time.Time { return o.modTime }
func (o *objectInfo) IsDir() bool        { return o.dir }
func (o *objectInfo) Sys() any           { return nil }

func (o *objectInfo) Mode() fs.FileMode {
	if o.dir {
		return fs.ModeDir | 0o555
	}
	return 0o444
}

func (o *objectInfo) Type() fs.FileMode          { return o.Mode().Type() }
func (o *objectInfo) Info() (fs.FileInfo, error) { return o, nil }

type objectFile struct {
	*bytes.Reader
	info fs.FileInfo
}

func (f *objectFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *objectFile) Close() error               { return nil }

type dirFile struct {
	info    fs.FileInfo
	entries []fs.DirEntry
	offset  int
}

func (d *dirFile) Stat() (fs.FileInfo, error) { return d.info, nil }
func (d *dirFile) Close() error               { return nil }

func (d *dirFile) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.info.Name(), Err: fs.ErrInvalid}
}

func (d *dirFile) ReadDir(n int) ([]fs.DirEntry, error) {
	rest := d.entries[d.offset:]
	if n <= 0 {
		d.offset = len(d.entries)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	n = min(n, len(rest))
	d.offset += n
	return rest[:n], nil
}
