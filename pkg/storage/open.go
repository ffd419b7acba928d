// ABOUTME: Resolves a store location to a read-only fs.FS
// ABOUTME: Local directories and gs://bucket/prefix URLs

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// SchemeGCS prefixes Google Cloud Storage locations.
const SchemeGCS = "gs://"

// ErrNotDirectory is returned when a local location is not a directory.
var ErrNotDirectory = errors.New("storage: not a directory")

// Location is a parsed store location.
type Location struct {
	// Bucket is empty for local paths.
	Bucket string
	// Prefix is the object prefix inside Bucket, without slashes at either end.
	Prefix string
	// Path is the local directory when Bucket is empty.
	Path string
}

// Remote reports whether the location names a bucket.
func (l Location) Remote() bool { return l.Bucket != "" }

func (l Location) String() string {
	if !l.Remote() {
		return l.Path
	}
	if l.Prefix == "" {
		return SchemeGCS + l.Bucket
	}
	return SchemeGCS + l.Bucket + "/" + l.Prefix
}

// ParseLocation splits raw into a bucket and prefix for gs:// URLs; anything
// else is treated as a local path.
func ParseLocation(raw string) (Location, error) {
	if !strings.HasPrefix(raw, SchemeGCS) {
		if strings.TrimSpace(raw) == "" {
			return Location{}, errors.New("storage: empty store location")
		}
		return Location{Path: raw}, nil
	}
	rest := strings.TrimPrefix(raw, SchemeGCS)
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("storage: missing bucket in '%s'", raw)
	}
	return Location{Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
}

// Options configures Open.
type Options struct {
	// CredentialsFile is a service account key for bucket access. Empty uses
	// application default credentials.
	CredentialsFile string
	Logger          zerolog.Logger
}

// Store is an opened location.
type Store struct {
	FS       fs.FS
	Location Location
	closer   io.Closer
}

// Close releases the underlying client, if any.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Open resolves location and returns a filesystem rooted at the store.
func Open(ctx context.Context, location string, opts Options) (*Store, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}

	if loc.Remote() {
		gcsfs, err := NewGCSFS(ctx, loc.Bucket, loc.Prefix, opts)
		if err != nil {
			return nil, err
		}
		opts.Logger.Debug().Str("bucket", loc.Bucket).Str("prefix", loc.Prefix).Msg("opened bucket store")
		return &Store{FS: gcsfs, Location: loc, closer: gcsfs}, nil
	}

	abs, err := filepath.Abs(loc.Path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve '%s': %w", loc.Path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: open '%s': %w", loc.Path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: open '%s': %w", loc.Path, ErrNotDirectory)
	}
	opts.Logger.Debug().Str("path", abs).Msg("opened local store")
	return &Store{FS: os.DirFS(abs), Location: loc}, nil
}
