// Package storage defines the interface to talk to the local image cache
package storage

import (
	"context"
	"io"
	"time"
)

type (
	// Meta contains the metadata stored along a cached file
	Meta struct {
		ContentType  string
		LastCached   time.Time
		LastModified time.Time
	}

	// Storage is the interface to implement when building a cache backend
	Storage interface {
		// Prepare makes sure the backend is able to store files
		Prepare(ctx context.Context) error
		// Exists reports whether a file is present at the cache path,
		// the presence alone qualifies the entry as valid
		Exists(ctx context.Context, cachePath string) (bool, error)
		GetFile(ctx context.Context, cachePath string) (io.ReadSeekCloser, error)
		LoadMeta(ctx context.Context, cachePath string) (*Meta, error)
		StoreFile(ctx context.Context, cachePath string, metadata *Meta, data io.Reader) error
	}
)
