// Package bucket defines the interface for remote object storage buckets
// (e.g. s3 or gcs) the background image is fetched from.
package bucket

import (
	"context"
	"errors"
	"io"

	"github.com/Luzifer/empdir/pkg/storage"
)

// Errors returned by Source implementations. Backends wrap their native
// errors so callers can tell the failure reasons apart without knowing
// which SDK produced them.
var (
	ErrBucketNotFound = errors.New("bucket does not exist")
	ErrKeyNotFound    = errors.New("object does not exist")
	ErrAccessDenied   = errors.New("access denied")
	ErrStorage        = errors.New("storage error")
)

// Source is the interface to implement when building a remote image source
type Source interface {
	// Fetch opens the object stored under key. It's the caller's
	// responsibility to close the ReadCloser returned.
	Fetch(ctx context.Context, key string) (io.ReadCloser, *storage.Meta, error)

	// PublicURL returns the URL the object can be retrieved from without
	// going through this process
	PublicURL(key string) string
}

// Category names the kind of failure an error represents
type Category string

// Failure categories
const (
	CategoryNone           Category = ""
	CategoryBucketNotFound Category = "bucket-not-found"
	CategoryKeyNotFound    Category = "key-not-found"
	CategoryAccessDenied   Category = "access-denied"
	CategoryStorage        Category = "storage-error"
	CategoryGeneric        Category = "generic"
)

// Classify maps an error onto its failure Category. Errors not produced by
// a Source (local disk errors, cancelled contexts, ...) are CategoryGeneric.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryNone
	case errors.Is(err, ErrBucketNotFound):
		return CategoryBucketNotFound
	case errors.Is(err, ErrKeyNotFound):
		return CategoryKeyNotFound
	case errors.Is(err, ErrAccessDenied):
		return CategoryAccessDenied
	case errors.Is(err, ErrStorage):
		return CategoryStorage
	default:
		return CategoryGeneric
	}
}
