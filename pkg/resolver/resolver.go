// Package resolver decides which URL the pages embed as background image:
// the locally cached copy when available or downloadable, the remote
// object otherwise.
package resolver

import (
	"context"
	"net/url"
	"path"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Luzifer/empdir/pkg/bucket"
	"github.com/Luzifer/empdir/pkg/storage"
	"github.com/Luzifer/empdir/pkg/storage/local"
)

// LocalURLPrefix is the path the cached images are served under
const LocalURLPrefix = "/images/"

// Resolver resolves the background image URL for a single configured object
type Resolver struct {
	source bucket.Source
	cache  storage.Storage
	key    string
}

// New creates a Resolver for the object stored under key in source,
// caching it in cache
func New(source bucket.Source, cache storage.Storage, key string) *Resolver {
	return &Resolver{source: source, cache: cache, key: key}
}

// Filename returns the name of the cache entry for the configured key
func (r Resolver) Filename() string { return path.Base(r.key) }

// LocalURL returns the URL the cached image is served under
func (r Resolver) LocalURL() string { return LocalURLPrefix + url.PathEscape(r.Filename()) }

// FallbackURL returns the URL of the remote object
func (r Resolver) FallbackURL() string { return r.source.PublicURL(r.key) }

// Resolve returns the local URL of the background image, downloading it
// into the cache on a cache miss. When the image is neither cached nor
// downloadable ok is false; the cause has been logged by then.
func (r Resolver) Resolve(ctx context.Context) (localURL string, ok bool) {
	logger := logrus.WithFields(logrus.Fields{
		"key":  r.key,
		"file": r.Filename(),
	})

	if err := r.fetch(ctx, logger); err != nil {
		logFailure(logger, err)
		return "", false
	}

	return r.LocalURL(), true
}

// BackgroundURL resolves the image and falls back to the remote URL if it
// cannot be served locally. It always yields a usable URL.
func (r Resolver) BackgroundURL(ctx context.Context) string {
	if u, ok := r.Resolve(ctx); ok {
		logrus.WithField("url", u).Debug("using local background image")
		return u
	}

	u := r.FallbackURL()
	logrus.WithField("url", u).Info("falling back to remote background image")
	return u
}

func (r Resolver) fetch(ctx context.Context, logger *logrus.Entry) error {
	if err := r.cache.Prepare(ctx); err != nil {
		return errors.Wrap(err, "preparing cache")
	}

	filename := r.Filename()
	if !local.IsServable(filename) {
		return errors.Errorf("key %q has no file name the cache can serve", r.key)
	}

	cached, err := r.cache.Exists(ctx, filename)
	if err != nil {
		return errors.Wrap(err, "checking cache")
	}

	if cached {
		logger.Debug("background image found in cache")
		return nil
	}

	logger.Info("downloading background image")

	body, meta, err := r.source.Fetch(ctx, r.key)
	if err != nil {
		return err
	}
	defer func() {
		if err := body.Close(); err != nil {
			logger.WithError(err).Error("closing object reader")
		}
	}()

	if err = r.cache.StoreFile(ctx, filename, meta, body); err != nil {
		return errors.Wrap(err, "storing background image")
	}

	logger.Info("background image downloaded")
	return nil
}

func logFailure(logger *logrus.Entry, err error) {
	cat := bucket.Classify(err)
	logger = logger.WithError(err).WithField("category", cat)

	switch cat {
	case bucket.CategoryBucketNotFound:
		logger.Error("bucket does not exist")
	case bucket.CategoryKeyNotFound:
		logger.Error("background image not found in bucket")
	case bucket.CategoryAccessDenied:
		logger.Error("access to bucket denied, check credentials and permissions")
	case bucket.CategoryStorage:
		logger.Error("fetching background image from bucket")
	default:
		logger.Error("resolving background image")
	}
}
