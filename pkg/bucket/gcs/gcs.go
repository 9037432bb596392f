// Package gcs implements a bucket.Source reading objects from GCS
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	pkgerrors "github.com/pkg/errors"
	"google.golang.org/api/googleapi"

	"github.com/Luzifer/empdir/pkg/bucket"
	"github.com/Luzifer/empdir/pkg/storage"
)

const publicBaseURL = "https://storage.googleapis.com"

// Source implements the bucket.Source interface for GCS
type Source struct {
	bucket string
	client *gcs.Client
}

var _ bucket.Source = Source{}

// New returns a new GCS source for the given bucket. The bucket may be
// given either as a plain name or as a gs:// URI.
func New(ctx context.Context, bucketName string) (*Source, error) {
	if strings.HasPrefix(bucketName, "gs://") {
		uri, err := url.Parse(bucketName)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "parse GCS bucket URI")
		}
		bucketName = uri.Host
	}

	if bucketName == "" {
		return nil, errors.New("bucket name is required")
	}

	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create GCS client")
	}

	return &Source{
		bucket: bucketName,
		client: client,
	}, nil
}

// Fetch implements the bucket.Source Fetch method
func (s Source) Fetch(ctx context.Context, key string) (io.ReadCloser, *storage.Meta, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("getting gs://%s/%s: %w", s.bucket, key, classifyError(err))
	}

	meta := &storage.Meta{
		ContentType:  r.Attrs.ContentType,
		LastModified: r.Attrs.LastModified,
	}
	if meta.LastModified.IsZero() {
		meta.LastModified = time.Now()
	}

	return r, meta, nil
}

// PublicURL implements the bucket.Source PublicURL method
func (s Source) PublicURL(key string) string {
	return strings.Join([]string{publicBaseURL, s.bucket, key}, "/")
}

func classifyError(err error) error {
	switch {
	case errors.Is(err, gcs.ErrBucketNotExist):
		return fmt.Errorf("%w: %w", bucket.ErrBucketNotFound, err)

	case errors.Is(err, gcs.ErrObjectNotExist):
		return fmt.Errorf("%w: %w", bucket.ErrKeyNotFound, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", bucket.ErrAccessDenied, err)

		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", bucket.ErrKeyNotFound, err)
		}
	}

	return fmt.Errorf("%w: %w", bucket.ErrStorage, err)
}
