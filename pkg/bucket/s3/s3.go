// Package s3 implements a bucket.Source reading objects from AWS S3 or
// S3 compatible services
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/Luzifer/empdir/pkg/bucket"
	"github.com/Luzifer/empdir/pkg/storage"
)

// Error codes not exported as constants by the SDK
const (
	errCodeAccessDenied = "AccessDenied"
	errCodeForbidden    = "Forbidden"
	errCodeNotFound     = "NotFound"
)

// Config describes the bucket to read from
type Config struct {
	Bucket string
	Region string

	// Endpoint overrides the AWS endpoint (MinIO, LocalStack, ...)
	Endpoint       string
	ForcePathStyle bool
}

// Source implements the bucket.Source interface for S3
type Source struct {
	bucket string
	region string
	client s3iface.S3API
}

var _ bucket.Source = Source{}

// New creates a Source using the default AWS credential chain
func New(cfg Config) (*Source, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.
			WithEndpoint(cfg.Endpoint).
			WithS3ForcePathStyle(cfg.ForcePathStyle)
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *awsCfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("creating AWS session: %w", err)
	}

	return NewWithClient(cfg, awss3.New(sess)), nil
}

// NewWithClient creates a Source talking through the given client
func NewWithClient(cfg Config, client s3iface.S3API) *Source {
	return &Source{
		bucket: cfg.Bucket,
		region: cfg.Region,
		client: client,
	}
}

// Fetch implements the bucket.Source Fetch method
func (s Source) Fetch(ctx context.Context, key string) (io.ReadCloser, *storage.Meta, error) {
	out, err := s.client.GetObjectWithContext(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("getting s3://%s/%s: %w", s.bucket, key, classifyError(err))
	}

	meta := &storage.Meta{
		ContentType:  aws.StringValue(out.ContentType),
		LastModified: aws.TimeValue(out.LastModified),
	}
	if meta.LastModified.IsZero() {
		meta.LastModified = time.Now()
	}

	return out.Body, meta, nil
}

// PublicURL implements the bucket.Source PublicURL method
func (s Source) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

func classifyError(err error) error {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case awss3.ErrCodeNoSuchBucket:
			return fmt.Errorf("%w: %w", bucket.ErrBucketNotFound, err)

		case awss3.ErrCodeNoSuchKey, errCodeNotFound:
			return fmt.Errorf("%w: %w", bucket.ErrKeyNotFound, err)

		case errCodeAccessDenied, errCodeForbidden:
			return fmt.Errorf("%w: %w", bucket.ErrAccessDenied, err)
		}
	}

	// HEAD-style responses carry no error body, only the status
	var rerr awserr.RequestFailure
	if errors.As(err, &rerr) {
		switch rerr.StatusCode() {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", bucket.ErrKeyNotFound, err)

		case http.StatusForbidden:
			return fmt.Errorf("%w: %w", bucket.ErrAccessDenied, err)
		}
	}

	return fmt.Errorf("%w: %w", bucket.ErrStorage, err)
}
