package resolver

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luzifer/empdir/pkg/bucket"
	"github.com/Luzifer/empdir/pkg/storage"
	"github.com/Luzifer/empdir/pkg/storage/local"
)

type fakeSource struct {
	bucket, region string

	content string
	err     error
	calls   int
}

func (f *fakeSource) Fetch(_ context.Context, _ string) (io.ReadCloser, *storage.Meta, error) {
	f.calls++
	if f.err != nil {
		return nil, nil, f.err
	}

	return io.NopCloser(strings.NewReader(f.content)), &storage.Meta{
		ContentType:  "image/jpeg",
		LastModified: time.Now(),
	}, nil
}

func (f *fakeSource) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", f.bucket, f.region, key)
}

func newTestResolver(t *testing.T, src *fakeSource, key string) (*Resolver, string) {
	t.Helper()

	cacheDir := filepath.Join(t.TempDir(), "images")
	return New(src, local.New(cacheDir), key), cacheDir
}

func TestResolveCacheHitSkipsDownload(t *testing.T) {
	src := &fakeSource{bucket: "test-bucket", region: "us-east-1", content: "remote"}
	r, cacheDir := newTestResolver(t, src, "backgrounds/bg.jpg")

	require.NoError(t, os.MkdirAll(cacheDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "bg.jpg"), []byte("cached"), 0o600))

	u, ok := r.Resolve(context.Background())
	require.True(t, ok)
	assert.Equal(t, "/images/bg.jpg", u)
	assert.Zero(t, src.calls, "cache hit must not reach the bucket")

	content, err := os.ReadFile(filepath.Join(cacheDir, "bg.jpg")) //#nosec:G304 // Test file
	require.NoError(t, err)
	assert.Equal(t, "cached", string(content))
}

func TestResolveCacheHitIsIdempotent(t *testing.T) {
	src := &fakeSource{bucket: "test-bucket", region: "us-east-1", content: "remote"}
	r, cacheDir := newTestResolver(t, src, "bg.jpg")

	require.NoError(t, os.MkdirAll(cacheDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "bg.jpg"), []byte("cached"), 0o600))

	first := r.BackgroundURL(context.Background())
	second := r.BackgroundURL(context.Background())
	assert.Equal(t, first, second)
	assert.Equal(t, "/images/bg.jpg", first)
	assert.Zero(t, src.calls)
}

func TestResolveCacheMissDownloads(t *testing.T) {
	src := &fakeSource{bucket: "test-bucket", region: "us-east-1", content: "remote-image"}
	r, cacheDir := newTestResolver(t, src, "bg.jpg")

	u, ok := r.Resolve(context.Background())
	require.True(t, ok)
	assert.Equal(t, "/images/bg.jpg", u)
	assert.Equal(t, 1, src.calls)

	content, err := os.ReadFile(filepath.Join(cacheDir, "bg.jpg")) //#nosec:G304 // Test file
	require.NoError(t, err)
	assert.Equal(t, "remote-image", string(content))

	// Now cached: no further download
	u, ok = r.Resolve(context.Background())
	require.True(t, ok)
	assert.Equal(t, "/images/bg.jpg", u)
	assert.Equal(t, 1, src.calls)
}

func TestBackgroundURLDownloadScenario(t *testing.T) {
	src := &fakeSource{bucket: "test-bucket", region: "us-east-1", content: "jpeg"}
	r, cacheDir := newTestResolver(t, src, "bg.jpg")

	assert.Equal(t, "/images/bg.jpg", r.BackgroundURL(context.Background()))
	assert.FileExists(t, filepath.Join(cacheDir, "bg.jpg"))
}

func TestResolveFailuresFallBack(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"bucket not found", fmt.Errorf("%w: test-bucket", bucket.ErrBucketNotFound)},
		{"key not found", fmt.Errorf("%w: bg.jpg", bucket.ErrKeyNotFound)},
		{"access denied", fmt.Errorf("%w: forbidden", bucket.ErrAccessDenied)},
		{"other storage error", fmt.Errorf("%w: slow down", bucket.ErrStorage)},
		{"generic", io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{bucket: "test-bucket", region: "us-east-1", err: tt.err}
			r, cacheDir := newTestResolver(t, src, "bg.jpg")

			u, ok := r.Resolve(context.Background())
			assert.False(t, ok)
			assert.Empty(t, u)

			assert.Equal(t,
				"https://test-bucket.s3.us-east-1.amazonaws.com/bg.jpg",
				r.BackgroundURL(context.Background()))
			assert.NoFileExists(t, filepath.Join(cacheDir, "bg.jpg"))

			// No circuit breaking: every miss goes to the bucket again
			assert.Equal(t, 2, src.calls)
		})
	}
}

func TestResolveUnservableKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"root", "/"},
		{"parent directory", "backgrounds/.."},
		{"hidden file", "backgrounds/.bg.jpg"},
		{"metadata sidecar", "bg.meta"},
		{"temporary file", "photo.tmp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{bucket: "test-bucket", region: "us-east-1", content: "jpeg"}
			r, _ := newTestResolver(t, src, tt.key)

			_, ok := r.Resolve(context.Background())
			assert.False(t, ok)
			assert.Zero(t, src.calls)

			assert.Equal(t,
				"https://test-bucket.s3.us-east-1.amazonaws.com/"+tt.key,
				r.BackgroundURL(context.Background()))
		})
	}
}

func TestLocalURLEscapesFilename(t *testing.T) {
	src := &fakeSource{bucket: "test-bucket", region: "us-east-1", content: "jpeg"}
	r, cacheDir := newTestResolver(t, src, "backgrounds/bg#1 final.jpg")

	u, ok := r.Resolve(context.Background())
	require.True(t, ok)
	assert.Equal(t, "/images/bg%231%20final.jpg", u)
	assert.FileExists(t, filepath.Join(cacheDir, "bg#1 final.jpg"))
}

func TestResolveCreatesCacheDirectory(t *testing.T) {
	src := &fakeSource{bucket: "test-bucket", region: "us-east-1", err: bucket.ErrKeyNotFound}
	r, cacheDir := newTestResolver(t, src, "bg.jpg")

	_, ok := r.Resolve(context.Background())
	assert.False(t, ok)
	assert.DirExists(t, cacheDir)
}
