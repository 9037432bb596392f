// Package local implements a storage.Storage backend for the on-disk image cache
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Luzifer/empdir/pkg/storage"
)

const (
	storageLocalDirPermission = 0o755
	metaSuffix                = "meta"
	tmpSuffix                 = "tmp"
)

// Storage implements the storage.Storage interface for local file storage
type Storage struct {
	basePath string
}

var _ storage.Storage = Storage{}

// New returns a new local file storage
func New(basePath string) Storage { return Storage{basePath} }

// BasePath returns the directory the cache lives in
func (s Storage) BasePath() string { return s.basePath }

// IsInternalFile tells whether the given cache path points to a metadata
// sidecar or an unfinished download instead of a cached file
func IsInternalFile(cachePath string) bool {
	return strings.HasSuffix(cachePath, "."+metaSuffix) ||
		strings.HasSuffix(cachePath, "."+tmpSuffix)
}

// IsServable tells whether name can be stored in and served from the
// cache: a plain file name which is neither hidden nor an internal file
func IsServable(name string) bool {
	switch {
	case name == "", name == ".", name == "..":
		return false
	case strings.ContainsAny(name, `/\`):
		return false
	case strings.HasPrefix(name, "."):
		return false
	default:
		return !IsInternalFile(name)
	}
}

// Prepare implements the storage.Storage Prepare method
func (s Storage) Prepare(_ context.Context) error {
	if _, err := os.Stat(s.basePath); err == nil {
		return nil
	}

	if err := os.MkdirAll(s.basePath, storageLocalDirPermission); err != nil {
		return errors.Wrap(err, "create cache dir")
	}

	logrus.WithField("path", s.basePath).Info("created cache directory")
	return nil
}

// Exists implements the storage.Storage Exists method
func (s Storage) Exists(_ context.Context, cachePath string) (bool, error) {
	info, err := os.Stat(path.Join(s.basePath, cachePath))
	switch {
	case err == nil:
		return !info.IsDir(), nil

	case os.IsNotExist(err):
		return false, nil

	default:
		return false, fmt.Errorf("getting cache file stat: %w", err)
	}
}

// GetFile implements the storage.Storage GetFile method
func (s Storage) GetFile(_ context.Context, cachePath string) (io.ReadSeekCloser, error) {
	cachePath = path.Join(s.basePath, cachePath)
	rsc, err := os.Open(cachePath) //#nosec:G304 // Safe source of variable
	if err != nil {
		return nil, fmt.Errorf("opening cache file: %w", err)
	}

	return rsc, nil
}

// LoadMeta implements the storage.Storage LoadMeta method. Files which were
// placed into the cache directory by other means than StoreFile have no
// metadata sidecar: for those the metadata is derived from the file itself.
func (s Storage) LoadMeta(_ context.Context, cachePath string) (*storage.Meta, error) {
	cachePath = path.Join(s.basePath, cachePath)

	info, err := os.Stat(cachePath)
	if err != nil {
		return nil, fmt.Errorf("getting cache file stat: %w", err)
	}

	metaPath := strings.Join([]string{cachePath, metaSuffix}, ".")
	f, err := os.Open(metaPath) //#nosec:G304 // Safe source of variable
	switch {
	case err == nil:
		// Sidecar present

	case os.IsNotExist(err):
		return &storage.Meta{
			LastCached:   info.ModTime(),
			LastModified: info.ModTime(),
		}, nil

	default:
		return nil, errors.Wrap(err, "open metadata file")
	}
	defer func() {
		if err := f.Close(); err != nil {
			logrus.WithError(err).Error("closing metadata file (leaked fd)")
		}
	}()

	out := new(storage.Meta)
	return out, errors.Wrap(
		json.NewDecoder(f).Decode(out),
		"decode metadata file",
	)
}

// StoreFile implements the storage.Storage StoreFile method. The data is
// written into a temporary file which is renamed into place only after it
// has been fully written: Exists never sees a partial download.
func (s Storage) StoreFile(_ context.Context, cachePath string, metadata *storage.Meta, data io.Reader) (err error) {
	cachePath = path.Join(s.basePath, cachePath)

	if err = os.MkdirAll(path.Dir(cachePath), storageLocalDirPermission); err != nil {
		return errors.Wrap(err, "create cache dir")
	}

	tmpPath := strings.Join([]string{cachePath, uuid.NewString(), tmpSuffix}, ".")
	defer func() {
		if err != nil {
			if rerr := os.Remove(tmpPath); rerr != nil && !os.IsNotExist(rerr) {
				logrus.WithError(rerr).WithField("path", tmpPath).Error("removing temporary cache file")
			}
		}
	}()

	if err = writeFile(tmpPath, data); err != nil {
		return err
	}

	if metadata != nil {
		metadata.LastCached = time.Now()
		if err = s.saveMeta(cachePath, metadata); err != nil {
			return err
		}
	}

	return errors.Wrap(os.Rename(tmpPath, cachePath), "move cache file into place")
}

func (Storage) saveMeta(cachePath string, metadata *storage.Meta) (err error) {
	metaPath := strings.Join([]string{cachePath, metaSuffix}, ".")
	tmpPath := strings.Join([]string{metaPath, uuid.NewString(), tmpSuffix}, ".")

	f, err := os.Create(tmpPath) //#nosec:G304 // Safe source of variable
	if err != nil {
		return errors.Wrap(err, "create cache meta file")
	}
	defer func() {
		if err != nil {
			if rerr := os.Remove(tmpPath); rerr != nil && !os.IsNotExist(rerr) {
				logrus.WithError(rerr).WithField("path", tmpPath).Error("removing temporary meta file")
			}
		}
	}()

	if err = json.NewEncoder(f).Encode(metadata); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "write cache meta file")
	}

	if err = f.Close(); err != nil {
		return errors.Wrap(err, "close cache meta file")
	}

	return errors.Wrap(os.Rename(tmpPath, metaPath), "move cache meta file into place")
}

func writeFile(p string, data io.Reader) error {
	f, err := os.Create(p) //#nosec:G304 // Safe source of variable
	if err != nil {
		return errors.Wrap(err, "create cache file")
	}

	if _, err = io.Copy(f, data); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "write cache file")
	}

	return errors.Wrap(f.Close(), "close cache file")
}
