package storage

import (
	"fmt"
	"io"

	cfg "github.com/dshare/dshare/internal/config"
)

// Storage is the blob backend behind published share artifacts.
type Storage interface {
	// Save stores a blob at the given path, overwriting any previous one
	Save(path string, r io.Reader) error

	// Open returns a reader over the blob at the given path
	Open(path string) (io.ReadCloser, error)

	// Delete removes the blob at the given path
	Delete(path string) error

	// Exists reports whether a blob is present at the given path
	Exists(path string) (bool, error)

	// URL returns a directly fetchable URL for the blob, or "" when the
	// backend has no addressable URLs (local disk)
	URL(path string) string
}

// New creates the storage backend selected by config.
// Local disk is the default; "s3" works with any S3-compatible service
// (AWS S3, MinIO, Cloudflare R2, etc.).
func New(c *cfg.Config) (Storage, error) {
	switch c.StorageDriver {
	case "", "local":
		return NewLocalStorage(c.StoragePath)
	case "s3":
		return NewS3Storage(S3Config{
			Region:     c.S3Region,
			Bucket:     c.S3Bucket,
			AccessKey:  c.S3AccessKey,
			SecretKey:  c.S3SecretKey,
			Endpoint:   c.S3Endpoint,
			PresignTTL: c.S3PresignTTL,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
}
