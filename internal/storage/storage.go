// Package storage stores generated credential documents and template assets.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// ErrObjectNotFound is returned when an object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Backend identifies a storage implementation.
type Backend string

const (
	// BackendS3 stores objects in an S3-compatible bucket.
	BackendS3 Backend = "s3"
	// BackendLocal stores objects on the local filesystem.
	BackendLocal Backend = "local"
)

// ObjectStore is a flat key/value object store with public URLs.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	URL(key string) string
}

// Config selects and configures the storage backend.
type Config struct {
	Backend Backend
	S3      S3Config
	Local   LocalConfig
}

// New creates the configured ObjectStore.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (ObjectStore, error) {
	switch cfg.Backend {
	case BackendS3:
		return NewS3Store(ctx, cfg.S3, logger)
	case BackendLocal, "":
		return NewLocalStore(cfg.Local, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// ReadAll reads a whole object into memory.
func ReadAll(ctx context.Context, store ObjectStore, key string) ([]byte, error) {
	rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// Replace deletes any object at key before writing the new content, so that
// each key holds exactly one current file.
func Replace(ctx context.Context, store ObjectStore, key string, body io.Reader, contentType string) error {
	exists, err := store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check existing object %s: %w", key, err)
	}
	if exists {
		if err := store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete existing object %s: %w", key, err)
		}
	}
	return store.Put(ctx, key, body, contentType)
}
