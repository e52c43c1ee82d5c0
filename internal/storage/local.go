package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// LocalConfig configures the filesystem store.
type LocalConfig struct {
	// Dir is the absolute root directory.
	Dir string
	// BaseURL is the public URL prefix the directory is served under.
	BaseURL string
}

// Validate checks if the configuration is valid.
func (c *LocalConfig) Validate() error {
	if c.Dir == "" {
		return errors.New("local storage: dir is required")
	}
	if !filepath.IsAbs(c.Dir) {
		return errors.New("local storage: dir must be absolute")
	}
	return nil
}

// LocalStore keeps objects as files below a root directory.
type LocalStore struct {
	cfg    LocalConfig
	logger zerolog.Logger
}

// NewLocalStore creates a LocalStore, creating the root directory if needed.
func NewLocalStore(cfg LocalConfig, logger zerolog.Logger) (*LocalStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("local storage: create root: %w", err)
	}
	return &LocalStore{
		cfg:    cfg,
		logger: logger.With().Str("component", "local_storage").Logger(),
	}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("local storage: empty key")
	}
	return filepath.Join(s.cfg.Dir, clean), nil
}

// Put writes the object, creating parent directories.
func (s *LocalStore) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("local storage: create dir: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("local storage: create temp file: %w", err)
	}
	tmp := f.Name()
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("local storage: write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("local storage: close %s: %w", key, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("local storage: rename %s: %w", key, err)
	}

	s.logger.Debug().Str("key", key).Msg("object stored")
	return nil
}

// Get opens the object for reading.
func (s *LocalStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("local storage: open %s: %w", key, err)
	}
	return f, nil
}

// Delete removes the object. Missing objects are not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("local storage: delete %s: %w", key, err)
	}
	return nil
}

// Exists reports whether the object exists.
func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("local storage: stat %s: %w", key, err)
}

// URL returns the public URL of the object.
func (s *LocalStore) URL(key string) string {
	return joinURL(s.cfg.BaseURL, key)
}

func joinURL(base, key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}
