package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local implements Provider on the filesystem
type Local struct {
	dir string
}

// NewLocal creates a local provider rooted at dir
func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

func (l *Local) path(key string) (string, error) {
	if key != SafeName(key) {
		return "", fmt.Errorf("invalid file name %q", key)
	}
	return filepath.Join(l.dir, key), nil
}

// Save writes r to a new file. Existing files are never overwritten.
func (l *Local) Save(ctx context.Context, key string, r io.Reader, contentType string, size int64) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	dst, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(p)
		return fmt.Errorf("failed to save file: %w", err)
	}
	return dst.Close()
}

// Open returns the stored file and its content type
func (l *Local) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, "", ErrNotFound
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	return f, ContentType(key), nil
}

// Delete removes a stored file. Missing files are not an error.
func (l *Local) Delete(ctx context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
