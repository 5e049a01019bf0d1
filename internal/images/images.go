// Package images keeps uploaded character portraits as {dir}/{id}.png.
package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
)

var (
	ErrTooLarge    = errors.New("image exceeds upload limit")
	ErrInvalidName = errors.New("invalid image name")
)

var safeName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Store writes and removes image files under one directory.
type Store struct {
	dir      string
	maxBytes int64
}

// New creates dir when needed.
func New(dir string, maxBytes int64) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("images: directory is required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("images: max bytes must be positive")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("images: create %s: %w", dir, err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

// Dir is the root served under /images/.
func (s *Store) Dir() string { return s.dir }

// Path returns the on-disk location for id.
func (s *Store) Path(id string) (string, error) {
	if !safeName.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, id)
	}
	return filepath.Join(s.dir, id+".png"), nil
}

// Save replaces the image for id with the contents of r.
func (s *Store) Save(id string, r io.Reader) (err error) {
	dst, err := s.Path(id)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "."+id+".png.tmp-*")
	if err != nil {
		return fmt.Errorf("images: create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	// one byte past the limit tells us the upload was too big
	n, err := io.Copy(tmp, io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return fmt.Errorf("images: write %s: %w", id, err)
	}
	if n > s.maxBytes {
		return fmt.Errorf("%w: more than %d bytes", ErrTooLarge, s.maxBytes)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("images: sync %s: %w", id, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("images: close %s: %w", id, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("images: chmod %s: %w", id, err)
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("images: rename %s: %w", id, err)
	}
	return nil
}

// Remove deletes the image for id. A missing file is not an error.
func (s *Store) Remove(id string) error {
	p, err := s.Path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("images: remove %s: %w", id, err)
	}
	return nil
}

// HealthPing checks that the directory is still there and writable.
func (s *Store) HealthPing(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.CreateTemp(s.dir, ".health-*")
	if err != nil {
		return fmt.Errorf("images: dir not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
