package documents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"fleetworks/depot/pkg/apperr"
)

// BlobStore holds document contents by key.
type BlobStore interface {
	// Put writes at most limit bytes from r under key and returns the size
	// and hex SHA-256 of the content. Content longer than limit fails with
	// ErrTooLarge and leaves nothing behind.
	Put(ctx context.Context, key string, r io.Reader, limit int64) (int64, string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// ErrTooLarge is returned for uploads above the configured size. It
// matches apperr.ErrInvalid.
var ErrTooLarge = fmt.Errorf("document exceeds the maximum upload size: %w", apperr.ErrInvalid)

// LocalStore keeps blobs as files under a root directory.
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create document root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// Root returns the directory blobs are written under.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

// Put writes the blob to a temporary file and renames it into place.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, limit int64) (int64, string, error) {
	dst, err := s.path(key)
	if err != nil {
		return 0, "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return 0, "", fmt.Errorf("create document directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return 0, "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), io.LimitReader(contextReader{ctx, r}, limit+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, "", fmt.Errorf("write document: %w", err)
	}
	if n > limit {
		return 0, "", ErrTooLarge
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return 0, "", fmt.Errorf("store document: %w", err)
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

// Open returns the blob content. A missing blob is apperr.ErrNotFound.
func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.NotFound("document content", key)
	}
	return f, err
}

// Delete removes the blob. Deleting a missing blob is not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
