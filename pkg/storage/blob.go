// Package storage keeps the raw bytes of uploaded files outside the metadata database.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrInvalidRef   = errors.New("invalid blob reference")
)

// BlobStore stores immutable blobs addressed by a stable, slash separated reference.
type BlobStore interface {
	Put(ctx context.Context, fileName string, data []byte) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	// Delete removes the blob; deleting a missing blob is not an error.
	Delete(ctx context.Context, ref string) error
}

// LocalBlobStore keeps blobs below a root directory.
type LocalBlobStore struct {
	root   string
	prefix string
}

func NewLocalBlobStore(root string) (*LocalBlobStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	store := &LocalBlobStore{root: root, prefix: "datasets"}
	if err := os.MkdirAll(filepath.Join(root, store.prefix), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return store, nil
}

// Put writes data under a fresh reference that keeps the original extension.
func (s *LocalBlobStore) Put(ctx context.Context, fileName string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	ref := path.Join(s.prefix, uuid.NewString()+ext)
	target, err := s.resolve(ref)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create blob: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to store blob: %w", err)
	}
	return ref, nil
}

func (s *LocalBlobStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
		}
		return nil, fmt.Errorf("failed to open blob %s: %w", ref, err)
	}
	return f, nil
}

func (s *LocalBlobStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete blob %s: %w", ref, err)
	}
	return nil
}

// Path returns the filesystem location of ref.
func (s *LocalBlobStore) Path(ref string) (string, error) {
	return s.resolve(ref)
}

func (s *LocalBlobStore) resolve(ref string) (string, error) {
	local := filepath.FromSlash(ref)
	if ref == "" || !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return filepath.Join(s.root, local), nil
}
