package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/trustshare/trustshare/internal/apperr"
)

// BlobStore holds file content under opaque keys. Implementations must
// consume the reader as a stream; callers never hand over a full buffer.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// DiskStore keeps blobs as flat files under a root directory.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create blob root: %v", apperr.ErrStorage, err)
	}
	return &DiskStore{root: root}, nil
}

func (d *DiskStore) path(key string) string {
	// Keys are server-generated, but keep path traversal out regardless.
	return filepath.Join(d.root, filepath.Base(strings.ReplaceAll(key, string(os.PathSeparator), "_")))
}

func (d *DiskStore) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	dst, err := os.Create(d.path(key))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	n, err := io.Copy(dst, r)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(d.path(key))
		return 0, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	return n, nil
}

func (d *DiskStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(d.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	return f, nil
}

func (d *DiskStore) Delete(ctx context.Context, key string) error {
	if err := os.Remove(d.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	return nil
}
