package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/prismhq/prism/internal/shared"
)

// Store persists raw blobs keyed by file id.
type Store interface {
	// Save streams r to storage and returns the byte count and the hex
	// BLAKE2b-256 checksum of what was written.
	Save(ctx context.Context, id uuid.UUID, r io.Reader) (int64, string, error)
	Open(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

// DiskStore keeps blobs as flat files under a root directory, sharded by the
// first two characters of the id to keep directories small.
type DiskStore struct {
	root string
}

// NewDiskStore constructs a DiskStore, creating the root directory if needed.
func NewDiskStore(root string) (*DiskStore, error) {
	if root == "" {
		return nil, errors.New("uploads: store root required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("uploads: create store root: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) path(id uuid.UUID) string {
	name := id.String()
	return filepath.Join(s.root, name[:2], name)
}

func (s *DiskStore) Save(_ context.Context, id uuid.UUID, r io.Reader) (int64, string, error) {
	dest := s.path(id)
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return 0, "", err
	}

	// write to a temp file first so a failed upload never leaves a partial
	// blob at the final path
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return 0, "", err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	hasher, err := blake2b.New256(nil)
	if err != nil {
		return 0, "", err
	}
	size, err := io.Copy(io.MultiWriter(tmp, hasher), r)
	if err != nil {
		return 0, "", err
	}
	if err := tmp.Close(); err != nil {
		return 0, "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return 0, "", err
	}
	return size, fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

func (s *DiskStore) Open(_ context.Context, id uuid.UUID) (io.ReadCloser, error) {
	f, err := os.Open(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, shared.ErrNotFound
	}
	return f, err
}

func (s *DiskStore) Remove(_ context.Context, id uuid.UUID) error {
	err := os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return shared.ErrNotFound
	}
	return err
}
