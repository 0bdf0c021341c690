package uploads

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismhq/prism/internal/shared"
)

type mockRepository struct {
	files    map[uuid.UUID]File
	failWith error
}

func newMockRepository() *mockRepository {
	return &mockRepository{files: map[uuid.UUID]File{}}
}

func (m *mockRepository) Create(_ context.Context, file File) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.files[file.ID] = file
	return nil
}

func (m *mockRepository) Get(_ context.Context, id uuid.UUID) (File, error) {
	f, ok := m.files[id]
	if !ok {
		return File{}, shared.ErrNotFound
	}
	return f, nil
}

func (m *mockRepository) List(_ context.Context, filters shared.ListFilters) ([]File, int, error) {
	var out []File
	for _, f := range m.files {
		if filters.OwnerID != nil && f.OwnerID != *filters.OwnerID {
			continue
		}
		out = append(out, f)
	}
	return out, len(out), nil
}

func (m *mockRepository) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.files[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.files, id)
	return nil
}

func newTestService(t *testing.T, repo Repository) (*Service, *DiskStore) {
	t.Helper()
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	return NewService(repo, store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func TestUploadRecordsMetadata(t *testing.T) {
	repo := newMockRepository()
	svc, store := newTestService(t, repo)

	file, err := svc.Upload(context.Background(), "report.pdf", "application/pdf", 7, strings.NewReader("pdf bytes"))
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.Equal(t, int64(len("pdf bytes")), file.Size)
	assert.NotEmpty(t, file.Checksum)
	assert.Equal(t, int64(7), file.OwnerID)

	rc, err := store.Open(context.Background(), file.ID)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(got))
}

func TestUploadStripsPathComponents(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestService(t, repo)

	file, err := svc.Upload(context.Background(), "../../etc/passwd", "text/plain", 7, strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "passwd", file.Filename)
}

func TestUploadDefaultsContentType(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestService(t, repo)

	file, err := svc.Upload(context.Background(), "blob.bin", "", 7, strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", file.ContentType)
}

func TestUploadRequiresOwner(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestService(t, repo)

	_, err := svc.Upload(context.Background(), "report.pdf", "application/pdf", 0, strings.NewReader("x"))
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestUploadRemovesBlobWhenMetadataFails(t *testing.T) {
	repo := newMockRepository()
	repo.failWith = errors.New("insert failed")
	root := t.TempDir()
	store, err := NewDiskStore(root)
	require.NoError(t, err)
	svc := NewService(repo, store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err = svc.Upload(context.Background(), "report.pdf", "application/pdf", 7, strings.NewReader("x"))
	require.Error(t, err)

	// no orphaned blob may remain on disk
	var leftover []string
	require.NoError(t, filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			leftover = append(leftover, path)
		}
		return nil
	}))
	assert.Empty(t, leftover)
}

func TestDeleteRemovesMetadataAndBlob(t *testing.T) {
	repo := newMockRepository()
	svc, store := newTestService(t, repo)

	file, err := svc.Upload(context.Background(), "report.pdf", "application/pdf", 7, strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), file.ID))
	_, err = svc.Get(context.Background(), file.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = store.Open(context.Background(), file.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOpenReturnsMetadataAndContent(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestService(t, repo)

	uploaded, err := svc.Upload(context.Background(), "notes.txt", "text/plain", 7, strings.NewReader("hello"))
	require.NoError(t, err)

	file, rc, err := svc.Open(context.Background(), uploaded.ID)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "notes.txt", file.Filename)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}
