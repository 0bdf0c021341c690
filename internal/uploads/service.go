package uploads

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prismhq/prism/internal/shared"
)

const maxFilenameLen = 255

// Service orchestrates uploads: blob first, metadata second.
type Service struct {
	repo   Repository
	store  Store
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, store Store, logger *slog.Logger) *Service {
	return &Service{repo: repo, store: store, logger: logger}
}

// Upload streams content into the blob store and records its metadata. If the
// metadata insert fails the blob is removed again.
func (s *Service) Upload(ctx context.Context, filename, contentType string, ownerID int64, r io.Reader) (File, error) {
	filename = sanitizeFilename(filename)
	if filename == "" {
		return File{}, fmt.Errorf("%w: filename required", shared.ErrValidation)
	}
	if ownerID <= 0 {
		return File{}, fmt.Errorf("%w: owner required", shared.ErrValidation)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	id := uuid.New()
	size, checksum, err := s.store.Save(ctx, id, r)
	if err != nil {
		return File{}, fmt.Errorf("save blob: %w", err)
	}

	file := File{
		ID:          id,
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		Checksum:    checksum,
		OwnerID:     ownerID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, file); err != nil {
		if rmErr := s.store.Remove(ctx, id); rmErr != nil {
			s.logger.Warn("remove orphaned blob", slog.String("id", id.String()), slog.Any("error", rmErr))
		}
		return File{}, err
	}
	return file, nil
}

// Get fetches file metadata.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (File, error) {
	return s.repo.Get(ctx, id)
}

// List returns file metadata with pagination.
func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]File, shared.Pagination, error) {
	files, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return files, shared.NewPagination(filters.Page, filters.Limit, total), nil
}

// Open returns the metadata and a reader over the blob content.
func (s *Service) Open(ctx context.Context, id uuid.UUID) (File, io.ReadCloser, error) {
	file, err := s.repo.Get(ctx, id)
	if err != nil {
		return File{}, nil, err
	}
	rc, err := s.store.Open(ctx, id)
	if err != nil {
		return File{}, nil, err
	}
	return file, rc, nil
}

// Delete removes the metadata row and then the blob. A missing blob after
// the row is gone is only logged.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.store.Remove(ctx, id); err != nil {
		s.logger.Warn("remove blob", slog.String("id", id.String()), slog.Any("error", err))
	}
	return nil
}

// sanitizeFilename strips any path components and trims the result.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	if len(name) > maxFilenameLen {
		name = name[:maxFilenameLen]
	}
	return name
}
