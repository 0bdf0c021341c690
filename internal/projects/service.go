package projects

import (
	"context"
	"fmt"
	"strings"

	"github.com/prismhq/prism/internal/shared"
)

// Service orchestrates project operations.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns projects with pagination metadata.
func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Project, shared.Pagination, error) {
	projects, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return projects, shared.NewPagination(filters.Page, filters.Limit, total), nil
}

// Get fetches a project by id.
func (s *Service) Get(ctx context.Context, id int64) (Project, error) {
	if id <= 0 {
		return Project{}, fmt.Errorf("%w: invalid project id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create inserts a new active project owned by the caller.
func (s *Service) Create(ctx context.Context, project Project) (Project, error) {
	project.Name = strings.TrimSpace(project.Name)
	if project.Name == "" {
		return Project{}, fmt.Errorf("%w: project name required", shared.ErrValidation)
	}
	if project.OwnerID <= 0 {
		return Project{}, fmt.Errorf("%w: project owner required", shared.ErrValidation)
	}
	project.Status = StatusActive
	return s.repo.Create(ctx, project)
}

// Update rewrites a project's name and description.
func (s *Service) Update(ctx context.Context, id int64, project Project) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid project id", shared.ErrValidation)
	}
	project.Name = strings.TrimSpace(project.Name)
	if project.Name == "" {
		return fmt.Errorf("%w: project name required", shared.ErrValidation)
	}
	return s.repo.Update(ctx, id, project)
}

// Archive moves a project to the archived state. Archiving an already
// archived project is a no-op.
func (s *Service) Archive(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid project id", shared.ErrValidation)
	}
	return s.repo.SetStatus(ctx, id, StatusArchived)
}

// Restore moves an archived project back to active.
func (s *Service) Restore(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid project id", shared.ErrValidation)
	}
	return s.repo.SetStatus(ctx, id, StatusActive)
}

// Delete removes a project permanently.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid project id", shared.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}
