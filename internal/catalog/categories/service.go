package categories

import (
	"context"
	"fmt"
	"strings"

	"github.com/prismhq/prism/internal/shared"
)

// Service orchestrates category operations.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns categories with pagination metadata.
func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Category, shared.Pagination, error) {
	categories, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return categories, shared.NewPagination(filters.Page, filters.Limit, total), nil
}

// Get fetches a category by id.
func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	if id <= 0 {
		return Category{}, fmt.Errorf("%w: invalid category id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create inserts a new category.
func (s *Service) Create(ctx context.Context, category Category) (Category, error) {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return Category{}, fmt.Errorf("%w: category name required", shared.ErrValidation)
	}
	return s.repo.Create(ctx, category)
}

// Update rewrites a category.
func (s *Service) Update(ctx context.Context, id int64, category Category) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid category id", shared.ErrValidation)
	}
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return fmt.Errorf("%w: category name required", shared.ErrValidation)
	}
	return s.repo.Update(ctx, id, category)
}

// Delete removes a category; categories with products are a conflict.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid category id", shared.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}
