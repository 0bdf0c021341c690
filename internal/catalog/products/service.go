package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/prismhq/prism/internal/shared"
)

// Service orchestrates product operations.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns products with pagination metadata.
func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, shared.Pagination, error) {
	products, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return products, shared.NewPagination(filters.Page, filters.Limit, total), nil
}

// Get fetches a product by id.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create inserts a new product.
func (s *Service) Create(ctx context.Context, product Product) (Product, error) {
	if err := s.validate(&product); err != nil {
		return Product{}, err
	}
	return s.repo.Create(ctx, product)
}

// Update rewrites a product.
func (s *Service) Update(ctx context.Context, id int64, product Product) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	if err := s.validate(&product); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, product)
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) validate(p *Product) error {
	p.SKU = strings.TrimSpace(p.SKU)
	p.Name = strings.TrimSpace(p.Name)
	if p.SKU == "" {
		return fmt.Errorf("%w: product sku required", shared.ErrValidation)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: product name required", shared.ErrValidation)
	}
	if p.CategoryID <= 0 {
		return fmt.Errorf("%w: product category required", shared.ErrValidation)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: product price must not be negative", shared.ErrValidation)
	}
	return nil
}
