package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/prismhq/prism/internal/shared"
)

// Service orchestrates user management operations.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns users with pagination metadata.
func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]User, shared.Pagination, error) {
	users, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return users, shared.NewPagination(filters.Page, filters.Limit, total), nil
}

// Get fetches a user by id.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	if id <= 0 {
		return User{}, fmt.Errorf("%w: invalid user id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create inserts a new user.
func (s *Service) Create(ctx context.Context, user User) (User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Name = strings.TrimSpace(user.Name)
	if user.Email == "" {
		return User{}, fmt.Errorf("%w: email required", shared.ErrValidation)
	}
	if user.Name == "" {
		return User{}, fmt.Errorf("%w: name required", shared.ErrValidation)
	}
	return s.repo.Create(ctx, user)
}

// Update rewrites a user.
func (s *Service) Update(ctx context.Context, id int64, user User) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid user id", shared.ErrValidation)
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Name = strings.TrimSpace(user.Name)
	if user.Email == "" || user.Name == "" {
		return fmt.Errorf("%w: email and name required", shared.ErrValidation)
	}
	return s.repo.Update(ctx, id, user)
}

// Delete removes a user.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid user id", shared.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

// LinkExternalID establishes the write-once identity mapping.
func (s *Service) LinkExternalID(ctx context.Context, id int64, externalID string) error {
	externalID = strings.TrimSpace(externalID)
	if id <= 0 || !strings.HasPrefix(externalID, "user_") {
		return fmt.Errorf("%w: external id must have user_ prefix", shared.ErrValidation)
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.LinkExternalID(ctx, id, externalID)
}
