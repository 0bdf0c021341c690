package roles

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"github.com/prismhq/prism/internal/shared"
)

// PermissionCache is busted whenever the authorization graph mutates, so the
// resolver's memoized expansions never outlive an administrative change by
// more than one request.
type PermissionCache interface {
	Bust(ctx context.Context, principalID int64)
	BustAll(ctx context.Context) error
}

// Service orchestrates administration of roles, permissions and assignments.
type Service struct {
	repo   Repository
	cache  PermissionCache
	logger *slog.Logger
}

// NewService constructs a Service. cache may be nil.
func NewService(repo Repository, cache PermissionCache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches one role.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	if id <= 0 {
		return Role{}, fmt.Errorf("%w: invalid role id", shared.ErrValidation)
	}
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	return s.repo.CreateRole(ctx, Role{Name: name, Description: strings.TrimSpace(description), IsActive: true})
}

// UpdateRole rewrites a role and busts cached expansions (the active flag or
// the name may have changed, both of which affect decisions).
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string, isActive bool) error {
	name = strings.TrimSpace(name)
	if id <= 0 || name == "" {
		return fmt.Errorf("%w: role id and name required", shared.ErrValidation)
	}
	if err := s.repo.UpdateRole(ctx, id, Role{Name: name, Description: strings.TrimSpace(description), IsActive: isActive}); err != nil {
		return err
	}
	s.bustAll(ctx)
	return nil
}

// DeleteRole removes a role with its assignments.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid role id", shared.ErrValidation)
	}
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.bustAll(ctx)
	return nil
}

// ListActions returns the action catalog.
func (s *Service) ListActions(ctx context.Context) ([]Action, error) {
	return s.repo.ListActions(ctx)
}

// ListModules returns the module catalog.
func (s *Service) ListModules(ctx context.Context) ([]Module, error) {
	return s.repo.ListModules(ctx)
}

// ListSubModules returns the submodule catalog.
func (s *Service) ListSubModules(ctx context.Context) ([]SubModule, error) {
	return s.repo.ListSubModules(ctx)
}

// ListPermissions returns all permissions.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// CreatePermission inserts a permission for the given triple, generating its
// display name and description from the component names.
func (s *Service) CreatePermission(ctx context.Context, actionID, moduleID int64, subModuleID *int64) (Permission, error) {
	if actionID <= 0 || moduleID <= 0 {
		return Permission{}, fmt.Errorf("%w: action and module required", shared.ErrValidation)
	}
	action, module, subModule, err := s.repo.TripleNames(ctx, actionID, moduleID, subModuleID)
	if err != nil {
		return Permission{}, err
	}

	name := action + ":" + module
	description := fmt.Sprintf("Allows %s on %s", action, module)
	if subModule != "" {
		name += ":" + subModule
		description = fmt.Sprintf("Allows %s on %s / %s", action, module, subModule)
	}

	return s.repo.CreatePermission(ctx, Permission{
		Name:        name,
		Description: description,
		ActionID:    actionID,
		ModuleID:    moduleID,
		SubModuleID: subModuleID,
	})
}

// SetRolePermissions replaces a role's permission set with the desired one,
// attaching what is missing and detaching what is no longer wanted.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return err
	}
	current, err := s.repo.RolePermissionIDs(ctx, roleID)
	if err != nil {
		return err
	}
	existing := make(map[int64]struct{}, len(current))
	for _, id := range current {
		existing[id] = struct{}{}
	}
	keep := make(map[int64]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		keep[id] = struct{}{}
		if _, ok := existing[id]; !ok {
			if err := s.repo.AttachPermission(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	for id := range existing {
		if _, ok := keep[id]; !ok {
			if err := s.repo.DetachPermission(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	s.bustAll(ctx)
	return nil
}

// GrantRole assigns a role to a user.
func (s *Service) GrantRole(ctx context.Context, userID, roleID int64) error {
	if userID <= 0 || roleID <= 0 {
		return fmt.Errorf("%w: user and role required", shared.ErrValidation)
	}
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.repo.GrantRole(ctx, userID, roleID); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Bust(ctx, userID)
	}
	return nil
}

// RevokeRole removes a role from a user.
func (s *Service) RevokeRole(ctx context.Context, userID, roleID int64) error {
	if userID <= 0 || roleID <= 0 {
		return fmt.Errorf("%w: user and role required", shared.ErrValidation)
	}
	if err := s.repo.RevokeRole(ctx, userID, roleID); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Bust(ctx, userID)
	}
	return nil
}

// UserRoles lists role ids assigned to a user.
func (s *Service) UserRoles(ctx context.Context, userID int64) ([]int64, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: invalid user id", shared.ErrValidation)
	}
	return s.repo.UserRoleIDs(ctx, userID)
}

func (s *Service) bustAll(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.BustAll(ctx); err != nil && s.logger != nil {
		s.logger.Warn("bust permission cache", slog.Any("error", err))
	}
}
