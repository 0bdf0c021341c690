package roles

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prismhq/prism/internal/platform/db"
	"github.com/prismhq/prism/internal/shared"
)

// Repository defines persistence for the authorization graph's write side.
type Repository interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, role Role) (Role, error)
	UpdateRole(ctx context.Context, id int64, role Role) error
	DeleteRole(ctx context.Context, id int64) error

	ListActions(ctx context.Context) ([]Action, error)
	ListModules(ctx context.Context) ([]Module, error)
	ListSubModules(ctx context.Context) ([]SubModule, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	CreatePermission(ctx context.Context, perm Permission) (Permission, error)
	TripleNames(ctx context.Context, actionID, moduleID int64, subModuleID *int64) (action, module, subModule string, err error)

	RolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error)
	AttachPermission(ctx context.Context, roleID, permissionID int64) error
	DetachPermission(ctx context.Context, roleID, permissionID int64) error

	GrantRole(ctx context.Context, userID, roleID int64) error
	RevokeRole(ctx context.Context, userID, roleID int64) error
	UserRoleIDs(ctx context.Context, userID int64) ([]int64, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListRoles returns all roles ordered by name.
func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, is_active, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetRole fetches a role by id.
func (r *PGRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, is_active, created_at, updated_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, shared.ErrNotFound
	}
	return role, err
}

// CreateRole inserts a new role. Role names collide case-insensitively via a
// unique index on lower(name).
func (r *PGRepository) CreateRole(ctx context.Context, role Role) (Role, error) {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4) RETURNING id`,
		role.Name, role.Description, role.IsActive, now).Scan(&role.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Role{}, shared.ErrDuplicate
		}
		return Role{}, err
	}
	role.CreatedAt = now
	role.UpdatedAt = now
	return role, nil
}

// UpdateRole rewrites a role.
func (r *PGRepository) UpdateRole(ctx context.Context, id int64, role Role) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE roles SET name = $1, description = $2, is_active = $3, updated_at = $4 WHERE id = $5`,
		role.Name, role.Description, role.IsActive, time.Now().UTC(), id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteRole removes a role and its joins.
func (r *PGRepository) DeleteRole(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// ListActions returns the action catalog.
func (r *PGRepository) ListActions(ctx context.Context) ([]Action, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM actions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var actions []Action
	for rows.Next() {
		var a Action
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// ListModules returns the module catalog.
func (r *PGRepository) ListModules(ctx context.Context) ([]Module, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM modules ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var modules []Module
	for rows.Next() {
		var m Module
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

// ListSubModules returns the submodule catalog.
func (r *PGRepository) ListSubModules(ctx context.Context) ([]SubModule, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, module_id, name FROM sub_modules ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []SubModule
	for rows.Next() {
		var s SubModule
		if err := rows.Scan(&s.ID, &s.ModuleID, &s.Name); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// ListPermissions returns all permissions ordered by name.
func (r *PGRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, action_id, module_id, sub_module_id FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.ActionID, &p.ModuleID, &p.SubModuleID); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// CreatePermission inserts a permission; the (action, module, submodule)
// triple is unique.
func (r *PGRepository) CreatePermission(ctx context.Context, perm Permission) (Permission, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO permissions (name, description, action_id, module_id, sub_module_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		perm.Name, perm.Description, perm.ActionID, perm.ModuleID, perm.SubModuleID).Scan(&perm.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Permission{}, shared.ErrDuplicate
		}
		if db.IsForeignKeyViolation(err) {
			return Permission{}, shared.ErrValidation
		}
		return Permission{}, err
	}
	return perm, nil
}

// TripleNames resolves the display names behind a permission triple.
func (r *PGRepository) TripleNames(ctx context.Context, actionID, moduleID int64, subModuleID *int64) (string, string, string, error) {
	var action, module string
	err := r.pool.QueryRow(ctx, `
		SELECT a.name, m.name FROM actions a, modules m WHERE a.id = $1 AND m.id = $2`,
		actionID, moduleID).Scan(&action, &module)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", "", shared.ErrNotFound
	}
	if err != nil {
		return "", "", "", err
	}
	var subModule string
	if subModuleID != nil {
		err = r.pool.QueryRow(ctx, `SELECT name FROM sub_modules WHERE id = $1`, *subModuleID).Scan(&subModule)
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", "", shared.ErrNotFound
		}
		if err != nil {
			return "", "", "", err
		}
	}
	return action, module, subModule, nil
}

// RolePermissionIDs lists permission ids attached to a role.
func (r *PGRepository) RolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error) {
	return r.scanIDs(ctx, `SELECT permission_id FROM role_permissions WHERE role_id = $1`, roleID)
}

// AttachPermission adds a permission to a role, idempotently.
func (r *PGRepository) AttachPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)
		ON CONFLICT (role_id, permission_id) DO NOTHING`, roleID, permissionID)
	if db.IsForeignKeyViolation(err) {
		return shared.ErrNotFound
	}
	return err
}

// DetachPermission removes a permission from a role.
func (r *PGRepository) DetachPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`, roleID, permissionID)
	return err
}

// GrantRole assigns a role to a user, idempotently.
func (r *PGRepository) GrantRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO NOTHING`, userID, roleID)
	if db.IsForeignKeyViolation(err) {
		return shared.ErrNotFound
	}
	return err
}

// RevokeRole removes a role from a user.
func (r *PGRepository) RevokeRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	return err
}

// UserRoleIDs lists role ids assigned to a user.
func (r *PGRepository) UserRoleIDs(ctx context.Context, userID int64) ([]int64, error) {
	return r.scanIDs(ctx, `SELECT role_id FROM user_roles WHERE user_id = $1`, userID)
}

func (r *PGRepository) scanIDs(ctx context.Context, query string, arg any) ([]int64, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
