package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store exposes the read paths the resolver needs. The administrative side of
// the graph (role CRUD, assignments) lives in internal/roles; the resolver
// only ever reads.
type Store interface {
	// ResolveLocalID maps an external identity to a local principal id,
	// returning ErrPrincipalNotFound when no mapping exists.
	ResolveLocalID(ctx context.Context, externalID string) (int64, error)
	// RolesForPrincipal returns ids of active roles assigned to the principal.
	RolesForPrincipal(ctx context.Context, principalID int64) ([]int64, error)
	// RoleNames returns the names of the given roles.
	RoleNames(ctx context.Context, roleIDs []int64) ([]string, error)
	// PermissionTriples returns every (action, module, submodule) triple
	// reachable from the given roles. SubModule is empty when absent.
	PermissionTriples(ctx context.Context, roleIDs []int64) ([]PermissionTriple, error)
}

// PGStore implements Store against PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// ResolveLocalID maps an external identity string to a local user id.
func (s *PGStore) ResolveLocalID(ctx context.Context, externalID string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `SELECT id FROM users WHERE external_id = $1`, externalID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrPrincipalNotFound
		}
		return 0, err
	}
	return id, nil
}

// RolesForPrincipal returns active role ids assigned to the user. Inactive
// roles are excluded at the source so neither gate ever sees them.
func (s *PGStore) RolesForPrincipal(ctx context.Context, principalID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1 AND r.is_active`, principalID)
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

// RoleNames returns names for the given role ids.
func (s *PGStore) RoleNames(ctx context.Context, roleIDs []int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM roles WHERE id = ANY($1)`, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// PermissionTriples joins role_permissions through to the action, module and
// submodule names for the given roles.
func (s *PGStore) PermissionTriples(ctx context.Context, roleIDs []int64) ([]PermissionTriple, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.name, m.name, COALESCE(sm.name, '')
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		JOIN actions a ON a.id = p.action_id
		JOIN modules m ON m.id = p.module_id
		LEFT JOIN sub_modules sm ON sm.id = p.sub_module_id
		WHERE rp.role_id = ANY($1)`, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var triples []PermissionTriple
	for rows.Next() {
		var t PermissionTriple
		if err := rows.Scan(&t.Action, &t.Module, &t.SubModule); err != nil {
			return nil, err
		}
		triples = append(triples, t)
	}
	return triples, rows.Err()
}

var _ Store = (*PGStore)(nil)
