package users

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prismhq/prism/internal/platform/db"
	"github.com/prismhq/prism/internal/shared"
)

// Repository defines persistence operations for user management.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]User, int, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, id int64, user User) error
	Delete(ctx context.Context, id int64) error
	LinkExternalID(ctx context.Context, id int64, externalID string) error
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, email, name, external_id, is_active, created_at, updated_at`

// List returns users matching the filters plus the unfiltered-page total.
func (r *PGRepository) List(ctx context.Context, filters shared.ListFilters) ([]User, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		p := strconv.Itoa(len(args))
		where += ` AND (email ILIKE $` + p + ` OR name ILIKE $` + p + `)`
	}
	if filters.IsActive != nil {
		args = append(args, *filters.IsActive)
		where += ` AND is_active = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY id`
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.ExternalID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// Get fetches a user by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.ExternalID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	return u, err
}

// Create inserts a new user.
func (r *PGRepository) Create(ctx context.Context, user User) (User, error) {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4) RETURNING id`,
		user.Email, user.Name, user.IsActive, now).Scan(&user.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, shared.ErrDuplicate
		}
		return User{}, err
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return user, nil
}

// Update rewrites the mutable fields of a user.
func (r *PGRepository) Update(ctx context.Context, id int64, user User) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET email = $1, name = $2, is_active = $3, updated_at = $4
		WHERE id = $5`,
		user.Email, user.Name, user.IsActive, time.Now().UTC(), id)
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

// Delete removes a user.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return shared.ErrConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// LinkExternalID establishes the identity-provider mapping. Write-once: an
// account already linked, or an external id already claimed, is a conflict.
func (r *PGRepository) LinkExternalID(ctx context.Context, id int64, externalID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET external_id = $1, updated_at = $2
		WHERE id = $3 AND external_id IS NULL`,
		externalID, time.Now().UTC(), id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrConflict
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
