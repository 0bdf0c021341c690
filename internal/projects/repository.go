package projects

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

// Repository defines project persistence.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Project, int, error)
	Get(ctx context.Context, id int64) (Project, error)
	Create(ctx context.Context, project Project) (Project, error)
	Update(ctx context.Context, id int64, project Project) error
	SetStatus(ctx context.Context, id int64, status Status) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const projectColumns = `id, name, description, owner_id, status, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Project, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.OwnerID != nil {
		args = append(args, *filters.OwnerID)
		where += ` AND owner_id = $` + strconv.Itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND name ILIKE $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM projects`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + projectColumns + ` FROM projects` + where + ` ORDER BY created_at DESC`
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
	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Project, error) {
	var p Project
	err := r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repository) Create(ctx context.Context, project Project) (Project, error) {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO projects (name, description, owner_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`,
		project.Name, project.Description, project.OwnerID, project.Status, now).Scan(&project.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Project{}, shared.ErrDuplicate
		}
		if db.IsForeignKeyViolation(err) {
			return Project{}, shared.ErrValidation
		}
		return Project{}, err
	}
	project.CreatedAt = now
	project.UpdatedAt = now
	return project, nil
}

func (r *repository) Update(ctx context.Context, id int64, project Project) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE projects SET name = $1, description = $2, updated_at = $3 WHERE id = $4`,
		project.Name, project.Description, time.Now().UTC(), id)
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

func (r *repository) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE projects SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
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
