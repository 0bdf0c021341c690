package uploads

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prismhq/prism/internal/shared"
)

// Repository defines upload metadata persistence.
type Repository interface {
	Create(ctx context.Context, file File) error
	Get(ctx context.Context, id uuid.UUID) (File, error)
	List(ctx context.Context, filters shared.ListFilters) ([]File, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const fileColumns = `id, filename, content_type, size, checksum, owner_id, created_at`

func (r *repository) Create(ctx context.Context, file File) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO uploads (id, filename, content_type, size, checksum, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		file.ID, file.Filename, file.ContentType, file.Size, file.Checksum, file.OwnerID, file.CreatedAt)
	return err
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (File, error) {
	var f File
	err := r.pool.QueryRow(ctx, `SELECT `+fileColumns+` FROM uploads WHERE id = $1`, id).
		Scan(&f.ID, &f.Filename, &f.ContentType, &f.Size, &f.Checksum, &f.OwnerID, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return File{}, shared.ErrNotFound
	}
	return f, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]File, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.OwnerID != nil {
		args = append(args, *filters.OwnerID)
		where += ` AND owner_id = $` + strconv.Itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND filename ILIKE $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM uploads`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + fileColumns + ` FROM uploads` + where + ` ORDER BY created_at DESC`
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
	var out []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.Filename, &f.ContentType, &f.Size, &f.Checksum, &f.OwnerID, &f.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, f)
	}
	return out, total, rows.Err()
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM uploads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
