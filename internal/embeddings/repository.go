package embeddings

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prismhq/prism/internal/shared"
)

// Repository defines embedding task persistence.
type Repository interface {
	Create(ctx context.Context, task Task) error
	Get(ctx context.Context, id uuid.UUID) (Task, error)
	List(ctx context.Context, status Status, page, limit int) ([]Task, int, error)
	MarkRelayed(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, vectorRef string) error
	Fail(ctx context.Context, id uuid.UUID, reason string) error
	StalePending(ctx context.Context, olderThan time.Duration, limit int) ([]Task, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const taskColumns = `id, subject, status, vector_ref, fail_reason, created_at, updated_at`

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.Subject, &t.Status, &t.VectorRef, &t.FailReason, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *repository) Create(ctx context.Context, task Task) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO embedding_tasks (id, subject, status, vector_ref, fail_reason, created_at, updated_at)
		VALUES ($1, $2, $3, '', '', $4, $4)`,
		task.ID, task.Subject, task.Status, task.CreatedAt)
	return err
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM embedding_tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, shared.ErrNotFound
	}
	return t, err
}

func (r *repository) List(ctx context.Context, status Status, page, limit int) ([]Task, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if status != "" {
		args = append(args, status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM embedding_tasks`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + taskColumns + ` FROM embedding_tasks` + where + ` ORDER BY created_at DESC`
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		offset := (page - 1) * limit
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
	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

// MarkRelayed flips pending to relayed. A task already past pending is left
// alone so a late relay cannot regress a completed task.
func (r *repository) MarkRelayed(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE embedding_tasks SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		StatusRelayed, time.Now().UTC(), id, StatusPending)
	return err
}

func (r *repository) Complete(ctx context.Context, id uuid.UUID, vectorRef string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE embedding_tasks SET status = $1, vector_ref = $2, fail_reason = '', updated_at = $3 WHERE id = $4`,
		StatusCompleted, vectorRef, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE embedding_tasks SET status = $1, fail_reason = $2, updated_at = $3 WHERE id = $4`,
		StatusFailed, reason, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) StalePending(ctx context.Context, olderThan time.Duration, limit int) ([]Task, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM embedding_tasks
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at ASC LIMIT $3`,
		StatusPending, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
