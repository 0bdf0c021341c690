package embeddings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/prismhq/prism/internal/shared"
	"github.com/prismhq/prism/jobs"
)

// Enqueuer submits relay jobs. Satisfied by jobs.Client.
type Enqueuer interface {
	EnqueueEmbeddingRelay(ctx context.Context, payload jobs.EmbeddingRelayPayload) (*asynq.TaskInfo, error)
}

const (
	maxSubjectLen = 8192
	// stalePendingAfter is how long a task may sit pending before the sweep
	// re-enqueues it. Covers enqueue failures and lost jobs.
	stalePendingAfter = 10 * time.Minute
	staleBatchSize    = 100
)

// Service orchestrates embedding tasks.
type Service struct {
	repo    Repository
	relayer Relayer
	queue   Enqueuer
	logger  *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, relayer Relayer, queue Enqueuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, relayer: relayer, queue: queue, logger: logger}
}

// Create persists a pending task and enqueues its relay job. An enqueue
// failure is logged, not returned; the sweep picks the task up later.
func (s *Service) Create(ctx context.Context, subject string) (Task, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return Task{}, fmt.Errorf("%w: subject required", shared.ErrValidation)
	}
	if len(subject) > maxSubjectLen {
		return Task{}, fmt.Errorf("%w: subject too long", shared.ErrValidation)
	}

	now := time.Now().UTC()
	task := Task{
		ID:        uuid.New(),
		Subject:   subject,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return Task{}, err
	}

	if _, err := s.queue.EnqueueEmbeddingRelay(ctx, jobs.EmbeddingRelayPayload{TaskID: task.ID.String()}); err != nil {
		s.logger.Warn("enqueue embedding relay", slog.String("task_id", task.ID.String()), slog.Any("error", err))
	}
	return task, nil
}

// Get fetches a task by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Task, error) {
	return s.repo.Get(ctx, id)
}

// List returns tasks, optionally filtered by status.
func (s *Service) List(ctx context.Context, status Status, page, limit int) ([]Task, shared.Pagination, error) {
	switch status {
	case "", StatusPending, StatusRelayed, StatusCompleted, StatusFailed:
	default:
		return nil, shared.Pagination{}, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, status)
	}
	tasks, total, err := s.repo.List(ctx, status, page, limit)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return tasks, shared.NewPagination(page, limit, total), nil
}

// RelayTask is the worker handler body for one relay job. Only pending tasks
// are relayed; anything else means the webhook beat us and we drop the job.
func (s *Service) RelayTask(ctx context.Context, id uuid.UUID) error {
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if task.Status != StatusPending {
		return nil
	}
	if err := s.relayer.Relay(ctx, task); err != nil {
		return err
	}
	return s.repo.MarkRelayed(ctx, task.ID)
}

// SweepStale re-enqueues relay jobs for tasks stuck in pending.
func (s *Service) SweepStale(ctx context.Context) error {
	tasks, err := s.repo.StalePending(ctx, stalePendingAfter, staleBatchSize)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		if _, err := s.queue.EnqueueEmbeddingRelay(ctx, jobs.EmbeddingRelayPayload{TaskID: task.ID.String()}); err != nil {
			s.logger.Warn("re-enqueue embedding relay", slog.String("task_id", task.ID.String()), slog.Any("error", err))
			continue
		}
	}
	if len(tasks) > 0 {
		s.logger.Info("embedding sweep re-enqueued stale tasks", slog.Int("count", len(tasks)))
	}
	return nil
}

// Complete records the vector reference reported by the batch service.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, vectorRef string) error {
	if strings.TrimSpace(vectorRef) == "" {
		return fmt.Errorf("%w: vector_ref required", shared.ErrValidation)
	}
	return s.repo.Complete(ctx, id, vectorRef)
}

// Fail records a failure reported by the batch service.
func (s *Service) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	if reason == "" {
		reason = "unspecified"
	}
	return s.repo.Fail(ctx, id, reason)
}
