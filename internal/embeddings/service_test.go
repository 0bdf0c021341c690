package embeddings

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismhq/prism/internal/shared"
	"github.com/prismhq/prism/jobs"
)

type mockRepository struct {
	tasks map[uuid.UUID]Task
}

func newMockRepository() *mockRepository {
	return &mockRepository{tasks: map[uuid.UUID]Task{}}
}

func (m *mockRepository) Create(_ context.Context, task Task) error {
	m.tasks[task.ID] = task
	return nil
}

func (m *mockRepository) Get(_ context.Context, id uuid.UUID) (Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, shared.ErrNotFound
	}
	return t, nil
}

func (m *mockRepository) List(_ context.Context, status Status, _, _ int) ([]Task, int, error) {
	var out []Task
	for _, t := range m.tasks {
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, t)
	}
	return out, len(out), nil
}

func (m *mockRepository) MarkRelayed(_ context.Context, id uuid.UUID) error {
	t, ok := m.tasks[id]
	if !ok || t.Status != StatusPending {
		return nil
	}
	t.Status = StatusRelayed
	m.tasks[id] = t
	return nil
}

func (m *mockRepository) Complete(_ context.Context, id uuid.UUID, vectorRef string) error {
	t, ok := m.tasks[id]
	if !ok {
		return shared.ErrNotFound
	}
	t.Status = StatusCompleted
	t.VectorRef = vectorRef
	m.tasks[id] = t
	return nil
}

func (m *mockRepository) Fail(_ context.Context, id uuid.UUID, reason string) error {
	t, ok := m.tasks[id]
	if !ok {
		return shared.ErrNotFound
	}
	t.Status = StatusFailed
	t.FailReason = reason
	m.tasks[id] = t
	return nil
}

func (m *mockRepository) StalePending(_ context.Context, olderThan time.Duration, limit int) ([]Task, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	var out []Task
	for _, t := range m.tasks {
		if t.Status == StatusPending && t.UpdatedAt.Before(cutoff) && len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeQueue struct {
	enqueued []string
	failWith error
}

func (f *fakeQueue) EnqueueEmbeddingRelay(_ context.Context, payload jobs.EmbeddingRelayPayload) (*asynq.TaskInfo, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.enqueued = append(f.enqueued, payload.TaskID)
	return &asynq.TaskInfo{}, nil
}

type fakeRelayer struct {
	relayed  []uuid.UUID
	failWith error
}

func (f *fakeRelayer) Relay(_ context.Context, task Task) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.relayed = append(f.relayed, task.ID)
	return nil
}

func newTestService(repo Repository, relayer Relayer, queue Enqueuer) *Service {
	return NewService(repo, relayer, queue, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreatePersistsAndEnqueues(t *testing.T) {
	repo := newMockRepository()
	queue := &fakeQueue{}
	svc := newTestService(repo, &fakeRelayer{}, queue)

	task, err := svc.Create(context.Background(), "  hello world  ")
	require.NoError(t, err)
	assert.Equal(t, "hello world", task.Subject)
	assert.Equal(t, StatusPending, task.Status)
	assert.NotEqual(t, uuid.Nil, task.ID)

	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, task.ID.String(), queue.enqueued[0])

	stored, err := repo.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestCreateSurvivesEnqueueFailure(t *testing.T) {
	repo := newMockRepository()
	queue := &fakeQueue{failWith: errors.New("redis down")}
	svc := newTestService(repo, &fakeRelayer{}, queue)

	task, err := svc.Create(context.Background(), "hello")
	require.NoError(t, err)

	// still persisted pending; sweep will pick it up
	stored, err := repo.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestCreateRejectsEmptySubject(t *testing.T) {
	svc := newTestService(newMockRepository(), &fakeRelayer{}, &fakeQueue{})
	_, err := svc.Create(context.Background(), "   ")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRelayTaskMarksRelayed(t *testing.T) {
	repo := newMockRepository()
	relayer := &fakeRelayer{}
	svc := newTestService(repo, relayer, &fakeQueue{})

	task, err := svc.Create(context.Background(), "hello")
	require.NoError(t, err)

	require.NoError(t, svc.RelayTask(context.Background(), task.ID))
	require.Len(t, relayer.relayed, 1)

	stored, err := repo.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRelayed, stored.Status)
}

func TestRelayTaskSkipsNonPending(t *testing.T) {
	repo := newMockRepository()
	relayer := &fakeRelayer{}
	svc := newTestService(repo, relayer, &fakeQueue{})

	task, err := svc.Create(context.Background(), "hello")
	require.NoError(t, err)
	require.NoError(t, repo.Complete(context.Background(), task.ID, "vec://1"))

	require.NoError(t, svc.RelayTask(context.Background(), task.ID))
	assert.Empty(t, relayer.relayed)

	stored, err := repo.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
}

func TestRelayTaskPropagatesRelayError(t *testing.T) {
	repo := newMockRepository()
	relayer := &fakeRelayer{failWith: errors.New("service unavailable")}
	svc := newTestService(repo, relayer, &fakeQueue{})

	task, err := svc.Create(context.Background(), "hello")
	require.NoError(t, err)

	err = svc.RelayTask(context.Background(), task.ID)
	assert.Error(t, err)

	// stays pending so the retry or sweep can run it again
	stored, err := repo.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestSweepReenqueuesStalePending(t *testing.T) {
	repo := newMockRepository()
	queue := &fakeQueue{}
	svc := newTestService(repo, &fakeRelayer{}, queue)

	stale := Task{ID: uuid.New(), Subject: "stale", Status: StatusPending,
		CreatedAt: time.Now().Add(-time.Hour), UpdatedAt: time.Now().Add(-time.Hour)}
	fresh := Task{ID: uuid.New(), Subject: "fresh", Status: StatusPending,
		CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, repo.Create(context.Background(), stale))
	require.NoError(t, repo.Create(context.Background(), fresh))

	require.NoError(t, svc.SweepStale(context.Background()))
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, stale.ID.String(), queue.enqueued[0])
}

func TestCompleteRequiresVectorRef(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, &fakeRelayer{}, &fakeQueue{})
	task, err := svc.Create(context.Background(), "hello")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Complete(context.Background(), task.ID, "  "), shared.ErrValidation)
	require.NoError(t, svc.Complete(context.Background(), task.ID, "vec://1"))

	stored, err := repo.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Equal(t, "vec://1", stored.VectorRef)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(newMockRepository(), &fakeRelayer{}, &fakeQueue{})
	_, _, err := svc.List(context.Background(), Status("bogus"), 1, 20)
	assert.ErrorIs(t, err, shared.ErrValidation)
}
