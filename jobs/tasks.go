package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeEmbeddingRelay relays a single embedding task to the batch service.
	TaskTypeEmbeddingRelay = "embeddings:relay"
	// TaskTypeEmbeddingSweep re-enqueues pending tasks that were never relayed.
	TaskTypeEmbeddingSweep = "embeddings:sweep"
)

// EmbeddingRelayPayload identifies the embedding task to relay.
type EmbeddingRelayPayload struct {
	TaskID string `json:"task_id"`
}

// NewEmbeddingRelayTask constructs an Asynq task for a single relay.
func NewEmbeddingRelayTask(payload EmbeddingRelayPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeEmbeddingRelay, data), nil
}

// NewEmbeddingSweepTask constructs the periodic sweep task. It carries no
// payload; the handler queries for stale pending tasks itself.
func NewEmbeddingSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeEmbeddingSweep, nil)
}
