package embeddings

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/prismhq/prism/jobs"
)

// TaskHandlers returns the Asynq handlers this vertical owns, ready to be
// registered on the worker mux.
func TaskHandlers(service *Service) []jobs.TaskHandler {
	return []jobs.TaskHandler{
		{Type: jobs.TaskTypeEmbeddingRelay, Handler: handleRelay(service)},
		{Type: jobs.TaskTypeEmbeddingSweep, Handler: handleSweep(service)},
	}
}

func handleRelay(service *Service) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload jobs.EmbeddingRelayPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		id, err := uuid.Parse(payload.TaskID)
		if err != nil {
			return asynq.SkipRetry
		}
		return service.RelayTask(ctx, id)
	}
}

func handleSweep(service *Service) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		return service.SweepStale(ctx)
	}
}
