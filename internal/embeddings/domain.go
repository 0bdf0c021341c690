package embeddings

import (
	"time"

	"github.com/google/uuid"
)

// Status enumerates embedding task lifecycle states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRelayed   Status = "relayed"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Task is one unit of text submitted for embedding by the external batch
// service. The vector itself stays with that service; we keep a reference.
type Task struct {
	ID         uuid.UUID `json:"id"`
	Subject    string    `json:"subject"`
	Status     Status    `json:"status"`
	VectorRef  string    `json:"vector_ref,omitempty"`
	FailReason string    `json:"fail_reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
