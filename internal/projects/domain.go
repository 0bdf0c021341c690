package projects

import "time"

// Status enumerates project lifecycle states.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Project represents a unit of work owned by a principal.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     int64     `json:"owner_id"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
