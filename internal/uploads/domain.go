package uploads

import (
	"time"

	"github.com/google/uuid"
)

// File is the metadata record for one stored blob. The blob itself lives in
// the Store under the file's id.
type File struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum"`
	OwnerID     int64     `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}
