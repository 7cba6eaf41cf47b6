package models

import "time"

// Upload file readiness states.
const (
	FileStatusPending  = "pending"
	FileStatusUploaded = "uploaded"
	FileStatusFailed   = "failed"
)

// UploadFile represents a team-uploaded input document tracked by the
// upload registry. The dispatcher only ever reads Status.
type UploadFile struct {
	FileID      string    `json:"file_id"`
	TeamID      string    `json:"team_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Status      string    `json:"status"`
	Bucket      string    `json:"bucket"`
	ObjectKey   string    `json:"object_key"`
	CreatedAt   time.Time `json:"created_at"`
}
