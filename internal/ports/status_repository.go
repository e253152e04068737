package ports

import (
	"context"
	"time"
)

// UploadStatus summarizes upload activity for one feature stream.
type UploadStatus struct {
	Feature        string    `json:"feature"`
	BatchesSent    uint64    `json:"batches_sent"`
	BatchesDropped uint64    `json:"batches_dropped"`
	BytesSent      uint64    `json:"bytes_sent"`
	LastUploadAt   time.Time `json:"last_upload_at"`
	LastError      string    `json:"last_error,omitempty"`
	LastErrorAt    time.Time `json:"last_error_at"`
	CurrentDelayMs int64     `json:"current_delay_ms"`
}

// StatusRepository handles persistence of upload statistics.
// Implementations persist state to disk (or other storage) atomically.
type StatusRepository interface {
	// Load retrieves the last saved status.
	// Returns an empty status and nil error if none exists.
	Load(ctx context.Context) (UploadStatus, error)

	// Save persists the status atomically.
	Save(ctx context.Context, status UploadStatus) error
}
