package ports

import "github.com/bft-labs/telship/internal/domain"

// Writer appends serialized records to durable storage.
type Writer interface {
	// Write appends one record. Capacity and I/O errors are returned
	// synchronously; records refused by the consent gate return
	// domain.ErrConsentNotGranted.
	Write(record []byte) error
}

// Reader hands batch files to the upload path.
// At most one batch is outstanding at a time; callers must resolve a batch
// (mark it read or leave it for retry) before reading the next one.
type Reader interface {
	// ReadNextBatch returns the oldest eligible batch, or nil when none qualifies.
	ReadNextBatch() (*domain.Batch, error)

	// MarkBatchAsRead deletes the batch file after a terminal outcome.
	MarkBatchAsRead(batch *domain.Batch) error

	// MarkAllFilesAsReadable lifts the minimum read age for one drain pass.
	MarkAllFilesAsReadable()

	// RestoreMinReadAge ends a drain pass early, e.g. when a flush stops on
	// a retryable failure.
	RestoreMinReadAge()
}
