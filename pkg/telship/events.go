package telship

import "time"

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// UploadSuccessEvent is emitted when the collector accepts a batch.
type UploadSuccessEvent struct {
	Feature  string
	File     string
	Bytes    int
	Duration time.Duration
}

// UploadErrorEvent is emitted when a batch upload fails. Retryable batches
// stay on disk; the others are deleted.
type UploadErrorEvent struct {
	Feature   string
	File      string
	Err       error
	Retryable bool
}

// DropReason tells why a record did not reach storage.
type DropReason string

const (
	DropConsent  DropReason = "consent"
	DropInvalid  DropReason = "invalid"
	DropTooLarge DropReason = "too_large"
	DropIO       DropReason = "io"
)

// RecordDroppedEvent is emitted when Append does not store a record.
type RecordDroppedEvent struct {
	Feature string
	Size    int
	Reason  DropReason
	Err     error
}

// EventHandler receives telship events. Methods are called synchronously
// from the producer or upload goroutine and should return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnUploadSuccess(event UploadSuccessEvent)
	OnUploadError(event UploadErrorEvent)
	OnRecordDropped(event RecordDroppedEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)     {}
func (BaseEventHandler) OnUploadSuccess(UploadSuccessEvent) {}
func (BaseEventHandler) OnUploadError(UploadErrorEvent)     {}
func (BaseEventHandler) OnRecordDropped(RecordDroppedEvent) {}
