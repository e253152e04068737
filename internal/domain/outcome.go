package domain

import "fmt"

// Outcome is the result of one delivery attempt. It is a closed set: the only
// implementations are Delivered, RetryableFailure and NonRetryableFailure.
type Outcome interface {
	isOutcome()
}

// Delivered means the collector accepted the batch.
type Delivered struct {
	StatusCode int
}

// RetryableFailure means the batch should be kept and retried later
// (connectivity loss, throttling, server errors).
type RetryableFailure struct {
	StatusCode int
	Err        error
}

// NonRetryableFailure means the collector rejected the batch for good
// (malformed payload, unauthorized, payload too large).
type NonRetryableFailure struct {
	StatusCode int
	Err        error
}

func (Delivered) isOutcome()           {}
func (RetryableFailure) isOutcome()    {}
func (NonRetryableFailure) isOutcome() {}

func (f RetryableFailure) Error() string {
	return fmt.Sprintf("retryable upload failure (status %d): %v", f.StatusCode, f.Err)
}

func (f NonRetryableFailure) Error() string {
	return fmt.Sprintf("upload rejected (status %d): %v", f.StatusCode, f.Err)
}

func (f RetryableFailure) Unwrap() error    { return f.Err }
func (f NonRetryableFailure) Unwrap() error { return f.Err }
