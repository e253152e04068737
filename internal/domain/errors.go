package domain

import "errors"

// Domain errors represent error conditions in the telship domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("telship: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("telship: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("telship: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("telship: invalid configuration")

	// ErrEmptyRecord is returned when a producer appends a zero-length record.
	ErrEmptyRecord = errors.New("telship: empty record")

	// ErrRecordTooLarge is returned when a record exceeds maxObjectSize or
	// could never fit in a single batch file.
	ErrRecordTooLarge = errors.New("telship: record too large")

	// ErrDirectoryTooSmall is returned when the directory cap cannot hold
	// even a single record of the given size.
	ErrDirectoryTooSmall = errors.New("telship: directory size limit too small for record")

	// ErrConsentNotGranted marks records dropped because tracking consent was denied.
	ErrConsentNotGranted = errors.New("telship: tracking consent not granted")
)
