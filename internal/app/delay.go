package app

import (
	"time"

	"github.com/bft-labs/telship/internal/domain"
)

// NextPace returns the upload delay following an outcome.
//
// Delivered and NonRetryableFailure shrink the delay toward min; the queue
// moved on. RetryableFailure grows it toward max. A nil outcome (no batch,
// skipped cycle) leaves it unchanged. Consecutive failures never decrease the
// delay and consecutive successes never increase it.
func NextPace(current time.Duration, outcome domain.Outcome, changeRate float64, min, max time.Duration) time.Duration {
	switch outcome.(type) {
	case domain.RetryableFailure:
		next := time.Duration(float64(current) * (1 + changeRate))
		if next < min {
			next = min
		}
		if next > max {
			next = max
		}
		if next < current {
			next = current
		}
		return next
	case domain.Delivered, domain.NonRetryableFailure:
		if current <= min {
			return current
		}
		next := time.Duration(float64(current) * (1 - changeRate))
		if next < min {
			next = min
		}
		return next
	default:
		return current
	}
}

// UploadDelay is the upload pace of one worker. It is owned by the worker
// goroutine and not safe for concurrent use.
type UploadDelay struct {
	preset  domain.UploadPreset
	current time.Duration
}

// NewUploadDelay seeds the pace at InitialUploadDelay.
func NewUploadDelay(preset domain.UploadPreset) *UploadDelay {
	return &UploadDelay{preset: preset, current: preset.InitialUploadDelay}
}

// Resume reseeds the pace at DefaultUploadDelay, capped at MaxUploadDelay,
// for a loop restarted after a cancel.
func (d *UploadDelay) Resume() {
	next := d.preset.DefaultUploadDelay
	if next <= 0 {
		next = d.preset.InitialUploadDelay
	}
	if next > d.preset.MaxUploadDelay {
		next = d.preset.MaxUploadDelay
	}
	d.current = next
}

// Current returns the current delay.
func (d *UploadDelay) Current() time.Duration {
	return d.current
}

// Apply moves the delay according to outcome and returns the new value.
func (d *UploadDelay) Apply(outcome domain.Outcome) time.Duration {
	d.current = NextPace(d.current, outcome, d.preset.UploadDelayChangeRate, d.preset.MinUploadDelay, d.preset.MaxUploadDelay)
	return d.current
}
