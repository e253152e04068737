package telship

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/telship/internal/app"
	"github.com/bft-labs/telship/internal/conditions"
	"github.com/bft-labs/telship/internal/domain"
	"github.com/bft-labs/telship/internal/metrics"
	"github.com/bft-labs/telship/internal/ports"
)

// eventEmitter fans internal events out to the user handler, the Prometheus
// collectors and the persisted upload statistics.
type eventEmitter struct {
	feature string
	handler EventHandler
	metrics *metrics.FeatureMetrics
	stats   *statsRecorder
	dirSize func() (uint64, error)
}

var (
	_ app.StateEmitter       = (*eventEmitter)(nil)
	_ app.UploadEventEmitter = (*eventEmitter)(nil)
)

func (e *eventEmitter) OnStateChange(previous, current app.State, reason string) {
	if e.handler != nil {
		e.handler.OnStateChange(StateChangeEvent{Previous: previous, Current: current, Reason: reason})
	}
}

func (e *eventEmitter) OnUploadSuccess(batch *domain.Batch, duration time.Duration) {
	e.metrics.UploadDelivered(batch.Size(), duration)
	e.stats.delivered(batch.Size())
	if e.handler != nil {
		e.handler.OnUploadSuccess(UploadSuccessEvent{
			Feature:  e.feature,
			File:     batch.File,
			Bytes:    batch.Size(),
			Duration: duration,
		})
	}
}

func (e *eventEmitter) OnUploadError(batch *domain.Batch, err error, retryable bool) {
	e.metrics.UploadFailed(retryable)
	e.stats.failed(err, retryable)
	if e.handler != nil {
		e.handler.OnUploadError(UploadErrorEvent{
			Feature:   e.feature,
			File:      batch.File,
			Err:       err,
			Retryable: retryable,
		})
	}
}

func (e *eventEmitter) OnPaceChange(delay time.Duration) {
	e.metrics.SetUploadDelay(delay)
	e.stats.setDelay(delay)
	if e.dirSize != nil {
		if size, err := e.dirSize(); err == nil {
			e.metrics.SetDirectorySize(size)
		}
	}
}

func (e *eventEmitter) OnCycleSkipped(blockers []conditions.Blocker) {
	for _, b := range blockers {
		e.metrics.CycleSkipped(string(b))
	}
}

func (e *eventEmitter) recordWritten(size int) {
	e.metrics.RecordWritten(size)
}

func (e *eventEmitter) recordDropped(size int, reason DropReason, err error) {
	e.metrics.RecordDropped(string(reason))
	if e.handler != nil {
		e.handler.OnRecordDropped(RecordDroppedEvent{
			Feature: e.feature,
			Size:    size,
			Reason:  reason,
			Err:     err,
		})
	}
}

// statsRecorder keeps the upload statistics and saves them after every
// batch outcome.
type statsRecorder struct {
	mu     sync.Mutex
	stats  ports.UploadStatus
	repo   ports.StatusRepository
	clock  ports.DateProvider
	logger ports.Logger
}

func newStatsRecorder(feature string, repo ports.StatusRepository, clock ports.DateProvider, logger ports.Logger) *statsRecorder {
	stats, err := repo.Load(context.Background())
	if err != nil {
		logger.Warn("ignoring unreadable upload status", ports.Err(err))
		stats = ports.UploadStatus{}
	}
	stats.Feature = feature
	return &statsRecorder{stats: stats, repo: repo, clock: clock, logger: logger}
}

func (r *statsRecorder) snapshot() ports.UploadStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *statsRecorder) delivered(bytes int) {
	r.mu.Lock()
	r.stats.BatchesSent++
	r.stats.BytesSent += uint64(bytes)
	r.stats.LastUploadAt = r.clock.Now().UTC()
	r.saveLocked()
	r.mu.Unlock()
}

func (r *statsRecorder) failed(err error, retryable bool) {
	r.mu.Lock()
	if !retryable {
		r.stats.BatchesDropped++
	}
	if err != nil {
		r.stats.LastError = err.Error()
	}
	r.stats.LastErrorAt = r.clock.Now().UTC()
	r.saveLocked()
	r.mu.Unlock()
}

func (r *statsRecorder) setDelay(delay time.Duration) {
	r.mu.Lock()
	r.stats.CurrentDelayMs = delay.Milliseconds()
	r.mu.Unlock()
}

func (r *statsRecorder) saveLocked() {
	if err := r.repo.Save(context.Background(), r.stats); err != nil {
		r.logger.Warn("failed to save upload status", ports.Err(err))
	}
}
