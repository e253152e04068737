package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/telship/internal/conditions"
	"github.com/bft-labs/telship/internal/domain"
	"github.com/bft-labs/telship/internal/ports"
)

// UploadEventEmitter is notified of upload activity.
type UploadEventEmitter interface {
	OnUploadSuccess(batch *domain.Batch, duration time.Duration)
	OnUploadError(batch *domain.Batch, err error, retryable bool)
	OnPaceChange(delay time.Duration)
	OnCycleSkipped(blockers []conditions.Blocker)
}

// UploadWorkerConfig contains configuration for the upload loop.
type UploadWorkerConfig struct {
	Feature string
	Preset  domain.UploadPreset
}

// UploadWorker periodically reads a batch and delivers it, adapting its pace
// to the outcome. It keeps at most one batch in flight.
type UploadWorker struct {
	config        UploadWorkerConfig
	reader        ports.Reader
	transport     ports.Transport
	conditions    *conditions.UploadConditions
	dateCorrector ports.DateCorrector
	logger        ports.Logger
	emitter       UploadEventEmitter
	delay         *UploadDelay

	// cycleMu makes a loop cycle and a synchronous flush mutually exclusive.
	cycleMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	runs   int
}

// NewUploadWorker creates a worker with the given dependencies.
func NewUploadWorker(
	config UploadWorkerConfig,
	reader ports.Reader,
	transport ports.Transport,
	conds *conditions.UploadConditions,
	dateCorrector ports.DateCorrector,
	logger ports.Logger,
	emitter UploadEventEmitter,
) *UploadWorker {
	if dateCorrector == nil {
		dateCorrector = conditions.StaticDateCorrector{}
	}
	return &UploadWorker{
		config:        config,
		reader:        reader,
		transport:     transport,
		conditions:    conds,
		dateCorrector: dateCorrector,
		logger:        logger,
		emitter:       emitter,
		delay:         NewUploadDelay(config.Preset),
	}
}

// Start runs the loop in a background goroutine. Calling Start on a started
// worker is a no-op. A restarted loop resumes at the default upload delay.
func (w *UploadWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	if w.runs > 0 {
		w.cycleMu.Lock()
		w.delay.Resume()
		w.cycleMu.Unlock()
	}
	w.runs++

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done

	go func() {
		defer close(done)
		_ = w.Run(runCtx)
	}()
}

// Run executes the upload loop until ctx is canceled.
// Cancellation during the sleep aborts the cycle immediately; an upload
// already in flight is allowed to finish first.
func (w *UploadWorker) Run(ctx context.Context) error {
	timer := time.NewTimer(w.delay.Current())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		w.cycle(ctx)
		timer.Reset(w.delay.Current())
	}
}

// CancelSynchronously stops the loop and waits for it to exit. Unread batches
// stay on disk for the next run.
func (w *UploadWorker) CancelSynchronously() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// CurrentDelay returns the current upload pace.
func (w *UploadWorker) CurrentDelay() time.Duration {
	w.cycleMu.Lock()
	defer w.cycleMu.Unlock()
	return w.delay.Current()
}

// cycle performs one upload attempt.
func (w *UploadWorker) cycle(ctx context.Context) {
	w.cycleMu.Lock()
	defer w.cycleMu.Unlock()

	if blockers := w.conditions.Blockers(); len(blockers) > 0 {
		w.logger.Debug("upload skipped",
			ports.String("feature", w.config.Feature),
			ports.Any("blockers", blockers),
		)
		if w.emitter != nil {
			w.emitter.OnCycleSkipped(blockers)
		}
		return
	}

	batch, err := w.reader.ReadNextBatch()
	if err != nil {
		w.logger.Error("read batch failed", ports.String("feature", w.config.Feature), ports.Err(err))
		return
	}
	if batch == nil {
		return
	}

	// The attempt outlives cancellation; the transport timeout bounds it.
	outcome := w.upload(context.WithoutCancel(ctx), batch)
	w.resolve(batch, outcome)

	delay := w.delay.Apply(outcome)
	if w.emitter != nil {
		w.emitter.OnPaceChange(delay)
	}
}

// FlushSynchronously makes every stored file readable and uploads batches
// back to back, ignoring the pace and the network and battery gates. It
// stops at the first retryable failure, leaving the remaining batches for a
// later run. Nothing is uploaded without tracking consent.
func (w *UploadWorker) FlushSynchronously(ctx context.Context) error {
	w.cycleMu.Lock()
	defer w.cycleMu.Unlock()

	if !w.conditions.ConsentGranted() {
		w.logger.Info("flush skipped: tracking consent not granted", ports.String("feature", w.config.Feature))
		return nil
	}

	w.reader.MarkAllFilesAsReadable()
	defer w.reader.RestoreMinReadAge()

	flushed := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := w.reader.ReadNextBatch()
		if err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		if batch == nil {
			w.logger.Info("flush complete",
				ports.String("feature", w.config.Feature),
				ports.Int("batches", flushed),
			)
			return nil
		}

		outcome := w.upload(ctx, batch)
		w.resolve(batch, outcome)
		if failure, ok := outcome.(domain.RetryableFailure); ok {
			return fmt.Errorf("flush stopped after %d batches: %w", flushed, failure)
		}
		flushed++
	}
}

func (w *UploadWorker) upload(ctx context.Context, batch *domain.Batch) domain.Outcome {
	metadata := ports.UploadMetadata{
		RequestID:        uuid.NewString(),
		Feature:          w.config.Feature,
		ServerTimeOffset: w.dateCorrector.CurrentCorrection().ServerTimeOffset,
	}

	start := time.Now()
	outcome := w.transport.Send(ctx, batch.Data, metadata)
	duration := time.Since(start)

	if _, ok := outcome.(domain.Delivered); ok {
		w.logger.Debug("batch uploaded",
			ports.String("feature", w.config.Feature),
			ports.String("file", batch.File),
			ports.Int("bytes", batch.Size()),
			ports.Duration("duration", duration),
		)
		if w.emitter != nil {
			w.emitter.OnUploadSuccess(batch, duration)
		}
	}
	return outcome
}

// resolve applies a terminal or retryable outcome to the batch file.
func (w *UploadWorker) resolve(batch *domain.Batch, outcome domain.Outcome) {
	switch o := outcome.(type) {
	case domain.Delivered:
		w.markRead(batch)

	case domain.RetryableFailure:
		w.logger.Warn("upload failed, will retry",
			ports.String("feature", w.config.Feature),
			ports.String("file", batch.File),
			ports.Int("status", o.StatusCode),
			ports.Err(o.Err),
		)
		if w.emitter != nil {
			w.emitter.OnUploadError(batch, o, true)
		}

	case domain.NonRetryableFailure:
		// Undeliverable; retrying would stall the queue.
		w.logger.Error("upload rejected, dropping batch",
			ports.String("feature", w.config.Feature),
			ports.String("file", batch.File),
			ports.Int("status", o.StatusCode),
			ports.Err(o.Err),
		)
		w.markRead(batch)
		if w.emitter != nil {
			w.emitter.OnUploadError(batch, o, false)
		}

	default:
		err := errors.New("transport returned no outcome")
		w.logger.Error("upload failed, will retry", ports.String("feature", w.config.Feature), ports.Err(err))
		if w.emitter != nil {
			w.emitter.OnUploadError(batch, err, true)
		}
	}
}

func (w *UploadWorker) markRead(batch *domain.Batch) {
	if err := w.reader.MarkBatchAsRead(batch); err != nil {
		w.logger.Error("delete batch failed",
			ports.String("feature", w.config.Feature),
			ports.String("file", batch.File),
			ports.Err(err),
		)
	}
}
