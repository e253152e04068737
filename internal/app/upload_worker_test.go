package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/telship/internal/conditions"
	"github.com/bft-labs/telship/internal/domain"
	"github.com/bft-labs/telship/internal/ports"
)

// fakeReader serves batches in order and forgets those marked as read.
type fakeReader struct {
	mu             sync.Mutex
	batches        []*domain.Batch
	reads          int
	markedReadable int
	restored       int
}

func newFakeReader(names ...string) *fakeReader {
	r := &fakeReader{}
	for _, name := range names {
		r.batches = append(r.batches, &domain.Batch{File: name, Data: []byte(name)})
	}
	return r
}

func (r *fakeReader) ReadNextBatch() (*domain.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	if len(r.batches) == 0 {
		return nil, nil
	}
	return r.batches[0], nil
}

func (r *fakeReader) MarkBatchAsRead(batch *domain.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, b := range r.batches {
		if b.File == batch.File {
			r.batches = append(r.batches[:i], r.batches[i+1:]...)
			return nil
		}
	}
	return errors.New("unknown batch")
}

func (r *fakeReader) MarkAllFilesAsReadable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markedReadable++
}

func (r *fakeReader) RestoreMinReadAge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restored++
}

func (r *fakeReader) remaining() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for _, b := range r.batches {
		names = append(names, b.File)
	}
	return names
}

// fakeTransport returns scripted outcomes, then its fallback.
type fakeTransport struct {
	mu       sync.Mutex
	outcomes []domain.Outcome
	fallback domain.Outcome
	sent     []string
	metadata []ports.UploadMetadata
}

func (t *fakeTransport) Send(ctx context.Context, data []byte, metadata ports.UploadMetadata) domain.Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, string(data))
	t.metadata = append(t.metadata, metadata)
	if len(t.outcomes) > 0 {
		o := t.outcomes[0]
		t.outcomes = t.outcomes[1:]
		return o
	}
	return t.fallback
}

func (t *fakeTransport) Sent() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string{}, t.sent...)
}

// recordingEmitter records upload events.
type recordingEmitter struct {
	mu        sync.Mutex
	successes int
	errors    []bool
	paces     []time.Duration
	skipped   [][]conditions.Blocker
}

func (e *recordingEmitter) OnUploadSuccess(*domain.Batch, time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.successes++
}

func (e *recordingEmitter) OnUploadError(_ *domain.Batch, _ error, retryable bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errors = append(e.errors, retryable)
}

func (e *recordingEmitter) OnPaceChange(delay time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paces = append(e.paces, delay)
}

func (e *recordingEmitter) OnCycleSkipped(blockers []conditions.Blocker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.skipped = append(e.skipped, blockers)
}

type workerFixture struct {
	worker    *UploadWorker
	reader    *fakeReader
	transport *fakeTransport
	emitter   *recordingEmitter
	consent   *conditions.Value[domain.Consent]
	network   *conditions.Value[domain.NetworkInfo]
	battery   *conditions.Value[domain.BatteryStatus]
}

func testUploadPreset() domain.UploadPreset {
	return domain.UploadPreset{
		InitialUploadDelay:    5 * time.Second,
		DefaultUploadDelay:    5 * time.Second,
		MinUploadDelay:        1 * time.Second,
		MaxUploadDelay:        10 * time.Second,
		UploadDelayChangeRate: 0.1,
	}
}

func newWorkerFixture(preset domain.UploadPreset, reader *fakeReader) *workerFixture {
	f := &workerFixture{
		reader:    reader,
		transport: &fakeTransport{fallback: domain.Delivered{StatusCode: 202}},
		emitter:   &recordingEmitter{},
		consent:   conditions.NewConsentProvider(domain.ConsentGranted),
		network:   conditions.NewNetworkProvider(),
		battery:   conditions.NewBatteryProvider(),
	}
	conds := conditions.NewUploadConditions(f.consent, f.battery, f.network, nil, mockLogger{})
	f.worker = NewUploadWorker(
		UploadWorkerConfig{Feature: "logs", Preset: preset},
		reader,
		f.transport,
		conds,
		conditions.StaticDateCorrector{Offset: 3 * time.Second},
		mockLogger{},
		f.emitter,
	)
	return f
}

func TestUploadWorker_CycleDelivered(t *testing.T) {
	f := newWorkerFixture(testUploadPreset(), newFakeReader("a", "b"))

	f.worker.cycle(context.Background())

	if got := f.reader.remaining(); len(got) != 1 || got[0] != "b" {
		t.Errorf("remaining = %v, want [b]", got)
	}
	if got := f.worker.CurrentDelay(); got != 4500*time.Millisecond {
		t.Errorf("delay = %v, want 4.5s", got)
	}
	md := f.transport.metadata[0]
	if md.Feature != "logs" || md.RequestID == "" || md.ServerTimeOffset != 3*time.Second {
		t.Errorf("metadata = %+v", md)
	}
	if f.emitter.successes != 1 {
		t.Errorf("successes = %d, want 1", f.emitter.successes)
	}
}

func TestUploadWorker_CycleRetryableKeepsBatch(t *testing.T) {
	f := newWorkerFixture(testUploadPreset(), newFakeReader("a"))
	f.transport.fallback = domain.RetryableFailure{StatusCode: 503, Err: errors.New("unavailable")}

	preset := testUploadPreset()
	prev := f.worker.CurrentDelay()
	cycles := 0
	for prev < preset.MaxUploadDelay {
		if cycles == 20 {
			t.Fatalf("delay never reached %v, stuck at %v", preset.MaxUploadDelay, prev)
		}
		f.worker.cycle(context.Background())
		cycles++

		if got := f.reader.remaining(); len(got) != 1 || got[0] != "a" {
			t.Fatalf("cycle %d: remaining = %v, want [a]", cycles, got)
		}
		got := f.worker.CurrentDelay()
		if got <= prev {
			t.Fatalf("cycle %d: delay %v did not increase from %v", cycles, got, prev)
		}
		if got > preset.MaxUploadDelay {
			t.Fatalf("cycle %d: delay %v exceeds max %v", cycles, got, preset.MaxUploadDelay)
		}
		if cycles == 2 && got != 6050*time.Millisecond {
			t.Errorf("delay after two failures = %v, want 6.05s", got)
		}
		prev = got
	}
	if cycles < 3 {
		t.Errorf("reached max after %d cycles, want at least 3", cycles)
	}

	// Capped: further failures keep the delay at the max.
	f.worker.cycle(context.Background())
	if got := f.worker.CurrentDelay(); got != preset.MaxUploadDelay {
		t.Errorf("delay after cap = %v, want %v", got, preset.MaxUploadDelay)
	}

	sent := f.transport.Sent()
	if len(sent) != cycles+1 {
		t.Errorf("sent %d batches, want %d", len(sent), cycles+1)
	}
	for i, data := range sent {
		if data != "a" {
			t.Errorf("sent[%d] = %q, want the same batch every cycle", i, data)
		}
	}
	if len(f.emitter.errors) != cycles+1 || !f.emitter.errors[0] {
		t.Errorf("errors = %v, want %d retryable", f.emitter.errors, cycles+1)
	}
}

func TestUploadWorker_CycleNonRetryableDropsBatch(t *testing.T) {
	f := newWorkerFixture(testUploadPreset(), newFakeReader("a", "b"))
	f.transport.outcomes = []domain.Outcome{domain.NonRetryableFailure{StatusCode: 400, Err: errors.New("bad")}}

	f.worker.cycle(context.Background())
	f.worker.cycle(context.Background())

	if got := f.reader.remaining(); len(got) != 0 {
		t.Errorf("remaining = %v, want none", got)
	}
	if len(f.emitter.errors) != 1 || f.emitter.errors[0] {
		t.Errorf("errors = %v, want one non-retryable", f.emitter.errors)
	}
}

func TestUploadWorker_CycleNilOutcomeRetries(t *testing.T) {
	f := newWorkerFixture(testUploadPreset(), newFakeReader("a"))
	f.transport.fallback = nil

	f.worker.cycle(context.Background())

	if got := f.reader.remaining(); len(got) != 1 {
		t.Errorf("remaining = %v, want batch kept", got)
	}
	if got := f.worker.CurrentDelay(); got != 5*time.Second {
		t.Errorf("delay = %v, want unchanged 5s", got)
	}
}

func TestUploadWorker_CycleBlocked(t *testing.T) {
	tests := []struct {
		name  string
		block func(f *workerFixture)
		want  conditions.Blocker
	}{
		{"consent pending", func(f *workerFixture) { f.consent.Set(domain.ConsentPending) }, conditions.BlockedByConsent},
		{"network down", func(f *workerFixture) {
			f.network.Set(domain.NetworkInfo{Reachability: domain.ReachabilityNo})
		}, conditions.BlockedByNetwork},
		{"battery low", func(f *workerFixture) {
			f.battery.Set(domain.BatteryStatus{State: domain.BatteryUnplugged, Level: 0.05})
		}, conditions.BlockedByBattery},
		{"low power mode", func(f *workerFixture) {
			f.battery.Set(domain.BatteryStatus{State: domain.BatteryUnplugged, Level: 0.9, LowPowerMode: true})
		}, conditions.BlockedByBattery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWorkerFixture(testUploadPreset(), newFakeReader("a"))
			tt.block(f)

			f.worker.cycle(context.Background())

			if f.reader.reads != 0 {
				t.Errorf("reader was consulted %d times, want 0", f.reader.reads)
			}
			if len(f.transport.Sent()) != 0 {
				t.Error("batch was sent while blocked")
			}
			if got := f.worker.CurrentDelay(); got != 5*time.Second {
				t.Errorf("delay = %v, want unchanged", got)
			}
			if len(f.emitter.skipped) != 1 || f.emitter.skipped[0][0] != tt.want {
				t.Errorf("skipped = %v, want [%s]", f.emitter.skipped, tt.want)
			}
		})
	}
}

func TestUploadWorker_CycleNoBatch(t *testing.T) {
	f := newWorkerFixture(testUploadPreset(), newFakeReader())

	f.worker.cycle(context.Background())

	if len(f.transport.Sent()) != 0 {
		t.Error("transport called without a batch")
	}
	if got := f.worker.CurrentDelay(); got != 5*time.Second {
		t.Errorf("delay = %v, want unchanged", got)
	}
}

func TestUploadWorker_FlushSynchronously(t *testing.T) {
	f := newWorkerFixture(testUploadPreset(), newFakeReader("a", "b", "c"))
	f.network.Set(domain.NetworkInfo{Reachability: domain.ReachabilityNo})

	if err := f.worker.FlushSynchronously(context.Background()); err != nil {
		t.Fatalf("FlushSynchronously() = %v", err)
	}

	if got := f.transport.Sent(); len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("sent = %v, want [a b c]", got)
	}
	if f.reader.markedReadable != 1 {
		t.Errorf("MarkAllFilesAsReadable called %d times, want 1", f.reader.markedReadable)
	}
	if got := f.worker.CurrentDelay(); got != 5*time.Second {
		t.Errorf("flush changed delay to %v", got)
	}
}

func TestUploadWorker_FlushStopsOnRetryable(t *testing.T) {
	f := newWorkerFixture(testUploadPreset(), newFakeReader("a", "b", "c"))
	f.transport.outcomes = []domain.Outcome{
		domain.Delivered{StatusCode: 200},
		domain.RetryableFailure{StatusCode: 500, Err: errors.New("boom")},
	}

	err := f.worker.FlushSynchronously(context.Background())
	var failure domain.RetryableFailure
	if !errors.As(err, &failure) {
		t.Fatalf("FlushSynchronously() = %v, want RetryableFailure", err)
	}
	if got := f.reader.remaining(); len(got) != 2 || got[0] != "b" {
		t.Errorf("remaining = %v, want [b c]", got)
	}
	if f.reader.restored != 1 {
		t.Errorf("RestoreMinReadAge called %d times, want 1", f.reader.restored)
	}
}

func TestUploadWorker_FlushRequiresConsent(t *testing.T) {
	f := newWorkerFixture(testUploadPreset(), newFakeReader("a"))
	f.consent.Set(domain.ConsentNotGranted)

	if err := f.worker.FlushSynchronously(context.Background()); err != nil {
		t.Fatalf("FlushSynchronously() = %v", err)
	}
	if len(f.transport.Sent()) != 0 {
		t.Error("flush uploaded without consent")
	}
}

func TestUploadWorker_RunAndCancel(t *testing.T) {
	preset := testUploadPreset()
	preset.InitialUploadDelay = 5 * time.Millisecond
	preset.MinUploadDelay = 5 * time.Millisecond
	preset.MaxUploadDelay = 20 * time.Millisecond
	f := newWorkerFixture(preset, newFakeReader("a", "b", "c"))

	f.worker.Start(context.Background())
	f.worker.Start(context.Background()) // no-op

	deadline := time.Now().Add(2 * time.Second)
	for len(f.reader.remaining()) > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	f.worker.CancelSynchronously()

	if got := f.transport.Sent(); len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("sent = %v, want [a b c] in order", got)
	}

	// Nothing runs after cancel returns.
	sent := len(f.transport.Sent())
	f.reader.mu.Lock()
	f.reader.batches = append(f.reader.batches, &domain.Batch{File: "d", Data: []byte("d")})
	f.reader.mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	if len(f.transport.Sent()) != sent {
		t.Error("upload happened after CancelSynchronously returned")
	}

	f.worker.CancelSynchronously() // no-op
}

func TestUploadWorker_CancelDuringSleep(t *testing.T) {
	preset := testUploadPreset()
	preset.InitialUploadDelay = time.Hour
	preset.MaxUploadDelay = time.Hour
	f := newWorkerFixture(preset, newFakeReader("a"))

	f.worker.Start(context.Background())

	done := make(chan struct{})
	go func() {
		f.worker.CancelSynchronously()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("CancelSynchronously did not interrupt the sleep")
	}
	if len(f.transport.Sent()) != 0 {
		t.Error("upload happened before the first delay elapsed")
	}
}

func TestUploadWorker_RestartResumesAtDefault(t *testing.T) {
	preset := testUploadPreset()
	preset.InitialUploadDelay = 8 * time.Second
	f := newWorkerFixture(preset, newFakeReader("a"))

	f.worker.Start(context.Background())
	f.worker.CancelSynchronously()
	if got := f.worker.CurrentDelay(); got != 8*time.Second {
		t.Fatalf("delay after first run = %v, want initial 8s", got)
	}

	f.worker.Start(context.Background())
	defer f.worker.CancelSynchronously()
	if got := f.worker.CurrentDelay(); got != preset.DefaultUploadDelay {
		t.Errorf("delay after restart = %v, want default %v", got, preset.DefaultUploadDelay)
	}
}
