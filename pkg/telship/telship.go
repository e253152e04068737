package telship

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/bft-labs/telship/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/telship/internal/adapters/http"
	logAdapter "github.com/bft-labs/telship/internal/adapters/log"
	"github.com/bft-labs/telship/internal/adapters/system"
	"github.com/bft-labs/telship/internal/app"
	"github.com/bft-labs/telship/internal/conditions"
	"github.com/bft-labs/telship/internal/domain"
	"github.com/bft-labs/telship/internal/metrics"
	"github.com/bft-labs/telship/internal/ports"
	"github.com/bft-labs/telship/internal/storage"
)

// Telship stores records for one feature stream on disk and uploads them in
// batches. Use New to create an instance, Append to record data and Start to
// begin uploading.
type Telship struct {
	config    Config
	preset    PerformancePreset
	lifecycle *app.Lifecycle
	storage   *storage.FeatureStorage
	worker    *app.UploadWorker
	consent   ConsentProvider
	emitter   *eventEmitter
	logger    ports.Logger
	plugins   []Plugin

	// pollers run next to the upload loop while the instance is running.
	pollers []func(context.Context)

	mu sync.Mutex
}

// New creates an instance in StateStopped. Records can be appended before
// Start; they are uploaded once the instance runs and consent is granted.
func New(cfg Config, opts ...Option) (*Telship, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logAdapter.NoopLogger{}
	}
	clock := o.dateProvider
	if clock == nil {
		clock = ports.SystemDateProvider{}
	}

	preset := domain.NewPerformancePreset(cfg.BatchSize, cfg.UploadFrequency, cfg.BundleType)
	if o.preset != nil {
		preset = *o.preset
	}
	if err := preset.Validate(); err != nil {
		return nil, err
	}

	consent := o.consent
	if consent == nil {
		consent = conditions.NewConsentProvider(cfg.InitialConsent)
	}

	store, err := storage.NewFeatureStorage(storage.Config{
		RootDir:     cfg.StorageDir,
		Feature:     cfg.Feature,
		Preset:      preset.StoragePreset,
		Format:      cfg.Format,
		PurgeOnDeny: cfg.PurgeOnDeny,
	}, consent, clock, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	corrector := o.dateCorrector
	if corrector == nil {
		corrector = conditions.NewServerDateCorrector(clock)
	}

	transport := o.transport
	if transport == nil {
		client := o.httpClient
		if client == nil {
			client = &http.Client{Timeout: cfg.HTTPTimeout}
		}
		observer, _ := corrector.(httpAdapter.ResponseObserver)
		compression, _ := httpAdapter.ParseCompression(cfg.Compression)
		transport, err = httpAdapter.NewUploader(httpAdapter.UploaderConfig{
			ServiceURL:  cfg.ServiceURL,
			AuthKey:     cfg.AuthKey,
			ContentType: cfg.ContentType,
			Compression: compression,
		}, client, observer, logger)
		if err != nil {
			return nil, err
		}
	}

	t := &Telship{
		config:  cfg,
		preset:  preset,
		storage: store,
		consent: consent,
		logger:  logger,
		plugins: o.plugins,
	}

	battery := o.battery
	if battery == nil && cfg.MonitorBattery {
		value := conditions.NewBatteryProvider()
		monitor := system.NewBatteryMonitor(system.NewBatteryReader(""), value.Set, cfg.BatteryPollInterval, logger)
		t.pollers = append(t.pollers, monitor.Run)
		battery = value
	}

	network := o.network
	if network == nil && cfg.ReachabilityInterval > 0 {
		value := conditions.NewNetworkProvider()
		prober, err := system.NewReachabilityProber(cfg.ServiceURL, value.Set, cfg.ReachabilityInterval, 0, logger)
		if err != nil {
			return nil, err
		}
		t.pollers = append(t.pollers, prober.Run)
		network = value
	}

	featureDir := filepath.Join(cfg.StorageDir, cfg.Feature)
	t.emitter = &eventEmitter{
		feature: cfg.Feature,
		handler: o.eventHandler,
		metrics: metrics.New(o.metricsRegistry).Feature(cfg.Feature),
		stats:   newStatsRecorder(cfg.Feature, fs.NewStatusFileRepository(featureDir), clock, logger),
		dirSize: store.AuthorizedSize,
	}

	t.lifecycle = app.NewLifecycle(logger, t.emitter)
	t.worker = app.NewUploadWorker(
		app.UploadWorkerConfig{Feature: cfg.Feature, Preset: preset.UploadPreset},
		store,
		transport,
		conditions.NewUploadConditions(consent, battery, network, o.batteryPolicy, logger),
		corrector,
		logger,
		t.emitter,
	)

	return t, nil
}

// Start begins uploading in the background. ctx bounds the lifetime of the
// upload loop and the plugins.
func (t *Telship) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := t.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.lifecycle.SetCancel(cancel)

	pluginCfg := PluginConfig{
		Feature:       t.config.Feature,
		StorageDir:    t.config.StorageDir,
		ServiceURL:    t.config.ServiceURL,
		AuthorizedDir: t.storage.AuthorizedDir(),
		PendingDir:    t.storage.PendingDir(),
		Consent:       t.consent,
		Logger:        t.logger,
	}
	for i, p := range t.plugins {
		if err := initializePlugin(runCtx, p, pluginCfg); err != nil {
			t.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err),
			)
			t.shutdownPlugins(t.plugins[:i])
			cancel()
			_ = t.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		t.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	for _, poll := range t.pollers {
		t.lifecycle.Go(func() { poll(runCtx) })
	}
	t.worker.Start(runCtx)

	return t.lifecycle.TransitionTo(app.StateRunning, "upload loop started")
}

// Stop cancels the upload loop and waits for it, then shuts plugins down.
// An upload in flight completes first. Returns ErrShutdownTimeout if
// shutdown took longer than 30 seconds.
func (t *Telship) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.lifecycle.CanStop() {
		return domain.ErrNotRunning
	}
	if err := t.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		return err
	}

	t.lifecycle.Cancel()
	t.lifecycle.Go(t.worker.CancelSynchronously)
	err := t.lifecycle.WaitWithTimeout(app.ShutdownTimeout)

	t.shutdownPlugins(t.plugins)

	if err != nil {
		_ = t.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
		return err
	}
	_ = t.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	return nil
}

// CancelSynchronously stops the upload loop and blocks until it has exited.
// Batches not yet uploaded stay on disk. It is a no-op when not running.
func (t *Telship) CancelSynchronously() {
	if err := t.Stop(); err != nil && !errors.Is(err, domain.ErrNotRunning) {
		t.logger.Warn("cancel did not complete cleanly", ports.Err(err))
	}
}

// FlushSynchronously uploads every stored batch now, regardless of file age,
// network or battery, and returns when storage is drained or the first
// retryable failure occurs. Nothing is uploaded without consent. It can be
// called whether or not the instance is running.
func (t *Telship) FlushSynchronously(ctx context.Context) error {
	return t.worker.FlushSynchronously(ctx)
}

// Append stores one record. Records refused because consent is not granted
// are dropped silently (reported through OnRecordDropped). Empty, oversized
// and I/O-failed records return an error.
func (t *Telship) Append(record []byte) error {
	err := t.storage.Write(record)
	switch {
	case err == nil:
		t.emitter.recordWritten(len(record))
		return nil
	case errors.Is(err, domain.ErrConsentNotGranted):
		t.emitter.recordDropped(len(record), DropConsent, err)
		return nil
	}

	reason := DropIO
	switch {
	case errors.Is(err, domain.ErrEmptyRecord):
		reason = DropInvalid
	case errors.Is(err, domain.ErrRecordTooLarge), errors.Is(err, domain.ErrDirectoryTooSmall):
		reason = DropTooLarge
	}
	t.logger.Warn("record dropped",
		ports.String("feature", t.config.Feature),
		ports.Int("size", len(record)),
		ports.String("reason", string(reason)),
		ports.Err(err),
	)
	t.emitter.recordDropped(len(record), reason, err)
	return err
}

// SetConsent changes the tracking consent. Pending data is migrated or
// purged before SetConsent returns.
func (t *Telship) SetConsent(consent Consent) {
	t.consent.Set(consent)
}

// Consent returns the current tracking consent.
func (t *Telship) Consent() Consent {
	return t.consent.Current()
}

// Status returns the lifecycle state.
func (t *Telship) Status() State {
	return t.lifecycle.State()
}

// Stats returns the upload statistics.
func (t *Telship) Stats() UploadStats {
	return t.emitter.stats.snapshot()
}

// Preset returns the performance preset in use.
func (t *Telship) Preset() PerformancePreset {
	return t.preset
}

// initializePlugin turns a plugin panic into an error.
func initializePlugin(ctx context.Context, p Plugin, cfg PluginConfig) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s panicked: %v", p.Name(), r)
		}
	}()
	return p.Initialize(ctx, cfg)
}

// shutdownPlugins shuts plugins down in reverse order.
func (t *Telship) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := shutdownPlugin(ctx, p); err != nil {
			t.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err),
			)
			continue
		}
		t.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
	}
}

func shutdownPlugin(ctx context.Context, p Plugin) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s panicked: %v", p.Name(), r)
		}
	}()
	return p.Shutdown(ctx)
}
