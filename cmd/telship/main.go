package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/bft-labs/telship/internal/adapters/log"
	"github.com/bft-labs/telship/internal/cliconfig"
	"github.com/bft-labs/telship/pkg/telship"
	"github.com/bft-labs/telship/plugins/consentwatcher"
)

const helpDescription = `
Buffer telemetry records on disk and ship them to a collector in batches.

Highlights:
  - Records survive restarts: every line is persisted before it is uploaded.
  - Nothing leaves the machine until tracking consent is granted.
  - Upload pace backs off on failures and speeds up again on success.
  - Configure via file ($HOME/.telship/config.toml), TELSHIP_* env, or flags.
`

var exampleUsage = strings.TrimSpace(`
  tail -F app.log | telship --storage-dir /var/lib/telship --service-url https://collector.example.com --consent granted
  telship --input events.ndjson --once --consent granted --compression zstd
  telship status --storage-dir /var/lib/telship
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "telship",
		Short:         "Buffer telemetry on disk and upload it in batches",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, cfgPath, &cfg); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	// Flags
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.telship/config.toml)")
	root.PersistentFlags().StringVar(&cfg.StorageDir, "storage-dir", cfg.StorageDir, "directory holding batch files and status.json")
	root.PersistentFlags().StringVar(&cfg.Feature, "feature", cfg.Feature, "feature stream name (subdirectory and ingest path)")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	root.Flags().StringVar(&cfg.ServiceURL, "service-url", cfg.ServiceURL, "collector base URL")
	root.Flags().StringVar(&cfg.AuthKey, "auth-key", cfg.AuthKey, "API key sent as a Bearer token")
	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout per upload")
	root.Flags().StringVar(&cfg.Compression, "compression", cfg.Compression, "request body compression (none, deflate, gzip, zstd)")
	root.Flags().StringVar(&cfg.ContentType, "content-type", cfg.ContentType, "Content-Type of uploaded batches")

	root.Flags().StringVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "batch size preset (small, medium, large)")
	root.Flags().StringVar(&cfg.UploadFrequency, "upload-frequency", cfg.UploadFrequency, "upload frequency preset (frequent, average, rare)")
	root.Flags().StringVar(&cfg.Prefix, "prefix", cfg.Prefix, "batch prefix")
	root.Flags().StringVar(&cfg.Suffix, "suffix", cfg.Suffix, "batch suffix")
	root.Flags().StringVar(&cfg.Separator, "separator", cfg.Separator, `record separator (escapes such as \n are interpreted)`)

	root.Flags().StringVar(&cfg.Consent, "consent", cfg.Consent, "initial tracking consent (pending, granted, not_granted)")
	root.Flags().StringVar(&cfg.ConsentFile, "consent-file", cfg.ConsentFile, "watch this file for consent changes")
	root.Flags().BoolVar(&cfg.PurgeOnDeny, "purge-on-deny", cfg.PurgeOnDeny, "also delete queued data when consent is revoked")

	root.Flags().BoolVar(&cfg.MonitorBattery, "monitor-battery", cfg.MonitorBattery, "pause uploads on low battery (Linux sysfs)")
	root.Flags().DurationVar(&cfg.ReachabilityInterval, "reachability-interval", cfg.ReachabilityInterval, "probe the collector at this interval and pause uploads while unreachable (0 disables)")

	root.Flags().StringVar(&cfg.Input, "input", cfg.Input, "newline-delimited record source (- for stdin)")
	root.Flags().BoolVar(&cfg.Once, "once", cfg.Once, "flush everything at end of input and exit")
	root.Flags().DurationVar(&cfg.FlushTimeout, "flush-timeout", cfg.FlushTimeout, "bound for the final flush")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address (e.g. :9090)")

	root.AddCommand(newStatusCommand(&cfg, &cfgPath))

	if err := root.Execute(); err != nil {
		log := logAdapter.NewConsoleAdapter(zerolog.InfoLevel).Logger()
		log.Error().Err(err).Msg("telship")
		os.Exit(1)
	}
}

// loadConfig layers the config file, TELSHIP_* env and flags, then validates.
func loadConfig(cmd *cobra.Command, cfgPath string, cfg *cliconfig.Config) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	// Build set of changed flags
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}

	// Env overrides the file; flags override both.
	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return nil
}

func run(cfg cliconfig.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logAdapter.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logAdapter.NewConsoleAdapter(level)
	log := logger.Logger()

	// Log configuration (masking API key)
	logCfg := cfg
	if len(logCfg.AuthKey) > 0 {
		logCfg.AuthKey = "*****"
	}
	log.Info().Interface("config", logCfg).Msg("configuration")

	libCfg, err := cfg.TelshipConfig()
	if err != nil {
		return err
	}

	opts := []telship.Option{telship.WithLogger(logger)}
	if cfg.ConsentFile != "" {
		opts = append(opts, consentwatcher.WithConsentWatcher(consentwatcher.Config{Path: cfg.ConsentFile}))
	}
	if cfg.MetricsAddr != "" {
		opts = append(opts, telship.WithMetricsRegisterer(prometheus.DefaultRegisterer))
	}

	ts, err := telship.New(libCfg, opts...)
	if err != nil {
		return fmt.Errorf("create telship: %w", err)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if cfg.MetricsAddr != "" {
		startMetricsServer(ctx, cfg.MetricsAddr, logger)
	}

	if err := ts.Start(ctx); err != nil {
		return fmt.Errorf("start telship: %w", err)
	}

	in, err := openInput(cfg.Input)
	if err != nil {
		_ = ts.Stop()
		return err
	}
	defer in.Close()

	inputDone := make(chan error, 1)
	go func() {
		inputDone <- pump(in, ts, logger)
	}()

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received signal, stopping...")
	case err := <-inputDone:
		if err != nil {
			log.Error().Err(err).Msg("reading input failed")
		}
		if !cfg.Once {
			log.Info().Msg("input closed, uploading until interrupted")
			sig := <-sigCh
			log.Info().Str("signal", sig.String()).Msg("received signal, stopping...")
		}
	}

	// Push out what is stored before exiting.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), cfg.FlushTimeout)
	flushErr := ts.FlushSynchronously(flushCtx)
	flushCancel()
	if flushErr != nil {
		log.Warn().Err(flushErr).Msg("final flush incomplete; remaining batches stay on disk")
	}

	if err := ts.Stop(); err != nil && !errors.Is(err, telship.ErrNotRunning) {
		return fmt.Errorf("stop telship: %w", err)
	}

	stats := ts.Stats()
	log.Info().
		Uint64("batches_sent", stats.BatchesSent).
		Uint64("batches_dropped", stats.BatchesDropped).
		Uint64("bytes_sent", stats.BytesSent).
		Msg("stopped")
	return nil
}
