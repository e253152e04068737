package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (TELSHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("storage-dir", os.Getenv("TELSHIP_STORAGE_DIR"), &cfg.StorageDir)
	s.setString("feature", os.Getenv("TELSHIP_FEATURE"), &cfg.Feature)
	s.setString("service-url", os.Getenv("TELSHIP_SERVICE_URL"), &cfg.ServiceURL)
	s.setString("auth-key", os.Getenv("TELSHIP_AUTH_KEY"), &cfg.AuthKey)
	s.setString("compression", os.Getenv("TELSHIP_COMPRESSION"), &cfg.Compression)
	s.setString("content-type", os.Getenv("TELSHIP_CONTENT_TYPE"), &cfg.ContentType)
	s.setString("batch-size", os.Getenv("TELSHIP_BATCH_SIZE"), &cfg.BatchSize)
	s.setString("upload-frequency", os.Getenv("TELSHIP_UPLOAD_FREQUENCY"), &cfg.UploadFrequency)
	s.setString("prefix", os.Getenv("TELSHIP_PREFIX"), &cfg.Prefix)
	s.setString("suffix", os.Getenv("TELSHIP_SUFFIX"), &cfg.Suffix)
	s.setString("separator", os.Getenv("TELSHIP_SEPARATOR"), &cfg.Separator)
	s.setString("consent", os.Getenv("TELSHIP_CONSENT"), &cfg.Consent)
	s.setString("consent-file", os.Getenv("TELSHIP_CONSENT_FILE"), &cfg.ConsentFile)
	s.setString("input", os.Getenv("TELSHIP_INPUT"), &cfg.Input)
	s.setString("metrics-addr", os.Getenv("TELSHIP_METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", os.Getenv("TELSHIP_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("timeout", os.Getenv("TELSHIP_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("reachability-interval", os.Getenv("TELSHIP_REACHABILITY_INTERVAL"), &cfg.ReachabilityInterval); err != nil {
		return err
	}
	if err := s.setDuration("flush-timeout", os.Getenv("TELSHIP_FLUSH_TIMEOUT"), &cfg.FlushTimeout); err != nil {
		return err
	}

	s.setBoolFromString("purge-on-deny", os.Getenv("TELSHIP_PURGE_ON_DENY"), &cfg.PurgeOnDeny)
	s.setBoolFromString("monitor-battery", os.Getenv("TELSHIP_MONITOR_BATTERY"), &cfg.MonitorBattery)
	s.setBoolFromString("once", os.Getenv("TELSHIP_ONCE"), &cfg.Once)

	return nil
}
