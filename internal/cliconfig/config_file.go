package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	StorageDir           string `toml:"storage_dir"`
	Feature              string `toml:"feature"`
	ServiceURL           string `toml:"service_url"`
	AuthKey              string `toml:"auth_key"`
	HTTPTimeout          string `toml:"http_timeout"`
	Compression          string `toml:"compression"`
	ContentType          string `toml:"content_type"`
	BatchSize            string `toml:"batch_size"`
	UploadFrequency      string `toml:"upload_frequency"`
	Prefix               string `toml:"prefix"`
	Suffix               string `toml:"suffix"`
	Separator            string `toml:"separator"`
	Consent              string `toml:"consent"`
	ConsentFile          string `toml:"consent_file"`
	PurgeOnDeny          *bool  `toml:"purge_on_deny"`
	MonitorBattery       *bool  `toml:"monitor_battery"`
	ReachabilityInterval string `toml:"reachability_interval"`
	Input                string `toml:"input"`
	Once                 *bool  `toml:"once"`
	FlushTimeout         string `toml:"flush_timeout"`
	MetricsAddr          string `toml:"metrics_addr"`
	LogLevel             string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.telship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".telship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("storage-dir", fc.StorageDir, &cfg.StorageDir)
	s.setString("feature", fc.Feature, &cfg.Feature)
	s.setString("service-url", fc.ServiceURL, &cfg.ServiceURL)
	s.setString("auth-key", fc.AuthKey, &cfg.AuthKey)
	s.setString("compression", fc.Compression, &cfg.Compression)
	s.setString("content-type", fc.ContentType, &cfg.ContentType)
	s.setString("batch-size", fc.BatchSize, &cfg.BatchSize)
	s.setString("upload-frequency", fc.UploadFrequency, &cfg.UploadFrequency)
	s.setString("prefix", fc.Prefix, &cfg.Prefix)
	s.setString("suffix", fc.Suffix, &cfg.Suffix)
	s.setString("separator", fc.Separator, &cfg.Separator)
	s.setString("consent", fc.Consent, &cfg.Consent)
	s.setString("consent-file", fc.ConsentFile, &cfg.ConsentFile)
	s.setString("input", fc.Input, &cfg.Input)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("reachability-interval", fc.ReachabilityInterval, &cfg.ReachabilityInterval); err != nil {
		return err
	}
	if err := s.setDuration("flush-timeout", fc.FlushTimeout, &cfg.FlushTimeout); err != nil {
		return err
	}

	s.setBool("purge-on-deny", fc.PurgeOnDeny, &cfg.PurgeOnDeny)
	s.setBool("monitor-battery", fc.MonitorBattery, &cfg.MonitorBattery)
	s.setBool("once", fc.Once, &cfg.Once)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
