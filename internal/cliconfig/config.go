package cliconfig

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	httpAdapter "github.com/bft-labs/telship/internal/adapters/http"
	"github.com/bft-labs/telship/internal/domain"
	"github.com/bft-labs/telship/pkg/telship"
)

// Config holds CLI configuration for telship.
type Config struct {
	StorageDir string
	Feature    string

	ServiceURL  string
	AuthKey     string
	HTTPTimeout time.Duration
	Compression string
	ContentType string

	BatchSize       string
	UploadFrequency string

	// Record framing. Escape sequences such as \n are interpreted.
	Prefix    string
	Suffix    string
	Separator string

	Consent     string
	ConsentFile string
	PurgeOnDeny bool

	MonitorBattery       bool
	ReachabilityInterval time.Duration

	Input        string
	Once         bool
	FlushTimeout time.Duration

	MetricsAddr string
	LogLevel    string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Feature:         "logs",
		HTTPTimeout:     30 * time.Second,
		Compression:     string(httpAdapter.CompressionNone),
		ContentType:     "application/json",
		BatchSize:       "medium",
		UploadFrequency: "average",
		Prefix:          "[",
		Suffix:          "]",
		Separator:       ",",
		Consent:         "pending",
		Input:           "-",
		FlushTimeout:    10 * time.Second,
		LogLevel:        "info",
	}
}

// Validate checks the configuration for errors and normalizes it.
func (c *Config) Validate() error {
	if c.StorageDir == "" {
		return fmt.Errorf("storage-dir is required")
	}
	if c.ServiceURL == "" {
		return fmt.Errorf("service-url is required")
	}
	if u, err := url.Parse(c.ServiceURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("service-url %q must be an absolute URL", c.ServiceURL)
	}

	// Ensure no trailing slash
	c.ServiceURL = strings.TrimRight(c.ServiceURL, "/")

	if _, err := domain.ParseBatchSize(c.BatchSize); err != nil {
		return err
	}
	if _, err := domain.ParseUploadFrequency(c.UploadFrequency); err != nil {
		return err
	}
	if _, err := domain.ParseConsent(c.Consent); err != nil {
		return err
	}
	if _, err := httpAdapter.ParseCompression(c.Compression); err != nil {
		return err
	}
	if c.Separator == "" {
		return fmt.Errorf("separator must not be empty")
	}
	if c.FlushTimeout <= 0 {
		return fmt.Errorf("flush timeout must be positive")
	}
	return nil
}

// TelshipConfig converts a validated CLI config into the library config.
func (c Config) TelshipConfig() (telship.Config, error) {
	size, err := domain.ParseBatchSize(c.BatchSize)
	if err != nil {
		return telship.Config{}, err
	}
	freq, err := domain.ParseUploadFrequency(c.UploadFrequency)
	if err != nil {
		return telship.Config{}, err
	}
	consent, err := domain.ParseConsent(c.Consent)
	if err != nil {
		return telship.Config{}, err
	}

	return telship.Config{
		StorageDir:      c.StorageDir,
		Feature:         c.Feature,
		ServiceURL:      c.ServiceURL,
		AuthKey:         c.AuthKey,
		HTTPTimeout:     c.HTTPTimeout,
		BatchSize:       size,
		UploadFrequency: freq,
		Format: telship.DataFormat{
			Prefix:    Unescape(c.Prefix),
			Suffix:    Unescape(c.Suffix),
			Separator: Unescape(c.Separator),
		},
		ContentType:          c.ContentType,
		Compression:          c.Compression,
		InitialConsent:       consent,
		PurgeOnDeny:          c.PurgeOnDeny,
		MonitorBattery:       c.MonitorBattery,
		ReachabilityInterval: c.ReachabilityInterval,
	}, nil
}

// Unescape interprets Go escape sequences (\n, \t, \x00...) so separators
// can be passed on the command line. Invalid sequences are kept verbatim.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	out, err := strconv.Unquote(`"` + strings.ReplaceAll(s, `"`, `\"`) + `"`)
	if err != nil {
		return s
	}
	return out
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
