package telship

import (
	"fmt"
	"net/url"
	"time"

	httpAdapter "github.com/bft-labs/telship/internal/adapters/http"
	"github.com/bft-labs/telship/internal/domain"
)

// Config holds the settings of one telship instance. Each instance manages a
// single feature stream with its own storage directory and upload loop.
type Config struct {
	// StorageDir is the root directory for batch files. Required.
	StorageDir string

	// Feature names the stream (e.g. "logs"). Default: "logs".
	Feature string

	// ServiceURL is the collector base URL. Required.
	ServiceURL string

	// AuthKey is sent as a Bearer token.
	AuthKey string

	// HTTPTimeout bounds one upload request. Default: 30s.
	HTTPTimeout time.Duration

	// BatchSize, UploadFrequency and BundleType select the performance
	// preset. Defaults: medium, average, app.
	BatchSize       BatchSize
	UploadFrequency UploadFrequency
	BundleType      BundleType

	// Format frames records on read. Default: JSON array.
	Format DataFormat

	// ContentType of uploaded batches. Default: application/json.
	ContentType string

	// Compression of request bodies: none, deflate, gzip or zstd.
	Compression string

	// InitialConsent is the tracking consent at startup. Default: pending.
	InitialConsent Consent

	// PurgeOnDeny deletes authorized but not yet uploaded data when consent
	// becomes not granted.
	PurgeOnDeny bool

	// MonitorBattery polls the Linux sysfs battery when no battery provider
	// is injected.
	MonitorBattery bool

	// BatteryPollInterval is how often the battery is read. Default: 1m.
	BatteryPollInterval time.Duration

	// ReachabilityInterval enables a TCP probe of the collector when
	// positive and no network provider is injected.
	ReachabilityInterval time.Duration
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	if c.Feature == "" {
		c.Feature = "logs"
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.Format == (DataFormat{}) {
		c.Format = JSONArrayFormat()
	}
	if c.ContentType == "" {
		c.ContentType = "application/json"
	}
	if c.Compression == "" {
		c.Compression = string(httpAdapter.CompressionNone)
	}
	if c.BatteryPollInterval <= 0 {
		c.BatteryPollInterval = time.Minute
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.StorageDir == "" {
		return fmt.Errorf("%w: storage directory is required", domain.ErrInvalidConfig)
	}
	if c.ServiceURL == "" {
		return fmt.Errorf("%w: service URL is required", domain.ErrInvalidConfig)
	}
	u, err := url.Parse(c.ServiceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: service URL %q must be absolute", domain.ErrInvalidConfig, c.ServiceURL)
	}
	if c.Feature == "" || c.Feature == "." || c.Feature == ".." || containsSeparator(c.Feature) {
		return fmt.Errorf("%w: feature %q is not a valid directory name", domain.ErrInvalidConfig, c.Feature)
	}
	if _, err := httpAdapter.ParseCompression(c.Compression); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	if c.Format.Separator == "" {
		return fmt.Errorf("%w: record separator is required", domain.ErrInvalidConfig)
	}
	switch c.InitialConsent {
	case ConsentPending, ConsentGranted, ConsentNotGranted:
	default:
		return fmt.Errorf("%w: unknown consent %d", domain.ErrInvalidConfig, c.InitialConsent)
	}
	return nil
}

func containsSeparator(s string) bool {
	for _, r := range s {
		if r == '/' || r == '\\' {
			return true
		}
	}
	return false
}
