package telship

import (
	"github.com/bft-labs/telship/internal/app"
	"github.com/bft-labs/telship/internal/conditions"
	"github.com/bft-labs/telship/internal/domain"
	"github.com/bft-labs/telship/internal/ports"
)

// Logging.
type (
	Logger   = ports.Logger
	LogField = ports.Field
)

// HTTPClient is satisfied by *http.Client.
type HTTPClient = ports.HTTPClient

// Lifecycle state of an instance.
type State = app.State

const (
	StateStopped  = app.StateStopped
	StateStarting = app.StateStarting
	StateRunning  = app.StateRunning
	StateStopping = app.StateStopping
	StateCrashed  = app.StateCrashed
)

// Tracking consent.
type Consent = domain.Consent

const (
	ConsentPending    = domain.ConsentPending
	ConsentGranted    = domain.ConsentGranted
	ConsentNotGranted = domain.ConsentNotGranted
)

// ParseConsent parses "pending", "granted" or "not_granted".
func ParseConsent(s string) (Consent, error) { return domain.ParseConsent(s) }

// Performance preset selectors.
type (
	BatchSize         = domain.BatchSize
	UploadFrequency   = domain.UploadFrequency
	BundleType        = domain.BundleType
	PerformancePreset = domain.PerformancePreset
)

const (
	BatchSizeSmall  = domain.BatchSizeSmall
	BatchSizeMedium = domain.BatchSizeMedium
	BatchSizeLarge  = domain.BatchSizeLarge

	UploadFrequent = domain.UploadFrequent
	UploadAverage  = domain.UploadAverage
	UploadRare     = domain.UploadRare

	BundleApp       = domain.BundleApp
	BundleExtension = domain.BundleExtension
)

// NewPerformancePreset derives storage and upload tuning from the selectors.
func NewPerformancePreset(size BatchSize, freq UploadFrequency, bundle BundleType) PerformancePreset {
	return domain.NewPerformancePreset(size, freq, bundle)
}

// Record framing.
type DataFormat = domain.DataFormat

// JSONArrayFormat frames each batch as a JSON array.
func JSONArrayFormat() DataFormat { return domain.JSONArrayFormat() }

// NewlineFormat frames each batch as newline-delimited records.
func NewlineFormat() DataFormat { return domain.NewlineFormat() }

// Transport and its outcomes, for custom transports.
type (
	Transport           = ports.Transport
	UploadMetadata      = ports.UploadMetadata
	Outcome             = domain.Outcome
	Delivered           = domain.Delivered
	RetryableFailure    = domain.RetryableFailure
	NonRetryableFailure = domain.NonRetryableFailure
)

// Device conditions.
type (
	BatteryStatus  = domain.BatteryStatus
	BatteryState   = domain.BatteryState
	NetworkInfo    = domain.NetworkInfo
	Reachability   = domain.Reachability
	DateCorrection = domain.DateCorrection
	DateCorrector  = ports.DateCorrector
	DateProvider   = ports.DateProvider
	BatteryPolicy  = conditions.BatteryPolicy

	BatteryProvider = ports.BatteryProvider
	NetworkProvider = ports.NetworkProvider
)

const (
	BatteryUnknown   = domain.BatteryUnknown
	BatteryUnplugged = domain.BatteryUnplugged
	BatteryCharging  = domain.BatteryCharging
	BatteryFull      = domain.BatteryFull

	ReachabilityMaybe = domain.ReachabilityMaybe
	ReachabilityYes   = domain.ReachabilityYes
	ReachabilityNo    = domain.ReachabilityNo
)

// ConsentProvider holds the tracking consent. Set notifies subscribers
// synchronously, in order.
type ConsentProvider interface {
	ports.ConsentProvider
	Set(Consent)
}

// NewConsentProvider returns an in-memory consent holder.
func NewConsentProvider(initial Consent) *conditions.Value[Consent] {
	return conditions.NewConsentProvider(initial)
}

// NewBatteryProvider returns a settable battery holder, initially unknown.
func NewBatteryProvider() *conditions.Value[BatteryStatus] {
	return conditions.NewBatteryProvider()
}

// NewNetworkProvider returns a settable reachability holder, initially maybe.
func NewNetworkProvider() *conditions.Value[NetworkInfo] {
	return conditions.NewNetworkProvider()
}

// MinLevelBatteryPolicy blocks uploads in low power mode or when unplugged
// below minLevel.
func MinLevelBatteryPolicy(minLevel float64) BatteryPolicy {
	return conditions.MinLevelBatteryPolicy(minLevel)
}

// UploadStats summarizes upload activity, as persisted in status.json.
type UploadStats = ports.UploadStatus

// Errors.
var (
	ErrAlreadyRunning    = domain.ErrAlreadyRunning
	ErrNotRunning        = domain.ErrNotRunning
	ErrShutdownTimeout   = domain.ErrShutdownTimeout
	ErrInvalidConfig     = domain.ErrInvalidConfig
	ErrEmptyRecord       = domain.ErrEmptyRecord
	ErrRecordTooLarge    = domain.ErrRecordTooLarge
	ErrDirectoryTooSmall = domain.ErrDirectoryTooSmall
	ErrConsentNotGranted = domain.ErrConsentNotGranted
)
