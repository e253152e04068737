package ports

import (
	"time"

	"github.com/bft-labs/telship/internal/domain"
)

// Provider exposes a synchronized value together with change notifications.
// Consent, battery and network state are all injected through it.
type Provider[T any] interface {
	// Current returns the latest value.
	Current() T

	// Subscribe registers an observer called with (old, new) on every change.
	Subscribe(observer func(old, new T))
}

// ConsentProvider supplies the tracking consent.
type ConsentProvider = Provider[domain.Consent]

// BatteryProvider supplies the battery status.
type BatteryProvider = Provider[domain.BatteryStatus]

// NetworkProvider supplies network reachability.
type NetworkProvider = Provider[domain.NetworkInfo]

// DateCorrector supplies the current server time correction.
type DateCorrector interface {
	CurrentCorrection() domain.DateCorrection
}

// DateProvider supplies the local clock. Tests substitute a controllable one.
type DateProvider interface {
	Now() time.Time
}

// SystemDateProvider reads the wall clock.
type SystemDateProvider struct{}

// Now returns time.Now().
func (SystemDateProvider) Now() time.Time { return time.Now() }
