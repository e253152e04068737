package domain

import "time"

// BatteryState is the charging state reported by the device.
type BatteryState int

const (
	BatteryUnknown BatteryState = iota
	BatteryUnplugged
	BatteryCharging
	BatteryFull
)

// String returns a human-readable representation of the battery state.
func (s BatteryState) String() string {
	switch s {
	case BatteryUnplugged:
		return "unplugged"
	case BatteryCharging:
		return "charging"
	case BatteryFull:
		return "full"
	default:
		return "unknown"
	}
}

// BatteryStatus is a snapshot of the device power state.
type BatteryStatus struct {
	State BatteryState
	// Level is the charge fraction in [0, 1].
	Level        float64
	LowPowerMode bool
}

// Reachability tells whether the collector can currently be reached.
type Reachability int

const (
	ReachabilityMaybe Reachability = iota
	ReachabilityYes
	ReachabilityNo
)

// String returns a human-readable representation of the reachability.
func (r Reachability) String() string {
	switch r {
	case ReachabilityYes:
		return "yes"
	case ReachabilityNo:
		return "no"
	default:
		return "maybe"
	}
}

// NetworkInfo is a snapshot of network conditions.
type NetworkInfo struct {
	Reachability Reachability
}

// DateCorrection is the offset between server time and the local clock.
type DateCorrection struct {
	ServerTimeOffset time.Duration
}

// Apply corrects a locally stamped time.
func (c DateCorrection) Apply(t time.Time) time.Time {
	return t.Add(c.ServerTimeOffset)
}
