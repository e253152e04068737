package conditions

import (
	"github.com/bft-labs/telship/internal/domain"
	"github.com/bft-labs/telship/internal/ports"
)

// DefaultMinBatteryLevel is the charge level below which an unplugged device
// stops uploading under DefaultBatteryPolicy.
const DefaultMinBatteryLevel = 0.1

// BatteryPolicy decides whether the battery allows an upload.
type BatteryPolicy func(domain.BatteryStatus) bool

// MinLevelBatteryPolicy blocks uploads in low power mode, or when unplugged
// below minLevel. Unknown state is always allowed.
func MinLevelBatteryPolicy(minLevel float64) BatteryPolicy {
	return func(s domain.BatteryStatus) bool {
		if s.State == domain.BatteryUnknown {
			return true
		}
		if s.LowPowerMode {
			return false
		}
		if s.State == domain.BatteryCharging || s.State == domain.BatteryFull {
			return true
		}
		return s.Level >= minLevel
	}
}

// DefaultBatteryPolicy uses DefaultMinBatteryLevel.
func DefaultBatteryPolicy() BatteryPolicy {
	return MinLevelBatteryPolicy(DefaultMinBatteryLevel)
}

// Blocker names the condition that blocked an upload cycle.
type Blocker string

const (
	BlockedByConsent Blocker = "consent"
	BlockedByNetwork Blocker = "network"
	BlockedByBattery Blocker = "battery"
)

// UploadConditions checks device conditions before each upload cycle.
// It only gates transmission; storage keeps accepting writes.
type UploadConditions struct {
	consent ports.ConsentProvider
	battery ports.BatteryProvider
	network ports.NetworkProvider
	policy  BatteryPolicy
	logger  ports.Logger
}

// NewUploadConditions wires the providers. Nil battery or network providers
// are treated as always allowing uploads.
func NewUploadConditions(
	consent ports.ConsentProvider,
	battery ports.BatteryProvider,
	network ports.NetworkProvider,
	policy BatteryPolicy,
	logger ports.Logger,
) *UploadConditions {
	if policy == nil {
		policy = DefaultBatteryPolicy()
	}
	return &UploadConditions{
		consent: consent,
		battery: battery,
		network: network,
		policy:  policy,
		logger:  logger,
	}
}

// ConsentGranted reports whether tracking consent is granted.
func (c *UploadConditions) ConsentGranted() bool {
	return c.consent == nil || c.consent.Current() == domain.ConsentGranted
}

// Blockers returns the conditions currently preventing an upload.
// An empty result means the cycle may upload.
func (c *UploadConditions) Blockers() []Blocker {
	var blockers []Blocker
	if !c.ConsentGranted() {
		blockers = append(blockers, BlockedByConsent)
	}
	if c.network != nil && c.network.Current().Reachability == domain.ReachabilityNo {
		blockers = append(blockers, BlockedByNetwork)
	}
	if c.battery != nil {
		status := c.battery.Current()
		if !c.policy(status) {
			blockers = append(blockers, BlockedByBattery)
			if c.logger != nil {
				c.logger.Debug("upload conditions: battery disqualifies upload",
					ports.String("state", status.State.String()),
					ports.Float64("level", status.Level),
					ports.Bool("low_power_mode", status.LowPowerMode),
				)
			}
		}
	}
	return blockers
}

// OK returns true if all conditions allow uploading.
func (c *UploadConditions) OK() bool {
	return len(c.Blockers()) == 0
}
