package conditions

import (
	"sync"

	"github.com/bft-labs/telship/internal/domain"
	"github.com/bft-labs/telship/internal/ports"
)

// Value is a synchronized holder for one condition.
// Observers run synchronously on the goroutine calling Set, outside the value
// lock, and in the order the transitions happened.
type Value[T comparable] struct {
	mu        sync.RWMutex
	value     T
	observers []func(old, new T)

	// notifyMu keeps notifications of concurrent Set calls in transition order.
	notifyMu sync.Mutex
}

// NewValue creates a holder seeded with initial.
func NewValue[T comparable](initial T) *Value[T] {
	return &Value[T]{value: initial}
}

// Current returns the latest value.
func (v *Value[T]) Current() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Set stores a new value and notifies observers when it changed.
func (v *Value[T]) Set(value T) {
	v.notifyMu.Lock()
	defer v.notifyMu.Unlock()

	v.mu.Lock()
	old := v.value
	v.value = value
	observers := append([]func(old, new T){}, v.observers...)
	v.mu.Unlock()

	if old == value {
		return
	}
	for _, o := range observers {
		o(old, value)
	}
}

// Subscribe registers an observer for subsequent changes.
func (v *Value[T]) Subscribe(observer func(old, new T)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.observers = append(v.observers, observer)
}

var (
	_ ports.ConsentProvider = (*Value[domain.Consent])(nil)
	_ ports.BatteryProvider = (*Value[domain.BatteryStatus])(nil)
	_ ports.NetworkProvider = (*Value[domain.NetworkInfo])(nil)
)

// NewConsentProvider creates a consent holder.
func NewConsentProvider(initial domain.Consent) *Value[domain.Consent] {
	return NewValue(initial)
}

// NewBatteryProvider creates a battery holder. Unknown state never blocks uploads.
func NewBatteryProvider() *Value[domain.BatteryStatus] {
	return NewValue(domain.BatteryStatus{State: domain.BatteryUnknown, Level: 1})
}

// NewNetworkProvider creates a network holder starting at "maybe".
func NewNetworkProvider() *Value[domain.NetworkInfo] {
	return NewValue(domain.NetworkInfo{Reachability: domain.ReachabilityMaybe})
}
