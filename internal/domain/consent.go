package domain

import "fmt"

// Consent is the user's tracking consent for data collection.
type Consent int

const (
	// ConsentPending buffers writes in a quarantined area until consent resolves.
	ConsentPending Consent = iota
	// ConsentGranted persists writes and allows uploads.
	ConsentGranted
	// ConsentNotGranted drops writes and purges buffered data.
	ConsentNotGranted
)

// String returns a human-readable representation of the consent.
func (c Consent) String() string {
	switch c {
	case ConsentPending:
		return "pending"
	case ConsentGranted:
		return "granted"
	case ConsentNotGranted:
		return "not_granted"
	default:
		return "unknown"
	}
}

// ParseConsent parses the textual form used in config files and flags.
func ParseConsent(s string) (Consent, error) {
	switch s {
	case "pending":
		return ConsentPending, nil
	case "granted":
		return ConsentGranted, nil
	case "not_granted", "denied":
		return ConsentNotGranted, nil
	default:
		return ConsentPending, fmt.Errorf("unknown consent %q", s)
	}
}
