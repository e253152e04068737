package consentwatcher

import "github.com/bft-labs/telship/pkg/telship"

// WithConsentWatcher returns a telship Option that keeps the tracking consent
// in sync with a file.
//
// Usage:
//
//	t, err := telship.New(cfg,
//	    consentwatcher.WithConsentWatcher(consentwatcher.Config{
//	        Path:          "/etc/myapp/telemetry-consent",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConsentWatcher(cfg Config) telship.Option {
	return telship.WithPlugin(New(cfg))
}
