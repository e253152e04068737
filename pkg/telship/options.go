package telship

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Option configures optional behavior of Telship.
type Option func(*options)

type options struct {
	httpClient      HTTPClient
	transport       Transport
	logger          Logger
	eventHandler    EventHandler
	plugins         []Plugin
	consent         ConsentProvider
	battery         BatteryProvider
	network         NetworkProvider
	dateCorrector   DateCorrector
	dateProvider    DateProvider
	batteryPolicy   BatteryPolicy
	preset          *PerformancePreset
	metricsRegistry prometheus.Registerer
}

// WithHTTPClient sets the client used by the default HTTP transport.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithTransport replaces the HTTP transport entirely.
func WithTransport(transport Transport) Option {
	return func(o *options) {
		o.transport = transport
	}
}

// WithLogger sets a structured logger. Default: no output.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for telship events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized on Start.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithConsentProvider shares a consent holder, e.g. across feature streams.
// Config.InitialConsent is ignored when set.
func WithConsentProvider(provider ConsentProvider) Option {
	return func(o *options) {
		o.consent = provider
	}
}

// WithBatteryProvider supplies battery status. It disables the built-in
// sysfs monitor.
func WithBatteryProvider(provider BatteryProvider) Option {
	return func(o *options) {
		o.battery = provider
	}
}

// WithNetworkProvider supplies reachability. It disables the built-in probe.
func WithNetworkProvider(provider NetworkProvider) Option {
	return func(o *options) {
		o.network = provider
	}
}

// WithDateCorrector replaces the server clock corrector. A corrector that
// also has an ObserveResponse(*http.Response) method sees every collector
// response.
func WithDateCorrector(corrector DateCorrector) Option {
	return func(o *options) {
		o.dateCorrector = corrector
	}
}

// WithDateProvider sets the clock used to name and age batch files.
func WithDateProvider(provider DateProvider) Option {
	return func(o *options) {
		o.dateProvider = provider
	}
}

// WithBatteryPolicy decides which battery states allow uploads.
func WithBatteryPolicy(policy BatteryPolicy) Option {
	return func(o *options) {
		o.batteryPolicy = policy
	}
}

// WithPerformancePreset overrides the preset derived from Config.
func WithPerformancePreset(preset PerformancePreset) Option {
	return func(o *options) {
		o.preset = &preset
	}
}

// WithMetricsRegisterer registers Prometheus collectors with reg.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.metricsRegistry = reg
	}
}
