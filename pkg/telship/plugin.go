package telship

import "context"

// Plugin extends a telship instance. Plugins are initialized in registration
// order on Start and shut down in reverse order on Stop.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// PluginConfig is what a plugin gets to work with.
type PluginConfig struct {
	Feature    string
	StorageDir string
	ServiceURL string

	// AuthorizedDir and PendingDir are the batch directories of the stream.
	AuthorizedDir string
	PendingDir    string

	Consent ConsentProvider
	Logger  Logger
}

// BasePlugin implements Plugin with no-ops.
type BasePlugin struct{}

func (BasePlugin) Name() string                                   { return "base" }
func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }
func (BasePlugin) Shutdown(context.Context) error                 { return nil }
