// Package consentwatcher keeps a telship instance's tracking consent in sync
// with a small text file. Another process (a settings UI, a provisioning
// script) writes "granted", "pending" or "not_granted" to the file and the
// new value is applied within the debounce delay.
package consentwatcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/telship/pkg/telship"
)

// Plugin applies the consent stored in a file.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	path          string
	debounceDelay time.Duration

	// Runtime state
	consent  telship.ConsentProvider
	logger   telship.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the consent watcher plugin.
type Config struct {
	// Path of the consent file. Relative paths are resolved against the
	// telship storage directory.
	Path string

	// DebounceDelay is the delay to wait after a file change before reading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultFileName is used when Config.Path is empty.
const DefaultFileName = "consent"

// New creates a consent watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "consentwatcher"
}

// Initialize applies the current file contents and starts watching.
func (p *Plugin) Initialize(ctx context.Context, cfg telship.PluginConfig) error {
	if cfg.Consent == nil {
		return errors.New("consentwatcher: no consent provider")
	}

	p.mu.Lock()
	p.consent = cfg.Consent
	p.logger = cfg.Logger
	switch {
	case p.path == "":
		p.path = filepath.Join(cfg.StorageDir, DefaultFileName)
	case !filepath.IsAbs(p.path):
		p.path = filepath.Join(cfg.StorageDir, p.path)
	}
	p.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("consentwatcher: create watcher: %w", err)
	}
	// The directory is watched so that atomic replacements are seen.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("consentwatcher: watch %s: %w", filepath.Dir(p.path), err)
	}

	p.apply()

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("consent watcher initialized", telship.LogField{Key: "path", Value: p.path})

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

// Path returns the watched file.
func (p *Plugin) Path() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.path
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceApply(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("consent watcher error", telship.LogField{Key: "error", Value: err})
		}
	}
}

func (p *Plugin) debounceApply(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.apply()
	})
}

// apply reads the file and sets the consent. A missing or unparseable file
// leaves the consent unchanged.
func (p *Plugin) apply() {
	consent, err := ReadConsentFile(p.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		p.logger.Warn("ignoring consent file", telship.LogField{Key: "error", Value: err})
		return
	}

	previous := p.consent.Current()
	p.consent.Set(consent)
	if previous != consent {
		p.logger.Info("consent updated from file",
			telship.LogField{Key: "from", Value: previous.String()},
			telship.LogField{Key: "to", Value: consent.String()},
		)
	}
}

// ReadConsentFile parses a consent file. Surrounding whitespace and case are
// ignored.
func ReadConsentFile(path string) (telship.Consent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return telship.ConsentPending, err
	}
	return telship.ParseConsent(strings.ToLower(strings.TrimSpace(string(data))))
}

// WriteConsentFile replaces the file contents atomically.
func WriteConsentFile(path string, consent telship.Consent) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(consent.String()+"\n"), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Ensure Plugin implements telship.Plugin.
var _ telship.Plugin = (*Plugin)(nil)
