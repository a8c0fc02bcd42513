// Package plugin implements plugin lifecycle: a plugin's Main
// entrypoint runs in its own goroutine, raced against a cooperative
// cancellation signal, with drop hooks run on shutdown. There is no
// hot-resume on re-enable; enabling a previously-disabled plugin
// starts Main fresh.
package plugin

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ThriceCola/Kovi/internal/registry"
)

// MainFunc is a plugin's entrypoint. It should run until ctx is
// canceled; a well-behaved plugin returns promptly afterward, but the
// runtime does not wait indefinitely (see Plugin.Enable).
type MainFunc func(ctx context.Context) error

// Plugin is one loaded plugin's runtime state: its entrypoint, its
// access control, and its enable/disable lifecycle.
type Plugin struct {
	Name   string
	Main   MainFunc
	Access AccessControl

	logger *slog.Logger

	stateMu sync.RWMutex
	enabled bool
	changed chan struct{}

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	runCtx context.Context

	hooksMu   sync.Mutex
	dropHooks []func(context.Context)
}

// New builds a Plugin. It starts disabled; call Enable to run it.
func New(name string, main MainFunc, access AccessControl, logger *slog.Logger) *Plugin {
	if logger == nil {
		logger = slog.Default()
	}
	return &Plugin{
		Name:    name,
		Main:    main,
		Access:  access,
		logger:  logger,
		changed: make(chan struct{}),
	}
}

// Enabled reports whether the plugin is currently enabled.
func (p *Plugin) Enabled() bool {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.enabled
}

// Watch returns a channel that is closed the next time Enabled's
// return value changes. Callers should re-call Watch after it fires
// to keep observing future transitions (connwatch-style broadcast).
func (p *Plugin) Watch() <-chan struct{} {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.changed
}

// Context returns the context created for the plugin's current (or
// most recent) run, canceled the moment the plugin is disabled. Handler
// tasks dispatched on this plugin's behalf should derive their context
// from this one, not from the dispatcher's own context, so disabling a
// plugin cancels its in-flight handlers at their next cooperative
// suspension point. Returns nil if the plugin has never been enabled.
func (p *Plugin) Context() context.Context {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	return p.runCtx
}

func (p *Plugin) setEnabled(v bool) bool {
	p.stateMu.Lock()
	if p.enabled == v {
		p.stateMu.Unlock()
		return false
	}
	p.enabled = v
	old := p.changed
	p.changed = make(chan struct{})
	p.stateMu.Unlock()
	close(old)
	return true
}

// OnDrop registers fn to run when the plugin stops, whether from
// Disable or from Main returning on its own. Hooks run in registration
// order.
func (p *Plugin) OnDrop(fn func(context.Context)) {
	p.hooksMu.Lock()
	defer p.hooksMu.Unlock()
	p.dropHooks = append(p.dropHooks, fn)
}

// Enable starts the plugin's Main goroutine under a context derived
// from parent, carrying the plugin's name and builder as ambient
// values. If the plugin is already enabled, Enable is a no-op.
func (p *Plugin) Enable(parent context.Context, reg *registry.Registry, caller Caller) {
	if !p.setEnabled(true) {
		return
	}

	p.runMu.Lock()
	defer p.runMu.Unlock()

	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	// runCtx is cancel-only: no plugin_builder value, since §4.7 scopes
	// the builder handle to Main's subtree, not to handler tasks. Dispatch
	// derives handler contexts from this one so disabling the plugin
	// cancels its in-flight handlers too.
	p.runCtx = WithPluginName(ctx, p.Name)

	b := newBuilder(p.Name, reg, caller, p.logger)
	mainCtx := withBuilder(p.runCtx, b)

	done := make(chan struct{})
	p.done = done

	mainDone := make(chan error, 1)
	go func() {
		mainDone <- p.Main(mainCtx)
	}()

	go func() {
		defer close(done)
		select {
		case err := <-mainDone:
			if err != nil {
				p.logger.Error("plugin main returned an error", "plugin", p.Name, "error", err)
			}
		case <-ctx.Done():
			// Main did not return promptly. We stop waiting on it and
			// run drop hooks anyway; Go has no way to force-stop a
			// goroutine, so the Main invocation is abandoned, not
			// killed.
		}
		reg.Unregister(p.Name)
		p.runDropHooks(WithPluginName(context.Background(), p.Name))
	}()
}

// Disable cancels the plugin's Main context and waits for its
// goroutine to finish running drop hooks.
func (p *Plugin) Disable() {
	if !p.setEnabled(false) {
		return
	}
	p.runMu.Lock()
	cancel, done := p.cancel, p.done
	p.runMu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (p *Plugin) runDropHooks(ctx context.Context) {
	p.hooksMu.Lock()
	hooks := append([]func(context.Context){}, p.dropHooks...)
	p.hooksMu.Unlock()
	for _, h := range hooks {
		h(ctx)
	}
}
