package plugin

import (
	"context"
	"sync"

	"github.com/ThriceCola/Kovi/internal/registry"
)

// Manager owns the set of loaded plugins and their enable/disable
// state. It implements dispatch.AccessProvider.
type Manager struct {
	mu      sync.RWMutex
	plugins map[string]*Plugin
}

// NewManager builds an empty Manager.
func NewManager() *Manager {
	return &Manager{plugins: make(map[string]*Plugin)}
}

// Add registers p with the manager. It does not enable p; call Enable
// explicitly (typically driven by config/bot-store state at startup).
func (m *Manager) Add(p *Plugin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plugins[p.Name] = p
}

// Get returns the named plugin, if loaded.
func (m *Manager) Get(name string) (*Plugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plugins[name]
	return p, ok
}

// Names returns every loaded plugin's name.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.plugins))
	for name := range m.plugins {
		out = append(out, name)
	}
	return out
}

// AccessControlFor returns the named plugin's AccessControl. Satisfies
// dispatch.AccessProvider.
func (m *Manager) AccessControlFor(name string) (AccessControl, bool) {
	p, ok := m.Get(name)
	if !ok {
		return AccessControl{}, false
	}
	return p.Access, true
}

// Enable starts the named plugin, if loaded and not already enabled.
func (m *Manager) Enable(ctx context.Context, name string, reg *registry.Registry, caller Caller) bool {
	p, ok := m.Get(name)
	if !ok {
		return false
	}
	p.Enable(ctx, reg, caller)
	return true
}

// Disable stops the named plugin, if loaded and currently enabled.
func (m *Manager) Disable(name string) bool {
	p, ok := m.Get(name)
	if !ok {
		return false
	}
	p.Disable()
	return true
}

// Snapshot returns every loaded plugin's current enabled state, keyed
// by name. Used to persist enable state before shutdown disables
// everything.
func (m *Manager) Snapshot() map[string]bool {
	m.mu.RLock()
	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		plugins = append(plugins, p)
	}
	m.mu.RUnlock()

	out := make(map[string]bool, len(plugins))
	for _, p := range plugins {
		out[p.Name] = p.Enabled()
	}
	return out
}

// DisableAll stops every enabled plugin. Used during graceful
// shutdown.
func (m *Manager) DisableAll() {
	m.mu.RLock()
	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		plugins = append(plugins, p)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, p := range plugins {
		if !p.Enabled() {
			continue
		}
		wg.Add(1)
		go func(p *Plugin) {
			defer wg.Done()
			p.Disable()
		}(p)
	}
	wg.Wait()
}
