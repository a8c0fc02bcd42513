// Package registry is the read-mostly listener index: which plugins
// want which kind of event, fanned out by the dispatcher on every
// inbound frame. Mutation (plugin enable/disable, registration at
// plugin startup) takes the write lock; the hot path only ever reads.
package registry

import (
	"context"
	"sync"

	"github.com/ThriceCola/Kovi/internal/onebot"
)

// Handler is invoked once per admitted event, already resolved to its
// concrete typed-event pointer via the ev parameter. ctx carries the
// owning plugin's name as an ambient value; the plugin's Builder is not
// in it.
type Handler func(ctx context.Context, ev onebot.TypedEvent)

// ListenEntry is one plugin's registration for one event tag.
type ListenEntry struct {
	Plugin  string
	Handler Handler
}

// Registry is the two-level event_tag -> plugin_name -> []ListenEntry
// index. Zero value is not usable; construct with New.
type Registry struct {
	mu    sync.RWMutex
	index map[onebot.EventTag]map[string][]ListenEntry
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{index: make(map[onebot.EventTag]map[string][]ListenEntry)}
}

// Register adds a listener for the given plugin and event tag.
func (r *Registry) Register(tag onebot.EventTag, plugin string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byPlugin, ok := r.index[tag]
	if !ok {
		byPlugin = make(map[string][]ListenEntry)
		r.index[tag] = byPlugin
	}
	byPlugin[plugin] = append(byPlugin[plugin], ListenEntry{Plugin: plugin, Handler: h})
}

// Unregister removes every listener registered by plugin, across all
// event tags. Called when a plugin is disabled or dropped.
func (r *Registry) Unregister(plugin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, byPlugin := range r.index {
		delete(byPlugin, plugin)
	}
}

// Snapshot returns a flattened, independent copy of every listener
// registered for tag, across all plugins. The caller may range over
// the result without holding any lock; later Register/Unregister
// calls do not affect an already-taken snapshot.
func (r *Registry) Snapshot(tag onebot.EventTag) []ListenEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byPlugin, ok := r.index[tag]
	if !ok {
		return nil
	}
	var out []ListenEntry
	for _, entries := range byPlugin {
		out = append(out, entries...)
	}
	return out
}

// Plugins returns the distinct plugin names with at least one listener
// registered, for any event tag.
func (r *Registry) Plugins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]bool{}
	for _, byPlugin := range r.index {
		for name := range byPlugin {
			seen[name] = true
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	return out
}
