package plugin

import "context"

type contextKey int

const (
	pluginNameKey contextKey = iota
	builderKey
)

// WithPluginName returns a copy of ctx carrying name, retrievable with
// PluginNameFromContext. Exported so the dispatcher can tag a
// handler-invocation context with the owning plugin's name before
// calling into it.
func WithPluginName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, pluginNameKey, name)
}

// PluginNameFromContext returns the name of the plugin whose Main
// goroutine ctx belongs to, if any. Useful for log enrichment deep in
// call chains that do not otherwise thread a plugin name through.
func PluginNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(pluginNameKey).(string)
	return name, ok
}

// withBuilder returns a copy of ctx carrying b, retrievable with
// BuilderFromContext.
func withBuilder(ctx context.Context, b *Builder) context.Context {
	return context.WithValue(ctx, builderKey, b)
}

// BuilderFromContext returns the Builder a plugin's Main was started
// with, if ctx descends from that invocation.
func BuilderFromContext(ctx context.Context) (*Builder, bool) {
	b, ok := ctx.Value(builderKey).(*Builder)
	return b, ok
}
