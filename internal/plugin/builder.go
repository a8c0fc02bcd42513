package plugin

import (
	"context"
	"log/slog"

	"github.com/ThriceCola/Kovi/internal/driver"
	"github.com/ThriceCola/Kovi/internal/onebot"
	"github.com/ThriceCola/Kovi/internal/registry"
)

// Caller is the subset of the API correlator a plugin needs. Satisfied
// by *correlator.Correlator.
type Caller interface {
	Call(ctx context.Context, method string, params map[string]any, tag string) (*driver.ApiReturn, error)
	CallForget(ctx context.Context, method string, params map[string]any, tag string) error
}

// Builder is the facade a plugin's Main receives (via
// BuilderFromContext) to register listeners and call the OneBot API.
// It is plugin-scoped: every Call/CallForget/OnXxx implicitly tags
// itself with the owning plugin's name.
type Builder struct {
	pluginName string
	registry   *registry.Registry
	caller     Caller
	logger     *slog.Logger
}

func newBuilder(pluginName string, reg *registry.Registry, caller Caller, logger *slog.Logger) *Builder {
	return &Builder{pluginName: pluginName, registry: reg, caller: caller, logger: logger}
}

// Logger returns a logger enriched with this plugin's name.
func (b *Builder) Logger() *slog.Logger {
	return b.logger.With("plugin", b.pluginName)
}

// Call issues an API call and blocks for its reply.
func (b *Builder) Call(ctx context.Context, method string, params map[string]any) (*driver.ApiReturn, error) {
	return b.caller.Call(ctx, method, params, b.pluginName)
}

// CallForget issues an API call without waiting for a reply.
func (b *Builder) CallForget(ctx context.Context, method string, params map[string]any) error {
	return b.caller.CallForget(ctx, method, params, b.pluginName)
}

// OnMsg registers h to run on every admitted MsgEvent.
func (b *Builder) OnMsg(h func(ctx context.Context, ev *onebot.MsgEvent)) {
	b.registry.Register(onebot.TagMsg, b.pluginName, func(ctx context.Context, ev onebot.TypedEvent) {
		if msgEv, ok := ev.(*onebot.MsgEvent); ok {
			h(ctx, msgEv)
		}
	})
}

// OnNotice registers h to run on every NoticeEvent.
func (b *Builder) OnNotice(h func(ctx context.Context, ev *onebot.NoticeEvent)) {
	b.registry.Register(onebot.TagNotice, b.pluginName, func(ctx context.Context, ev onebot.TypedEvent) {
		if noticeEv, ok := ev.(*onebot.NoticeEvent); ok {
			h(ctx, noticeEv)
		}
	})
}

// OnRequest registers h to run on every RequestEvent.
func (b *Builder) OnRequest(h func(ctx context.Context, ev *onebot.RequestEvent)) {
	b.registry.Register(onebot.TagRequest, b.pluginName, func(ctx context.Context, ev onebot.TypedEvent) {
		if reqEv, ok := ev.(*onebot.RequestEvent); ok {
			h(ctx, reqEv)
		}
	})
}

// OnLifecycle registers h to run on every LifecycleEvent.
func (b *Builder) OnLifecycle(h func(ctx context.Context, ev *onebot.LifecycleEvent)) {
	b.registry.Register(onebot.TagLifecycle, b.pluginName, func(ctx context.Context, ev onebot.TypedEvent) {
		if lcEv, ok := ev.(*onebot.LifecycleEvent); ok {
			h(ctx, lcEv)
		}
	})
}
