// Package builtin holds small always-available plugins used both to
// exercise the runtime end-to-end and as a starting template for
// real plugins.
package builtin

import (
	"context"

	"github.com/ThriceCola/Kovi/internal/onebot"
	"github.com/ThriceCola/Kovi/internal/plugin"
	"github.com/ThriceCola/Kovi/internal/segment"
)

// Ping builds a plugin that replies "pong" to any message whose plain
// text is exactly "ping".
func Ping() plugin.MainFunc {
	return func(ctx context.Context) error {
		b, ok := plugin.BuilderFromContext(ctx)
		if !ok {
			return nil
		}
		b.OnMsg(func(ctx context.Context, ev *onebot.MsgEvent) {
			text, ok := ev.PlainText()
			if !ok || text != "ping" || ev.Reply == nil {
				return
			}
			if err := ev.Reply(segment.Message{segment.Text("pong")}); err != nil {
				b.Logger().Warn("ping: reply failed", "error", err)
			}
		})
		<-ctx.Done()
		return ctx.Err()
	}
}
