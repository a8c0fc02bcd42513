package builtin

import (
	"context"
	"fmt"

	"github.com/ThriceCola/Kovi/internal/contacts"
	"github.com/ThriceCola/Kovi/internal/onebot"
	"github.com/ThriceCola/Kovi/internal/plugin"
	"github.com/ThriceCola/Kovi/internal/segment"
)

// WhoAmI builds a plugin that replies to "whoami" with the sender's
// known nickname and whether they are a configured superuser. It
// demonstrates a directory-backed, admin-gated-ish command; anyone can
// ask, but the answer reveals admin status.
func WhoAmI(dir *contacts.Directory, adminIDs []int64) plugin.MainFunc {
	return func(ctx context.Context) error {
		b, ok := plugin.BuilderFromContext(ctx)
		if !ok {
			return nil
		}
		b.OnMsg(func(ctx context.Context, ev *onebot.MsgEvent) {
			text, ok := ev.PlainText()
			if !ok || text != "whoami" || ev.Reply == nil {
				return
			}

			nickname := ev.Sender.Nickname
			if ev.MessageType == "group" {
				if g, ok := dir.Group(ev.GroupID); ok {
					if n, ok := g.Members[ev.UserID]; ok && n != "" {
						nickname = n
					}
				}
			} else if f, ok := dir.Friend(ev.UserID); ok && f.Nickname != "" {
				nickname = f.Nickname
			}
			if nickname == "" {
				nickname = fmt.Sprintf("user %d", ev.UserID)
			}

			reply := fmt.Sprintf("%s (uid %d)", nickname, ev.UserID)
			if contacts.IsAdmin(adminIDs, ev.UserID) {
				reply += " [admin]"
			}
			if err := ev.Reply(segment.Message{segment.Text(reply)}); err != nil {
				b.Logger().Warn("whoami: reply failed", "error", err)
			}
		})
		<-ctx.Done()
		return ctx.Err()
	}
}
