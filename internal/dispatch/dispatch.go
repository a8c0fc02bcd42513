// Package dispatch is the hot path: classify each inbound frame once,
// deserialize it into a typed event at most once, and fan it out to
// every admitted listener, isolating each listener behind a recovered
// goroutine so one plugin's panic cannot take down the runtime.
package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ThriceCola/Kovi/internal/contacts"
	"github.com/ThriceCola/Kovi/internal/correlator"
	"github.com/ThriceCola/Kovi/internal/driver"
	"github.com/ThriceCola/Kovi/internal/onebot"
	"github.com/ThriceCola/Kovi/internal/plugin"
	"github.com/ThriceCola/Kovi/internal/registry"
	"github.com/ThriceCola/Kovi/internal/segment"
)

// AccessProvider resolves a plugin's access control and, for in-flight
// handler cancellation, the owning *plugin.Plugin itself. Satisfied by
// *plugin.Manager.
type AccessProvider interface {
	AccessControlFor(name string) (plugin.AccessControl, bool)
	Get(name string) (*plugin.Plugin, bool)
}

// Dispatcher wires the classifier, listener registry, and API
// correlator together to turn raw frames into handler invocations.
type Dispatcher struct {
	classifier *onebot.Classifier
	registry   *registry.Registry
	correlator *correlator.Correlator
	access     AccessProvider
	logger     *slog.Logger
	directory  *contacts.Directory
}

// New builds a Dispatcher.
func New(classifier *onebot.Classifier, reg *registry.Registry, corr *correlator.Correlator, access AccessProvider, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{classifier: classifier, registry: reg, correlator: corr, access: access, logger: logger}
}

// WithDirectory attaches a contacts directory that DispatchFrame keeps
// up to date as senders are observed in message events. Optional: a
// Dispatcher with no directory simply skips the observation step.
func (d *Dispatcher) WithDirectory(dir *contacts.Directory) *Dispatcher {
	d.directory = dir
	return d
}

// Run reads frames from drv until ctx is canceled or the driver
// closes, dispatching each one. It returns the error that ended the
// loop (context.Canceled, driver.ErrClosed, or a Recv failure).
func (d *Dispatcher) Run(ctx context.Context, drv driver.Driver) error {
	for {
		raw, err := drv.Recv(ctx)
		if err != nil {
			return err
		}
		d.DispatchFrame(ctx, raw)
	}
}

// DispatchFrame classifies and routes a single raw JSON frame. It
// never returns an error: malformed or unrecognized frames are logged
// and dropped, matching the "log and drop" contract of the classifier.
func (d *Dispatcher) DispatchFrame(ctx context.Context, raw []byte) {
	frame := onebot.NewRawFrame(raw)

	if echoField, ok := frame.Field("echo"); ok {
		var echo string
		if err := json.Unmarshal(echoField, &echo); err == nil && echo != "" {
			// A non-empty echo marks this as a correlated API reply, not
			// a typed event; route it to the correlator and stop.
			d.correlator.HandleReply(frame.Bytes())
			return
		}
	}

	tag, err := d.classifier.Classify(ctx, frame)
	if err != nil {
		d.logger.Warn("dropping unrecognized frame", "error", err)
		return
	}
	if tag == onebot.TagHeartbeat {
		return
	}

	entries := d.registry.Snapshot(tag)
	if len(entries) == 0 {
		return
	}

	ev, err := d.deserialize(tag, frame)
	if err != nil {
		d.logger.Warn("dropping malformed frame", "tag", tag, "error", err)
		return
	}
	if ev == nil {
		return
	}

	msgEv, isMsg := ev.(*onebot.MsgEvent)
	if isMsg {
		d.logger.Info(msgEv.HumanString())
		if d.directory != nil {
			d.observeSender(msgEv)
		}
	}

	for _, entry := range entries {
		if isMsg {
			ac, ok := d.access.AccessControlFor(entry.Plugin)
			if ok && !ac.Allowed(msgEv.GroupID, msgEv.UserID, msgEv.MessageType == "group") {
				continue
			}
		}

		// Scope the handler to the plugin's own run context, not just the
		// dispatcher's, so disabling the plugin cancels its in-flight
		// handlers at their next cooperative suspension point instead of
		// only blocking *new* ones (reg.Unregister handles that half).
		base := ctx
		if p, ok := d.access.Get(entry.Plugin); ok {
			if pctx := p.Context(); pctx != nil {
				base = pctx
			}
		}
		hctx := plugin.WithPluginName(base, entry.Plugin)
		go d.invoke(hctx, entry, ev)
	}
}

func (d *Dispatcher) deserialize(tag onebot.EventTag, frame onebot.RawFrame) (onebot.TypedEvent, error) {
	switch tag {
	case onebot.TagMsg:
		ev, err := onebot.DeserializeMsgEvent(frame)
		if err != nil || ev == nil {
			return nil, err
		}
		ev.Reply = d.replyFuncFor(ev)
		return ev, nil
	case onebot.TagNotice:
		ev, err := onebot.DeserializeNoticeEvent(frame)
		if ev == nil {
			return nil, err
		}
		return ev, err
	case onebot.TagRequest:
		ev, err := onebot.DeserializeRequestEvent(frame)
		if ev == nil {
			return nil, err
		}
		return ev, err
	case onebot.TagLifecycle:
		ev, err := onebot.DeserializeLifecycleEvent(frame)
		if ev == nil {
			return nil, err
		}
		return ev, err
	default:
		return nil, nil
	}
}

func (d *Dispatcher) observeSender(ev *onebot.MsgEvent) {
	nickname := ev.Sender.Nickname
	if ev.MessageType == "group" {
		d.directory.ObserveGroupMember(ev.GroupID, ev.UserID, nickname)
	} else {
		d.directory.ObserveFriend(ev.UserID, nickname)
	}
}

func (d *Dispatcher) replyFuncFor(ev *onebot.MsgEvent) onebot.ReplyFunc {
	return func(msg segment.Message) error {
		params := map[string]any{"message_type": ev.MessageType}
		if ev.MessageType == "group" {
			params["group_id"] = ev.GroupID
		} else {
			params["user_id"] = ev.UserID
		}
		array, err := segment.RenderArray(msg)
		if err != nil {
			return err
		}
		params["message"] = array
		_, err = d.correlator.Call(context.Background(), "send_msg", params, "reply")
		return err
	}
}

func (d *Dispatcher) invoke(ctx context.Context, entry registry.ListenEntry, ev onebot.TypedEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("listener panicked", "plugin", entry.Plugin, "tag", ev.Tag(), "panic", r)
		}
	}()
	entry.Handler(ctx, ev)
}
