package onebot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Caller is the subset of the API correlator the classifier needs to
// issue its own bot-info refresh call on lifecycle connect events. It
// is satisfied by *correlator.Correlator.
type Caller interface {
	CallData(ctx context.Context, method string, params map[string]any, tag string) (json.RawMessage, error)
}

// BotInfoCache is the subset of the bot-info cache the classifier
// refreshes on a lifecycle connect event. Satisfied by
// *botinfo.Cache.
type BotInfoCache interface {
	Set(nickname string, userID int64)
}

// Classifier inspects a raw frame's envelope and reports which typed
// event it carries, without doing the full deserialization itself.
// Heartbeats are classified and dropped; lifecycle connect events
// additionally trigger an asynchronous bot-info refresh.
type Classifier struct {
	caller   Caller
	botinfo  BotInfoCache
	logger   *slog.Logger
	refresh  sync.Mutex // serializes concurrent refresh goroutines
}

// NewClassifier builds a Classifier. caller and botinfo may be nil, in
// which case lifecycle connect events are classified normally but no
// refresh is attempted (used in deserializer-only unit tests).
func NewClassifier(caller Caller, botinfo BotInfoCache, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{caller: caller, botinfo: botinfo, logger: logger}
}

// Classify inspects raw and returns its EventTag. An error is returned
// for frames that are not a JSON object, or whose post_type (or, for a
// meta_event, meta_event_type) is missing or not one this classifier
// recognizes; callers should log and drop such frames rather than
// treat the error as fatal.
func (c *Classifier) Classify(ctx context.Context, raw RawFrame) (EventTag, error) {
	var hdr frameHeader
	if err := json.Unmarshal(raw.raw, &hdr); err != nil {
		return TagUnknown, fmt.Errorf("onebot: classify: %w", err)
	}

	if hdr.PostType == "meta_event" {
		if hdr.MetaEventType == "heartbeat" {
			return TagHeartbeat, nil
		}
		if hdr.MetaEventType == "lifecycle" {
			c.onLifecycle(ctx, raw)
			return TagLifecycle, nil
		}
		return TagUnknown, fmt.Errorf("onebot: classify: unrecognized meta_event_type %q", hdr.MetaEventType)
	}

	switch hdr.PostType {
	case "message":
		return TagMsg, nil
	case "notice":
		return TagNotice, nil
	case "request":
		return TagRequest, nil
	default:
		return TagUnknown, fmt.Errorf("onebot: classify: unrecognized post_type %q", hdr.PostType)
	}
}

// onLifecycle fires a background get_login_info call on a connect
// sub_type so the bot-info cache reflects the identity of whichever
// account the driver just (re)connected as. Best-effort: failures are
// logged, never propagated.
func (c *Classifier) onLifecycle(ctx context.Context, raw RawFrame) {
	if c.caller == nil || c.botinfo == nil {
		return
	}
	subField, ok := raw.Field("sub_type")
	if !ok {
		return
	}
	var sub string
	if err := json.Unmarshal(subField, &sub); err != nil || sub != "connect" {
		return
	}

	go func() {
		c.refresh.Lock()
		defer c.refresh.Unlock()
		data, err := c.caller.CallData(ctx, "get_login_info", nil, "botinfo")
		if err != nil {
			c.logger.Warn("bot-info refresh failed", "error", err)
			return
		}
		var info struct {
			Nickname string `json:"nickname"`
			UserID   int64  `json:"user_id"`
		}
		if err := json.Unmarshal(data, &info); err != nil {
			c.logger.Warn("bot-info refresh: malformed response", "error", err)
			return
		}
		c.botinfo.Set(info.Nickname, info.UserID)
		c.logger.Info("bot info refreshed", "nickname", info.Nickname, "user_id", info.UserID)
	}()
}
