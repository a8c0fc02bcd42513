// Package onebot classifies raw OneBot v11 JSON frames and deserializes
// them lazily into strongly typed event records. Deserialization is
// pure: a deserializer either returns a typed event, reports that the
// frame is not of its type (nil, nil), or reports a structured parse
// error for a malformed frame of its own type.
package onebot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThriceCola/Kovi/internal/segment"
)

// EventTag is a closed tag identifying the kind of a typed event. It
// replaces the type-reflection dispatch key a naive port would reach
// for, so the listener registry and dispatcher can key off a plain
// comparable value.
type EventTag int

const (
	// TagUnknown marks a frame the classifier could not place.
	TagUnknown EventTag = iota
	// TagHeartbeat marks a meta-event heartbeat, dropped silently.
	TagHeartbeat
	TagMsg
	TagNotice
	TagRequest
	TagLifecycle
)

// String returns the wire-ish name of the tag, for logging.
func (t EventTag) String() string {
	switch t {
	case TagHeartbeat:
		return "heartbeat"
	case TagMsg:
		return "message"
	case TagNotice:
		return "notice"
	case TagRequest:
		return "request"
	case TagLifecycle:
		return "lifecycle"
	default:
		return "unknown"
	}
}

// RawFrame wraps a single inbound JSON object from the driver. It keeps
// the verbatim bytes so typed events can expose an escape-hatch into
// fields the typed model does not surface.
type RawFrame struct {
	raw json.RawMessage
}

// NewRawFrame copies b and wraps it as a RawFrame.
func NewRawFrame(b []byte) RawFrame {
	cp := make(json.RawMessage, len(b))
	copy(cp, b)
	return RawFrame{raw: cp}
}

// Bytes returns the verbatim original JSON.
func (f RawFrame) Bytes() json.RawMessage {
	return f.raw
}

// Field looks up a top-level key by name, for escape-hatch access.
// Returns ok=false if the frame is not a JSON object or the key is
// absent.
func (f RawFrame) Field(key string) (json.RawMessage, bool) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(f.raw, &m); err != nil {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

// frameHeader is the minimal set of fields needed to classify a frame
// without a full typed unmarshal, mirroring the discriminate-then-parse
// shape of the teacher's rpcRaw/wsMessage envelopes.
type frameHeader struct {
	Time          int64  `json:"time"`
	SelfID        int64  `json:"self_id"`
	PostType      string `json:"post_type"`
	MetaEventType string `json:"meta_event_type"`
	Echo          string `json:"echo,omitempty"`
}

// TypedEvent is the common surface every concrete event type satisfies.
type TypedEvent interface {
	Tag() EventTag
	Time() time.Time
	SelfID() int64
	PostType() string
	Raw() json.RawMessage
}

// base carries the fields common to every post-type event.
type base struct {
	time     time.Time
	selfID   int64
	postType string
	raw      json.RawMessage
}

func (b base) Time() time.Time        { return b.time }
func (b base) SelfID() int64          { return b.selfID }
func (b base) PostType() string       { return b.postType }
func (b base) Raw() json.RawMessage   { return b.raw }

// Sender is the message sender's profile, as reported by the server.
type Sender struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname,omitempty"`
	Card     string `json:"card,omitempty"`
	Sex      string `json:"sex,omitempty"` // male|female|unknown
	Age      int    `json:"age,omitempty"`
	Area     string `json:"area,omitempty"`
	Level    string `json:"level,omitempty"`
	Role     string `json:"role,omitempty"`
	Title    string `json:"title,omitempty"`
}

// Anonymous describes an anonymous group sender, present only on
// anonymous group messages.
type Anonymous struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

// ReplyFunc issues a reply to the event's originating conversation. The
// dispatcher attaches a concrete ReplyFunc (bound to the API
// correlator) after deserialization; deserializers themselves never
// construct one, keeping them pure.
type ReplyFunc func(msg segment.Message) error

// MsgEvent is a message post-type event.
type MsgEvent struct {
	base

	MessageType string // "group" | "private"
	SubType     string
	Message     segment.Message
	MessageID   int64
	GroupID     int64 // 0 when MessageType == "private"
	UserID      int64
	Sender      Sender
	Anonymous   *Anonymous
	RawText     string // the verbatim raw_message field
	Font        int64

	// plainText and hasPlainText cache the result of Message.PlainText.
	plainText    string
	hasPlainText bool

	// Reply is set by the dispatcher before a handler runs. It is nil
	// on an event returned directly from a deserializer in isolation
	// (e.g. in unit tests).
	Reply ReplyFunc
}

func (e *MsgEvent) Tag() EventTag { return TagMsg }

// PlainText returns the concatenation of the message's text segments,
// newline-joined and trimmed. ok is false if the message contains no
// text segments.
func (e *MsgEvent) PlainText() (string, bool) {
	return e.plainText, e.hasPlainText
}

// HumanString renders the standard "[type group nickname id]: text" log
// line for a message event.
func (e *MsgEvent) HumanString() string {
	group := "-"
	if e.MessageType == "group" {
		group = fmt.Sprintf("%d", e.GroupID)
	}
	nickname := e.Sender.Nickname
	if nickname == "" {
		nickname = e.Sender.Card
	}
	return fmt.Sprintf("[%s %s %s %d]: %s", e.MessageType, group, nickname, e.UserID, e.Message.HumanString())
}

// NoticeEvent is a notice post-type event (group/friend membership and
// activity changes). Fields beyond NoticeType are reached through Raw.
type NoticeEvent struct {
	base
	NoticeType string
}

func (e *NoticeEvent) Tag() EventTag { return TagNotice }

// RequestEvent is a request post-type event (friend/group join
// requests). Fields beyond RequestType are reached through Raw.
type RequestEvent struct {
	base
	RequestType string
}

func (e *RequestEvent) Tag() EventTag { return TagRequest }

// LifecycleSubType enumerates the meta_event_type=lifecycle sub_type
// values OneBot implementations emit.
type LifecycleSubType string

const (
	LifecycleEnable  LifecycleSubType = "enable"
	LifecycleDisable LifecycleSubType = "disable"
	LifecycleConnect LifecycleSubType = "connect"
)

// LifecycleEvent is a meta_event_type=lifecycle event.
type LifecycleEvent struct {
	base
	SubType LifecycleSubType
}

func (e *LifecycleEvent) Tag() EventTag { return TagLifecycle }
