package onebot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThriceCola/Kovi/internal/segment"
)

type msgWire struct {
	Time        int64           `json:"time"`
	SelfID      int64           `json:"self_id"`
	PostType    string          `json:"post_type"`
	MessageType string          `json:"message_type"`
	SubType     string          `json:"sub_type"`
	MessageID   int64           `json:"message_id"`
	GroupID     int64           `json:"group_id"`
	UserID      int64           `json:"user_id"`
	Message     json.RawMessage `json:"message"`
	RawMessage  string          `json:"raw_message"`
	Font        int64           `json:"font"`
	Sender      Sender          `json:"sender"`
	Anonymous   *Anonymous      `json:"anonymous"`
}

// DeserializeMsgEvent attempts to parse raw as a message post-type
// event. Returns (nil, nil) if raw's post_type is not "message" (not
// this deserializer's concern); returns (nil, err) if post_type is
// "message" but a required field is missing or malformed.
func DeserializeMsgEvent(raw RawFrame) (*MsgEvent, error) {
	postType, ok := raw.Field("post_type")
	if !ok {
		return nil, nil
	}
	var pt string
	if err := json.Unmarshal(postType, &pt); err != nil || pt != "message" {
		return nil, nil
	}

	var w msgWire
	if err := json.Unmarshal(raw.raw, &w); err != nil {
		return nil, &ParseError{Tag: TagMsg, Err: err}
	}

	if w.Time == 0 {
		return nil, &ParseError{Tag: TagMsg, Field: "time", Err: fmt.Errorf("missing or zero")}
	}
	if w.SelfID == 0 {
		return nil, &ParseError{Tag: TagMsg, Field: "self_id", Err: fmt.Errorf("missing or zero")}
	}
	if w.MessageType != "group" && w.MessageType != "private" {
		return nil, &ParseError{Tag: TagMsg, Field: "message_type", Err: fmt.Errorf("must be \"group\" or \"private\", got %q", w.MessageType)}
	}
	if w.SubType == "" {
		return nil, &ParseError{Tag: TagMsg, Field: "sub_type", Err: fmt.Errorf("missing")}
	}
	if w.MessageID == 0 {
		return nil, &ParseError{Tag: TagMsg, Field: "message_id", Err: fmt.Errorf("missing or zero")}
	}
	if w.UserID == 0 {
		return nil, &ParseError{Tag: TagMsg, Field: "user_id", Err: fmt.Errorf("missing or zero")}
	}

	msg, err := parseMessageField(w.Message)
	if err != nil {
		return nil, &ParseError{Tag: TagMsg, Field: "message", Err: err}
	}

	plain, hasPlain := msg.PlainText()

	return &MsgEvent{
		base: base{
			time:     time.Unix(w.Time, 0),
			selfID:   w.SelfID,
			postType: w.PostType,
			raw:      raw.raw,
		},
		MessageType:  w.MessageType,
		SubType:      w.SubType,
		Message:      msg,
		MessageID:    w.MessageID,
		GroupID:      w.GroupID,
		UserID:       w.UserID,
		Sender:       w.Sender,
		Anonymous:    w.Anonymous,
		RawText:      w.RawMessage,
		Font:         w.Font,
		plainText:    plain,
		hasPlainText: hasPlain,
	}, nil
}

// parseMessageField accepts either the array form ([{"type":...,"data":...}])
// or the legacy CQ-code string form of the "message" field.
func parseMessageField(raw json.RawMessage) (segment.Message, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing")
	}
	trimmed := raw
	for len(trimmed) > 0 && (trimmed[0] == ' ' || trimmed[0] == '\t' || trimmed[0] == '\n' || trimmed[0] == '\r') {
		trimmed = trimmed[1:]
	}
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty")
	}
	switch trimmed[0] {
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, err
		}
		return segment.ParseSegmentsFromArray(arr)
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return segment.ParseSegmentsFromCQ(s)
	default:
		return nil, fmt.Errorf("message field is neither an array nor a string")
	}
}
