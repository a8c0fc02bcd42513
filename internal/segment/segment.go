// Package segment parses and renders OneBot v11 message content, both
// the array form ([{"type":"text","data":{"text":"hi"}}, ...]) and the
// legacy inline CQ-code string form ("hi[CQ:at,qq=123]"), into a single
// in-memory representation.
package segment

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Segment is one element of a message: either plain text or a
// functional element (image, at-mention, face, reply, record, ...).
// Data holds the CQ/array parameters as strings, which is how OneBot
// implementations transmit them on the wire regardless of form.
type Segment struct {
	Type string
	Data map[string]string
}

// Message is an ordered sequence of segments.
type Message []Segment

// Text builds a plain-text segment.
func Text(s string) Segment {
	return Segment{Type: "text", Data: map[string]string{"text": s}}
}

// At builds an at-mention segment for the given QQ number, or "all".
func At(qq string) Segment {
	return Segment{Type: "at", Data: map[string]string{"qq": qq}}
}

// Reply builds a reply-quote segment referencing msgID.
func Reply(msgID int64) Segment {
	return Segment{Type: "reply", Data: map[string]string{"id": fmt.Sprintf("%d", msgID)}}
}

// AddReply returns a copy of m with a reply segment referencing msgID
// prepended. Per OneBot convention, a reply segment should lead the
// message for clients to render the quote correctly.
func (m Message) AddReply(msgID int64) Message {
	out := make(Message, 0, len(m)+1)
	out = append(out, Reply(msgID))
	out = append(out, m...)
	return out
}

// PlainText concatenates the message's text segments, in order,
// newline-joined. ok is false if the message contains no text
// segments at all.
func (m Message) PlainText() (string, bool) {
	var parts []string
	for _, seg := range m {
		if seg.Type == "text" {
			parts = append(parts, seg.Data["text"])
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), true
}

// HumanString renders the message the way a person reading logs would
// want to see it: text verbatim, everything else as a bracketed
// placeholder.
func (m Message) HumanString() string {
	var b strings.Builder
	for _, seg := range m {
		switch seg.Type {
		case "text":
			b.WriteString(seg.Data["text"])
		case "at":
			b.WriteString("[at:" + seg.Data["qq"] + "]")
		case "reply":
			b.WriteString("[reply:" + seg.Data["id"] + "]")
		case "image":
			b.WriteString("[image]")
		case "face":
			b.WriteString("[face:" + seg.Data["id"] + "]")
		case "record":
			b.WriteString("[voice]")
		case "video":
			b.WriteString("[video]")
		default:
			b.WriteString("[" + seg.Type + "]")
		}
	}
	return b.String()
}

// ParseSegmentsFromArray parses the OneBot array message form, where
// each element is a JSON object {"type": "...", "data": {...}}.
func ParseSegmentsFromArray(raw []json.RawMessage) (Message, error) {
	msg := make(Message, 0, len(raw))
	for i, r := range raw {
		var elem struct {
			Type string            `json:"type"`
			Data map[string]string `json:"data"`
		}
		if err := json.Unmarshal(r, &elem); err != nil {
			return nil, fmt.Errorf("segment[%d]: %w", i, err)
		}
		if elem.Type == "" {
			return nil, fmt.Errorf("segment[%d]: missing type", i)
		}
		if elem.Data == nil {
			elem.Data = map[string]string{}
		}
		msg = append(msg, Segment{Type: elem.Type, Data: elem.Data})
	}
	return msg, nil
}

// RenderArray renders m back into the OneBot array message form, for
// sending. This is the dual of ParseSegmentsFromArray.
func RenderArray(m Message) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(m))
	for i, seg := range m {
		elem := struct {
			Type string            `json:"type"`
			Data map[string]string `json:"data"`
		}{Type: seg.Type, Data: seg.Data}
		b, err := json.Marshal(elem)
		if err != nil {
			return nil, fmt.Errorf("segment[%d]: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}
