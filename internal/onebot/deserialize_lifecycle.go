package onebot

import (
	"encoding/json"
	"fmt"
	"time"
)

type lifecycleWire struct {
	Time          int64  `json:"time"`
	SelfID        int64  `json:"self_id"`
	PostType      string `json:"post_type"`
	MetaEventType string `json:"meta_event_type"`
	SubType       string `json:"sub_type"`
}

// DeserializeLifecycleEvent attempts to parse raw as a
// meta_event_type=lifecycle event. Returns (nil, nil) if raw is not a
// lifecycle meta-event.
func DeserializeLifecycleEvent(raw RawFrame) (*LifecycleEvent, error) {
	var hdr frameHeader
	if err := json.Unmarshal(raw.raw, &hdr); err != nil {
		return nil, nil
	}
	if hdr.PostType != "meta_event" || hdr.MetaEventType != "lifecycle" {
		return nil, nil
	}

	var w lifecycleWire
	if err := json.Unmarshal(raw.raw, &w); err != nil {
		return nil, &ParseError{Tag: TagLifecycle, Err: err}
	}

	sub := LifecycleSubType(w.SubType)
	switch sub {
	case LifecycleEnable, LifecycleDisable, LifecycleConnect:
	default:
		return nil, &ParseError{Tag: TagLifecycle, Field: "sub_type", Err: fmt.Errorf("unrecognized lifecycle sub_type %q", w.SubType)}
	}

	return &LifecycleEvent{
		base: base{
			time:     time.Unix(w.Time, 0),
			selfID:   w.SelfID,
			postType: w.PostType,
			raw:      raw.raw,
		},
		SubType: sub,
	}, nil
}
