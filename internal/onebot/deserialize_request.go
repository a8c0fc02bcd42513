package onebot

import (
	"encoding/json"
	"fmt"
	"time"
)

type requestWire struct {
	Time        int64  `json:"time"`
	SelfID      int64  `json:"self_id"`
	PostType    string `json:"post_type"`
	RequestType string `json:"request_type"`
}

// DeserializeRequestEvent attempts to parse raw as a request post-type
// event. Returns (nil, nil) if post_type is not "request".
func DeserializeRequestEvent(raw RawFrame) (*RequestEvent, error) {
	postType, ok := raw.Field("post_type")
	if !ok {
		return nil, nil
	}
	var pt string
	if err := json.Unmarshal(postType, &pt); err != nil || pt != "request" {
		return nil, nil
	}

	var w requestWire
	if err := json.Unmarshal(raw.raw, &w); err != nil {
		return nil, &ParseError{Tag: TagRequest, Err: err}
	}
	if w.RequestType == "" {
		return nil, &ParseError{Tag: TagRequest, Field: "request_type", Err: fmt.Errorf("missing")}
	}

	return &RequestEvent{
		base: base{
			time:     time.Unix(w.Time, 0),
			selfID:   w.SelfID,
			postType: w.PostType,
			raw:      raw.raw,
		},
		RequestType: w.RequestType,
	}, nil
}
