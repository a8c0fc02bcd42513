package onebot

import (
	"encoding/json"
	"fmt"
	"time"
)

type noticeWire struct {
	Time       int64  `json:"time"`
	SelfID     int64  `json:"self_id"`
	PostType   string `json:"post_type"`
	NoticeType string `json:"notice_type"`
}

// DeserializeNoticeEvent attempts to parse raw as a notice post-type
// event. Returns (nil, nil) if post_type is not "notice".
func DeserializeNoticeEvent(raw RawFrame) (*NoticeEvent, error) {
	postType, ok := raw.Field("post_type")
	if !ok {
		return nil, nil
	}
	var pt string
	if err := json.Unmarshal(postType, &pt); err != nil || pt != "notice" {
		return nil, nil
	}

	var w noticeWire
	if err := json.Unmarshal(raw.raw, &w); err != nil {
		return nil, &ParseError{Tag: TagNotice, Err: err}
	}
	if w.NoticeType == "" {
		return nil, &ParseError{Tag: TagNotice, Field: "notice_type", Err: fmt.Errorf("missing")}
	}

	return &NoticeEvent{
		base: base{
			time:     time.Unix(w.Time, 0),
			selfID:   w.SelfID,
			postType: w.PostType,
			raw:      raw.raw,
		},
		NoticeType: w.NoticeType,
	}, nil
}
