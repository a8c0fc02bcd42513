package onebot

import "testing"

func TestDeserializeMsgEvent_Group(t *testing.T) {
	raw := NewRawFrame([]byte(`{
		"time": 1700000000,
		"self_id": 10001,
		"post_type": "message",
		"message_type": "group",
		"sub_type": "normal",
		"message_id": 555,
		"group_id": 9999,
		"user_id": 8888,
		"message": [{"type":"text","data":{"text":"hello"}}],
		"raw_message": "hello",
		"font": 0,
		"sender": {"user_id": 8888, "nickname": "alice"}
	}`))

	ev, err := DeserializeMsgEvent(raw)
	if err != nil {
		t.Fatalf("DeserializeMsgEvent: %v", err)
	}
	if ev == nil {
		t.Fatal("expected a non-nil event")
	}
	if ev.MessageType != "group" || ev.GroupID != 9999 || ev.UserID != 8888 {
		t.Errorf("ev = %+v", ev)
	}
	plain, ok := ev.PlainText()
	if !ok || plain != "hello" {
		t.Errorf("PlainText() = %q, %v", plain, ok)
	}
}

func TestDeserializeMsgEvent_NotAMessage(t *testing.T) {
	raw := NewRawFrame([]byte(`{"post_type":"notice","notice_type":"group_increase"}`))
	ev, err := DeserializeMsgEvent(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ev != nil {
		t.Fatalf("expected nil event for a non-message frame, got %+v", ev)
	}
}

func TestDeserializeMsgEvent_MissingRequiredField(t *testing.T) {
	raw := NewRawFrame([]byte(`{
		"post_type": "message",
		"message_type": "group",
		"sub_type": "normal",
		"user_id": 1,
		"message": [{"type":"text","data":{"text":"hi"}}]
	}`))
	_, err := DeserializeMsgEvent(raw)
	if err == nil {
		t.Fatal("expected an error for missing time, self_id and message_id")
	}
}

func TestDeserializeMsgEvent_LegacyCQString(t *testing.T) {
	raw := NewRawFrame([]byte(`{
		"time": 1700000000,
		"self_id": 1,
		"post_type": "message",
		"message_type": "private",
		"sub_type": "friend",
		"message_id": 1,
		"user_id": 2,
		"message": "hi [CQ:at,qq=2] there",
		"raw_message": "hi [CQ:at,qq=2] there",
		"font": 0,
		"sender": {"user_id": 2}
	}`))
	ev, err := DeserializeMsgEvent(raw)
	if err != nil {
		t.Fatalf("DeserializeMsgEvent: %v", err)
	}
	if len(ev.Message) != 3 {
		t.Fatalf("len(Message) = %d, want 3: %+v", len(ev.Message), ev.Message)
	}
}

func TestDeserializeNoticeEvent(t *testing.T) {
	raw := NewRawFrame([]byte(`{"time":1,"self_id":1,"post_type":"notice","notice_type":"group_increase"}`))
	ev, err := DeserializeNoticeEvent(raw)
	if err != nil {
		t.Fatalf("DeserializeNoticeEvent: %v", err)
	}
	if ev == nil || ev.NoticeType != "group_increase" {
		t.Fatalf("ev = %+v", ev)
	}
}

func TestDeserializeRequestEvent(t *testing.T) {
	raw := NewRawFrame([]byte(`{"time":1,"self_id":1,"post_type":"request","request_type":"friend"}`))
	ev, err := DeserializeRequestEvent(raw)
	if err != nil {
		t.Fatalf("DeserializeRequestEvent: %v", err)
	}
	if ev == nil || ev.RequestType != "friend" {
		t.Fatalf("ev = %+v", ev)
	}
}

func TestDeserializeLifecycleEvent(t *testing.T) {
	raw := NewRawFrame([]byte(`{"time":1,"self_id":1,"post_type":"meta_event","meta_event_type":"lifecycle","sub_type":"connect"}`))
	ev, err := DeserializeLifecycleEvent(raw)
	if err != nil {
		t.Fatalf("DeserializeLifecycleEvent: %v", err)
	}
	if ev == nil || ev.SubType != LifecycleConnect {
		t.Fatalf("ev = %+v", ev)
	}
}

func TestDeserializeLifecycleEvent_NotLifecycle(t *testing.T) {
	raw := NewRawFrame([]byte(`{"post_type":"meta_event","meta_event_type":"heartbeat"}`))
	ev, err := DeserializeLifecycleEvent(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ev != nil {
		t.Fatalf("expected nil event, got %+v", ev)
	}
}
