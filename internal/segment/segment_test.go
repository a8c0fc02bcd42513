package segment

import (
	"encoding/json"
	"testing"
)

func TestParseSegmentsFromArray(t *testing.T) {
	raw := []json.RawMessage{
		json.RawMessage(`{"type":"text","data":{"text":"hello "}}`),
		json.RawMessage(`{"type":"at","data":{"qq":"123"}}`),
	}
	msg, err := ParseSegmentsFromArray(raw)
	if err != nil {
		t.Fatalf("ParseSegmentsFromArray: %v", err)
	}
	if len(msg) != 2 {
		t.Fatalf("len(msg) = %d, want 2", len(msg))
	}
	if msg[0].Type != "text" || msg[0].Data["text"] != "hello " {
		t.Errorf("msg[0] = %+v", msg[0])
	}
	if msg[1].Type != "at" || msg[1].Data["qq"] != "123" {
		t.Errorf("msg[1] = %+v", msg[1])
	}
}

func TestParseSegmentsFromArray_MissingType(t *testing.T) {
	raw := []json.RawMessage{json.RawMessage(`{"data":{"text":"hi"}}`)}
	if _, err := ParseSegmentsFromArray(raw); err == nil {
		t.Fatal("expected error for segment with missing type")
	}
}

func TestArrayRoundTrip(t *testing.T) {
	msg := Message{Text("hi "), At("123"), Text(" there")}
	rendered, err := RenderArray(msg)
	if err != nil {
		t.Fatalf("RenderArray: %v", err)
	}
	parsed, err := ParseSegmentsFromArray(rendered)
	if err != nil {
		t.Fatalf("ParseSegmentsFromArray: %v", err)
	}
	if len(parsed) != len(msg) {
		t.Fatalf("round-trip length mismatch: got %d, want %d", len(parsed), len(msg))
	}
	for i := range msg {
		if parsed[i].Type != msg[i].Type {
			t.Errorf("segment[%d].Type = %q, want %q", i, parsed[i].Type, msg[i].Type)
		}
	}
}

func TestParseSegmentsFromCQ_PlainText(t *testing.T) {
	msg, err := ParseSegmentsFromCQ("just text")
	if err != nil {
		t.Fatalf("ParseSegmentsFromCQ: %v", err)
	}
	if len(msg) != 1 || msg[0].Type != "text" || msg[0].Data["text"] != "just text" {
		t.Fatalf("msg = %+v", msg)
	}
}

func TestParseSegmentsFromCQ_Mixed(t *testing.T) {
	msg, err := ParseSegmentsFromCQ("hi [CQ:at,qq=123] there")
	if err != nil {
		t.Fatalf("ParseSegmentsFromCQ: %v", err)
	}
	if len(msg) != 3 {
		t.Fatalf("len(msg) = %d, want 3: %+v", len(msg), msg)
	}
	if msg[0].Type != "text" || msg[0].Data["text"] != "hi " {
		t.Errorf("msg[0] = %+v", msg[0])
	}
	if msg[1].Type != "at" || msg[1].Data["qq"] != "123" {
		t.Errorf("msg[1] = %+v", msg[1])
	}
	if msg[2].Type != "text" || msg[2].Data["text"] != " there" {
		t.Errorf("msg[2] = %+v", msg[2])
	}
}

func TestParseSegmentsFromCQ_Escaping(t *testing.T) {
	msg, err := ParseSegmentsFromCQ("a&#91;b&#93;c&amp;d")
	if err != nil {
		t.Fatalf("ParseSegmentsFromCQ: %v", err)
	}
	text, ok := msg.PlainText()
	if !ok {
		t.Fatal("expected plain text")
	}
	if text != "a[b]c&d" {
		t.Errorf("text = %q, want %q", text, "a[b]c&d")
	}
}

func TestParseSegmentsFromCQ_ParamCommaEscape(t *testing.T) {
	msg, err := ParseSegmentsFromCQ("[CQ:image,file=a&#44;b.jpg]")
	if err != nil {
		t.Fatalf("ParseSegmentsFromCQ: %v", err)
	}
	if len(msg) != 1 || msg[0].Data["file"] != "a,b.jpg" {
		t.Fatalf("msg = %+v", msg)
	}
}

func TestPlainText_NoTextSegments(t *testing.T) {
	msg := Message{At("123")}
	_, ok := msg.PlainText()
	if ok {
		t.Fatal("expected ok=false for a message with no text segments")
	}
}

func TestHumanString(t *testing.T) {
	msg := Message{Text("hi "), At("123"), Segment{Type: "image", Data: map[string]string{"file": "x.jpg"}}}
	got := msg.HumanString()
	want := "hi [at:123][image]"
	if got != want {
		t.Errorf("HumanString() = %q, want %q", got, want)
	}
}

func TestAddReply(t *testing.T) {
	msg := Message{Text("hi")}
	withReply := msg.AddReply(42)
	if len(withReply) != 2 {
		t.Fatalf("len = %d, want 2", len(withReply))
	}
	if withReply[0].Type != "reply" || withReply[0].Data["id"] != "42" {
		t.Errorf("withReply[0] = %+v", withReply[0])
	}
	if len(msg) != 1 {
		t.Error("AddReply should not mutate the receiver")
	}
}

func TestCQRoundTrip(t *testing.T) {
	msg := Message{Text("hi "), At("123"), Text(" [brackets] & stuff")}
	cq := RenderCQ(msg)
	parsed, err := ParseSegmentsFromCQ(cq)
	if err != nil {
		t.Fatalf("ParseSegmentsFromCQ(%q): %v", cq, err)
	}
	plain, _ := parsed.PlainText()
	wantPlain, _ := msg.PlainText()
	if plain != wantPlain {
		t.Errorf("round-tripped plain text = %q, want %q", plain, wantPlain)
	}
}
