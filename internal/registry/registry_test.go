package registry

import (
	"context"
	"testing"

	"github.com/ThriceCola/Kovi/internal/onebot"
)

func TestRegisterAndSnapshot(t *testing.T) {
	r := New()
	var calls []string
	r.Register(onebot.TagMsg, "echo-plugin", func(ctx context.Context, ev onebot.TypedEvent) {
		calls = append(calls, "echo-plugin")
	})
	r.Register(onebot.TagMsg, "log-plugin", func(ctx context.Context, ev onebot.TypedEvent) {
		calls = append(calls, "log-plugin")
	})

	entries := r.Snapshot(onebot.TagMsg)
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	for _, e := range entries {
		e.Handler(context.Background(), nil)
	}
	if len(calls) != 2 {
		t.Fatalf("len(calls) = %d, want 2", len(calls))
	}
}

func TestSnapshot_EmptyTag(t *testing.T) {
	r := New()
	if entries := r.Snapshot(onebot.TagNotice); entries != nil {
		t.Fatalf("entries = %+v, want nil", entries)
	}
}

func TestUnregister(t *testing.T) {
	r := New()
	r.Register(onebot.TagMsg, "p1", func(ctx context.Context, ev onebot.TypedEvent) {})
	r.Register(onebot.TagNotice, "p1", func(ctx context.Context, ev onebot.TypedEvent) {})
	r.Register(onebot.TagMsg, "p2", func(ctx context.Context, ev onebot.TypedEvent) {})

	r.Unregister("p1")

	if entries := r.Snapshot(onebot.TagMsg); len(entries) != 1 || entries[0].Plugin != "p2" {
		t.Fatalf("entries after unregister = %+v", entries)
	}
	if entries := r.Snapshot(onebot.TagNotice); len(entries) != 0 {
		t.Fatalf("entries after unregister = %+v", entries)
	}
}

func TestSnapshot_IsIndependentOfFutureMutation(t *testing.T) {
	r := New()
	r.Register(onebot.TagMsg, "p1", func(ctx context.Context, ev onebot.TypedEvent) {})
	snap := r.Snapshot(onebot.TagMsg)

	r.Register(onebot.TagMsg, "p2", func(ctx context.Context, ev onebot.TypedEvent) {})

	if len(snap) != 1 {
		t.Fatalf("a previously taken snapshot must not see later registrations, got %d entries", len(snap))
	}
}

func TestPlugins(t *testing.T) {
	r := New()
	r.Register(onebot.TagMsg, "p1", func(ctx context.Context, ev onebot.TypedEvent) {})
	r.Register(onebot.TagNotice, "p2", func(ctx context.Context, ev onebot.TypedEvent) {})

	names := r.Plugins()
	if len(names) != 2 {
		t.Fatalf("names = %v, want 2 entries", names)
	}
}
