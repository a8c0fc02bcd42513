package plugin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThriceCola/Kovi/internal/driver"
	"github.com/ThriceCola/Kovi/internal/registry"
)

type fakeCaller struct{}

func (fakeCaller) Call(ctx context.Context, method string, params map[string]any, tag string) (*driver.ApiReturn, error) {
	return &driver.ApiReturn{Status: "ok"}, nil
}
func (fakeCaller) CallForget(ctx context.Context, method string, params map[string]any, tag string) error {
	return nil
}

func TestPlugin_EnableRunsMain(t *testing.T) {
	reg := registry.New()
	started := make(chan struct{})
	p := New("test-plugin", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, AccessControl{}, nil)

	p.Enable(context.Background(), reg, fakeCaller{})
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("Main never started")
	}
	if !p.Enabled() {
		t.Fatal("plugin should report enabled")
	}
	p.Disable()
	if p.Enabled() {
		t.Fatal("plugin should report disabled after Disable")
	}
}

func TestPlugin_DropHookRunsOnDisable(t *testing.T) {
	reg := registry.New()
	dropped := make(chan struct{})
	p := New("test-plugin", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}, AccessControl{}, nil)
	p.OnDrop(func(ctx context.Context) { close(dropped) })

	p.Enable(context.Background(), reg, fakeCaller{})
	p.Disable()

	select {
	case <-dropped:
	case <-time.After(time.Second):
		t.Fatal("drop hook never ran")
	}
}

func TestPlugin_DropHookRunsWhenMainReturnsOnItsOwn(t *testing.T) {
	reg := registry.New()
	dropped := make(chan struct{})
	p := New("test-plugin", func(ctx context.Context) error {
		return errors.New("done early")
	}, AccessControl{}, nil)
	p.OnDrop(func(ctx context.Context) { close(dropped) })

	p.Enable(context.Background(), reg, fakeCaller{})

	select {
	case <-dropped:
	case <-time.After(time.Second):
		t.Fatal("drop hook never ran after Main returned on its own")
	}
}

func TestPlugin_WatchFiresOnToggle(t *testing.T) {
	reg := registry.New()
	p := New("test-plugin", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}, AccessControl{}, nil)

	watch := p.Watch()
	p.Enable(context.Background(), reg, fakeCaller{})

	select {
	case <-watch:
	case <-time.After(time.Second):
		t.Fatal("Watch channel never fired on enable")
	}
}

func TestPlugin_EnableTwiceIsNoOp(t *testing.T) {
	reg := registry.New()
	var starts int
	started := make(chan struct{}, 2)
	p := New("test-plugin", func(ctx context.Context) error {
		starts++
		started <- struct{}{}
		<-ctx.Done()
		return nil
	}, AccessControl{}, nil)

	p.Enable(context.Background(), reg, fakeCaller{})
	<-started
	p.Enable(context.Background(), reg, fakeCaller{}) // no-op, already enabled

	select {
	case <-started:
		t.Fatal("Main should not have started a second time")
	case <-time.After(50 * time.Millisecond):
	}
	p.Disable()
}
