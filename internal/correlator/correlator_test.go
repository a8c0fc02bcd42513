package correlator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ThriceCola/Kovi/internal/driver"
	"github.com/ThriceCola/Kovi/internal/driver/mockdriver"
)

func TestCall_Success(t *testing.T) {
	d := mockdriver.New(4)
	c := New(d, nil)

	done := make(chan struct{})
	var gotErr error
	var gotRet *driver.ApiReturn
	go func() {
		gotRet, gotErr = c.Call(context.Background(), "get_login_info", nil, "test")
		close(done)
	}()

	// Wait for the Send to land, then reply using the echo the
	// correlator generated.
	var sent driver.SendAPI
	for i := 0; i < 100; i++ {
		s := d.Sent()
		if len(s) == 1 {
			sent = s[0]
			break
		}
		time.Sleep(time.Millisecond)
	}
	if sent.Echo == "" {
		t.Fatal("correlator never sent the call")
	}

	reply, _ := json.Marshal(driver.ApiReturn{Status: "ok", RetCode: 0, Echo: sent.Echo, Data: json.RawMessage(`{"nickname":"bot"}`)})
	c.HandleReply(reply)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Call did not return")
	}
	if gotErr != nil {
		t.Fatalf("Call error: %v", gotErr)
	}
	if gotRet == nil || gotRet.Echo != sent.Echo {
		t.Fatalf("gotRet = %+v", gotRet)
	}
}

func TestCall_Failure(t *testing.T) {
	d := mockdriver.New(4)
	c := New(d, nil)

	done := make(chan struct{})
	var gotErr error
	go func() {
		_, gotErr = c.Call(context.Background(), "send_msg", nil, "test")
		close(done)
	}()

	var sent driver.SendAPI
	for i := 0; i < 100; i++ {
		s := d.Sent()
		if len(s) == 1 {
			sent = s[0]
			break
		}
		time.Sleep(time.Millisecond)
	}

	reply, _ := json.Marshal(driver.ApiReturn{Status: "failed", RetCode: 100, Echo: sent.Echo})
	c.HandleReply(reply)

	<-done
	var af *ApiFailure
	if !errors.As(gotErr, &af) {
		t.Fatalf("expected *ApiFailure, got %T: %v", gotErr, gotErr)
	}
}

func TestCall_ContextTimeout(t *testing.T) {
	d := mockdriver.New(4)
	c := New(d, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Call(ctx, "send_msg", nil, "test")
	var ae *ApiError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *ApiError, got %T: %v", err, err)
	}
}

func TestCall_DriverClosedWhileWaiting(t *testing.T) {
	d := mockdriver.New(4)
	c := New(d, nil)

	done := make(chan struct{})
	var gotErr error
	go func() {
		_, gotErr = c.Call(context.Background(), "send_msg", nil, "test")
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	d.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Call did not unblock after driver close")
	}
	var ae *ApiError
	if !errors.As(gotErr, &ae) {
		t.Fatalf("expected *ApiError, got %T: %v", gotErr, gotErr)
	}
}

func TestHandleReply_UnknownEchoIsDropped(t *testing.T) {
	d := mockdriver.New(4)
	c := New(d, nil)

	reply, _ := json.Marshal(driver.ApiReturn{Status: "ok", Echo: "nobody-waiting-1"})
	c.HandleReply(reply) // must not panic or block
}

func TestCallForget_DoesNotRegisterPending(t *testing.T) {
	d := mockdriver.New(4)
	c := New(d, nil)

	if err := c.CallForget(context.Background(), "send_msg", nil, "test"); err != nil {
		t.Fatalf("CallForget: %v", err)
	}
	c.mu.Lock()
	n := len(c.pending)
	c.mu.Unlock()
	if n != 0 {
		t.Fatalf("pending map should be empty after CallForget, has %d entries", n)
	}
}

func TestCall_DuplicateLateReplyIsIgnored(t *testing.T) {
	d := mockdriver.New(4)
	c := New(d, nil)

	done := make(chan struct{})
	go func() {
		c.Call(context.Background(), "get_login_info", nil, "test")
		close(done)
	}()

	var sent driver.SendAPI
	for i := 0; i < 100; i++ {
		s := d.Sent()
		if len(s) == 1 {
			sent = s[0]
			break
		}
		time.Sleep(time.Millisecond)
	}

	reply, _ := json.Marshal(driver.ApiReturn{Status: "ok", Echo: sent.Echo})
	c.HandleReply(reply)
	<-done

	// A duplicate reply for the same (already-resolved) echo must be
	// dropped rather than panicking on a closed/reused channel.
	c.HandleReply(reply)
}
