// Package mockdriver is an in-memory driver.Driver for tests: frames
// are pushed in by the test, sent calls are captured for inspection.
package mockdriver

import (
	"context"
	"sync"

	"github.com/ThriceCola/Kovi/internal/driver"
)

// Driver is a test double implementing driver.Driver entirely in
// memory.
type Driver struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once

	mu   sync.Mutex
	sent []driver.SendAPI

	sendErr error
}

// New builds a ready-to-use mock driver with the given inbound frame
// backlog capacity.
func New(backlog int) *Driver {
	return &Driver{
		frames: make(chan []byte, backlog),
		closed: make(chan struct{}),
	}
}

// Initialize is a no-op; the mock driver is always ready.
func (d *Driver) Initialize(ctx context.Context) (driver.Status, error) {
	return driver.StatusReady, nil
}

// Push enqueues a raw frame for the next Recv to return.
func (d *Driver) Push(frame []byte) {
	d.frames <- frame
}

// Recv blocks until a pushed frame, ctx cancellation, or Close.
func (d *Driver) Recv(ctx context.Context) ([]byte, error) {
	select {
	case f := <-d.frames:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.closed:
		return nil, driver.ErrClosed
	}
}

// SetSendErr makes subsequent Send calls fail with err.
func (d *Driver) SetSendErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sendErr = err
}

// Send records the call for later inspection via Sent.
func (d *Driver) Send(ctx context.Context, call driver.SendAPI) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sendErr != nil {
		return d.sendErr
	}
	d.sent = append(d.sent, call)
	return nil
}

// Sent returns a copy of every call recorded by Send so far.
func (d *Driver) Sent() []driver.SendAPI {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]driver.SendAPI, len(d.sent))
	copy(out, d.sent)
	return out
}

// WaitUntilExit returns a channel closed by Close.
func (d *Driver) WaitUntilExit() <-chan struct{} {
	return d.closed
}

// Close permanently closes the driver.
func (d *Driver) Close() {
	d.once.Do(func() { close(d.closed) })
}
