// Package wsdriver implements the driver port over a OneBot v11
// WebSocket endpoint using gorilla/websocket.
package wsdriver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ThriceCola/Kovi/internal/driver"
)

const (
	readBufferSize  = 8192
	writeBufferSize = 8192
	handshakeTimeout = 10 * time.Second
	frameBacklog    = 64
)

// Driver is a driver.Driver backed by a gorilla/websocket connection
// to a OneBot v11 server. Reconnection is not handled internally: an
// external health watcher (internal/connwatch) is expected to call
// Reconnect after a transient drop.
type Driver struct {
	url         string
	accessToken string
	logger      *slog.Logger

	dialer *websocket.Dialer

	connMu sync.Mutex
	conn   *websocket.Conn

	writeMu sync.Mutex

	frames chan []byte

	closed    chan struct{}
	closeOnce sync.Once
}

// New builds a Driver for the given WebSocket URL. accessToken, if
// non-empty, is sent as a bearer token in the Authorization header on
// connect, per the OneBot v11 reverse-WS convention.
func New(wsURL, accessToken string, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		url:         wsURL,
		accessToken: accessToken,
		logger:      logger,
		dialer: &websocket.Dialer{
			ReadBufferSize:   readBufferSize,
			WriteBufferSize:  writeBufferSize,
			HandshakeTimeout: handshakeTimeout,
		},
		frames: make(chan []byte, frameBacklog),
		closed: make(chan struct{}),
	}
}

// Initialize dials the WebSocket endpoint and starts the read loop.
// Dial failures return StatusRetry so an external backoff policy can
// retry; a malformed URL returns StatusFailure since retrying will
// not help.
func (d *Driver) Initialize(ctx context.Context) (driver.Status, error) {
	if _, err := url.Parse(d.url); err != nil {
		return driver.StatusFailure, fmt.Errorf("wsdriver: invalid url: %w", err)
	}

	if err := d.connect(ctx); err != nil {
		return driver.StatusRetry, fmt.Errorf("wsdriver: connect: %w", err)
	}

	return driver.StatusReady, nil
}

// Reconnect tears down any existing connection and dials again,
// reusing the same frame channel so callers blocked in Recv transition
// seamlessly once frames resume. cmd/kovi calls it from a
// connwatch.Watcher's OnDown callback.
func (d *Driver) Reconnect(ctx context.Context) error {
	d.connMu.Lock()
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
	d.connMu.Unlock()

	return d.connect(ctx)
}

func (d *Driver) connect(ctx context.Context) error {
	header := http.Header{}
	if d.accessToken != "" {
		header.Set("Authorization", "Bearer "+d.accessToken)
	}

	conn, resp, err := d.dialer.DialContext(ctx, d.url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (http status %s)", d.url, err, resp.Status)
		}
		return fmt.Errorf("dial %s: %w", d.url, err)
	}

	d.connMu.Lock()
	d.conn = conn
	d.connMu.Unlock()

	go d.readLoop(conn)

	d.logger.Info("wsdriver connected", "url", d.url)
	return nil
}

func (d *Driver) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-d.closed:
				return
			default:
			}
			d.logger.Warn("wsdriver read loop exiting", "error", err)
			return
		}
		select {
		case d.frames <- msg:
		case <-d.closed:
			return
		}
	}
}

// Recv blocks until a frame is available, ctx is canceled, or the
// driver is closed.
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

// Send writes an API call frame. Safe for concurrent use by many
// callers; the underlying websocket connection only tolerates one
// writer at a time, hence writeMu.
func (d *Driver) Send(ctx context.Context, call driver.SendAPI) error {
	d.connMu.Lock()
	conn := d.conn
	d.connMu.Unlock()
	if conn == nil {
		return driver.ErrNotInitialized
	}

	payload := struct {
		Action string         `json:"action"`
		Params map[string]any `json:"params"`
		Echo   string         `json:"echo"`
	}{Action: call.Action, Params: call.Params, Echo: call.Echo}

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("wsdriver: marshal call: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("%w: %v", driver.ErrSendFailed, err)
	}
	return nil
}

// WaitUntilExit returns a channel closed when Close has been called.
func (d *Driver) WaitUntilExit() <-chan struct{} {
	return d.closed
}

// Close permanently shuts the driver down.
func (d *Driver) Close() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.closed)
		d.connMu.Lock()
		if d.conn != nil {
			err = d.conn.Close()
		}
		d.connMu.Unlock()
	})
	return err
}
