// Package correlator matches outbound OneBot API calls to their
// asynchronous replies by echo, the way a JSON-RPC-over-stdio client
// correlates requests and responses by numeric id.
package correlator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ThriceCola/Kovi/internal/driver"
)

// ApiError wraps a transport-level or cancellation failure: the call
// never produced a correlated reply.
type ApiError struct {
	Err error
}

func (e *ApiError) Error() string { return fmt.Sprintf("correlator: api call failed: %v", e.Err) }
func (e *ApiError) Unwrap() error { return e.Err }

// ApiFailure wraps a correlated reply whose status was not "ok".
type ApiFailure struct {
	Return driver.ApiReturn
}

func (e *ApiFailure) Error() string {
	return fmt.Sprintf("correlator: api call returned status %q (retcode %d): %s", e.Return.Status, e.Return.RetCode, e.Return.Wording)
}

// Correlator tracks in-flight API calls by a unique echo string and
// routes inbound reply frames back to the caller blocked on Call.
type Correlator struct {
	d      driver.Driver
	logger *slog.Logger

	salt    string
	counter atomic.Int64

	mu      sync.Mutex
	pending map[string]chan driver.ApiReturn

	closed    chan struct{}
	closeOnce sync.Once
}

// New builds a Correlator bound to d. A background goroutine watches
// d.WaitUntilExit and fails every pending call once the driver stops.
func New(d driver.Driver, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Correlator{
		d:       d,
		logger:  logger,
		salt:    uuid.NewString()[:8],
		pending: make(map[string]chan driver.ApiReturn),
		closed:  make(chan struct{}),
	}
	go func() {
		<-d.WaitUntilExit()
		c.Close()
	}()
	return c
}

func (c *Correlator) nextEcho(tag string) string {
	if tag == "" {
		tag = "kovi"
	}
	n := c.counter.Add(1)
	return fmt.Sprintf("%s-%s-%d", tag, c.salt, n)
}

// Call sends method/params and blocks until a correlated reply
// arrives, ctx is done, or the driver closes. On a non-ok reply it
// returns *ApiFailure; on any other failure it returns *ApiError.
func (c *Correlator) Call(ctx context.Context, method string, params map[string]any, tag string) (*driver.ApiReturn, error) {
	echo := c.nextEcho(tag)
	ch := make(chan driver.ApiReturn, 1)

	c.mu.Lock()
	c.pending[echo] = ch
	c.mu.Unlock()

	if err := c.d.Send(ctx, driver.SendAPI{Action: method, Params: params, Echo: echo}); err != nil {
		c.mu.Lock()
		delete(c.pending, echo)
		c.mu.Unlock()
		return nil, &ApiError{Err: err}
	}

	select {
	case ret := <-ch:
		if !ret.Ok() {
			return nil, &ApiFailure{Return: ret}
		}
		return &ret, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, echo)
		c.mu.Unlock()
		return nil, &ApiError{Err: ctx.Err()}
	case <-c.closed:
		return nil, &ApiError{Err: driver.ErrClosed}
	}
}

// CallData is a convenience wrapper returning just the reply's Data
// field, satisfying onebot.Caller for the classifier's bot-info
// refresh.
func (c *Correlator) CallData(ctx context.Context, method string, params map[string]any, tag string) (json.RawMessage, error) {
	ret, err := c.Call(ctx, method, params, tag)
	if err != nil {
		return nil, err
	}
	return ret.Data, nil
}

// CallForget sends method/params without registering a reply handler.
// It still suspends until the driver accepts the write, so a slow
// driver applies backpressure instead of silently dropping calls.
func (c *Correlator) CallForget(ctx context.Context, method string, params map[string]any, tag string) error {
	echo := c.nextEcho(tag)
	return c.d.Send(ctx, driver.SendAPI{Action: method, Params: params, Echo: echo})
}

// HandleReply routes a raw inbound frame that carries a non-empty
// echo field back to whichever Call is waiting on it. Frames with an
// echo unknown to this correlator (already resolved, or sent via
// CallForget) are logged at debug level and dropped.
func (c *Correlator) HandleReply(raw json.RawMessage) {
	var ret driver.ApiReturn
	if err := json.Unmarshal(raw, &ret); err != nil {
		c.logger.Warn("correlator: malformed api reply", "error", err)
		return
	}
	if ret.Echo == "" {
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[ret.Echo]
	if ok {
		delete(c.pending, ret.Echo)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("correlator: reply for unknown or forgotten echo", "echo", ret.Echo)
		return
	}

	select {
	case ch <- ret:
	default:
	}
}

// Close fails every pending call and prevents new calls from ever
// succeeding. Safe to call more than once.
func (c *Correlator) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.mu.Lock()
		c.pending = make(map[string]chan driver.ApiReturn)
		c.mu.Unlock()
	})
}
