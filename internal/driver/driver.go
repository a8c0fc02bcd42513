// Package driver defines the transport-agnostic port the rest of Kovi
// talks to: something that can hand back raw inbound JSON frames and
// accept outbound API calls. Concrete implementations live in
// sibling packages (wsdriver, mockdriver).
package driver

import (
	"context"
	"encoding/json"
	"errors"
)

// Status is the outcome of a driver Initialize attempt.
type Status int

const (
	// StatusReady means the driver connected and is ready to Recv/Send.
	StatusReady Status = iota
	// StatusRetry means the attempt failed transiently; the caller
	// should back off and call Initialize again.
	StatusRetry
	// StatusFailure means the attempt failed in a way retrying will
	// not fix (bad config, auth rejected).
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRetry:
		return "retry"
	case StatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}

var (
	// ErrClosed is returned by Recv once the driver has been closed and
	// will never produce another frame.
	ErrClosed = errors.New("driver: connection closed")
	// ErrNotInitialized is returned by Send before a successful
	// Initialize call.
	ErrNotInitialized = errors.New("driver: not initialized")
	// ErrConnectionFailed marks a failed connection attempt.
	ErrConnectionFailed = errors.New("driver: connection failed")
	// ErrSendFailed marks a failed outbound write.
	ErrSendFailed = errors.New("driver: send failed")
)

// SendAPI is one outbound OneBot API call, keyed for correlation by
// Echo.
type SendAPI struct {
	Action string
	Params map[string]any
	Echo   string
}

// ApiReturn is an OneBot API call's response envelope.
type ApiReturn struct {
	Status  string          `json:"status"`
	RetCode int             `json:"retcode"`
	Data    json.RawMessage `json:"data"`
	Echo    string          `json:"echo"`
	Msg     string          `json:"msg,omitempty"`
	Wording string          `json:"wording,omitempty"`
}

// Ok reports whether the call succeeded.
func (r ApiReturn) Ok() bool { return r.Status == "ok" }

// Driver is the transport port. Implementations are expected to be
// safe for concurrent use: Recv is normally called from a single
// dispatch-loop goroutine, Send from many plugin goroutines at once.
type Driver interface {
	// Initialize establishes the connection. It may be called again
	// after a Retry status, or by an external reconnection policy
	// after a transient failure; implementations should make repeat
	// calls safe.
	Initialize(ctx context.Context) (Status, error)

	// Recv blocks until the next raw inbound JSON frame is available,
	// ctx is canceled, or the driver is closed (ErrClosed).
	Recv(ctx context.Context) ([]byte, error)

	// Send writes an outbound API call. It does not wait for a reply;
	// correlating replies to calls is the API correlator's job.
	Send(ctx context.Context, call SendAPI) error

	// WaitUntilExit returns a channel that is closed when the driver
	// has permanently stopped (explicit Close, or an unrecoverable
	// failure) and will produce no further frames.
	WaitUntilExit() <-chan struct{}
}
