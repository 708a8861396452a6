package marstek

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when no matching response arrives within the
// per-request timeout. Late responses are discarded by the next call.
var ErrTimeout = errors.New("marstek: request timeout")

// TransportError wraps socket level failures (resolve, send, receive).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("marstek: transport %s: %s", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError signals a malformed or unexpected device response.
type ProtocolError struct {
	Method Method
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("marstek: protocol error on %s: %s", e.Method, e.Reason)
}
