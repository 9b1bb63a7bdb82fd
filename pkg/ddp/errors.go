package ddp

import (
	"errors"
	"fmt"
)

var (
	ErrConnectionClosed    = errors.New("connection closed")
	ErrNotStarted          = errors.New("dispatcher not started")
	ErrAlreadyStarted      = errors.New("dispatcher already started")
	ErrMissingID           = errors.New("frame has no id")
	ErrDuplicateID         = errors.New("id already pending")
	ErrUnknownSubscription = errors.New("unknown subscription")
)

// SetupError reports that the connection could not be established.
type SetupError struct {
	Address string
	Err     error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("cannot connect to %s: %v", e.Address, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// ClosedError is the terminal error of a receive loop. It is delivered to every
// pending call and matches ErrConnectionClosed.
type ClosedError struct {
	Cause error
}

func (e *ClosedError) Error() string {
	if e.Cause == nil {
		return ErrConnectionClosed.Error()
	}
	return fmt.Sprintf("%v: %v", ErrConnectionClosed, e.Cause)
}

func (e *ClosedError) Is(target error) bool {
	return target == ErrConnectionClosed
}

func (e *ClosedError) Unwrap() error {
	return e.Cause
}

// RemoteError is a result frame that carried an error payload. Only the call that
// triggered it observes it.
type RemoteError struct {
	ID     string
	Method string
	Err    *Error
}

func (e *RemoteError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("remote error in %s (id %s): %s", e.Method, e.ID, e.Err)
	}
	return fmt.Sprintf("remote error (id %s): %s", e.ID, e.Err)
}

// ServerError is an error frame sent by the server; it ends the connection.
type ServerError struct {
	Reason           string
	OffendingMessage string
}

func (e *ServerError) Error() string {
	if e.OffendingMessage != "" {
		return fmt.Sprintf("server error: %s (offending message: %s)", e.Reason, e.OffendingMessage)
	}
	return fmt.Sprintf("server error: %s", e.Reason)
}

// ProtocolViolation is an inbound frame of a kind the client cannot handle.
type ProtocolViolation struct {
	Kind  string
	Frame []byte
}

func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("unknown message kind %q: %s", e.Kind, e.Frame)
}
