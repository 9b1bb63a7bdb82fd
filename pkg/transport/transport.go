// Package transport defines the message-framed connection the dispatcher runs on.
package transport

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("transport closed")

// Transport delivers discrete messages in order. Send may be called from several
// goroutines at once; Recv is only ever called by a single reader.
type Transport interface {
	Send(ctx context.Context, message []byte) error
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}
