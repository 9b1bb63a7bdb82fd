// Package fake provides an in-memory transport for driving the dispatcher in tests.
package fake

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/raf924/rocketchat/pkg/transport"
)

// Transport is scripted from the test side: Push feeds inbound messages,
// Sent/Outgoing expose what the client wrote, Fail ends the connection.
type Transport struct {
	inbound  chan []byte
	outgoing chan []byte

	mu      sync.Mutex
	sent    [][]byte
	sendErr error
	err     error
	done    chan struct{}
	once    sync.Once
}

func NewTransport() *Transport {
	return &Transport{
		inbound:  make(chan []byte, 64),
		outgoing: make(chan []byte, 256),
		done:     make(chan struct{}),
	}
}

func (t *Transport) Send(ctx context.Context, message []byte) error {
	t.mu.Lock()
	if t.err != nil {
		t.mu.Unlock()
		return t.err
	}
	if t.sendErr != nil {
		err := t.sendErr
		t.mu.Unlock()
		return err
	}
	m := make([]byte, len(message))
	copy(m, message)
	t.sent = append(t.sent, m)
	t.mu.Unlock()
	select {
	case t.outgoing <- m:
	default:
	}
	return nil
}

func (t *Transport) Recv(ctx context.Context) ([]byte, error) {
	select {
	case m := <-t.inbound:
		return m, nil
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return nil, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Transport) Close() error {
	t.Fail(transport.ErrClosed)
	return nil
}

// Push queues a raw inbound message.
func (t *Transport) Push(message []byte) {
	t.inbound <- message
}

// PushJSON marshals v and queues it as an inbound message.
func (t *Transport) PushJSON(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	t.Push(b)
	return nil
}

// Fail closes the connection with err; pending Recv and later Send calls return it.
func (t *Transport) Fail(err error) {
	t.once.Do(func() {
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
		close(t.done)
	})
}

// FailSends makes every following Send return err while leaving Recv untouched.
func (t *Transport) FailSends(err error) {
	t.mu.Lock()
	t.sendErr = err
	t.mu.Unlock()
}

// Outgoing yields every message passed to Send, in order.
func (t *Transport) Outgoing() <-chan []byte {
	return t.outgoing
}

func (t *Transport) Sent() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	sent := make([][]byte, len(t.sent))
	copy(sent, t.sent)
	return sent
}

var _ transport.Transport = (*Transport)(nil)
