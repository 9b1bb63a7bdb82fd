package queue

import (
	"context"
	"sync"

	"github.com/eapache/queue"
)

type Consumer[T any] struct {
	id     string
	q      *Queue[T]
	signal chan struct{}

	mu      sync.Mutex
	backlog *queue.Queue
	closed  bool
}

func newConsumer[T any](id string, q *Queue[T]) *Consumer[T] {
	return &Consumer[T]{
		id:      id,
		q:       q,
		signal:  make(chan struct{}, 1),
		backlog: queue.New(),
	}
}

// Consume returns the next value, waiting for one if needed. Once the queue is
// closed and the backlog drained it returns ErrClosed.
func (c *Consumer[T]) Consume(ctx context.Context) (T, error) {
	for {
		c.mu.Lock()
		if c.backlog.Length() > 0 {
			value := c.backlog.Remove().(T)
			c.mu.Unlock()
			return value, nil
		}
		closed := c.closed
		c.mu.Unlock()
		if closed {
			var zero T
			return zero, ErrClosed
		}
		select {
		case <-c.signal:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Cancel unregisters the consumer. Pending values are still returned by Consume.
func (c *Consumer[T]) Cancel() {
	c.q.cancel(c.id)
}

func (c *Consumer[T]) push(value T) {
	c.mu.Lock()
	c.backlog.Add(value)
	c.mu.Unlock()
	c.wake()
}

func (c *Consumer[T]) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.wake()
}

func (c *Consumer[T]) wake() {
	select {
	case c.signal <- struct{}{}:
	default:
	}
}
