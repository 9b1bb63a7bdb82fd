package queue

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrClosed           = errors.New("queue closed")
	ErrTooManyProducers = errors.New("too many producers")
	ErrTooManyConsumers = errors.New("too many consumers")
	ErrUnknownProducer  = errors.New("unknown producer")
)

// Queue broadcasts every produced value to every consumer registered at the
// time it was produced. Each consumer reads values in production order.
type Queue[T any] struct {
	options

	mu        sync.Mutex
	consumers map[string]*Consumer[T]
	producers map[string]struct{}
	closed    bool
}

func NewQueue[T any](opts ...Option) *Queue[T] {
	q := &Queue[T]{
		consumers: map[string]*Consumer[T]{},
		producers: map[string]struct{}{},
	}
	for _, option := range opts {
		option.Apply(&q.options)
	}
	return q
}

func (q *Queue[T]) NewProducer() (*Producer[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrClosed
	}
	if q.maxProducers > 0 && len(q.producers) == q.maxProducers {
		return nil, ErrTooManyProducers
	}
	id := uuid.NewString()
	q.producers[id] = struct{}{}
	return &Producer[T]{id: id, q: q}, nil
}

func (q *Queue[T]) NewConsumer() (*Consumer[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrClosed
	}
	if q.maxConsumers > 0 && len(q.consumers) == q.maxConsumers {
		return nil, ErrTooManyConsumers
	}
	c := newConsumer[T](uuid.NewString(), q)
	q.consumers[c.id] = c
	return c, nil
}

// Close stops accepting values. Consumers still receive what was produced before.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for _, c := range q.consumers {
		c.close()
	}
}

func (q *Queue[T]) produce(id string, value T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if _, ok := q.producers[id]; !ok {
		return ErrUnknownProducer
	}
	for _, c := range q.consumers {
		c.push(value)
	}
	return nil
}

func (q *Queue[T]) cancel(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if c, ok := q.consumers[id]; ok {
		delete(q.consumers, id)
		c.close()
	}
}
