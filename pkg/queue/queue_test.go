package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/raf924/rocketchat/pkg/domain"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func TestQueueConsumer_Consume(t *testing.T) {
	q := NewQueue[int]()
	p, err := q.NewProducer()
	if err != nil {
		t.Fatalf("unexpected error = %v", err)
	}
	c, err := q.NewConsumer()
	if err != nil {
		t.Fatalf("unexpected error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := p.Produce(i); err != nil {
			t.Fatalf("unexpected error = %v", err)
		}
	}
	for want := 0; want < 3; want++ {
		got, err := c.Consume(context.Background())
		if err != nil {
			t.Fatalf("unexpected error = %v", err)
		}
		if got != want {
			t.Errorf("expected %v got %v", want, got)
		}
	}
}

func TestQueue_Broadcast(t *testing.T) {
	q := NewQueue[*domain.ChatMessage]()
	p, _ := q.NewProducer()
	c1, _ := q.NewConsumer()
	c2, _ := q.NewConsumer()
	message := domain.NewChatMessage("m1", "hello", domain.NewUser("test", "id", domain.RegularUser), "c1", "", nil, false, true, timestamppb.Now())
	if err := p.Produce(message); err != nil {
		t.Fatalf("unexpected error = %v", err)
	}
	for _, c := range []*Consumer[*domain.ChatMessage]{c1, c2} {
		m, err := c.Consume(context.Background())
		if err != nil {
			t.Fatalf("unexpected error = %v", err)
		}
		if m != message {
			t.Errorf("expected %v got %v", message, m)
		}
	}
}

func TestQueue_ConsumeWaits(t *testing.T) {
	q := NewQueue[string]()
	p, _ := q.NewProducer()
	c, _ := q.NewConsumer()
	var wg sync.WaitGroup
	wg.Add(1)
	var got string
	var err error
	go func() {
		defer wg.Done()
		got, err = c.Consume(context.Background())
	}()
	time.Sleep(10 * time.Millisecond)
	_ = p.Produce("late")
	wg.Wait()
	if err != nil || got != "late" {
		t.Errorf("expected late, got %q (%v)", got, err)
	}
}

func TestQueue_ConsumeContext(t *testing.T) {
	q := NewQueue[int]()
	c, _ := q.NewConsumer()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := c.Consume(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected %v, got %v", context.DeadlineExceeded, err)
	}
}

func TestQueue_Close(t *testing.T) {
	q := NewQueue[int]()
	p, _ := q.NewProducer()
	c, _ := q.NewConsumer()
	_ = p.Produce(1)
	q.Close()
	if err := p.Produce(2); !errors.Is(err, ErrClosed) {
		t.Errorf("expected %v, got %v", ErrClosed, err)
	}
	if v, err := c.Consume(context.Background()); err != nil || v != 1 {
		t.Errorf("expected the backlog to be drained first, got %v (%v)", v, err)
	}
	if _, err := c.Consume(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected %v, got %v", ErrClosed, err)
	}
}

func TestQueue_Cancel(t *testing.T) {
	q := NewQueue[int]()
	p, _ := q.NewProducer()
	c, _ := q.NewConsumer()
	c.Cancel()
	_ = p.Produce(1)
	if _, err := c.Consume(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected %v, got %v", ErrClosed, err)
	}
}

func TestQueue_Limits(t *testing.T) {
	q := NewQueue[int](WithMaxConsumers(1), WithMaxProducers(1))
	if _, err := q.NewProducer(); err != nil {
		t.Fatalf("unexpected error = %v", err)
	}
	if _, err := q.NewProducer(); !errors.Is(err, ErrTooManyProducers) {
		t.Errorf("expected %v, got %v", ErrTooManyProducers, err)
	}
	if _, err := q.NewConsumer(); err != nil {
		t.Fatalf("unexpected error = %v", err)
	}
	if _, err := q.NewConsumer(); !errors.Is(err, ErrTooManyConsumers) {
		t.Errorf("expected %v, got %v", ErrTooManyConsumers, err)
	}
}

func BenchmarkQueueConsumer_Consume(b *testing.B) {
	q := NewQueue[int]()
	p, _ := q.NewProducer()
	c, _ := q.NewConsumer()
	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		_ = p.Produce(i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Consume(ctx); err != nil {
			b.Errorf("unexpected error = %v", err)
			return
		}
	}
}
