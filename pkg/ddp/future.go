package ddp

import (
	"context"
	"sync"
)

// Future is the single-resolution slot of one pending call. It is completed
// exactly once, either with the reply frame or with a failure.
type Future struct {
	ch    chan struct{}
	once  sync.Once
	frame *Frame
	err   error
}

func newFuture() *Future {
	return &Future{ch: make(chan struct{})}
}

// resolve reports whether this call completed the future.
func (f *Future) resolve(frame *Frame, err error) bool {
	resolved := false
	f.once.Do(func() {
		f.frame = frame
		f.err = err
		close(f.ch)
		resolved = true
	})
	return resolved
}

func (f *Future) Done() <-chan struct{} {
	return f.ch
}

// Wait blocks until the future is resolved or ctx is done.
func (f *Future) Wait(ctx context.Context) (*Frame, error) {
	select {
	case <-f.ch:
		return f.frame, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
