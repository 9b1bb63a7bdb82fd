// Package ddp multiplexes method calls and stream subscriptions over a single
// realtime connection.
//
// Replies are matched to calls by correlation id. Stream events are matched to
// subscriptions by stream name, since that is all a changed frame carries.
package ddp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/raf924/rocketchat/pkg/transport"
)

// Handler receives the changed frames of a subscribed stream.
type Handler func(frame *Frame)

type Option func(*Dispatcher)

// WithVerbose logs every outgoing and incoming frame.
func WithVerbose(verbose bool) Option {
	return func(d *Dispatcher) {
		d.verbose = verbose
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithCallbackWorkers runs subscription handlers on up to n goroutines instead of
// the receive loop. Events of one stream are still handled one at a time, in order.
func WithCallbackWorkers(n int) Option {
	return func(d *Dispatcher) {
		d.workers = n
	}
}

type registration struct {
	id      string
	stream  string
	handler Handler
}

type Dispatcher struct {
	logger   *log.Logger
	verbose  bool
	workers  int
	executor executor
	lastID   atomic.Uint64
	done     chan struct{}

	mu            sync.Mutex
	transport     transport.Transport
	pending       map[string]*Future
	registrations map[string]*registration
	streams       map[string][]*registration
	err           error
}

func NewDispatcher(options ...Option) *Dispatcher {
	d := &Dispatcher{
		logger:        log.Default(),
		done:          make(chan struct{}),
		pending:       map[string]*Future{},
		registrations: map[string]*registration{},
		streams:       map[string][]*registration{},
	}
	for _, option := range options {
		option(d)
	}
	if d.workers > 0 {
		d.executor = newPoolExecutor(d.workers, d.logger)
	} else {
		d.executor = &inlineExecutor{logger: d.logger}
	}
	return d
}

// Start attaches the dispatcher to t and launches the receive loop. A dispatcher
// serves exactly one connection.
func (d *Dispatcher) Start(ctx context.Context, t transport.Transport) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.transport != nil {
		return ErrAlreadyStarted
	}
	d.transport = t
	go d.run(ctx, t)
	return nil
}

// NextID returns a correlation id unique for the life of this dispatcher.
func (d *Dispatcher) NextID() string {
	return strconv.FormatUint(d.lastID.Add(1), 10)
}

// Call sends frame and waits for the result frame carrying the same id.
// A result with an error payload is returned along with a *RemoteError.
// If ctx ends first, the call stays pending until its reply or the end of the connection.
func (d *Dispatcher) Call(ctx context.Context, frame *Frame) (*Frame, error) {
	if frame.ID == "" {
		return nil, ErrMissingID
	}
	future, err := d.expect(frame.ID)
	if err != nil {
		return nil, err
	}
	if err := d.send(ctx, frame); err != nil {
		d.forget(frame.ID, future)
		return nil, err
	}
	reply, err := future.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if reply.Error != nil {
		return reply, &RemoteError{ID: reply.ID, Method: frame.Method, Err: reply.Error}
	}
	return reply, nil
}

// Notify sends frame without waiting for any reply.
func (d *Dispatcher) Notify(ctx context.Context, frame *Frame) error {
	if err := d.usable(); err != nil {
		return err
	}
	return d.send(ctx, frame)
}

// Subscribe registers handler for frame.Name and sends the sub frame. The returned
// id is the handle to pass to Unsubscribe. Several subscriptions may share a stream
// name; each of them receives every event of that stream.
func (d *Dispatcher) Subscribe(ctx context.Context, frame *Frame, handler Handler) (string, error) {
	if frame.ID == "" {
		return "", ErrMissingID
	}
	reg := &registration{id: frame.ID, stream: frame.Name, handler: handler}
	d.mu.Lock()
	if err := d.usableLocked(); err != nil {
		d.mu.Unlock()
		return "", err
	}
	if _, exists := d.registrations[reg.id]; exists {
		d.mu.Unlock()
		return "", ErrDuplicateID
	}
	d.registrations[reg.id] = reg
	d.streams[reg.stream] = append(d.streams[reg.stream], reg)
	d.mu.Unlock()
	if err := d.send(ctx, frame); err != nil {
		d.remove(reg.id)
		return "", err
	}
	return reg.id, nil
}

// Unsubscribe drops the handler registered under id and sends the unsub frame.
func (d *Dispatcher) Unsubscribe(ctx context.Context, id string) error {
	if err := d.usable(); err != nil {
		return err
	}
	if !d.remove(id) {
		return fmt.Errorf("%w: %s", ErrUnknownSubscription, id)
	}
	return d.send(ctx, &Frame{Msg: KindUnsub, ID: id})
}

// Done is closed once the receive loop has exited and every pending call has
// been released.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Err returns the terminal error, or nil while the loop is running.
func (d *Dispatcher) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Wait blocks for the life of the connection and returns its terminal error,
// which always matches ErrConnectionClosed.
func (d *Dispatcher) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return d.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the transport; the receive loop then terminates.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	t := d.transport
	d.mu.Unlock()
	if t == nil {
		return ErrNotStarted
	}
	return t.Close()
}

func (d *Dispatcher) usable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.usableLocked()
}

func (d *Dispatcher) usableLocked() error {
	if d.err != nil {
		return d.err
	}
	if d.transport == nil {
		return ErrNotStarted
	}
	return nil
}

func (d *Dispatcher) expect(id string) (*Future, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usableLocked(); err != nil {
		return nil, err
	}
	if _, exists := d.pending[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	future := newFuture()
	d.pending[id] = future
	return future, nil
}

func (d *Dispatcher) forget(id string, future *Future) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending[id] == future {
		delete(d.pending, id)
	}
}

func (d *Dispatcher) remove(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	reg, ok := d.registrations[id]
	if !ok {
		return false
	}
	delete(d.registrations, id)
	regs := d.streams[reg.stream]
	for i, r := range regs {
		if r == reg {
			regs = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(regs) == 0 {
		delete(d.streams, reg.stream)
	} else {
		d.streams[reg.stream] = regs
	}
	return true
}

func (d *Dispatcher) send(ctx context.Context, frame *Frame) error {
	b, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", frame.Msg, err)
	}
	if d.verbose {
		d.logger.Printf("Outgoing: %s", b)
	}
	d.mu.Lock()
	t := d.transport
	d.mu.Unlock()
	if err := t.Send(ctx, b); err != nil {
		return fmt.Errorf("send %s frame: %w", frame.Msg, err)
	}
	return nil
}

func (d *Dispatcher) run(ctx context.Context, t transport.Transport) {
	err := d.receive(ctx, t)
	d.terminate(err)
}

func (d *Dispatcher) receive(ctx context.Context, t transport.Transport) error {
	for {
		message, err := t.Recv(ctx)
		if err != nil {
			return err
		}
		if d.verbose {
			d.logger.Printf("Incoming: %s", message)
		}
		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			return fmt.Errorf("decode frame: %w", err)
		}
		if err := d.route(&frame, message); err != nil {
			return err
		}
	}
}

func (d *Dispatcher) route(frame *Frame, raw []byte) error {
	switch frame.Msg {
	case KindResult:
		d.mu.Lock()
		future, ok := d.pending[frame.ID]
		delete(d.pending, frame.ID)
		d.mu.Unlock()
		if ok {
			future.resolve(frame, nil)
		}
	case KindChanged:
		d.mu.Lock()
		regs := append([]*registration(nil), d.streams[frame.Collection]...)
		d.mu.Unlock()
		for _, reg := range regs {
			handler := reg.handler
			d.executor.execute(reg.stream, func() { handler(frame) })
		}
	case KindReady, KindConnected, KindAdded, KindUpdated, KindNoSub:
	case KindPing:
		go func(pong *Frame) {
			if err := d.send(context.Background(), pong); err != nil && d.verbose {
				d.logger.Println("pong:", err)
			}
		}(newPong(frame.ID))
	case KindError:
		return &ServerError{Reason: frame.Reason, OffendingMessage: string(frame.OffendingMessage)}
	case "":
		// the greeting sent right after the websocket opens
		if frame.ServerID != "" {
			return nil
		}
		return &ProtocolViolation{Frame: raw}
	default:
		return &ProtocolViolation{Kind: frame.Msg, Frame: raw}
	}
	return nil
}

func (d *Dispatcher) terminate(cause error) {
	closed := &ClosedError{Cause: cause}
	d.mu.Lock()
	d.err = closed
	pending := d.pending
	d.pending = map[string]*Future{}
	d.mu.Unlock()
	for _, future := range pending {
		future.resolve(nil, closed)
	}
	d.executor.wait()
	if d.verbose {
		d.logger.Println("receive loop stopped:", cause)
	}
	close(d.done)
}
