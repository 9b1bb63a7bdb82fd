package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type dialConfig struct {
	dialer       *websocket.Dialer
	header       http.Header
	writeTimeout time.Duration
}

type DialOption func(*dialConfig)

func WithDialer(dialer *websocket.Dialer) DialOption {
	return func(c *dialConfig) {
		c.dialer = dialer
	}
}

func WithHeader(header http.Header) DialOption {
	return func(c *dialConfig) {
		c.header = header
	}
}

// WithWriteTimeout bounds every write that has no context deadline of its own.
func WithWriteTimeout(timeout time.Duration) DialOption {
	return func(c *dialConfig) {
		c.writeTimeout = timeout
	}
}

type websocketTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	wm        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// Dial opens a websocket connection to address, e.g. wss://chat.example.com/websocket.
func Dial(ctx context.Context, address string, options ...DialOption) (Transport, error) {
	config := &dialConfig{dialer: websocket.DefaultDialer}
	for _, option := range options {
		option(config)
	}
	conn, resp, err := config.dialer.DialContext(ctx, address, config.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", address, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return &websocketTransport{
		conn:         conn,
		writeTimeout: config.writeTimeout,
	}, nil
}

func (w *websocketTransport) Send(ctx context.Context, message []byte) error {
	w.wm.Lock()
	defer w.wm.Unlock()
	deadline, ok := ctx.Deadline()
	if !ok && w.writeTimeout > 0 {
		deadline = time.Now().Add(w.writeTimeout)
	}
	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := w.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if errors.Is(err, websocket.ErrCloseSent) {
			return ErrClosed
		}
		return err
	}
	return nil
}

func (w *websocketTransport) Recv(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = w.conn.SetReadDeadline(time.Now())
	})
	defer stop()
	_, message, err := w.conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, fmt.Errorf("%w: %v", ErrClosed, err)
		}
		return nil, err
	}
	return message, nil
}

func (w *websocketTransport) Close() error {
	w.closeOnce.Do(func() {
		w.wm.Lock()
		_ = w.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		w.wm.Unlock()
		w.closeErr = w.conn.Close()
	})
	return w.closeErr
}
