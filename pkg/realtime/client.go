// Package realtime is a client for the Rocket.Chat realtime API.
//
// Every request is a pure frame builder; Client sends them through a
// ddp.Dispatcher bound to one websocket connection.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/raf924/rocketchat/pkg/ddp"
	"github.com/raf924/rocketchat/pkg/transport"
)

// Dialer opens the transport for address.
type Dialer func(ctx context.Context, address string) (transport.Transport, error)

type Option func(*Client)

// WithDialer overrides how connections are opened. This is mostly useful in tests.
func WithDialer(dialer Dialer) Option {
	return func(c *Client) {
		c.dial = dialer
	}
}

func WithVerbose(verbose bool) Option {
	return func(c *Client) {
		c.verbose = verbose
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithCallbackWorkers moves subscription callbacks off the receive loop.
func WithCallbackWorkers(n int) Option {
	return func(c *Client) {
		c.workers = n
	}
}

type Client struct {
	dial    Dialer
	verbose bool
	logger  *log.Logger
	workers int

	mu         sync.Mutex
	dispatcher *ddp.Dispatcher
	session    *Session
}

func NewClient(options ...Option) *Client {
	c := &Client{
		dial: func(ctx context.Context, address string) (transport.Transport, error) {
			return transport.Dial(ctx, address)
		},
		logger: log.Default(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Connect opens a new connection and sends the handshake. Each connection gets
// its own dispatcher, so a client can connect again once the previous
// connection has ended; the session then has to be re-established.
func (c *Client) Connect(ctx context.Context, address string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dispatcher != nil && c.dispatcher.Err() == nil {
		return ErrAlreadyConnected
	}
	t, err := c.dial(ctx, address)
	if err != nil {
		return &ddp.SetupError{Address: address, Err: err}
	}
	d := ddp.NewDispatcher(
		ddp.WithVerbose(c.verbose),
		ddp.WithLogger(c.logger),
		ddp.WithCallbackWorkers(c.workers),
	)
	if err := d.Start(context.Background(), t); err != nil {
		_ = t.Close()
		return &ddp.SetupError{Address: address, Err: err}
	}
	if err := d.Notify(ctx, NewConnectRequest()); err != nil {
		_ = d.Close()
		return &ddp.SetupError{Address: address, Err: err}
	}
	c.dispatcher = d
	c.session = nil
	return nil
}

// Start connects and logs in.
func (c *Client) Start(ctx context.Context, address, username, password string) (*Session, error) {
	if err := c.Connect(ctx, address); err != nil {
		return nil, err
	}
	return c.Authenticate(ctx, username, password)
}

func (c *Client) current() (*ddp.Dispatcher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dispatcher == nil {
		return nil, ErrNotConnected
	}
	return c.dispatcher, nil
}

// Authenticate logs in with a username and password.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	d, err := c.current()
	if err != nil {
		return nil, err
	}
	return c.login(ctx, username, NewLoginRequest(d.NextID(), username, password))
}

// Reauthenticate logs in with the token of an earlier session, typically on a
// fresh connection.
func (c *Client) Reauthenticate(ctx context.Context, token string) (*Session, error) {
	d, err := c.current()
	if err != nil {
		return nil, err
	}
	return c.login(ctx, "", NewResumeRequest(d.NextID(), token))
}

func (c *Client) login(ctx context.Context, username string, request *ddp.Frame) (*Session, error) {
	d, err := c.current()
	if err != nil {
		return nil, err
	}
	reply, err := d.Call(ctx, request)
	if err != nil {
		var remote *ddp.RemoteError
		if errors.As(err, &remote) {
			return nil, &AuthenticationError{User: username, Err: err}
		}
		return nil, err
	}
	session, err := ParseLogin(reply.Result)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
	return session, nil
}

// Session returns the current login, or nil.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Call invokes a server method and returns its raw result.
func (c *Client) Call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	d, err := c.current()
	if err != nil {
		return nil, err
	}
	reply, err := d.Call(ctx, NewMethodRequest(d.NextID(), method, params...))
	if err != nil {
		return nil, err
	}
	return reply.Result, nil
}

// Subscribe subscribes to stream and returns the handle for Unsubscribe.
func (c *Client) Subscribe(ctx context.Context, stream string, params []interface{}, handler ddp.Handler) (string, error) {
	d, err := c.current()
	if err != nil {
		return "", err
	}
	return d.Subscribe(ctx, NewSubscription(d.NextID(), stream, params...), handler)
}

func (c *Client) Unsubscribe(ctx context.Context, id string) error {
	d, err := c.current()
	if err != nil {
		return err
	}
	return d.Unsubscribe(ctx, id)
}

// RunForever blocks until the connection ends and returns why.
func (c *Client) RunForever(ctx context.Context) error {
	d, err := c.current()
	if err != nil {
		return err
	}
	return d.Wait(ctx)
}

// Done is closed when the current connection ends. It is nil before Connect.
func (c *Client) Done() <-chan struct{} {
	d, err := c.current()
	if err != nil {
		return nil
	}
	return d.Done()
}

func (c *Client) Err() error {
	d, err := c.current()
	if err != nil {
		return err
	}
	return d.Err()
}

func (c *Client) Close() error {
	d, err := c.current()
	if err != nil {
		return err
	}
	return d.Close()
}

func (c *Client) GetChannels(ctx context.Context) ([]Channel, error) {
	d, err := c.current()
	if err != nil {
		return nil, err
	}
	reply, err := d.Call(ctx, NewGetRoomsRequest(d.NextID()))
	if err != nil {
		return nil, err
	}
	return ParseRooms(reply.Result)
}

// GetUsersOfRoom lists every member of a room, online or not.
func (c *Client) GetUsersOfRoom(ctx context.Context, channelID string) ([]User, error) {
	d, err := c.current()
	if err != nil {
		return nil, err
	}
	reply, err := d.Call(ctx, NewGetUsersOfRoomRequest(d.NextID(), channelID))
	if err != nil {
		return nil, err
	}
	return ParseRoomUsers(reply.Result)
}

// SendMessage posts text to a room and returns the id of the new message.
func (c *Client) SendMessage(ctx context.Context, channelID, text string) (string, error) {
	return c.SendThreadMessage(ctx, channelID, "", text)
}

// SendThreadMessage posts text as a reply in the thread threadID.
func (c *Client) SendThreadMessage(ctx context.Context, channelID, threadID, text string) (string, error) {
	d, err := c.current()
	if err != nil {
		return "", err
	}
	messageID := newMessageID()
	if _, err := d.Call(ctx, NewSendMessageRequest(d.NextID(), messageID, channelID, text, threadID)); err != nil {
		return "", err
	}
	return messageID, nil
}

// SendReaction reacts to a message without waiting for the server.
func (c *Client) SendReaction(ctx context.Context, messageID string, emoji Emoji) error {
	d, err := c.current()
	if err != nil {
		return err
	}
	return d.Notify(ctx, NewSetReactionRequest(d.NextID(), messageID, emoji))
}

func (c *Client) SendTypingEvent(ctx context.Context, channelID, username string, typing bool) error {
	d, err := c.current()
	if err != nil {
		return err
	}
	_, err = d.Call(ctx, NewTypingRequest(d.NextID(), channelID, username, typing))
	return err
}

// SubscribeToChannelMessages calls handler for every message posted in channelID.
// All rooms share one stream, so events of other rooms are filtered out here.
func (c *Client) SubscribeToChannelMessages(ctx context.Context, channelID string, handler func(*RoomMessage)) (string, error) {
	d, err := c.current()
	if err != nil {
		return "", err
	}
	return d.Subscribe(ctx, NewRoomMessagesSubscription(d.NextID(), channelID), func(frame *ddp.Frame) {
		message, err := UnwrapRoomMessage(frame)
		if err != nil {
			c.logger.Println(StreamRoomMessages, err)
			return
		}
		if message.ChannelID != channelID {
			return
		}
		handler(message)
	})
}

// SubscribeToChannelChanges calls handler whenever a room of the logged in user
// is created, updated or removed.
func (c *Client) SubscribeToChannelChanges(ctx context.Context, handler func(*RoomChange)) (string, error) {
	d, err := c.current()
	if err != nil {
		return "", err
	}
	session := c.Session()
	if session == nil {
		return "", ErrNotAuthenticated
	}
	return d.Subscribe(ctx, NewRoomsChangedSubscription(d.NextID(), session.UserID), func(frame *ddp.Frame) {
		change, err := UnwrapRoomChange(frame)
		if err != nil {
			c.logger.Println(StreamNotifyUser, err)
			return
		}
		handler(change)
	})
}

func newMessageID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
