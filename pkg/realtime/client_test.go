package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/raf924/rocketchat/pkg/ddp"
	"github.com/raf924/rocketchat/pkg/transport"
	"github.com/raf924/rocketchat/pkg/transport/fake"
)

func newTestClient(t testing.TB) (*Client, *fake.Transport) {
	t.Helper()
	tr := fake.NewTransport()
	c := NewClient(WithDialer(func(ctx context.Context, address string) (transport.Transport, error) {
		return tr, nil
	}))
	if err := c.Connect(context.Background(), "ws://chat.example.com/websocket"); err != nil {
		t.Fatalf("unexpected error = %v", err)
	}
	if f := nextFrame(t, tr); f.Msg != ddp.KindConnect {
		t.Fatalf("expected a connect frame first, got %q", f.Msg)
	}
	t.Cleanup(func() {
		tr.Fail(io.EOF)
		<-c.Done()
	})
	return c, tr
}

func nextFrame(t testing.TB, tr *fake.Transport) *ddp.Frame {
	t.Helper()
	select {
	case b := <-tr.Outgoing():
		var f ddp.Frame
		if err := json.Unmarshal(b, &f); err != nil {
			t.Fatalf("unexpected error = %v", err)
		}
		return &f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an outgoing frame")
		return nil
	}
}

func login(t testing.TB, c *Client, tr *fake.Transport) *Session {
	t.Helper()
	type loginResult struct {
		session *Session
		err     error
	}
	results := make(chan loginResult, 1)
	go func() {
		session, err := c.Authenticate(context.Background(), "bot", "pass")
		results <- loginResult{session, err}
	}()
	f := nextFrame(t, tr)
	if f.Method != "login" {
		t.Fatalf("expected login, got %q", f.Method)
	}
	tr.Push([]byte(`{"msg":"result","id":"` + f.ID + `","result":{"id":"u42","token":"tok"}}`))
	r := <-results
	if r.err != nil {
		t.Fatalf("unexpected error = %v", r.err)
	}
	return r.session
}

func TestClient_Authenticate(t *testing.T) {
	c, tr := newTestClient(t)
	session := login(t, c, tr)
	if session.UserID != "u42" {
		t.Errorf("expected user u42, got %q", session.UserID)
	}
	if c.Session() != session {
		t.Error("session was not stored")
	}
}

func TestClient_AuthenticationFailure(t *testing.T) {
	c, tr := newTestClient(t)
	errs := make(chan error, 1)
	go func() {
		_, err := c.Authenticate(context.Background(), "bot", "wrong")
		errs <- err
	}()
	f := nextFrame(t, tr)
	tr.Push([]byte(`{"msg":"result","id":"` + f.ID + `","error":{"error":403,"reason":"User not found","message":"User not found [403]"}}`))
	err := <-errs
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected an AuthenticationError, got %v", err)
	}
	if authErr.User != "bot" {
		t.Errorf("expected user bot, got %q", authErr.User)
	}
	var remote *ddp.RemoteError
	if !errors.As(err, &remote) {
		t.Errorf("expected the remote error to be wrapped, got %v", err)
	}
	if c.Session() != nil {
		t.Error("a failed login must not store a session")
	}
	if c.Err() != nil {
		t.Errorf("the connection should survive a failed login, got %v", c.Err())
	}
}

func TestClient_Reauthenticate(t *testing.T) {
	c, tr := newTestClient(t)
	results := make(chan error, 1)
	go func() {
		_, err := c.Reauthenticate(context.Background(), "tok")
		results <- err
	}()
	f := nextFrame(t, tr)
	b, _ := json.Marshal(f.Params)
	if string(b) != `[{"resume":"tok"}]` {
		t.Errorf("unexpected params %s", b)
	}
	tr.Push([]byte(`{"msg":"result","id":"` + f.ID + `","result":{"id":"u42","token":"tok2"}}`))
	if err := <-results; err != nil {
		t.Fatalf("unexpected error = %v", err)
	}
	if c.Session().Token != "tok2" {
		t.Errorf("expected the refreshed token, got %q", c.Session().Token)
	}
}

func TestClient_DialFailure(t *testing.T) {
	dialErr := errors.New("connection refused")
	c := NewClient(WithDialer(func(ctx context.Context, address string) (transport.Transport, error) {
		return nil, dialErr
	}))
	_, err := c.Start(context.Background(), "ws://nowhere/websocket", "bot", "pass")
	var setupErr *ddp.SetupError
	if !errors.As(err, &setupErr) {
		t.Fatalf("expected a SetupError, got %v", err)
	}
	if !errors.Is(err, dialErr) {
		t.Errorf("expected the dial error to be wrapped, got %v", err)
	}
	if err := c.RunForever(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected %v, got %v", ErrNotConnected, err)
	}
}

func TestClient_AlreadyConnected(t *testing.T) {
	c, _ := newTestClient(t)
	if err := c.Connect(context.Background(), "ws://chat.example.com/websocket"); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("expected %v, got %v", ErrAlreadyConnected, err)
	}
}

func TestClient_RunForeverReturnsWhenClosed(t *testing.T) {
	c, tr := newTestClient(t)
	errs := make(chan error, 1)
	go func() {
		errs <- c.RunForever(context.Background())
	}()
	tr.Fail(io.ErrUnexpectedEOF)
	select {
	case err := <-errs:
		if !errors.Is(err, ddp.ErrConnectionClosed) {
			t.Errorf("expected %v, got %v", ddp.ErrConnectionClosed, err)
		}
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("expected the cause to be kept, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunForever did not return")
	}
}

func TestClient_SubscribeToChannelMessages(t *testing.T) {
	c, tr := newTestClient(t)
	messages := make(chan *RoomMessage, 2)
	if _, err := c.SubscribeToChannelMessages(context.Background(), "c1", func(m *RoomMessage) {
		messages <- m
	}); err != nil {
		t.Fatalf("unexpected error = %v", err)
	}
	if f := nextFrame(t, tr); f.Msg != ddp.KindSub || f.Name != StreamRoomMessages {
		t.Fatalf("unexpected frame %+v", f)
	}
	tr.Push([]byte(`{"msg":"changed","collection":"stream-room-messages","id":"id","fields":{"eventName":"c2","args":[{"_id":"m0","rid":"c2","msg":"elsewhere","u":{"_id":"u9"}}]}}`))
	tr.Push([]byte(`{"msg":"changed","collection":"stream-room-messages","id":"id","fields":{"eventName":"c1","args":["garbage"]}}`))
	tr.Push([]byte(`{"msg":"changed","collection":"stream-room-messages","id":"id","fields":{"eventName":"c1","args":[{"_id":"m1","rid":"c1","msg":"hi","u":{"_id":"u1"}}]}}`))
	select {
	case m := <-messages:
		if m.ChannelID != "c1" || m.Sender.ID != "u1" || m.ID != "m1" || m.Text != "hi" {
			t.Errorf("unexpected message %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}
	select {
	case m := <-messages:
		t.Errorf("unexpected second message %+v", m)
	default:
	}
	if c.Err() != nil {
		t.Errorf("a bad event must not end the connection, got %v", c.Err())
	}
}

func TestClient_SubscribeToChannelChanges(t *testing.T) {
	c, tr := newTestClient(t)
	if _, err := c.SubscribeToChannelChanges(context.Background(), func(*RoomChange) {}); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected %v, got %v", ErrNotAuthenticated, err)
	}
	login(t, c, tr)
	changes := make(chan *RoomChange, 1)
	if _, err := c.SubscribeToChannelChanges(context.Background(), func(change *RoomChange) {
		changes <- change
	}); err != nil {
		t.Fatalf("unexpected error = %v", err)
	}
	f := nextFrame(t, tr)
	b, _ := json.Marshal(f.Params)
	if f.Name != StreamNotifyUser || string(b) != `["u42/rooms-changed",false]` {
		t.Errorf("unexpected subscription %s %s", f.Name, b)
	}
	tr.Push([]byte(`{"msg":"changed","collection":"stream-notify-user","fields":{"eventName":"u42/rooms-changed","args":["inserted",{"_id":"c2","t":"c","name":"new"}]}}`))
	select {
	case change := <-changes:
		if change.ChannelID != "c2" || change.Action != "inserted" {
			t.Errorf("unexpected change %+v", change)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}
}

func TestClient_SendMessage(t *testing.T) {
	c, tr := newTestClient(t)
	type sendResult struct {
		id  string
		err error
	}
	results := make(chan sendResult, 1)
	go func() {
		id, err := c.SendThreadMessage(context.Background(), "c1", "m0", "hello")
		results <- sendResult{id, err}
	}()
	f := nextFrame(t, tr)
	if f.Method != "sendMessage" || len(f.Params) != 1 {
		t.Fatalf("unexpected frame %+v", f)
	}
	params, _ := f.Params[0].(map[string]interface{})
	if params["rid"] != "c1" || params["msg"] != "hello" || params["tmid"] != "m0" {
		t.Errorf("unexpected params %v", params)
	}
	tr.Push([]byte(`{"msg":"result","id":"` + f.ID + `","result":{}}`))
	r := <-results
	if r.err != nil {
		t.Fatalf("unexpected error = %v", r.err)
	}
	if r.id == "" || r.id != params["_id"] {
		t.Errorf("expected the message id %v, got %q", params["_id"], r.id)
	}
}

func TestClient_SendReactionDoesNotWait(t *testing.T) {
	c, tr := newTestClient(t)
	if err := c.SendReaction(context.Background(), "m1", Joy); err != nil {
		t.Fatalf("unexpected error = %v", err)
	}
	f := nextFrame(t, tr)
	b, _ := json.Marshal(f.Params)
	if f.Method != "setReaction" || string(b) != `[":joy:","m1"]` {
		t.Errorf("unexpected frame %s %s", f.Method, b)
	}
}

func TestClient_GetChannels(t *testing.T) {
	c, tr := newTestClient(t)
	type roomsResult struct {
		channels []Channel
		err      error
	}
	results := make(chan roomsResult, 1)
	go func() {
		channels, err := c.GetChannels(context.Background())
		results <- roomsResult{channels, err}
	}()
	f := nextFrame(t, tr)
	tr.Push([]byte(`{"msg":"result","id":"` + f.ID + `","result":[{"_id":"GENERAL","t":"c","name":"general"}]}`))
	r := <-results
	if r.err != nil {
		t.Fatalf("unexpected error = %v", r.err)
	}
	if len(r.channels) != 1 || r.channels[0].ID != "GENERAL" {
		t.Errorf("unexpected channels %+v", r.channels)
	}
}

func TestClient_NotConnected(t *testing.T) {
	c := NewClient()
	if _, err := c.Call(context.Background(), "rooms/get"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected %v, got %v", ErrNotConnected, err)
	}
	if c.Done() != nil {
		t.Error("expected no done channel before Connect")
	}
}
