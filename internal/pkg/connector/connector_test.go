package connector

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/raf924/rocketchat/internal/pkg/commands"
	"github.com/raf924/rocketchat/pkg/command"
	"github.com/raf924/rocketchat/pkg/config/connector"
	"github.com/raf924/rocketchat/pkg/domain"
	"google.golang.org/protobuf/types/known/timestamppb"
)

var botUser = domain.NewUser("bot", "u42", domain.RegularUser)

var user = domain.NewUser("alice", "u1", domain.RegularUser)

type dummyConnection struct {
	users    *domain.UserList
	incoming chan *domain.ChatMessage
	sent     chan *domain.ClientMessage
	done     chan struct{}
	once     sync.Once

	mu     sync.Mutex
	onJoin func(event *domain.UserEvent)
	nick   string
	err    error
}

func newDummyConnection() *dummyConnection {
	return &dummyConnection{
		users:    domain.NewUserList(botUser, user),
		incoming: make(chan *domain.ChatMessage, 8),
		sent:     make(chan *domain.ClientMessage, 8),
		done:     make(chan struct{}),
	}
}

func (d *dummyConnection) Connect(ctx context.Context, nick string) (*domain.User, *domain.UserList, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nick = nick
	return botUser, d.users, d.err
}

func (d *dummyConnection) Recv(ctx context.Context) (*domain.ChatMessage, error) {
	select {
	case m := <-d.incoming:
		return m, nil
	case <-d.done:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *dummyConnection) Send(ctx context.Context, message *domain.ClientMessage) error {
	d.sent <- message
	return nil
}

func (d *dummyConnection) OnUserJoin(f func(event *domain.UserEvent)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onJoin = f
}

func (d *dummyConnection) OnUserLeft(f func(event *domain.UserEvent)) {
}

func (d *dummyConnection) Done() <-chan struct{} {
	return d.done
}

func (d *dummyConnection) Err() error {
	return nil
}

func (d *dummyConnection) Close() error {
	d.once.Do(func() {
		close(d.done)
	})
	return nil
}

func chat(text string, sender *domain.User) *domain.ChatMessage {
	return domain.NewChatMessage("m1", text, sender, "c1", "", nil, false, !sender.Is(botUser), timestamppb.Now())
}

func expectReply(t *testing.T, d *dummyConnection, want string) {
	t.Helper()
	select {
	case m := <-d.sent:
		if m.Message() != want || m.Channel() != "c1" {
			t.Errorf("expected %q in c1, got %q in %s", want, m.Message(), m.Channel())
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected reply %q", want)
	}
}

func expectNoReply(t *testing.T, d *dummyConnection) {
	t.Helper()
	select {
	case m := <-d.sent:
		t.Errorf("unexpected reply %q", m.Message())
	case <-time.After(50 * time.Millisecond):
	}
}

// greeter says hello to everyone who joins.
type greeter struct {
	command.NoOpCommand
}

func (g *greeter) Name() string {
	return "greet"
}

func (g *greeter) Execute(command *domain.CommandMessage) ([]*domain.ClientMessage, error) {
	return nil, errors.New("not a command")
}

func (g *greeter) OnUserEvent(event *domain.UserEvent) ([]*domain.ClientMessage, error) {
	return []*domain.ClientMessage{domain.NewClientMessage("welcome "+event.User().Nick(), event.Channel(), "")}, nil
}

func (g *greeter) OnChat(message *domain.ChatMessage) ([]*domain.ClientMessage, error) {
	if message.Message() != "hello" {
		return nil, nil
	}
	return []*domain.ClientMessage{domain.NewClientMessage("hello "+message.Sender().Nick(), message.Channel(), "")}, nil
}

func startConnector(t *testing.T, config connector.Config) (*Connector, *dummyConnection) {
	t.Helper()
	d := newDummyConnection()
	cr := NewConnector(config, d, append(commands.Builtins(), &greeter{})...)
	if err := cr.Start(); err != nil {
		t.Fatalf("unexpected error = %v", err)
	}
	t.Cleanup(cr.Stop)
	return cr, d
}

func TestConnector(t *testing.T) {
	cr, d := startConnector(t, connector.Config{Name: "bot", Trigger: "!"})
	if d.nick != "bot" {
		t.Errorf("expected to connect as bot, got %q", d.nick)
	}
	if cr.BotUser() != botUser {
		t.Errorf("expected %v got %v", botUser, cr.BotUser())
	}

	d.incoming <- chat("!echo Hello there", user)
	expectReply(t, d, "Hello there")

	d.incoming <- chat("!e alias", user)
	expectReply(t, d, "alias")

	d.incoming <- chat("!who", user)
	expectReply(t, d, "1 users: alice")

	d.incoming <- chat("hello", user)
	expectReply(t, d, "hello alice")

	d.incoming <- chat("!echo myself", botUser)
	expectNoReply(t, d)
}

func TestConnector_UserEvents(t *testing.T) {
	_, d := startConnector(t, connector.Config{Name: "bot", Trigger: "!"})
	d.mu.Lock()
	onJoin := d.onJoin
	d.mu.Unlock()
	onJoin(domain.NewUserEvent(domain.NewUser("carol", "u3", domain.RegularUser), domain.UserJoined, "c1", timestamppb.Now()))
	expectReply(t, d, "welcome carol")
}

func TestConnector_DisabledCommand(t *testing.T) {
	_, d := startConnector(t, connector.Config{
		Name:     "bot",
		Trigger:  "!",
		Commands: connector.CommandConfig{Disabled: map[string]bool{"echo": true}},
	})
	d.incoming <- chat("!echo hi", user)
	expectNoReply(t, d)
}

func TestConnector_StopsWithRelay(t *testing.T) {
	cr, d := startConnector(t, connector.Config{Name: "bot", Trigger: "!"})
	_ = d.Close()
	select {
	case <-cr.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connector did not stop")
	}
	if !errors.Is(cr.Err(), io.EOF) {
		t.Errorf("expected %v, got %v", io.EOF, cr.Err())
	}
}

func TestConnector_ConnectFailure(t *testing.T) {
	d := newDummyConnection()
	d.err = errors.New("refused")
	cr := NewConnector(connector.Config{Name: "bot"}, d)
	if err := cr.Start(); err == nil {
		t.Error("expected an error")
	}
}

func TestConnector_StopBeforeStart(t *testing.T) {
	cr := NewConnector(connector.Config{Name: "bot"}, newDummyConnection())
	if cr.Err() != nil {
		t.Errorf("unexpected error = %v", cr.Err())
	}
	select {
	case <-cr.Done():
		t.Fatal("connector should not be done before Start")
	default:
	}
	cr.Stop()
	<-cr.Done()
	if !errors.Is(cr.Err(), context.Canceled) {
		t.Errorf("expected %v, got %v", context.Canceled, cr.Err())
	}
	if err := cr.Start(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected a stopped connector not to start, got %v", err)
	}
}
