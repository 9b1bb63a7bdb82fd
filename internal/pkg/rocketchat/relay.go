package rocketchat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/raf924/rocketchat/pkg/config/rocketchat"
	"github.com/raf924/rocketchat/pkg/domain"
	"github.com/raf924/rocketchat/pkg/queue"
	"github.com/raf924/rocketchat/pkg/realtime"
	"github.com/raf924/rocketchat/pkg/relay/connection"
	"github.com/raf924/rocketchat/pkg/storage"
)

func init() {
	connection.RegisterConnectionRelay("rocketchat", func(config interface{}) (connection.Relay, error) {
		c, err := rocketchat.Decode(config)
		if err != nil {
			return nil, err
		}
		s, err := storage.New(c.Session)
		if err != nil {
			return nil, err
		}
		return NewRelay(c, s), nil
	})
}

var _ connection.Relay = (*Relay)(nil)

// savedSession is what gets persisted between runs.
type savedSession struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

type Relay struct {
	config   rocketchat.Config
	client   *realtime.Client
	storage  storage.Storage
	messages *queue.Queue[*domain.ChatMessage]
	producer *queue.Producer[*domain.ChatMessage]
	consumer *queue.Consumer[*domain.ChatMessage]

	mu       sync.Mutex
	botUser  *domain.User
	users    *domain.UserList
	channels map[string]realtime.Channel
	onJoin   func(event *domain.UserEvent)
	onLeft   func(event *domain.UserEvent)
}

func NewRelay(config rocketchat.Config, s storage.Storage, options ...realtime.Option) *Relay {
	options = append([]realtime.Option{
		realtime.WithVerbose(config.Verbose),
		realtime.WithCallbackWorkers(config.CallbackWorkers),
	}, options...)
	messages := queue.NewQueue[*domain.ChatMessage](queue.WithMaxProducers(1), queue.WithMaxConsumers(1))
	producer, _ := messages.NewProducer()
	consumer, _ := messages.NewConsumer()
	return &Relay{
		config:   config,
		client:   realtime.NewClient(options...),
		storage:  s,
		messages: messages,
		producer: producer,
		consumer: consumer,
		users:    domain.NewUserList(),
		channels: map[string]realtime.Channel{},
		onJoin:   func(*domain.UserEvent) {},
		onLeft:   func(*domain.UserEvent) {},
	}
}

func (r *Relay) Connect(ctx context.Context, nick string) (*domain.User, *domain.UserList, error) {
	if err := r.client.Connect(ctx, r.config.Address); err != nil {
		return nil, nil, err
	}
	go func() {
		<-r.client.Done()
		r.messages.Close()
	}()
	username := r.config.Username
	if username == "" {
		username = nick
	}
	session, err := r.login(ctx, username)
	if err != nil {
		_ = r.client.Close()
		return nil, nil, err
	}
	botUser := domain.NewUser(username, session.UserID, domain.RegularUser)
	r.mu.Lock()
	r.botUser = botUser
	r.mu.Unlock()
	channels, err := r.client.GetChannels(ctx)
	if err != nil {
		_ = r.client.Close()
		return nil, nil, fmt.Errorf("list rooms: %w", err)
	}
	for _, channel := range channels {
		if !r.config.Watches(channel.ID, channel.Name) {
			continue
		}
		if err := r.watch(ctx, channel); err != nil {
			_ = r.client.Close()
			return nil, nil, err
		}
	}
	if _, err := r.client.SubscribeToChannelChanges(ctx, r.onRoomChange); err != nil {
		_ = r.client.Close()
		return nil, nil, err
	}
	return botUser, r.users, nil
}

// login resumes the stored session if there is one, then falls back to the
// configured token and finally to the password.
func (r *Relay) login(ctx context.Context, username string) (*realtime.Session, error) {
	var saved savedSession
	err := r.storage.Load(ctx, &saved)
	switch {
	case err == nil && saved.Token != "":
		session, err := r.client.Reauthenticate(ctx, saved.Token)
		if err == nil {
			return session, nil
		}
		var authErr *realtime.AuthenticationError
		if !errors.As(err, &authErr) {
			return nil, err
		}
		log.Println("stored session rejected:", err)
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		log.Println("couldn't load session:", err)
	}
	var session *realtime.Session
	if r.config.Password == "" {
		session, err = r.client.Reauthenticate(ctx, r.config.Token)
	} else {
		session, err = r.client.Authenticate(ctx, username, r.config.Password)
	}
	if err != nil {
		return nil, err
	}
	if err := r.storage.Save(ctx, savedSession{UserID: session.UserID, Token: session.Token}); err != nil {
		log.Println("couldn't save session:", err)
	}
	return session, nil
}

func (r *Relay) watch(ctx context.Context, channel realtime.Channel) error {
	r.mu.Lock()
	if _, ok := r.channels[channel.ID]; ok {
		r.mu.Unlock()
		return nil
	}
	r.channels[channel.ID] = channel
	r.mu.Unlock()
	members, err := r.client.GetUsersOfRoom(ctx, channel.ID)
	if err != nil {
		log.Printf("couldn't list users of %s: %v\n", channel.ID, err)
	}
	for _, member := range members {
		r.users.Add(domain.NewUser(member.Username, member.ID, domain.RegularUser))
	}
	if _, err := r.client.SubscribeToChannelMessages(ctx, channel.ID, func(message *realtime.RoomMessage) {
		r.onRoomMessage(channel, message)
	}); err != nil {
		r.mu.Lock()
		delete(r.channels, channel.ID)
		r.mu.Unlock()
		return fmt.Errorf("subscribe to %s: %w", channel.ID, err)
	}
	return nil
}

func (r *Relay) onRoomChange(change *realtime.RoomChange) {
	if change.Action != "inserted" || !r.config.Watches(change.ChannelID, change.Name) {
		return
	}
	channel := realtime.Channel{ID: change.ChannelID, Type: change.ChannelType, Name: change.Name}
	// watch waits for replies, which the receive loop may be busy delivering this event
	go func() {
		if err := r.watch(context.Background(), channel); err != nil {
			log.Println(err)
		}
	}()
}

func (r *Relay) onRoomMessage(channel realtime.Channel, message *realtime.RoomMessage) {
	sender := domain.NewUser(message.Sender.Username, message.Sender.ID, domain.RegularUser)
	switch message.Qualifier {
	case "":
	case realtime.UserJoined, realtime.UserAdded:
		user := sender
		if message.Qualifier == realtime.UserAdded {
			user = domain.NewUser(message.Text, "", domain.RegularUser)
		}
		r.users.Add(user)
		r.userEvent().join(domain.NewUserEvent(user, domain.UserJoined, channel.ID, message.Timestamp))
		return
	case realtime.UserLeft, realtime.UserRemoved:
		user := sender
		if message.Qualifier == realtime.UserRemoved {
			user = domain.NewUser(message.Text, "", domain.RegularUser)
		}
		r.users.Remove(user)
		r.userEvent().left(domain.NewUserEvent(user, domain.UserLeft, channel.ID, message.Timestamp))
		return
	default:
		return
	}
	var mentions []*domain.User
	for _, mention := range message.Mentions {
		mentions = append(mentions, domain.NewUser(mention.Username, mention.ID, domain.RegularUser))
	}
	r.mu.Lock()
	incoming := !sender.Is(r.botUser)
	r.mu.Unlock()
	chatMessage := domain.NewChatMessage(
		message.ID,
		message.Text,
		sender,
		message.ChannelID,
		message.ThreadID,
		mentions,
		channel.Type == realtime.DirectMessage,
		incoming,
		message.Timestamp,
	)
	if err := r.producer.Produce(chatMessage); err != nil && !errors.Is(err, queue.ErrClosed) {
		log.Println(err)
	}
}

type userCallbacks struct {
	join func(event *domain.UserEvent)
	left func(event *domain.UserEvent)
}

func (r *Relay) userEvent() userCallbacks {
	r.mu.Lock()
	defer r.mu.Unlock()
	return userCallbacks{join: r.onJoin, left: r.onLeft}
}

// Recv returns the next chat message. Once the connection is gone it returns
// the reason.
func (r *Relay) Recv(ctx context.Context) (*domain.ChatMessage, error) {
	message, err := r.consumer.Consume(ctx)
	if errors.Is(err, queue.ErrClosed) {
		if cerr := r.client.Err(); cerr != nil {
			return nil, cerr
		}
	}
	return message, err
}

func (r *Relay) Send(ctx context.Context, message *domain.ClientMessage) error {
	_, err := r.client.SendThreadMessage(ctx, message.Channel(), message.Thread(), message.Message())
	return err
}

func (r *Relay) OnUserJoin(f func(event *domain.UserEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onJoin = f
}

func (r *Relay) OnUserLeft(f func(event *domain.UserEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onLeft = f
}

func (r *Relay) Done() <-chan struct{} {
	return r.client.Done()
}

func (r *Relay) Err() error {
	return r.client.Err()
}

func (r *Relay) Close() error {
	r.messages.Close()
	err := r.client.Close()
	if serr := r.storage.Close(); err == nil {
		err = serr
	}
	return err
}
