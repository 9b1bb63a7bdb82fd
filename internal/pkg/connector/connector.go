package connector

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/raf924/rocketchat/pkg"
	"github.com/raf924/rocketchat/pkg/command"
	"github.com/raf924/rocketchat/pkg/config/connector"
	"github.com/raf924/rocketchat/pkg/domain"
	"github.com/raf924/rocketchat/pkg/queue"
	"github.com/raf924/rocketchat/pkg/relay/connection"
)

var _ pkg.Runnable = (*Connector)(nil)
var _ command.Executor = (*Connector)(nil)

const sendTimeout = 10 * time.Second

// Connector reads messages from a relay, runs the commands they trigger and
// sends the replies back.
type Connector struct {
	config     connector.Config
	relay      connection.Relay
	commands   []command.Command
	replies    *queue.Queue[*domain.ClientMessage]
	context    context.Context
	cancelFunc context.CancelCauseFunc

	mu      sync.Mutex
	botUser *domain.User
	users   *domain.UserList
}

func NewConnector(config connector.Config, relay connection.Relay, commands ...command.Command) *Connector {
	var enabled []command.Command
	for _, cmd := range commands {
		if config.Commands.Disabled[cmd.Name()] {
			log.Println("command", cmd.Name(), "disabled")
			continue
		}
		enabled = append(enabled, cmd)
	}
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Connector{
		config:     config,
		relay:      relay,
		commands:   enabled,
		replies:    queue.NewQueue[*domain.ClientMessage](queue.WithMaxConsumers(1)),
		context:    ctx,
		cancelFunc: cancel,
		users:      domain.NewUserList(),
	}
}

func (c *Connector) BotUser() *domain.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.botUser
}

func (c *Connector) Trigger() string {
	return c.config.Trigger
}

func (c *Connector) OnlineUsers() *domain.UserList {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.users
}

func (c *Connector) Done() <-chan struct{} {
	return c.context.Done()
}

// Err returns why the connector stopped.
func (c *Connector) Err() error {
	return context.Cause(c.context)
}

func (c *Connector) Start() error {
	if err := c.Err(); err != nil {
		return err
	}
	producer, err := c.replies.NewProducer()
	if err != nil {
		return err
	}
	consumer, err := c.replies.NewConsumer()
	if err != nil {
		return err
	}
	var initialized []command.Command
	for _, cmd := range c.commands {
		if err := cmd.Init(c); err != nil {
			log.Printf("couldn't init %s: %v\n", cmd.Name(), err)
			continue
		}
		initialized = append(initialized, cmd)
	}
	c.commands = initialized
	c.relay.OnUserJoin(func(event *domain.UserEvent) {
		c.passUserEvent(producer, event)
	})
	c.relay.OnUserLeft(func(event *domain.UserEvent) {
		c.passUserEvent(producer, event)
	})
	botUser, users, err := c.relay.Connect(c.context, c.config.Name)
	if err != nil {
		c.cancelFunc(err)
		return err
	}
	c.mu.Lock()
	c.botUser = botUser
	c.users = users
	c.mu.Unlock()
	go c.receive(producer)
	go c.send(consumer)
	go func() {
		<-c.context.Done()
		c.replies.Close()
		_ = c.relay.Close()
	}()
	return nil
}

// Stop closes the relay and ends both loops.
func (c *Connector) Stop() {
	c.cancelFunc(context.Canceled)
}

func (c *Connector) receive(producer *queue.Producer[*domain.ClientMessage]) {
	for {
		message, err := c.relay.Recv(c.context)
		if err != nil {
			c.cancelFunc(err)
			return
		}
		log.Printf("Message from %s: %s\n", message.Sender().Nick(), message.Message())
		c.produce(producer, c.dispatch(message))
	}
}

func (c *Connector) dispatch(message *domain.ChatMessage) []*domain.ClientMessage {
	name, args, argString, ok := command.Parse(c.Trigger(), message.Message())
	if ok {
		if cmd := command.Find(c.commands, name); cmd != nil {
			if !message.Incoming() && cmd.IgnoreSelf() {
				return nil
			}
			log.Println("Command", cmd.Name())
			replies, err := cmd.Execute(domain.NewCommandMessage(cmd.Name(), args, argString, message))
			if err != nil {
				log.Println("Command", cmd.Name(), "Execute error:", err)
			}
			return replies
		}
	}
	var replies []*domain.ClientMessage
	for _, cmd := range c.commands {
		if !message.Incoming() && cmd.IgnoreSelf() {
			continue
		}
		r, err := cmd.OnChat(message)
		if err != nil {
			log.Println("Command", cmd.Name(), "OnChat error:", err)
			continue
		}
		replies = append(replies, r...)
	}
	return replies
}

func (c *Connector) passUserEvent(producer *queue.Producer[*domain.ClientMessage], event *domain.UserEvent) {
	for _, cmd := range c.commands {
		replies, err := cmd.OnUserEvent(event)
		if err != nil {
			log.Println("Command", cmd.Name(), "OnUserEvent error:", err)
			continue
		}
		c.produce(producer, replies)
	}
}

func (c *Connector) produce(producer *queue.Producer[*domain.ClientMessage], replies []*domain.ClientMessage) {
	for _, reply := range replies {
		if reply == nil {
			continue
		}
		if err := producer.Produce(reply); err != nil && !errors.Is(err, queue.ErrClosed) {
			log.Println(err)
		}
	}
}

func (c *Connector) send(consumer *queue.Consumer[*domain.ClientMessage]) {
	for {
		reply, err := consumer.Consume(context.Background())
		if err != nil {
			return
		}
		ctx, cancel := context.WithTimeout(c.context, sendTimeout)
		err = c.relay.Send(ctx, reply)
		cancel()
		if err != nil {
			log.Println("couldn't send message:", err)
		}
	}
}
