package command

import (
	"github.com/raf924/rocketchat/pkg/domain"
)

// Executor gives commands access to the state of the connector running them.
type Executor interface {
	BotUser() *domain.User
	Trigger() string
	OnlineUsers() *domain.UserList
}

// A Command can either be triggered by its Name or Aliases with arguments or by chat events.
type Command interface {
	// Init is called once the connection is up, before any message is passed.
	Init(executor Executor) error
	// Name must be unique among the commands of a connector.
	Name() string
	// Aliases are alternative names, excluding Name.
	Aliases() []string
	Execute(command *domain.CommandMessage) ([]*domain.ClientMessage, error)
	OnChat(message *domain.ChatMessage) ([]*domain.ClientMessage, error)
	OnUserEvent(event *domain.UserEvent) ([]*domain.ClientMessage, error)
	// IgnoreSelf keeps messages sent by the bot itself away from the command.
	IgnoreSelf() bool
}

// Commands should embed NoOpCommand so they only need to implement Name and Execute.
type NoOpCommand struct {
}

func (n *NoOpCommand) Init(executor Executor) error {
	return nil
}

func (n *NoOpCommand) Aliases() []string {
	return []string{}
}

func (n *NoOpCommand) OnChat(message *domain.ChatMessage) ([]*domain.ClientMessage, error) {
	return nil, nil
}

func (n *NoOpCommand) OnUserEvent(event *domain.UserEvent) ([]*domain.ClientMessage, error) {
	return nil, nil
}

func (n *NoOpCommand) IgnoreSelf() bool {
	return true
}
