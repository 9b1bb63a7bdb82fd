package domain

import (
	"google.golang.org/protobuf/types/known/timestamppb"
)

// ChatMessage is a message read from a room.
type ChatMessage struct {
	id        string
	message   string
	sender    *User
	channel   string
	thread    string
	mentions  []*User
	private   bool
	incoming  bool
	timestamp *timestamppb.Timestamp
}

func NewChatMessage(id string, message string, sender *User, channel string, thread string, mentions []*User, private bool, incoming bool, timestamp *timestamppb.Timestamp) *ChatMessage {
	return &ChatMessage{
		id:        id,
		message:   message,
		sender:    sender,
		channel:   channel,
		thread:    thread,
		mentions:  mentions,
		private:   private,
		incoming:  incoming,
		timestamp: timestamp,
	}
}

func (c *ChatMessage) Id() string {
	return c.id
}

func (c *ChatMessage) Message() string {
	return c.message
}

func (c *ChatMessage) Sender() *User {
	return c.sender
}

func (c *ChatMessage) Channel() string {
	return c.channel
}

func (c *ChatMessage) Thread() string {
	return c.thread
}

func (c *ChatMessage) Mentions() []*User {
	return c.mentions
}

// MentionsUser reports whether user is among the mentions.
func (c *ChatMessage) MentionsUser(user *User) bool {
	for _, mention := range c.mentions {
		if mention.Is(user) {
			return true
		}
	}
	return false
}

func (c *ChatMessage) Private() bool {
	return c.private
}

// Incoming is false for messages sent by the connected user itself.
func (c *ChatMessage) Incoming() bool {
	return c.incoming
}

func (c *ChatMessage) Timestamp() *timestamppb.Timestamp {
	return c.timestamp
}

// ClientMessage is a message to post. An empty thread posts to the room itself.
type ClientMessage struct {
	message string
	channel string
	thread  string
}

func NewClientMessage(message string, channel string, thread string) *ClientMessage {
	return &ClientMessage{message: message, channel: channel, thread: thread}
}

func (c *ClientMessage) Message() string {
	return c.message
}

func (c *ClientMessage) Channel() string {
	return c.channel
}

func (c *ClientMessage) Thread() string {
	return c.thread
}

// CommandMessage is a chat message that starts with the trigger and a known command.
type CommandMessage struct {
	*ChatMessage
	command   string
	args      []string
	argString string
}

func NewCommandMessage(command string, args []string, argString string, message *ChatMessage) *CommandMessage {
	return &CommandMessage{
		ChatMessage: message,
		command:     command,
		args:        args,
		argString:   argString,
	}
}

func (c *CommandMessage) Command() string {
	return c.command
}

func (c *CommandMessage) Args() []string {
	return c.args
}

func (c *CommandMessage) ArgString() string {
	return c.argString
}

func (c *CommandMessage) ToChatMessage() *ChatMessage {
	return c.ChatMessage
}

type UserEventType int

const (
	UserJoined UserEventType = iota
	UserLeft
)

type UserEvent struct {
	user      *User
	event     UserEventType
	channel   string
	timestamp *timestamppb.Timestamp
}

func NewUserEvent(user *User, event UserEventType, channel string, timestamp *timestamppb.Timestamp) *UserEvent {
	return &UserEvent{user: user, event: event, channel: channel, timestamp: timestamp}
}

func (u *UserEvent) User() *User {
	return u.user
}

func (u *UserEvent) Type() UserEventType {
	return u.event
}

func (u *UserEvent) Channel() string {
	return u.channel
}

func (u *UserEvent) Timestamp() *timestamppb.Timestamp {
	return u.timestamp
}
