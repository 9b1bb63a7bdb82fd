package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/raf924/rocketchat/pkg/command"
	"github.com/raf924/rocketchat/pkg/domain"
)

// UsersCommand lists the users the bot knows about.
type UsersCommand struct {
	command.NoOpCommand
	executor command.Executor
}

func (u *UsersCommand) Init(executor command.Executor) error {
	u.executor = executor
	return nil
}

func (u *UsersCommand) Name() string {
	return "users"
}

func (u *UsersCommand) Aliases() []string {
	return []string{"who"}
}

func (u *UsersCommand) Execute(command *domain.CommandMessage) ([]*domain.ClientMessage, error) {
	var nicks []string
	for _, user := range u.executor.OnlineUsers().All() {
		if user.Is(u.executor.BotUser()) {
			continue
		}
		nicks = append(nicks, user.Nick())
	}
	sort.Strings(nicks)
	message := fmt.Sprintf("%d users: %s", len(nicks), strings.Join(nicks, ", "))
	return []*domain.ClientMessage{domain.NewClientMessage(message, command.Channel(), command.Thread())}, nil
}

// Builtins returns a fresh instance of every builtin command.
func Builtins() []command.Command {
	return []command.Command{&EchoCommand{}, &UsersCommand{}}
}
