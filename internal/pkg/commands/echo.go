package commands

import (
	"strings"

	"github.com/raf924/rocketchat/pkg/command"
	"github.com/raf924/rocketchat/pkg/domain"
)

type EchoCommand struct {
	command.NoOpCommand
}

func (e *EchoCommand) Name() string {
	return "echo"
}

func (e *EchoCommand) Aliases() []string {
	return []string{"e"}
}

func (e *EchoCommand) Execute(command *domain.CommandMessage) ([]*domain.ClientMessage, error) {
	if len(command.Args()) == 0 {
		return nil, nil
	}
	return []*domain.ClientMessage{
		domain.NewClientMessage(strings.Join(command.Args(), " "), command.Channel(), command.Thread()),
	}, nil
}
