package connector

import (
	"github.com/raf924/rocketchat/internal/pkg/commands"
	"github.com/raf924/rocketchat/internal/pkg/connector"
	_ "github.com/raf924/rocketchat/internal/pkg/rocketchat"
	"github.com/raf924/rocketchat/pkg"
	"github.com/raf924/rocketchat/pkg/command"
	cnf "github.com/raf924/rocketchat/pkg/config/connector"
	connectionRelay "github.com/raf924/rocketchat/pkg/relay/connection"
)

// NewConnector builds a connector for the relay named in config, running the
// builtin commands followed by extra.
func NewConnector(config cnf.Config, extra ...command.Command) (pkg.Runnable, error) {
	relay, err := connectionRelay.GetConnectionRelay(config)
	if err != nil {
		return nil, err
	}
	return connector.NewConnector(config, relay, append(commands.Builtins(), extra...)...), nil
}
