package connection

import (
	"context"
	"fmt"

	"github.com/raf924/rocketchat/pkg/config/connector"
	"github.com/raf924/rocketchat/pkg/domain"
)

var connectionRelays = map[string]RelayBuilder{}

type RelayBuilder func(config interface{}) (Relay, error)

func RegisterConnectionRelay(key string, relayBuilder RelayBuilder) {
	connectionRelays[key] = relayBuilder
}

// GetConnectionRelay builds the relay named by the first known key of config.Connection.
func GetConnectionRelay(config connector.Config) (Relay, error) {
	for key, relayConfig := range config.Connection {
		if builder, ok := connectionRelays[key]; ok {
			return builder(relayConfig)
		}
	}
	return nil, fmt.Errorf("no known relay in connection config")
}

// Relay connects a chat service to a connector.
type Relay interface {
	// Connect logs in as nick and returns the bot's user and the users it can see.
	Connect(ctx context.Context, nick string) (*domain.User, *domain.UserList, error)
	Recv(ctx context.Context) (*domain.ChatMessage, error)
	Send(ctx context.Context, message *domain.ClientMessage) error
	OnUserJoin(func(event *domain.UserEvent))
	OnUserLeft(func(event *domain.UserEvent))
	Done() <-chan struct{}
	Err() error
	Close() error
}
