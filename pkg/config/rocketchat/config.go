package rocketchat

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	StorageNone = "none"
	StorageFile = "file"
	StorageEtcd = "etcd"
)

type StorageConfig struct {
	Type      string   `yaml:"type"`
	Location  string   `yaml:"location"`
	Endpoints []string `yaml:"endpoints"`
}

// Config is the rocketchat entry of a connector's connection map. Username
// defaults to the name of the connector.
type Config struct {
	Address         string        `yaml:"address"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	Token           string        `yaml:"token"`
	Verbose         bool          `yaml:"verbose"`
	CallbackWorkers int           `yaml:"callbackWorkers"`
	Rooms           []string      `yaml:"rooms"`
	Session         StorageConfig `yaml:"session"`
}

// Decode reads a Config from the generic value yaml.v2 produced for the connection map.
func Decode(raw interface{}) (Config, error) {
	config := Config{Session: StorageConfig{Type: StorageNone}}
	b, err := yaml.Marshal(raw)
	if err != nil {
		return config, err
	}
	if err := yaml.UnmarshalStrict(b, &config); err != nil {
		return config, fmt.Errorf("rocketchat config: %w", err)
	}
	return config, config.validate()
}

func (c Config) validate() error {
	if !strings.HasPrefix(c.Address, "ws://") && !strings.HasPrefix(c.Address, "wss://") {
		return fmt.Errorf("rocketchat config: address %q is not a websocket url", c.Address)
	}
	if c.Password == "" && c.Token == "" {
		return fmt.Errorf("rocketchat config: a password or a token is required")
	}
	switch c.Session.Type {
	case "", StorageNone:
	case StorageFile:
		if c.Session.Location == "" {
			return fmt.Errorf("rocketchat config: file session storage needs a location")
		}
	case StorageEtcd:
		if len(c.Session.Endpoints) == 0 {
			return fmt.Errorf("rocketchat config: etcd session storage needs endpoints")
		}
	default:
		return fmt.Errorf("rocketchat config: unknown session storage %q", c.Session.Type)
	}
	return nil
}

// Watches reports whether messages of a room should be relayed. Rooms may be
// listed by id or by name.
func (c Config) Watches(id string, name string) bool {
	if len(c.Rooms) == 0 {
		return true
	}
	for _, r := range c.Rooms {
		if r == id || (name != "" && r == name) {
			return true
		}
	}
	return false
}
