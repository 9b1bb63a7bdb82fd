package connector

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config is the configuration file of a connector. Connection holds a single
// entry whose key names the relay to use and whose value is that relay's own config.
type Config struct {
	Name       string                 `yaml:"name"`
	Connection map[string]interface{} `yaml:"connection"`
	Trigger    string                 `yaml:"trigger"`
	Commands   CommandConfig          `yaml:"commands"`
}

type CommandConfig struct {
	Disabled map[string]bool `yaml:"disabled"`
}

func Load(path string) (Config, error) {
	var config Config
	b, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}
	if err := yaml.UnmarshalStrict(b, &config); err != nil {
		return config, fmt.Errorf("parse %s: %w", path, err)
	}
	if config.Name == "" {
		return config, fmt.Errorf("%s: name is required", path)
	}
	if len(config.Connection) == 0 {
		return config, fmt.Errorf("%s: no connection configured", path)
	}
	return config, nil
}
