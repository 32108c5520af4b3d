package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Marshal renders cfg as YAML in the config file layout.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config; %w", err)
	}
	return data, nil
}
