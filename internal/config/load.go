// Package config loads the typed process configuration from a YAML file,
// environment variables prefixed with SERVICECONTAINER_, and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "SERVICECONTAINER"

// ConfigDirEnv names the environment variable selecting the config directory.
const ConfigDirEnv = EnvPrefix + "_CONFIG_DIR"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setViperDefaults(v)
	return v
}

// Load reads the configuration. Config files are searched in priority order:
//  1. the directory named by SERVICECONTAINER_CONFIG_DIR
//  2. ~/.config/servicecontainer/
//  3. the current working directory
//
// A missing config file is not an error; defaults and environment apply.
// The returned path is the file used, or empty.
func Load() (*Config, string, error) {
	v := newViper()
	v.SetConfigName("config")

	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		v.AddConfigPath(dir)
	}
	if dir := ConfigDir(); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("failed to read config; %w", err)
		}
	}

	cfg, err := unmarshalConfig(v)
	if err != nil {
		return nil, "", err
	}
	return cfg, v.ConfigFileUsed(), nil
}

// LoadFromPath reads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(ExpandHome(path))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config from %s; %w", path, err)
	}
	return unmarshalConfig(v)
}

// LoadWithDefaults returns the defaults with environment overrides applied.
func LoadWithDefaults() (*Config, error) {
	return unmarshalConfig(newViper())
}

func unmarshalConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config; %w", err)
	}

	cfg.LogFile = ExpandHome(cfg.LogFile)
	cfg.Node.ManifestPath = ExpandHome(cfg.Node.ManifestPath)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
