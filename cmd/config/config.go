// Package config provides the config parent command and subcommands.
package config

import (
	"github.com/spf13/cobra"

	"github.com/leefowlercu/servicecontainer/cmd/config/subcommands"
)

// ConfigCmd is the parent command for all config-related subcommands.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect servicecontainer configuration",
	Long: "Inspect servicecontainer configuration.\n\n" +
		"Configuration is read from config.yaml in $SERVICECONTAINER_CONFIG_DIR, " +
		"~/.config/servicecontainer or the current directory, and can be overridden " +
		"with SERVICECONTAINER_* environment variables.",
}

func init() {
	ConfigCmd.AddCommand(subcommands.ShowCmd)
	ConfigCmd.AddCommand(subcommands.ValidateCmd)
}
