package subcommands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/servicecontainer/internal/cmdutil"
	"github.com/leefowlercu/servicecontainer/internal/config"
)

var (
	showRaw bool
)

// ShowCmd displays the current configuration.
var ShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the current configuration",
	Long: "Display the current configuration.\n\n" +
		"Shows the effective configuration with defaults and environment overrides " +
		"applied. Use --raw to print the config file as written.",
	Example: `  # Show effective configuration
  servicecontainer config show

  # Show the config file as written
  servicecontainer config show --raw`,
	PreRunE: validateShow,
	RunE:    runShow,
}

func init() {
	ShowCmd.Flags().BoolVar(&showRaw, "raw", false, "Show the config file instead of the effective configuration")
}

func validateShow(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	rt := cmdutil.CurrentRuntime()
	if showRaw {
		return showRawConfig(cmd, rt.ConfigPath)
	}
	return showEffectiveConfig(cmd, rt.Config)
}

func showRawConfig(cmd *cobra.Command, path string) error {
	out := cmd.OutOrStdout()
	if path == "" {
		fmt.Fprintln(out, "# No configuration file found")
		fmt.Fprintf(out, "# Default location: %s\n", config.DefaultConfigPath())
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file; %w", err)
	}

	fmt.Fprintf(out, "# Configuration file: %s\n", path)
	fmt.Fprintln(out, string(data))
	return nil
}

func showEffectiveConfig(cmd *cobra.Command, cfg *config.Config) error {
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "# Effective configuration (with defaults)")
	fmt.Fprint(out, string(data))
	return nil
}
