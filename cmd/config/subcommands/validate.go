package subcommands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/servicecontainer/internal/config"
)

// ValidateCmd validates a configuration file.
var ValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate the configuration",
	Long: "Validate the configuration.\n\n" +
		"Checks the configuration file for syntax errors and validates that all " +
		"settings have valid values. Without a path the default search locations " +
		"are used. Returns exit code 0 if valid, 1 if invalid.",
	Example: `  # Validate the configuration in use
  servicecontainer config validate

  # Validate a specific file
  servicecontainer config validate ./config.yaml`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: validateValidate,
	RunE:    runValidate,
}

func validateValidate(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		if _, err := config.LoadFromPath(args[0]); err != nil {
			fmt.Fprintln(out, "Configuration validation failed:")
			fmt.Fprintf(out, "  %v\n", err)
			return fmt.Errorf("configuration is invalid")
		}
		fmt.Fprintf(out, "Configuration is valid: %s\n", args[0])
		return nil
	}

	_, path, err := config.Load()
	if err != nil {
		fmt.Fprintln(out, "Configuration validation failed:")
		fmt.Fprintf(out, "  %v\n", err)
		return fmt.Errorf("configuration is invalid")
	}

	if path == "" {
		fmt.Fprintf(out, "No configuration file found at %s\n", config.DefaultConfigPath())
		fmt.Fprintln(out, "Using default configuration values.")
		return nil
	}

	fmt.Fprintf(out, "Configuration is valid: %s\n", path)
	return nil
}
