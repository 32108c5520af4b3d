// Package validate provides the validate command.
package validate

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/servicecontainer/internal/cmdutil"
	"github.com/leefowlercu/servicecontainer/internal/manifest"
	"github.com/leefowlercu/servicecontainer/internal/services"
)

// ValidateCmd validates a manifest and prints its services in start order.
var ValidateCmd = &cobra.Command{
	Use:   "validate <manifest>",
	Short: "Validate a manifest",
	Long: "Validate a manifest.\n\n" +
		"Parses a YAML or TOML manifest, checks that every service has a unique name, a " +
		"known kind and only declared dependencies, and prints the services in the order " +
		"their dependencies allow them to start.",
	Example: `  # Validate a manifest
  servicecontainer validate ./node.yaml`,
	Args:    cobra.ExactArgs(1),
	PreRunE: validateValidate,
	RunE:    runValidate,
}

func validateValidate(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	path, err := cmdutil.ResolvePath(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve manifest path; %w", err)
	}

	m, err := manifest.LoadAndValidate(path, services.DefaultRegistry().Has)
	if err != nil {
		return err
	}

	ordered, err := m.Order()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Manifest is valid: %s\n", path)
	for i, e := range ordered {
		line := fmt.Sprintf("%3d. %s (%s)", i+1, e.Identity(), e.Kind)
		if len(e.Dependencies) > 0 {
			line += " after " + strings.Join(e.Dependencies, ", ")
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
