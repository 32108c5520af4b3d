// Package start provides the start command.
package start

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/servicecontainer/internal/cmdutil"
	"github.com/leefowlercu/servicecontainer/internal/node"
)

var startManifest string

// StartCmd runs a node in the foreground.
var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the services declared in a manifest",
	Long: "Run the services declared in a manifest in the foreground.\n\n" +
		"The node installs every declared service, restarts failed services whose restart " +
		"policy is on_failure, and serves /healthz, /readyz, /services and /metrics on the " +
		"admin address. The manifest is reconciled again when it changes or on SIGHUP. " +
		"SIGINT or SIGTERM stops every service, dependents first.",
	Example: `  # Run the configured manifest
  servicecontainer start

  # Run a specific manifest
  servicecontainer start --manifest ./node.yaml`,
	PreRunE: validateStart,
	RunE:    runStart,
}

func init() {
	StartCmd.Flags().StringVarP(&startManifest, "manifest", "m", "", "Manifest file (overrides node.manifest_path)")
}

func validateStart(cmd *cobra.Command, args []string) error {
	if startManifest != "" {
		if _, err := os.Stat(startManifest); err != nil {
			return fmt.Errorf("manifest not found; %w", err)
		}
	}

	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	rt := cmdutil.CurrentRuntime()
	cfg := *rt.Config

	if startManifest != "" {
		path, err := cmdutil.ResolvePath(startManifest)
		if err != nil {
			return fmt.Errorf("failed to resolve manifest path; %w", err)
		}
		cfg.Node.ManifestPath = path
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := rt.Logs.Logger()
	logger.Info("starting node",
		"manifest", cfg.Node.ManifestPath,
		"http_bind", cfg.Daemon.HTTPBind,
		"http_port", cfg.Daemon.HTTPPort,
	)

	n := node.New(&cfg,
		node.WithLogger(logger),
		node.WithLogManager(rt.Logs),
		node.WithConfigPath(rt.ConfigPath),
	)

	return n.Run(ctx)
}
