package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configcmd "github.com/leefowlercu/servicecontainer/cmd/config"
	"github.com/leefowlercu/servicecontainer/cmd/start"
	"github.com/leefowlercu/servicecontainer/cmd/validate"
	"github.com/leefowlercu/servicecontainer/cmd/version"
	"github.com/leefowlercu/servicecontainer/internal/cmdutil"
	"github.com/leefowlercu/servicecontainer/internal/config"
	"github.com/leefowlercu/servicecontainer/internal/logging"
)

// logManager is the global logging manager, created in init() and upgraded after config loads
var logManager *logging.Manager

var rootCmd = &cobra.Command{
	Use:   "servicecontainer",
	Short: "An in-process service lifecycle supervisor",
	Long: "Service Container boots, wires, and tears down in-process services.\n\n" +
		"Services declared in a manifest are started only once every dependency has started " +
		"and are stopped only once every dependent has stopped, regardless of the order in which " +
		"they are installed or removed. Failed services can be restarted with backoff, and the " +
		"manifest is reconciled again whenever it changes.\n\n",
	PersistentPreRunE: runInitialize,
}

func init() {
	// Bootstrap mode until config is known
	logManager = logging.NewManager()

	rootCmd.AddCommand(start.StartCmd)
	rootCmd.AddCommand(validate.ValidateCmd)
	rootCmd.AddCommand(configcmd.ConfigCmd)
	rootCmd.AddCommand(version.VersionCmd)
}

func runInitialize(cmd *cobra.Command, args []string) error {
	logger := logManager.Logger()

	cfg, path, err := config.Load()
	if err != nil {
		return err
	}

	level, ok := logging.ParseLevel(cfg.LogLevel)
	if !ok {
		level = logging.DefaultLevel
		logger.Warn("invalid log level configured, using default", "configured", cfg.LogLevel, "default", "info")
	}

	err = logManager.Upgrade(logging.FileOptions{
		Path:       cfg.LogFile,
		MaxSizeMB:  cfg.LogRotation.MaxSizeMB,
		MaxBackups: cfg.LogRotation.MaxBackups,
		MaxAgeDays: cfg.LogRotation.MaxAgeDays,
		Compress:   cfg.LogRotation.Compress,
	}, level)
	if err != nil {
		logger.Warn("failed to enable file logging, continuing with stderr only", "error", err)
	}

	cmdutil.SetRuntime(cmdutil.Runtime{
		Config:     cfg,
		ConfigPath: path,
		Logs:       logManager,
	})

	return nil
}

func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	defer func() { _ = logManager.Close() }()

	err := rootCmd.Execute()

	if err != nil {
		cmd, _, _ := rootCmd.Find(os.Args[1:])
		if cmd == nil {
			cmd = rootCmd
		}

		fmt.Printf("Error: %v\n", err)
		if !cmd.SilenceUsage {
			fmt.Printf("\n")
			cmd.SetOut(os.Stdout)
			_ = cmd.Usage()
		}

		return err
	}

	return nil
}
