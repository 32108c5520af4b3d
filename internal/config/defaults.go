package config

import "github.com/spf13/viper"

// Default configuration values.
const (
	DefaultLogLevel = "info"
	DefaultLogFile  = "~/.config/servicecontainer/servicecontainer.log"

	DefaultLogMaxSizeMB  = 50
	DefaultLogMaxBackups = 5
	DefaultLogMaxAgeDays = 28
	DefaultLogCompress   = true

	DefaultContainerCloseTimeout     = 30 // seconds
	DefaultContainerSchedulerWorkers = 0  // runtime.NumCPU()

	DefaultNodeManifestPath     = "~/.config/servicecontainer/manifest.yaml"
	DefaultNodeWatchManifest    = true
	DefaultNodeReloadIntervalMs = 500
	DefaultNodeMinBackoffMs     = 1000
	DefaultNodeMaxBackoffMs     = 30000

	DefaultDaemonHTTPBind       = "127.0.0.1"
	DefaultDaemonHTTPPort       = 7700
	DefaultDaemonMetricsEnabled = true
	DefaultDaemonSystemdNotify  = true
)

// NewDefaultConfig returns a Config populated with defaults.
func NewDefaultConfig() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		LogFile:  DefaultLogFile,
		LogRotation: LogRotationConfig{
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   DefaultLogCompress,
		},
		Container: ContainerConfig{
			CloseTimeout:     DefaultContainerCloseTimeout,
			SchedulerWorkers: DefaultContainerSchedulerWorkers,
		},
		Node: NodeConfig{
			ManifestPath:     DefaultNodeManifestPath,
			WatchManifest:    DefaultNodeWatchManifest,
			ReloadIntervalMs: DefaultNodeReloadIntervalMs,
			Restart: RestartConfig{
				MinBackoffMs: DefaultNodeMinBackoffMs,
				MaxBackoffMs: DefaultNodeMaxBackoffMs,
			},
		},
		Daemon: DaemonConfig{
			HTTPBind:       DefaultDaemonHTTPBind,
			HTTPPort:       DefaultDaemonHTTPPort,
			MetricsEnabled: DefaultDaemonMetricsEnabled,
			SystemdNotify:  DefaultDaemonSystemdNotify,
		},
	}
}

// setViperDefaults registers every default with v so that environment
// variables can override keys absent from the config file.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_file", DefaultLogFile)

	v.SetDefault("log_rotation.max_size_mb", DefaultLogMaxSizeMB)
	v.SetDefault("log_rotation.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log_rotation.max_age_days", DefaultLogMaxAgeDays)
	v.SetDefault("log_rotation.compress", DefaultLogCompress)

	v.SetDefault("container.close_timeout", DefaultContainerCloseTimeout)
	v.SetDefault("container.scheduler_workers", DefaultContainerSchedulerWorkers)

	v.SetDefault("node.manifest_path", DefaultNodeManifestPath)
	v.SetDefault("node.watch_manifest", DefaultNodeWatchManifest)
	v.SetDefault("node.reload_interval_ms", DefaultNodeReloadIntervalMs)
	v.SetDefault("node.restart.min_backoff_ms", DefaultNodeMinBackoffMs)
	v.SetDefault("node.restart.max_backoff_ms", DefaultNodeMaxBackoffMs)

	v.SetDefault("daemon.http_bind", DefaultDaemonHTTPBind)
	v.SetDefault("daemon.http_port", DefaultDaemonHTTPPort)
	v.SetDefault("daemon.metrics_enabled", DefaultDaemonMetricsEnabled)
	v.SetDefault("daemon.systemd_notify", DefaultDaemonSystemdNotify)
}
