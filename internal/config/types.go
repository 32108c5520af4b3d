package config

// Config is the root configuration structure.
type Config struct {
	LogLevel    string            `yaml:"log_level" mapstructure:"log_level"`
	LogFile     string            `yaml:"log_file" mapstructure:"log_file"`
	LogRotation LogRotationConfig `yaml:"log_rotation" mapstructure:"log_rotation"`
	Container   ContainerConfig   `yaml:"container" mapstructure:"container"`
	Node        NodeConfig        `yaml:"node" mapstructure:"node"`
	Daemon      DaemonConfig      `yaml:"daemon" mapstructure:"daemon"`
}

// LogRotationConfig controls rotation of the JSON log file.
type LogRotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// ContainerConfig holds service container settings.
type ContainerConfig struct {
	CloseTimeout     int `yaml:"close_timeout" mapstructure:"close_timeout"` // seconds
	SchedulerWorkers int `yaml:"scheduler_workers" mapstructure:"scheduler_workers"`
}

// NodeConfig holds settings of the node runtime that drives the container
// from a manifest.
type NodeConfig struct {
	ManifestPath     string        `yaml:"manifest_path" mapstructure:"manifest_path"`
	WatchManifest    bool          `yaml:"watch_manifest" mapstructure:"watch_manifest"`
	ReloadIntervalMs int           `yaml:"reload_interval_ms" mapstructure:"reload_interval_ms"`
	Restart          RestartConfig `yaml:"restart" mapstructure:"restart"`
}

// RestartConfig bounds the exponential backoff between restarts of failed
// services.
type RestartConfig struct {
	MinBackoffMs int `yaml:"min_backoff_ms" mapstructure:"min_backoff_ms"`
	MaxBackoffMs int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// DaemonConfig holds the admin HTTP server and service manager settings.
type DaemonConfig struct {
	HTTPBind       string `yaml:"http_bind" mapstructure:"http_bind"`
	HTTPPort       int    `yaml:"http_port" mapstructure:"http_port"`
	MetricsEnabled bool   `yaml:"metrics_enabled" mapstructure:"metrics_enabled"`
	SystemdNotify  bool   `yaml:"systemd_notify" mapstructure:"systemd_notify"`
}
