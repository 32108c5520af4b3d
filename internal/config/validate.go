package config

import (
	"fmt"
	"strings"

	"github.com/leefowlercu/servicecontainer/internal/logging"
)

// ValidationError is a single invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid setting.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("config validation failed:\n")
	for _, err := range e {
		b.WriteString("  - ")
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

// Validate checks cfg and returns ValidationErrors describing every problem.
func Validate(cfg *Config) error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
		add("log_level", "must be one of debug, info, warn, error; got %q", cfg.LogLevel)
	}
	if cfg.LogRotation.MaxSizeMB < 0 {
		add("log_rotation.max_size_mb", "must not be negative, got %d", cfg.LogRotation.MaxSizeMB)
	}
	if cfg.LogRotation.MaxBackups < 0 {
		add("log_rotation.max_backups", "must not be negative, got %d", cfg.LogRotation.MaxBackups)
	}
	if cfg.LogRotation.MaxAgeDays < 0 {
		add("log_rotation.max_age_days", "must not be negative, got %d", cfg.LogRotation.MaxAgeDays)
	}

	if cfg.Container.CloseTimeout < 1 {
		add("container.close_timeout", "must be at least 1 second, got %d", cfg.Container.CloseTimeout)
	}
	if cfg.Container.SchedulerWorkers < 0 {
		add("container.scheduler_workers", "must not be negative, got %d", cfg.Container.SchedulerWorkers)
	}

	if cfg.Node.ManifestPath == "" {
		add("node.manifest_path", "must not be empty")
	}
	if cfg.Node.ReloadIntervalMs < 0 {
		add("node.reload_interval_ms", "must not be negative, got %d", cfg.Node.ReloadIntervalMs)
	}
	if cfg.Node.Restart.MinBackoffMs < 1 {
		add("node.restart.min_backoff_ms", "must be at least 1, got %d", cfg.Node.Restart.MinBackoffMs)
	}
	if cfg.Node.Restart.MaxBackoffMs < cfg.Node.Restart.MinBackoffMs {
		add("node.restart.max_backoff_ms", "must be at least min_backoff_ms (%d), got %d",
			cfg.Node.Restart.MinBackoffMs, cfg.Node.Restart.MaxBackoffMs)
	}

	if cfg.Daemon.HTTPBind == "" {
		add("daemon.http_bind", "must not be empty")
	}
	if cfg.Daemon.HTTPPort < 0 || cfg.Daemon.HTTPPort > 65535 {
		add("daemon.http_port", "must be between 0 and 65535, got %d", cfg.Daemon.HTTPPort)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
