package config

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// ReloadFunc receives the result of a SIGHUP-triggered reload.
type ReloadFunc func(cfg *Config, err error)

// NotifyReload reloads the configuration on every SIGHUP until ctx is done.
// The reload reads path when set and the default search path otherwise. A
// failed reload is reported to fn with a nil Config; callers keep the
// previous configuration. NotifyReload blocks until ctx is done.
func NotifyReload(ctx context.Context, path string, fn ReloadFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP)
	defer signal.Stop(signals)

	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			slog.Info("received SIGHUP; reloading config")
			fn(reload(path))
		}
	}
}

func reload(path string) (*Config, error) {
	if path != "" {
		return LoadFromPath(path)
	}
	cfg, _, err := Load()
	return cfg, err
}
