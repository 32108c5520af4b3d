package node

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

const defaultReloadInterval = time.Second

// ManifestWatcher calls a reload function when the manifest file changes.
// Editors often replace files instead of writing them in place, so the
// directory is watched and events are filtered by file name. Bursts of events
// are collapsed and reloads are rate limited.
type ManifestWatcher struct {
	path     string
	reload   func(ctx context.Context)
	limiter  *rate.Limiter
	logger   *slog.Logger
	interval time.Duration
}

// WatcherOption configures the ManifestWatcher.
type WatcherOption func(*ManifestWatcher)

// WithReloadInterval sets the minimum time between reloads.
func WithReloadInterval(d time.Duration) WatcherOption {
	return func(w *ManifestWatcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatcherLogger sets the logger for the watcher.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *ManifestWatcher) {
		w.logger = l
	}
}

// NewManifestWatcher creates a watcher for the manifest at path.
func NewManifestWatcher(path string, reload func(ctx context.Context), opts ...WatcherOption) *ManifestWatcher {
	w := &ManifestWatcher{
		path:     path,
		reload:   reload,
		logger:   slog.Default(),
		interval: defaultReloadInterval,
	}

	for _, opt := range opts {
		opt(w)
	}

	w.limiter = rate.NewLimiter(rate.Every(w.interval), 1)
	return w
}

// Run watches until ctx is done.
func (w *ManifestWatcher) Run(ctx context.Context) error {
	absPath, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("failed to resolve manifest path; %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher; %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to watch manifest directory; %w", err)
	}

	w.logger.Info("watching manifest", "path", absPath)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(absPath, ev) {
				continue
			}
			if err := w.limiter.Wait(ctx); err != nil {
				return nil
			}
			w.drain(fsw)
			w.logger.Debug("manifest changed", "path", absPath, "op", ev.Op.String())
			w.reload(ctx)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("manifest watcher error", "error", err)
		}
	}
}

func (w *ManifestWatcher) relevant(path string, ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// drain discards events queued while waiting for the limiter; the reload
// that follows reads the latest file contents anyway.
func (w *ManifestWatcher) drain(fsw *fsnotify.Watcher) {
	for {
		select {
		case <-fsw.Events:
		default:
			return
		}
	}
}
