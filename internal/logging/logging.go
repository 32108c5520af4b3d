// Package logging owns the process logger. It starts in bootstrap mode
// (text on stderr) and is upgraded once configuration is known to fan out to
// stderr and a rotated JSON log file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions describes the rotated JSON log file.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Manager handles the bootstrap-to-full transition of the process logger.
// Loggers obtained from Logger, including ones derived with With, follow
// every later Upgrade.
type Manager struct {
	handler *SwappableHandler
	logger  *slog.Logger
	level   *slog.LevelVar
	stderr  io.Writer
	file    *lumberjack.Logger
	mu      sync.Mutex
}

// NewManager creates a manager in bootstrap mode.
func NewManager() *Manager {
	return newManager(os.Stderr)
}

func newManager(stderr io.Writer) *Manager {
	level := new(slog.LevelVar)
	level.Set(DefaultLevel)

	handler := NewSwappableHandler(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	return &Manager{
		handler: handler,
		logger:  slog.New(handler),
		level:   level,
		stderr:  stderr,
	}
}

// Logger returns the process logger. The instance is stable across upgrades.
func (m *Manager) Logger() *slog.Logger {
	return m.logger
}

// Upgrade switches to full mode: text on stderr plus JSON into a rotated
// file. An empty path keeps stderr only and just applies level.
func (m *Manager) Upgrade(file FileOptions, level slog.Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.level.Set(level)
	opts := &slog.HandlerOptions{Level: m.level}

	if file.Path == "" {
		m.handler.Swap(slog.NewTextHandler(m.stderr, opts))
		return nil
	}

	dir := filepath.Dir(file.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory %q; %w", dir, err)
	}
	f, err := os.OpenFile(file.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %q; %w", file.Path, err)
	}
	_ = f.Close()

	if m.file != nil {
		_ = m.file.Close()
	}
	m.file = &lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    file.MaxSizeMB,
		MaxBackups: file.MaxBackups,
		MaxAge:     file.MaxAgeDays,
		Compress:   file.Compress,
	}

	m.handler.Swap(slogmulti.Fanout(
		slog.NewTextHandler(m.stderr, opts),
		slog.NewJSONHandler(m.file, opts),
	))
	return nil
}

// SetLevel changes the level at runtime.
func (m *Manager) SetLevel(level slog.Level) {
	m.level.Set(level)
}

// Level returns the active level.
func (m *Manager) Level() slog.Level {
	return m.level.Level()
}

// Close releases the log file. The logger keeps working on stderr.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		return nil
	}
	m.handler.Swap(slog.NewTextHandler(m.stderr, &slog.HandlerOptions{Level: m.level}))
	err := m.file.Close()
	m.file = nil
	return err
}
