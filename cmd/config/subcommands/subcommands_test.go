package subcommands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leefowlercu/servicecontainer/internal/cmdutil"
	"github.com/leefowlercu/servicecontainer/internal/config"
)

func TestShowCommand_EffectiveConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Daemon.HTTPPort = 9123
	cmdutil.SetRuntime(cmdutil.Runtime{Config: &cfg})
	t.Cleanup(func() { cmdutil.SetRuntime(cmdutil.Runtime{}) })

	buf := new(bytes.Buffer)
	ShowCmd.SetOut(buf)
	showRaw = false

	if err := runShow(ShowCmd, nil); err != nil {
		t.Fatalf("show failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "http_port: 9123") {
		t.Errorf("output missing configured port:\n%s", out)
	}
	if !strings.Contains(out, "close_timeout: 30") {
		t.Errorf("output missing default close timeout:\n%s", out)
	}
}

func TestShowCommand_RawWithoutFile(t *testing.T) {
	cmdutil.SetRuntime(cmdutil.Runtime{})
	t.Cleanup(func() { showRaw = false })

	buf := new(bytes.Buffer)
	ShowCmd.SetOut(buf)
	showRaw = true

	if err := runShow(ShowCmd, nil); err != nil {
		t.Fatalf("show --raw failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No configuration file found") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.yaml")
	if err := os.WriteFile(valid, []byte("log_level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("log_level: loud\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	buf := new(bytes.Buffer)
	ValidateCmd.SetOut(buf)

	if err := runValidate(ValidateCmd, []string{valid}); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
	if err := runValidate(ValidateCmd, []string{invalid}); err == nil {
		t.Error("invalid config accepted")
	}
	if !strings.Contains(buf.String(), "Configuration validation failed") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}
