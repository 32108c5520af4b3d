package cmdutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leefowlercu/servicecontainer/internal/config"
)

func TestResolvePath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	got, err := ResolvePath("~/manifests/node.yaml")
	if err != nil {
		t.Fatalf("ResolvePath() error = %v", err)
	}
	if want := filepath.Join(home, "manifests", "node.yaml"); got != want {
		t.Errorf("ResolvePath() = %q, want %q", got, want)
	}

	got, err = ResolvePath("")
	if err != nil || got != "" {
		t.Errorf("ResolvePath(\"\") = %q, %v; want empty", got, err)
	}

	got, err = ResolvePath("a/../b.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(got) || filepath.Base(got) != "b.yaml" {
		t.Errorf("ResolvePath() = %q, want absolute path to b.yaml", got)
	}
}

func TestCurrentRuntime_DefaultsWhenUnset(t *testing.T) {
	SetRuntime(Runtime{})

	rt := CurrentRuntime()
	if rt.Config == nil {
		t.Fatal("expected default config")
	}
	if rt.Config.Daemon.HTTPPort != config.DefaultDaemonHTTPPort {
		t.Errorf("HTTPPort = %d, want %d", rt.Config.Daemon.HTTPPort, config.DefaultDaemonHTTPPort)
	}
	if rt.Logs == nil {
		t.Error("expected a log manager")
	}
}
