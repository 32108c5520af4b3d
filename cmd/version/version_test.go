package version

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/leefowlercu/servicecontainer/internal/version"
)

func TestVersionCommand_Text(t *testing.T) {
	buf := new(bytes.Buffer)
	VersionCmd.SetOut(buf)
	versionJSON = false

	if err := runVersion(VersionCmd, nil); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("version output has %d lines, expected 4:\n%s", len(lines), buf.String())
	}
	for _, label := range []string{"Version:", "Git Commit:", "Build Date:", "Go Version:"} {
		if !strings.Contains(buf.String(), label) {
			t.Errorf("version output missing label %q", label)
		}
	}
}

func TestVersionCommand_JSON(t *testing.T) {
	buf := new(bytes.Buffer)
	VersionCmd.SetOut(buf)
	versionJSON = true
	t.Cleanup(func() { versionJSON = false })

	if err := runVersion(VersionCmd, nil); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	var info version.Info
	if err := json.Unmarshal(buf.Bytes(), &info); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if info.Version != version.Get().Version {
		t.Errorf("Version = %q, want %q", info.Version, version.Get().Version)
	}
}
