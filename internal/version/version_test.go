package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestGet_VersionFromEmbeddedFile(t *testing.T) {
	info := Get()
	if info.Version == "" {
		t.Fatal("Version is empty")
	}
	if info.Version != strings.TrimSpace(info.Version) {
		t.Errorf("Version = %q, contains surrounding whitespace", info.Version)
	}
	if strings.Count(info.Version, ".") < 2 {
		t.Errorf("Version = %q, expected semver", info.Version)
	}
	if info.GoVersion == "" {
		t.Error("GoVersion is empty")
	}
}

func TestInfo_String(t *testing.T) {
	info := Info{Version: "1.0.0", GitCommit: "abc1234", BuildDate: "2026-01-10T15:04:05Z", GoVersion: "go1.25.1"}
	want := "Version:    1.0.0\nGit Commit: abc1234\nBuild Date: 2026-01-10T15:04:05Z\nGo Version: go1.25.1"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := info.Short(); got != "servicecontainer 1.0.0 (abc1234)" {
		t.Errorf("Short() = %q", got)
	}
}

func TestCommit(t *testing.T) {
	tests := []struct {
		name     string
		settings []debug.BuildSetting
		ok       bool
		want     string
	}{
		{name: "no build info", ok: false, want: "unknown"},
		{name: "no revision", ok: true, want: "unknown"},
		{
			name:     "shortened",
			ok:       true,
			settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789abcdef"}},
			want:     "0123456",
		},
		{
			name: "dirty",
			ok:   true,
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
				{Key: "vcs.modified", Value: "true"},
			},
			want: "0123456-dirty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			read := func() (*debug.BuildInfo, bool) {
				return &debug.BuildInfo{Settings: tt.settings}, tt.ok
			}
			if got := commit(read); got != tt.want {
				t.Errorf("commit() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOrUnknown(t *testing.T) {
	if orUnknown("") != "unknown" {
		t.Error(`orUnknown("") should be "unknown"`)
	}
	if orUnknown("2026-01-10") != "2026-01-10" {
		t.Error("orUnknown should keep set values")
	}
}
