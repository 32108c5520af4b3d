// Package version reports the build identity of the servicecontainer binary.
package version

import (
	_ "embed"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

//go:embed VERSION
var versionFile string

// Set with -ldflags "-X github.com/leefowlercu/servicecontainer/internal/version.gitCommit=VALUE".
var (
	gitCommit string
	buildDate string
)

const unknown = "unknown"

// Info is the build identity.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// String formats Info as aligned "Label: value" lines.
func (i Info) String() string {
	return fmt.Sprintf("Version:    %s\nGit Commit: %s\nBuild Date: %s\nGo Version: %s",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion)
}

// Short returns "servicecontainer <version> (<commit>)".
func (i Info) Short() string {
	return fmt.Sprintf("servicecontainer %s (%s)", i.Version, i.GitCommit)
}

// Get returns the build identity of the running binary.
func Get() Info {
	return Info{
		Version:   strings.TrimSpace(versionFile),
		GitCommit: commit(debug.ReadBuildInfo),
		BuildDate: orUnknown(buildDate),
		GoVersion: runtime.Version(),
	}
}

// commit prefers the linker flag, then VCS stamping from the build info.
func commit(read func() (*debug.BuildInfo, bool)) string {
	if gitCommit != "" {
		return gitCommit
	}

	info, ok := read()
	if !ok {
		return unknown
	}

	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}

	if revision == "" {
		return unknown
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if dirty {
		revision += "-dirty"
	}
	return revision
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
