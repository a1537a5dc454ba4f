// Package version reports the build of the amzappstore binary.
//
// Version, GitCommit and BuildTime can be set with -ldflags "-X ...". When
// they are left empty, the commit and build time fall back to the VCS stamp
// the Go toolchain embeds in the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Name is the program name used in version strings and the User-Agent header
const Name = "amzappstore"

// ModulePath is reported when the binary carries no module build info
const ModulePath = "github.com/footprintai/amzappstore"

var (
	Version   = "0.3.0"
	GitCommit = ""
	BuildTime = ""
)

// Info describes one build
type Info struct {
	Name      string `json:"name"`
	Module    string `json:"module"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// vcsStamp is the subset of debug.BuildInfo this package reports
type vcsStamp struct {
	module   string
	revision string
	time     string
	modified bool
}

func readStamp() vcsStamp {
	stamp := vcsStamp{module: ModulePath}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return stamp
	}
	if bi.Main.Path != "" {
		stamp.module = bi.Main.Path
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			stamp.revision = s.Value
		case "vcs.time":
			stamp.time = s.Value
		case "vcs.modified":
			stamp.modified = s.Value == "true"
		}
	}
	return stamp
}

// Get collects the build information
func Get() Info {
	stamp := readStamp()

	commit := GitCommit
	if commit == "" {
		commit = stamp.revision
		if commit != "" && stamp.modified {
			commit += "-dirty"
		}
	}
	if commit == "" {
		commit = "unknown"
	}

	built := BuildTime
	if built == "" {
		built = stamp.time
	}

	return Info{
		Name:      Name,
		Module:    stamp.module,
		Version:   Version,
		GitCommit: commit,
		BuildTime: built,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns "amzappstore v<version>"
func String() string {
	return fmt.Sprintf("%s v%s", Name, Version)
}

// UserAgent returns the User-Agent sent to the Appstore API
func UserAgent() string {
	return Name + "/" + Version
}

// Verbose renders Get as an aligned block for `amzappstore version --verbose`
func Verbose() string {
	info := Get()
	built := info.BuildTime
	if built == "" {
		built = "unknown"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", String())
	fmt.Fprintf(&b, "  module:   %s\n", info.Module)
	fmt.Fprintf(&b, "  commit:   %s\n", info.GitCommit)
	fmt.Fprintf(&b, "  built:    %s\n", built)
	fmt.Fprintf(&b, "  go:       %s (%s)", info.GoVersion, info.Platform)
	return b.String()
}
