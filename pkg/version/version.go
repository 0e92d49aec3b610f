// Package version exposes build metadata injected at link time. The
// server logs it at startup, serves it on /api/version, and sentryctl
// prints it from the version subcommand.
package version

import (
	"fmt"
	"runtime"
	"time"
)

// Injected via -ldflags "-X .../pkg/version.Version=..." at build time.
// The defaults identify a local, untagged build.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// BuildInfo is the version payload served to clients.
type BuildInfo struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"gitCommit"`
	BuildDate string    `json:"buildDate"`
	GoVersion string    `json:"goVersion"`
	Platform  string    `json:"platform"`
	BuildTime time.Time `json:"buildTime,omitempty"`
}

// GetBuildInfo assembles the injected values together with the compiler
// and platform of the running binary. BuildTime is only set when
// BuildDate carries a parseable RFC3339 timestamp.
func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if t, err := time.Parse(time.RFC3339, BuildDate); err == nil {
		info.BuildTime = t
	}
	return info
}

// String renders a single-line summary for logs and CLI output.
func (b BuildInfo) String() string {
	return fmt.Sprintf("sentry-management-server %s (commit %s, built %s, %s, %s)",
		b.Version, b.GitCommit, b.BuildDate, b.GoVersion, b.Platform)
}
