// FILE: scribelog/src/internal/version/version.go
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at link time: -ldflags "-X scribelog/src/internal/version.Version=v1.2.0 ..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// String returns the version with commit, build time and toolchain
func String() string {
	return fmt.Sprintf("scribelog %s (commit: %s, built: %s, %s)", Version, commit(), BuildTime, runtime.Version())
}

// Short returns just the version tag
func Short() string {
	return Version
}

// commit falls back to the VCS revision stamped by the go tool
func commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return GitCommit
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return GitCommit
}
