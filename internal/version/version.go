// Package version exposes build information stamped in at link time.
package version

import "runtime"

// Set via -ldflags "-X github.com/askbird/askbird/internal/version.version=..."
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get returns the build information.
func Get() Info {
	return Info{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}
}
