// Package version exposes the build stamp. Release builds overwrite the
// package variables through -ldflags -X; a plain `go build` reports the
// dev defaults.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release version, "0.0.0-dev" outside a release build.
	Version = "0.0.0-dev"

	// Commit is the git revision the binary was built from.
	Commit = "unknown"

	// Date is the RFC3339 build timestamp.
	Date = "unknown"

	// Dirty is "true" when the tree had uncommitted changes at build time.
	Dirty = "false"
)

// Info is the resolved build stamp plus runtime facts.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	Dirty     bool   `json:"dirty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get resolves the stamped variables into an Info.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		Dirty:     Dirty == "true",
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String formats the full build stamp for logs.
func (i Info) String() string {
	dirty := ""
	if i.Dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s) built %s", i.Version, i.Commit, dirty, i.Date)
}

// Short returns just the version, with a -dirty marker when applicable.
func (i Info) Short() string {
	if i.Dirty {
		return i.Version + "-dirty"
	}
	return i.Version
}
