// Package version reports build information of the litescript binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is set via ldflags for release builds.
	Version string
	// BuildDate is set via ldflags for release builds.
	BuildDate string

	Revision  = revisionFrom(debug.ReadBuildInfo())
	GoVersion = runtime.Version()
)

// GetVersion returns the release version, or the VCS revision for
// development builds.
func GetVersion() string {
	if Version != "" {
		return Version
	}

	return Revision
}

// String describes the build on one line.
func String() string {
	s := fmt.Sprintf("%s (%s, %s/%s)", GetVersion(), GoVersion, runtime.GOOS, runtime.GOARCH)
	if BuildDate != "" {
		s += " built " + BuildDate
	}

	return s
}

func revisionFrom(info *debug.BuildInfo, ok bool) string {
	if !ok || info == nil {
		return "unknown"
	}

	rev := "unknown"
	dirty := false

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value[:min(len(s.Value), 7)]
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}

	if dirty {
		return rev + "-dirty"
	}

	return rev
}
