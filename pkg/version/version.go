package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	Version   string // Set via ldflags.
	BuildDate string

	Revision  = getRevision()
	GoVersion = runtime.Version()
	GoOS      = runtime.GOOS
	GoArch    = runtime.GOARCH
)

// GetVersion returns the release version, or the VCS revision for
// development builds.
func GetVersion() string {
	if Version != "" {
		return Version
	}

	return Revision
}

// Info renders the build information shown by `comtrya version`.
func Info(name string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s %s\n", name, GetVersion())
	fmt.Fprintf(&sb, "  revision:   %s\n", Revision)
	if BuildDate != "" {
		fmt.Fprintf(&sb, "  build date: %s\n", BuildDate)
	}
	fmt.Fprintf(&sb, "  go version: %s\n", GoVersion)
	fmt.Fprintf(&sb, "  platform:   %s/%s\n", GoOS, GoArch)

	return sb.String()
}

func getRevision() string {
	rev := "unknown"

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return rev
	}

	modified := false

	for _, v := range buildInfo.Settings {
		switch v.Key {
		case "vcs.revision":
			if len(v.Value) > 7 {
				rev = v.Value[:7]
			} else {
				rev = v.Value
			}

		case "vcs.modified":
			if v.Value == "true" {
				modified = true
			}
		}
	}

	if modified {
		return rev + "-dirty"
	}

	return rev
}
