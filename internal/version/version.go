// Package version holds build-time version information injected via ldflags:
//
//	go build -ldflags "-X github.com/hazz-dev/ewwatch/internal/version.Version=v1.2.0"
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the build information on one line.
func String() string {
	return fmt.Sprintf("ewwatch %s (commit %s, built %s)", Version, Commit, Date)
}
