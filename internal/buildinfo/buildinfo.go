// Package buildinfo carries version metadata stamped at link time.
package buildinfo

import "fmt"

var (
	// Version is set with -ldflags "-X chitieu/internal/buildinfo.Version=...".
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
