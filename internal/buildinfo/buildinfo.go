// Package buildinfo carries version information set with -ldflags at build
// time, e.g. -X github.com/hyperifyio/gutenextract/internal/buildinfo.Version=v1.2.3.
package buildinfo

import "fmt"

var (
	// Version is the semantic version of the built binary.
	Version = "0.0.0-dev"
	// Commit is the VCS commit SHA of the build.
	Commit = "unknown"
	// Date is the ISO-8601 build timestamp.
	Date = "unknown"
)

// String renders the build information on one line.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
