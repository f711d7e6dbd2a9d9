// Package version carries build-time identification, set via -ldflags.
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
)

// String returns the one-line form printed by the -V flag.
func String() string {
	return fmt.Sprintf("csv2kml %s (%s)", Version, GitSHA)
}
