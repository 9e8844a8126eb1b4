// Package version holds build information set with -ldflags.
package version

import "fmt"

var (
	// Version is the semantic version (e.g., v1.0.0)
	Version = "dev"

	// BuildTime is the time the binary was built
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// String returns a multi-line version banner.
func String() string {
	return fmt.Sprintf("dockship %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
}
