// Package version carries the build metadata stamped in at link time.
package version

import "fmt"

// Overridden via -ldflags at release build time.
var (
	Release   = "dev"
	GitCommit = "unknown"
	GOOS      = "unknown"
	GOARCH    = "unknown"
)

// Full returns the release and commit.
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Release, GitCommit)
}

// FullWithPlatform additionally includes the target platform.
func FullWithPlatform() string {
	return fmt.Sprintf("%s (commit: %s, %s/%s)", Release, GitCommit, GOOS, GOARCH)
}
