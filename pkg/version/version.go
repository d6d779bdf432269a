// Package version holds build metadata injected at link time.
package version

var (
	// Version is the semantic version, set with -ldflags.
	Version = "dev"
	// GitCommit is the short commit hash the binary was built from.
	GitCommit = "unknown"
)
