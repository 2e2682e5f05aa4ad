// Package build carries version metadata stamped in at link time.
package build

var (
	// Version is the release version, set via -ldflags.
	Version = "dev"

	// Commit is the VCS commit hash the binary was built from.
	Commit = ""
)
