// Package version holds build-time version metadata, populated via
// -ldflags at release build time.
package version

var (
	// Version is the semantic version of the binary.
	Version = "dev"

	// Commit is the VCS commit the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)
