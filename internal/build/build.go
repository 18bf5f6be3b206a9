// Package build provides build information that is linked into the binary at build time.
package build

var (
	// Version is the build version of the binary (e.g. `v1.2.0`). It is set through linker flags.
	Version = "dev"

	// Commit is the git commit hash the binary was built from. It is set through linker flags.
	Commit = ""
)
