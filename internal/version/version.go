// Package version holds build metadata injected at link time.
package version

// Version is the application version, overridden via -ldflags at build time.
var Version = "dev"

// Commit is the git commit the binary was built from.
var Commit = ""
