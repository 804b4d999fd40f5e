// Package version holds the application version string.
package version

// Version is the current application version.
// Overridden at build time via -ldflags "-X kahaanigo/pkg/version.Version=...".
var Version = "0.3.0-dev"
