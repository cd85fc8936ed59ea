// Package version holds the build version reported by the health endpoint.
package version

// Version is overridable at build time via -ldflags.
var Version = "0.3.0"
