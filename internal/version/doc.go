// Package version holds the build metadata of face-sentry.
//
// Version, Commit and BuildTime are set with -ldflags at build time.
package version
