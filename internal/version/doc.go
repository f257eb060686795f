// Package version exposes build metadata for formula-updater.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. Short, Full and UserAgent render them for the CLI and HTTP requests.
package version
