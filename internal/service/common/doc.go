// Package common holds helpers shared by several services.
//
// It provides a subprocess runner that captures both output streams and the
// exit status of external tools (npm, rcedit, ISCC, the runtime itself),
// tool discovery with a typed ToolNotFoundError, and a guard that refuses to
// replace an app directory while the packaged app is still running.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
