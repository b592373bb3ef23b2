// Package version exposes build metadata for nwjs-packager.
//
// Version, Commit and BuildTime are injected at build time via Go ldflags.
// Full renders them for the `version` subcommand, UserAgent identifies the
// packager to the runtime download mirror.
package version
