// Package archive writes zip and tar.gz archives from a directory tree and
// extracts them back. Symlinks and file modes survive both directions, which
// macOS framework bundles rely on.
package archive
