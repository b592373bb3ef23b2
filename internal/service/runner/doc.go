// Package runner implements run mode: it launches the SDK runtime for the
// host against the app directory without packaging anything.
package runner
