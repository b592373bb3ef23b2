package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/oshokin/nwjs-packager/internal/domain/target"
)

// Request identifies one runtime distribution.
type Request struct {
	// Version is an explicit version (with or without "v") or a channel: stable, latest, lts.
	Version string
	// Flavor selects the regular or SDK build.
	Flavor target.Flavor
	// Target is the platform and architecture.
	Target target.Target
	// CacheDir stores archives and extracted distributions.
	CacheDir string
	// Force refetches the archive even when it is cached.
	Force bool
}

// Key is the cache identity of the request. Force is deliberately not part of it.
func (r Request) Key() string {
	return strings.Join([]string{NormalizeVersion(r.Version), string(r.Flavor), r.Target.String(), r.CacheDir}, "|")
}

// NormalizeVersion lowercases a version or channel and strips the "v" prefix,
// so "v0.44.5" and "0.44.5" name the same distribution.
func NormalizeVersion(version string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(version)), "v")
}

// Downloader returns a local directory holding an extracted runtime distribution.
// Implementations must be deterministic for identical requests.
type Downloader interface {
	Get(ctx context.Context, req Request) (string, error)
}

// DownloadError reports a failed fetch or extraction.
type DownloadError struct {
	// Key is the request cache key.
	Key string
	// Err is the cause.
	Err error
}

// Error implements the error interface.
func (e *DownloadError) Error() string {
	return fmt.Sprintf("download runtime %s: %v", e.Key, e.Err)
}

// Unwrap exposes the cause.
func (e *DownloadError) Unwrap() error {
	return e.Err
}
