// Package naming renders output package names from the `%a%-%v%-%p%` style template.
package naming

import (
	"strings"

	"github.com/oshokin/nwjs-packager/internal/domain/target"
)

const (
	// DefaultTemplate is the package name template used when none is configured.
	DefaultTemplate = "%a%-%v%-%p%"

	// TokenApp is replaced with the app package name.
	TokenApp = "%a%"
	// TokenVersion is replaced with the app version.
	TokenVersion = "%v%"
	// TokenPlatform is replaced with the `<platform>-<arch>` tag.
	TokenPlatform = "%p%"
)

// Render substitutes every known token in tmpl. Anything else, including
// unknown `%x%` tokens, is copied verbatim.
func Render(tmpl, appPackageName, appVersion string, t target.Target) string {
	return strings.NewReplacer(
		TokenApp, appPackageName,
		TokenVersion, appVersion,
		TokenPlatform, t.String(),
	).Replace(tmpl)
}

// HasPlatformToken reports whether names rendered from tmpl differ per target.
func HasPlatformToken(tmpl string) bool {
	return strings.Contains(tmpl, TokenPlatform)
}
