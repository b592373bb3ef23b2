package transform

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/encoding/unicode"
	texttransform "golang.org/x/text/transform"

	"github.com/oshokin/nwjs-packager/internal/logger"
)

const (
	// stringsPattern finds the per-locale string tables of the main bundle.
	stringsPattern = "Contents/Resources/*.lproj/InfoPlist.strings"
	// DefaultStringsTemplate is the user template used for locales without their own file.
	DefaultStringsTemplate = "default.strings"

	stringsFileMode = 0o644
)

// fallbackStrings is used when the user provides no template.
const fallbackStrings = `CFBundleName = "%name%";
CFBundleDisplayName = "%name%";
CFBundleGetInfoString = "%name% %version%, %copyright%";
NSHumanReadableCopyright = "%copyright%";
NSBluetoothAlwaysUsageDescription = "%name% would like to use Bluetooth.";
NSCameraUsageDescription = "%name% would like to use the camera.";
NSMicrophoneUsageDescription = "%name% would like to use the microphone.";
NSLocationUsageDescription = "%name% would like to use your location.";
`

func (m *MacOS) patchStrings(ctx context.Context, app *App) error {
	bundleDir := BundleDir(app)

	files, err := doublestar.Glob(os.DirFS(bundleDir), stringsPattern)
	if err != nil {
		return pathError(bundleDir, err)
	}

	replacer := stringsReplacer(app)

	for _, rel := range files {
		locale := strings.TrimSuffix(path.Base(path.Dir(rel)), ".lproj")

		template, err := stringsTemplate(app.MacStringsDir, locale)
		if err != nil {
			return err
		}

		file := filepath.Join(bundleDir, filepath.FromSlash(rel))
		if err = os.WriteFile(file, []byte(replacer.Replace(template)), stringsFileMode); err != nil {
			return pathError(file, err)
		}
	}

	logger.DebugKV(ctx, "Patched localized strings", "locales", len(files))

	return nil
}

// stringsTemplate picks <dir>/<locale>.strings, then <dir>/default.strings, then the built-in template.
func stringsTemplate(dir, locale string) (string, error) {
	if dir == "" {
		return fallbackStrings, nil
	}

	for _, name := range []string{locale + ".strings", DefaultStringsTemplate} {
		file := filepath.Join(dir, name)

		contents, err := os.ReadFile(filepath.Clean(file))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return "", pathError(file, err)
		}

		decoded, err := decodeStrings(contents)
		if err != nil {
			return "", pathError(file, err)
		}

		return decoded, nil
	}

	return fallbackStrings, nil
}

// decodeStrings accepts UTF-8 with or without a BOM and UTF-16 with a BOM,
// the encodings Xcode writes .strings files in.
func decodeStrings(contents []byte) (string, error) {
	decoded, _, err := texttransform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), contents)
	if err != nil {
		return "", fmt.Errorf("decode strings file: %w", err)
	}

	return string(decoded), nil
}

func stringsReplacer(app *App) *strings.Replacer {
	return strings.NewReplacer(
		"%name%", escapeStringsValue(app.FriendlyName),
		"%version%", escapeStringsValue(app.Version),
		"%copyright%", escapeStringsValue(app.Copyright),
		"%description%", escapeStringsValue(app.Description),
	)
}

//nolint:gochecknoglobals // Immutable replacer.
var stringsEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escapeStringsValue(s string) string {
	return stringsEscaper.Replace(s)
}
