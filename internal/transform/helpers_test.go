package transform

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"howett.net/plist"

	"github.com/oshokin/nwjs-packager/internal/domain/target"
)

const frameworkHelpers = "Contents/Frameworks/nwjs Framework.framework/Versions/0.44.5/Helpers"

func writeFile(t *testing.T, p, contents string, perm os.FileMode) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(contents), perm))
}

func writePlist(t *testing.T, p string, values map[string]any) {
	t.Helper()

	contents, err := plist.MarshalIndent(values, plist.XMLFormat, "\t")
	require.NoError(t, err)
	writeFile(t, p, string(contents), 0o644)
}

// fakeMacApp builds an app directory with a runtime bundle carrying the given helper suffixes.
func fakeMacApp(t *testing.T, helperSuffixes ...string) *App {
	t.Helper()

	dir := t.TempDir()
	bundle := filepath.Join(dir, target.MacBundleName)

	writePlist(t, filepath.Join(bundle, "Contents", "Info.plist"), map[string]any{
		KeyName:              "nwjs",
		KeyExecutable:        "nwjs",
		"CFBundleIdentifier": "io.nwjs.nwjs",
	})
	writeFile(t, filepath.Join(bundle, "Contents", "MacOS", "nwjs"), "runtime", 0o755)
	writeFile(t, filepath.Join(bundle, "Contents", "Resources", "app.icns"), "default-icon", 0o644)
	writeFile(t, filepath.Join(bundle, "Contents", "Resources", "en.lproj", "InfoPlist.strings"), `CFBundleName = "nwjs";`, 0o644)
	writeFile(t, filepath.Join(bundle, "Contents", "Resources", "fr.lproj", "InfoPlist.strings"), `CFBundleName = "nwjs";`, 0o644)
	writeFile(t, filepath.Join(bundle, "Contents", "Resources", "app.nw", "package.json"), `{"name":"demo"}`, 0o644)

	for _, suffix := range helperSuffixes {
		helper := filepath.Join(bundle, filepath.FromSlash(frameworkHelpers), "nwjs"+suffix+".app")

		writePlist(t, filepath.Join(helper, "Contents", "Info.plist"), map[string]any{
			KeyName:       "nwjs" + suffix,
			KeyExecutable: "nwjs" + suffix,
		})
		writeFile(t, filepath.Join(helper, "Contents", "MacOS", "nwjs"+suffix), "helper", 0o755)
	}

	return &App{
		Dir:          dir,
		Target:       target.Target{Platform: target.MacOS, Arch: target.X64},
		PackageName:  "demo",
		FriendlyName: "Demo App",
		Version:      "1.0.0",
		Description:  "A demo",
		Copyright:    `© 2026 "Acme"`,
	}
}

// fakeFlatApp builds a Windows or Linux app directory with a runtime executable and payload.
func fakeFlatApp(t *testing.T, platform target.Platform) *App {
	t.Helper()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, platform.RuntimeExecutable()), "RUNTIME-BYTES", 0o755)
	writeFile(t, filepath.Join(dir, platform.PayloadPath()), "PK-PAYLOAD", 0o644)
	writeFile(t, filepath.Join(dir, "icudtl.dat"), "icu", 0o644)

	return &App{
		Dir:          dir,
		Target:       target.Target{Platform: platform, Arch: target.X64},
		PackageName:  "demo",
		FriendlyName: "Demo App",
		Version:      "1.0.0",
		Description:  "A demo",
		Copyright:    "© 2026 Acme",
		WinIcon:      "",
	}
}

// recordingEditor records resource edits instead of touching the executable.
type recordingEditor struct {
	exePath string
	info    ResourceInfo
	err     error
}

func (e *recordingEditor) Edit(_ context.Context, exePath string, info ResourceInfo) error {
	e.exePath = exePath
	e.info = info

	return e.err
}
