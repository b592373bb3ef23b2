package target

import (
	"path"
	"strings"
)

const (
	// RuntimeName is the generic name the runtime ships its executables and bundles under.
	RuntimeName = "nwjs"

	// MacBundleName is the runtime's application bundle on macOS.
	MacBundleName = RuntimeName + ".app"

	archiveZip   = "zip"
	archiveTarGz = "tar.gz"
)

// ArchiveExt is the extension of the runtime archive published for the platform.
func (p Platform) ArchiveExt() string {
	if p == Linux {
		return archiveTarGz
	}

	return archiveZip
}

// RuntimeDistName is the runtime archive name without extension,
// e.g. nwjs-sdk-v0.44.5-osx-x64. It is also the top-level directory inside the archive.
func (t Target) RuntimeDistName(version string, flavor Flavor) string {
	parts := []string{RuntimeName}
	if flavor == FlavorSDK {
		parts = append(parts, string(FlavorSDK))
	}

	parts = append(parts, "v"+strings.TrimPrefix(version, "v"), string(t.Platform), string(t.Arch))

	return strings.Join(parts, "-")
}

// RuntimeArchiveName is the file name of the runtime archive on the download mirror.
func (t Target) RuntimeArchiveName(version string, flavor Flavor) string {
	return t.RuntimeDistName(version, flavor) + "." + t.Platform.ArchiveExt()
}

// RuntimeExecutable is the slash-separated path of the runtime launcher inside an extracted distribution.
func (p Platform) RuntimeExecutable() string {
	switch p {
	case MacOS:
		return path.Join(MacBundleName, "Contents", "MacOS", RuntimeName)
	case Windows:
		return "nw.exe"
	default:
		return "nw"
	}
}

// PayloadPath is where the staged app files are placed inside the output directory.
// macOS reads an unpacked app.nw directory from the bundle resources;
// the other platforms read a package.nw zip appended to the executable.
func (p Platform) PayloadPath() string {
	if p == MacOS {
		return path.Join(MacBundleName, "Contents", "Resources", "app.nw")
	}

	return "package.nw"
}

// PayloadIsArchive reports whether the payload is a zip file rather than a directory.
func (p Platform) PayloadIsArchive() bool {
	return p != MacOS
}

// AppExecutable is the name of the final launcher for an app package name.
func (p Platform) AppExecutable(packageName string) string {
	switch p {
	case MacOS:
		return packageName + ".app"
	case Windows:
		return packageName + ".exe"
	default:
		return packageName
	}
}
