package transform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"howett.net/plist"
)

// Info.plist keys carrying the bundle identity.
const (
	KeyDisplayName = "CFBundleDisplayName"
	KeyExecutable  = "CFBundleExecutable"
	KeyName        = "CFBundleName"
)

// PlistPatch overrides keys of one Info.plist file.
type PlistPatch struct {
	// Path is relative to the bundle directory, slash separated.
	Path string
	// Values replace or add keys.
	Values map[string]string
	// Required makes a missing file an error instead of a skip.
	Required bool
}

// MetadataPatchSet is the list of metadata files to patch in one bundle.
type MetadataPatchSet []PlistPatch

// MetadataPatches builds the patch set for the main bundle and every helper.
// The main Info.plist must exist; helper files are patched when present.
func MetadataPatches(app *App, helpers []string) MetadataPatchSet {
	var (
		exe  = app.ExecutableName()
		name = app.FriendlyName
	)

	if name == "" {
		name = exe
	}

	set := make(MetadataPatchSet, 0, len(helpers)+1)
	set = append(set, PlistPatch{
		Path: MacInfoPlist,
		Values: map[string]string{
			KeyDisplayName: name,
			KeyExecutable:  exe,
			KeyName:        name,
		},
		Required: true,
	})

	for _, helper := range helpers {
		suffix := helperSuffix(helper)

		set = append(set, PlistPatch{
			Path: path.Join(helper, MacInfoPlist),
			Values: map[string]string{
				KeyDisplayName: name + suffix,
				KeyExecutable:  exe + suffix,
				KeyName:        name + suffix,
			},
		})
	}

	return set
}

// Apply patches every file of the set under bundleDir and returns how many were written.
func (s MetadataPatchSet) Apply(bundleDir string) (int, error) {
	patched := 0

	for _, patch := range s {
		file := filepath.Join(bundleDir, filepath.FromSlash(patch.Path))

		written, err := patchPlist(file, patch.Values, patch.Required)
		if err != nil {
			return patched, pathError(file, err)
		}

		if written {
			patched++
		}
	}

	return patched, nil
}

// patchPlist sets values in a property list file, keeping its encoding format.
func patchPlist(file string, values map[string]string, required bool) (bool, error) {
	info, err := os.Stat(file)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	contents, err := os.ReadFile(filepath.Clean(file))
	if err != nil {
		return false, err
	}

	doc := make(map[string]any)

	format, err := plist.Unmarshal(contents, &doc)
	if err != nil {
		return false, fmt.Errorf("decode property list: %w", err)
	}

	for key, value := range values {
		doc[key] = value
	}

	var updated []byte

	if format == plist.XMLFormat {
		updated, err = plist.MarshalIndent(doc, format, "\t")
	} else {
		updated, err = plist.Marshal(doc, format)
	}

	if err != nil {
		return false, fmt.Errorf("encode property list: %w", err)
	}

	if err = os.WriteFile(file, updated, info.Mode().Perm()); err != nil {
		return false, err
	}

	return true, nil
}

// ReadPlist decodes a property list file into a map.
func ReadPlist(file string) (map[string]any, error) {
	contents, err := os.ReadFile(filepath.Clean(file))
	if err != nil {
		return nil, err
	}

	doc := make(map[string]any)
	if _, err = plist.Unmarshal(contents, &doc); err != nil {
		return nil, err
	}

	return doc, nil
}
