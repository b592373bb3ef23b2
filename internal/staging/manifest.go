package staging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/sjson"
)

// productStringKey makes the macOS runtime use the app name for helper processes and menus.
const productStringKey = "product_string"

// CustomiseManifest sets product_string in the staged package.json, keeping the
// rest of the document byte-for-byte.
func CustomiseManifest(stagingDir, friendlyName string) error {
	manifestPath := filepath.Join(stagingDir, ManifestFilename)

	info, err := os.Stat(manifestPath)
	if err != nil {
		return fmt.Errorf("staged manifest: %w", err)
	}

	contents, err := os.ReadFile(manifestPath) //nolint:gosec // Path is inside the staging directory.
	if err != nil {
		return err
	}

	updated, err := sjson.SetBytes(contents, productStringKey, friendlyName)
	if err != nil {
		return fmt.Errorf("set %s: %w", productStringKey, err)
	}

	return os.WriteFile(manifestPath, updated, info.Mode().Perm())
}
