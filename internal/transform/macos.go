package transform

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/oshokin/nwjs-packager/internal/domain/target"
	"github.com/oshokin/nwjs-packager/internal/fsutil"
	"github.com/oshokin/nwjs-packager/internal/logger"
)

// Step names of the macOS transform.
const (
	StepMacIcon        = "icon"
	StepMacMetadata    = "metadata"
	StepMacStrings     = "localized-strings"
	StepMacExecutables = "rename-executables"
	StepMacBundle      = "rename-bundle"
)

const (
	// MacInfoPlist is the metadata file of a bundle, relative to the bundle.
	MacInfoPlist = "Contents/Info.plist"
	// MacIconPath is the default runtime icon, relative to the bundle.
	MacIconPath = "Contents/Resources/app.icns"
	// MacExecutableDir holds a bundle's executables.
	MacExecutableDir = "Contents/MacOS"

	// helperPattern finds every helper bundle; their number depends on the runtime build.
	helperPattern = "Contents/Frameworks/**/" + target.RuntimeName + " Helper*.app"

	iconFileMode = 0o644
)

// MacOS rebrands the runtime .app bundle.
type MacOS struct {
	steps []step
}

// NewMacOS creates the macOS transform.
func NewMacOS() *MacOS {
	m := &MacOS{}
	m.steps = []step{
		{name: StepMacIcon, run: m.replaceIcon},
		{name: StepMacMetadata, run: m.patchMetadata},
		{name: StepMacStrings, run: m.patchStrings},
		{name: StepMacExecutables, run: m.renameExecutables},
		{name: StepMacBundle, run: m.renameBundle},
	}

	return m
}

// Platform implements Transform.
func (m *MacOS) Platform() target.Platform {
	return target.MacOS
}

// Steps implements Transform.
func (m *MacOS) Steps() []string {
	return stepNames(m.steps)
}

// Apply implements Transform.
func (m *MacOS) Apply(ctx context.Context, app *App) error {
	return runSteps(ctx, app, m.steps)
}

// BundleDir is the runtime bundle before it is renamed.
func BundleDir(app *App) string {
	return filepath.Join(app.Dir, target.MacBundleName)
}

func (m *MacOS) replaceIcon(ctx context.Context, app *App) error {
	if app.MacIcon == "" {
		logger.Debug(ctx, "No macOS icon configured, keeping the runtime icon")

		return nil
	}

	iconPath := filepath.Join(BundleDir(app), filepath.FromSlash(MacIconPath))
	if err := os.Remove(iconPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return pathError(iconPath, err)
	}

	return pathError(app.MacIcon, fsutil.CopyFile(app.MacIcon, iconPath, iconFileMode))
}

func (m *MacOS) patchMetadata(ctx context.Context, app *App) error {
	bundleDir := BundleDir(app)

	helpers, err := DiscoverHelpers(bundleDir)
	if err != nil {
		return err
	}

	patched, err := MetadataPatches(app, helpers).Apply(bundleDir)
	if err != nil {
		return err
	}

	logger.DebugKV(ctx, "Patched bundle metadata", "files", patched, "helpers", len(helpers))

	return nil
}

func (m *MacOS) renameExecutables(ctx context.Context, app *App) error {
	bundleDir := BundleDir(app)

	helpers, err := DiscoverHelpers(bundleDir)
	if err != nil {
		return err
	}

	plan := ExecutableRenames(helpers, app.ExecutableName())

	logger.DebugKV(ctx, "Renaming executables", "operations", len(plan))

	return plan.Apply(bundleDir)
}

func (m *MacOS) renameBundle(ctx context.Context, app *App) error {
	plan := RenamePlan{{From: target.MacBundleName, To: target.MacOS.AppExecutable(app.PackageName)}}

	logger.DebugKV(ctx, "Renaming bundle", "to", plan[0].To)

	return plan.Apply(app.Dir)
}

// DiscoverHelpers returns the helper bundles inside bundleDir, relative and
// slash separated, deepest first. Symlinked framework directories are not
// followed so each helper is reported once.
func DiscoverHelpers(bundleDir string) ([]string, error) {
	helpers, err := doublestar.Glob(os.DirFS(bundleDir), helperPattern, doublestar.WithNoFollow())
	if err != nil {
		return nil, pathError(bundleDir, err)
	}

	slices.SortFunc(helpers, func(a, b string) int {
		if depthA, depthB := strings.Count(a, "/"), strings.Count(b, "/"); depthA != depthB {
			return depthB - depthA
		}

		return strings.Compare(a, b)
	})

	return helpers, nil
}

// helperSuffix is what follows the runtime name in a helper bundle, e.g. " Helper (GPU)".
func helperSuffix(helper string) string {
	return strings.TrimPrefix(strings.TrimSuffix(path.Base(helper), ".app"), target.RuntimeName)
}

// Rename is one move inside a directory, with slash-separated relative paths.
type Rename struct {
	From string
	To   string
}

// RenamePlan is an ordered list of renames.
type RenamePlan []Rename

// ExecutableRenames plans the helper and main executable renames. Each helper
// bundle directory is renamed before the executable inside it, which is then
// addressed through the new bundle path. The main executable comes last; the
// main bundle itself is renamed separately.
func ExecutableRenames(helpers []string, executableName string) RenamePlan {
	plan := make(RenamePlan, 0, 2*len(helpers)+1)

	for _, helper := range helpers {
		var (
			suffix     = helperSuffix(helper)
			oldExe     = target.RuntimeName + suffix
			newExe     = executableName + suffix
			renamedDir = path.Join(path.Dir(helper), newExe+".app")
		)

		if renamedDir != helper {
			plan = append(plan, Rename{From: helper, To: renamedDir})
		}

		if oldExe != newExe {
			plan = append(plan, Rename{
				From: path.Join(renamedDir, MacExecutableDir, oldExe),
				To:   path.Join(renamedDir, MacExecutableDir, newExe),
			})
		}
	}

	if executableName != target.RuntimeName {
		plan = append(plan, Rename{
			From: path.Join(MacExecutableDir, target.RuntimeName),
			To:   path.Join(MacExecutableDir, executableName),
		})
	}

	return plan
}

// Apply performs the renames in order under root.
func (p RenamePlan) Apply(root string) error {
	for _, op := range p {
		var (
			from = filepath.Join(root, filepath.FromSlash(op.From))
			to   = filepath.Join(root, filepath.FromSlash(op.To))
		)

		if _, err := os.Lstat(from); err != nil {
			return pathError(from, err)
		}

		if err := os.Rename(from, to); err != nil {
			return pathError(from, err)
		}
	}

	return nil
}
