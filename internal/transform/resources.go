package transform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tc-hib/winres"
	"github.com/tc-hib/winres/version"

	"github.com/oshokin/nwjs-packager/internal/logger"
	"github.com/oshokin/nwjs-packager/internal/service/common"
)

// resourceLang is en-US, the language NW.js ships its version resource in.
const resourceLang = 0x0409

// ErrResourceEditFailed is returned when the external resource editor exits non-zero.
var ErrResourceEditFailed = errors.New("resource editing failed")

// ResourceInfo is the metadata embedded into the Windows executable.
type ResourceInfo struct {
	FileVersion     string
	ProductVersion  string
	IconPath        string
	FileDescription string
	LegalCopyright  string
	ProductName     string
}

// ResourceInfoFor derives the embedded metadata from the app identity.
func ResourceInfoFor(app *App) ResourceInfo {
	return ResourceInfo{
		FileVersion:     app.Version,
		ProductVersion:  app.Version,
		IconPath:        app.WinIcon,
		FileDescription: app.Description,
		LegalCopyright:  app.Copyright,
		ProductName:     app.FriendlyName,
	}
}

// ResourceEditor updates the icon and version resources of a PE executable.
type ResourceEditor interface {
	Edit(ctx context.Context, exePath string, info ResourceInfo) error
}

// WinresEditor edits resources in-process.
type WinresEditor struct{}

// NewWinresEditor creates the in-process editor.
func NewWinresEditor() *WinresEditor {
	return &WinresEditor{}
}

// Edit implements ResourceEditor. The executable is rewritten into a
// temporary file that replaces the original only once it is complete.
func (e *WinresEditor) Edit(ctx context.Context, exePath string, info ResourceInfo) error {
	rs, err := loadResources(exePath)
	if err != nil {
		return pathError(exePath, err)
	}

	if info.IconPath != "" {
		if err = setIcon(rs, info.IconPath); err != nil {
			return pathError(info.IconPath, err)
		}
	}

	if err = setVersionInfo(rs, info); err != nil {
		return pathError(exePath, err)
	}

	if err = writeResources(rs, exePath); err != nil {
		return pathError(exePath, err)
	}

	logger.DebugKV(ctx, "Embedded executable resources", "exe", exePath, "icon", info.IconPath != "")

	return nil
}

func loadResources(exePath string) (*winres.ResourceSet, error) {
	f, err := os.Open(filepath.Clean(exePath))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = f.Close()
	}()

	// An executable without a resource section starts from an empty set;
	// anything that is not a PE image fails later in WriteToEXE.
	rs, err := winres.LoadFromEXE(f)
	if err != nil {
		return &winres.ResourceSet{}, nil //nolint:nilerr // See above.
	}

	return rs, nil
}

// setIcon replaces the first icon group, which Windows shows for the executable.
func setIcon(rs *winres.ResourceSet, iconPath string) error {
	f, err := os.Open(filepath.Clean(iconPath))
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	icon, err := winres.LoadICO(f)
	if err != nil {
		return fmt.Errorf("load icon: %w", err)
	}

	var groupID winres.Identifier = winres.ID(1)

	rs.WalkType(winres.RT_GROUP_ICON, func(resID winres.Identifier, _ uint16, _ []byte) bool {
		groupID = resID

		return false
	})

	return rs.SetIcon(groupID, icon)
}

func setVersionInfo(rs *winres.ResourceSet, info ResourceInfo) error {
	vi := &version.Info{}

	rs.WalkType(winres.RT_VERSION, func(_ winres.Identifier, _ uint16, data []byte) bool {
		if existing, err := version.FromBytes(data); err == nil {
			vi = existing
		}

		return false
	})

	if info.FileVersion != "" {
		vi.SetFileVersion(info.FileVersion)
	}

	if info.ProductVersion != "" {
		vi.SetProductVersion(info.ProductVersion)
	}

	for key, value := range map[string]string{
		version.FileDescription: info.FileDescription,
		version.LegalCopyright:  info.LegalCopyright,
		version.ProductName:     info.ProductName,
	} {
		if err := vi.Set(resourceLang, key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}

	rs.SetVersionInfo(*vi)

	return nil
}

func writeResources(rs *winres.ResourceSet, exePath string) (err error) {
	in, err := os.Open(filepath.Clean(exePath))
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := os.CreateTemp(filepath.Dir(exePath), "."+filepath.Base(exePath)+".*.tmp")
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(out.Name())
		}
	}()

	// The runtime's signature no longer matches once resources change.
	if err = rs.WriteToEXE(out, in, winres.WithAuthenticode(winres.RemoveSignature)); err != nil {
		return fmt.Errorf("write resources: %w", err)
	}

	if err = out.Close(); err != nil {
		return err
	}

	// Windows refuses to replace a file that is still open.
	if err = in.Close(); err != nil {
		return err
	}

	if err = os.Chmod(out.Name(), ExecutableMode); err != nil {
		return err
	}

	return os.Rename(out.Name(), exePath)
}

// RceditEditor shells out to the rcedit tool.
type RceditEditor struct {
	runner common.Runner
	path   string
}

// NewRceditEditor creates an editor running rcedit from path (a file path or a name on PATH).
func NewRceditEditor(runner common.Runner, path string) *RceditEditor {
	return &RceditEditor{
		runner: runner,
		path:   path,
	}
}

// Args renders the rcedit command line for exePath.
func (e *RceditEditor) Args(exePath string, info ResourceInfo) []string {
	args := []string{exePath}

	if info.FileVersion != "" {
		args = append(args, "--set-file-version", info.FileVersion)
	}

	if info.ProductVersion != "" {
		args = append(args, "--set-product-version", info.ProductVersion)
	}

	if info.IconPath != "" {
		args = append(args, "--set-icon", info.IconPath)
	}

	return append(args,
		"--set-version-string", version.FileDescription, info.FileDescription,
		"--set-version-string", version.LegalCopyright, info.LegalCopyright,
		"--set-version-string", version.ProductName, info.ProductName,
	)
}

// Edit implements ResourceEditor.
func (e *RceditEditor) Edit(ctx context.Context, exePath string, info ResourceInfo) error {
	tool, err := common.LookupTool("rcedit", e.path)
	if err != nil {
		return err
	}

	result, err := e.runner.Run(ctx, common.Command{
		Name: tool,
		Args: e.Args(exePath, info),
		Dir:  filepath.Dir(exePath),
	})
	if err != nil {
		return err
	}

	if result.ExitCode != 0 {
		logger.ErrorKV(ctx, "rcedit failed", "exit_code", result.ExitCode, "stderr", result.Stderr)

		return pathError(exePath, fmt.Errorf("%w: rcedit exited with code %d: %s",
			ErrResourceEditFailed, result.ExitCode, strings.TrimSpace(result.Stderr)))
	}

	return nil
}
