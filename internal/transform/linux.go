package transform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/nwjs-packager/internal/domain/target"
)

// Step names of the Linux transform.
const (
	StepLinuxConcat  = "concatenate"
	StepLinuxCleanup = "cleanup"
	StepLinuxDesktop = "desktop-entry"
)

const desktopFileMode = 0o644

// Linux merges the app archive into the runtime binary and adds a desktop entry.
type Linux struct {
	steps []step
}

// NewLinux creates the Linux transform.
func NewLinux() *Linux {
	l := &Linux{}
	l.steps = []step{
		{name: StepLinuxConcat, run: concatPayload},
		{name: StepLinuxCleanup, run: removeIntermediates},
		{name: StepLinuxDesktop, run: writeDesktopEntry},
	}

	return l
}

// Platform implements Transform.
func (l *Linux) Platform() target.Platform {
	return target.Linux
}

// Steps implements Transform.
func (l *Linux) Steps() []string {
	return stepNames(l.steps)
}

// Apply implements Transform.
func (l *Linux) Apply(ctx context.Context, app *App) error {
	return runSteps(ctx, app, l.steps)
}

// DesktopEntry renders the .desktop file. The runtime resolves resources from
// the working directory, so Exec changes into the executable's directory first.
func DesktopEntry(app *App) string {
	return fmt.Sprintf(`[Desktop Entry]
Name=%s
Version=%s
Exec=bash -c "cd $(dirname %%k) && ./%s"
Type=Application
Terminal=false
`, app.FriendlyName, app.Version, app.PackageName)
}

func writeDesktopEntry(_ context.Context, app *App) error {
	file := filepath.Join(app.Dir, app.PackageName+".desktop")

	return pathError(file, os.WriteFile(file, []byte(DesktopEntry(app)), desktopFileMode))
}
