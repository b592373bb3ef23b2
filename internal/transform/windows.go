package transform

import (
	"context"
	"path/filepath"

	"github.com/oshokin/nwjs-packager/internal/domain/target"
)

// Step names of the Windows transform.
const (
	StepWinResources = "resources"
	StepWinConcat    = "concatenate"
	StepWinCleanup   = "cleanup"
)

// Windows brands nw.exe and merges the app archive into it.
type Windows struct {
	editor ResourceEditor
	steps  []step
}

// NewWindows creates the Windows transform using editor for resource updates.
func NewWindows(editor ResourceEditor) *Windows {
	w := &Windows{editor: editor}
	w.steps = []step{
		{name: StepWinResources, run: w.editResources},
		{name: StepWinConcat, run: concatPayload},
		{name: StepWinCleanup, run: removeIntermediates},
	}

	return w
}

// Platform implements Transform.
func (w *Windows) Platform() target.Platform {
	return target.Windows
}

// Steps implements Transform.
func (w *Windows) Steps() []string {
	return stepNames(w.steps)
}

// Apply implements Transform.
func (w *Windows) Apply(ctx context.Context, app *App) error {
	return runSteps(ctx, app, w.steps)
}

func (w *Windows) editResources(ctx context.Context, app *App) error {
	exe := filepath.Join(app.Dir, target.Windows.RuntimeExecutable())

	return w.editor.Edit(ctx, exe, ResourceInfoFor(app))
}

// concatPayload appends the payload archive to the runtime executable. The
// runtime finds the archive by scanning from the end of its own file, so the
// runtime bytes must come first.
func concatPayload(_ context.Context, app *App) error {
	platform := app.Target.Platform

	return Concat(
		filepath.Join(app.Dir, platform.AppExecutable(app.PackageName)),
		ExecutableMode,
		filepath.Join(app.Dir, platform.RuntimeExecutable()),
		filepath.Join(app.Dir, platform.PayloadPath()),
	)
}

func removeIntermediates(_ context.Context, app *App) error {
	platform := app.Target.Platform

	return removeFiles(
		filepath.Join(app.Dir, platform.RuntimeExecutable()),
		filepath.Join(app.Dir, platform.PayloadPath()),
	)
}
