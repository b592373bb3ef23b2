package transform

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/nwjs-packager/internal/domain/target"
	"github.com/oshokin/nwjs-packager/internal/service/common"
)

func TestConcat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	runtimeBytes := bytes.Repeat([]byte{0x4d, 0x5a, 0x90, 0x00}, 4096)
	payloadBytes := []byte("PK\x03\x04payload")

	runtimePath := filepath.Join(dir, "nw")
	payloadPath := filepath.Join(dir, "package.nw")
	require.NoError(t, os.WriteFile(runtimePath, runtimeBytes, 0o755))
	require.NoError(t, os.WriteFile(payloadPath, payloadBytes, 0o644))

	dst := filepath.Join(dir, "demo")
	require.NoError(t, Concat(dst, ExecutableMode, runtimePath, payloadPath))

	combined, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Len(t, combined, len(runtimeBytes)+len(payloadBytes))
	assert.Equal(t, runtimeBytes, combined[:len(runtimeBytes)])
	assert.Equal(t, payloadBytes, combined[len(runtimeBytes):])

	// A stale file from an earlier run is replaced, not appended to.
	require.NoError(t, Concat(dst, ExecutableMode, runtimePath, payloadPath))

	again, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, combined, again)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestConcatMissingPart(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	missing := filepath.Join(dir, "nw")

	err := Concat(filepath.Join(dir, "demo"), ExecutableMode, missing)

	var transformErr *TransformError
	require.ErrorAs(t, err, &transformErr)
	assert.Equal(t, missing, transformErr.Path)
	assert.NoFileExists(t, filepath.Join(dir, "demo"))
}

func TestWindowsApply(t *testing.T) {
	t.Parallel()

	app := fakeFlatApp(t, target.Windows)
	editor := &recordingEditor{}

	tr, err := New(target.Windows, WithResourceEditor(editor))
	require.NoError(t, err)
	require.NoError(t, tr.Apply(context.Background(), app))

	assert.Equal(t, filepath.Join(app.Dir, "nw.exe"), editor.exePath)
	assert.Equal(t, ResourceInfo{
		FileVersion:     "1.0.0",
		ProductVersion:  "1.0.0",
		FileDescription: "A demo",
		LegalCopyright:  "© 2026 Acme",
		ProductName:     "Demo App",
	}, editor.info)

	exe, err := os.ReadFile(filepath.Join(app.Dir, "demo.exe"))
	require.NoError(t, err)
	assert.Equal(t, "RUNTIME-BYTESPK-PAYLOAD", string(exe))

	assert.NoFileExists(t, filepath.Join(app.Dir, "nw.exe"))
	assert.NoFileExists(t, filepath.Join(app.Dir, "package.nw"))
	assert.FileExists(t, filepath.Join(app.Dir, "icudtl.dat"))
}

func TestWindowsApplyEditorFailure(t *testing.T) {
	t.Parallel()

	app := fakeFlatApp(t, target.Windows)
	editor := &recordingEditor{err: errors.New("bad icon")}

	err := NewWindows(editor).Apply(context.Background(), app)

	var transformErr *TransformError
	require.ErrorAs(t, err, &transformErr)
	assert.Equal(t, StepWinResources, transformErr.Step)
	assert.NoFileExists(t, filepath.Join(app.Dir, "demo.exe"))
	assert.FileExists(t, filepath.Join(app.Dir, "nw.exe"))
}

func TestLinuxApply(t *testing.T) {
	t.Parallel()

	app := fakeFlatApp(t, target.Linux)

	tr, err := New(target.Linux)
	require.NoError(t, err)
	assert.Equal(t, []string{StepLinuxConcat, StepLinuxCleanup, StepLinuxDesktop}, tr.Steps())
	require.NoError(t, tr.Apply(context.Background(), app))

	exePath := filepath.Join(app.Dir, "demo")

	exe, err := os.ReadFile(exePath)
	require.NoError(t, err)
	assert.Equal(t, "RUNTIME-BYTESPK-PAYLOAD", string(exe))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(exePath)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	}

	assert.NoFileExists(t, filepath.Join(app.Dir, "nw"))
	assert.NoFileExists(t, filepath.Join(app.Dir, "package.nw"))

	desktop, err := os.ReadFile(filepath.Join(app.Dir, "demo.desktop"))
	require.NoError(t, err)
	assert.Equal(t, `[Desktop Entry]
Name=Demo App
Version=1.0.0
Exec=bash -c "cd $(dirname %k) && ./demo"
Type=Application
Terminal=false
`, string(desktop))
}

func TestNewUnknownPlatform(t *testing.T) {
	t.Parallel()

	_, err := New(target.Platform("beos"))
	require.ErrorIs(t, err, ErrUnsupportedPlatform)
}

// scriptedRunner returns a fixed result and records the command.
type scriptedRunner struct {
	result common.Result
	got    common.Command
}

func (r *scriptedRunner) Run(_ context.Context, cmd common.Command) (common.Result, error) {
	r.got = cmd

	return r.result, nil
}

func TestRceditEditor(t *testing.T) {
	t.Parallel()

	tool := filepath.Join(t.TempDir(), "rcedit.exe")
	writeFile(t, tool, "", 0o755)

	info := ResourceInfo{
		FileVersion:     "1.0.0",
		ProductVersion:  "1.0.0",
		IconPath:        "app.ico",
		FileDescription: "A demo",
		LegalCopyright:  "© Acme",
		ProductName:     "Demo",
	}

	runner := &scriptedRunner{}
	editor := NewRceditEditor(runner, tool)
	require.NoError(t, editor.Edit(context.Background(), "/out/nw.exe", info))

	assert.Equal(t, tool, runner.got.Name)
	assert.Equal(t, []string{
		"/out/nw.exe",
		"--set-file-version", "1.0.0",
		"--set-product-version", "1.0.0",
		"--set-icon", "app.ico",
		"--set-version-string", "FileDescription", "A demo",
		"--set-version-string", "LegalCopyright", "© Acme",
		"--set-version-string", "ProductName", "Demo",
	}, runner.got.Args)

	runner.result = common.Result{ExitCode: 2, Stderr: "Unable to load file"}
	err := editor.Edit(context.Background(), "/out/nw.exe", info)
	require.ErrorIs(t, err, ErrResourceEditFailed)

	err = NewRceditEditor(runner, filepath.Join(t.TempDir(), "missing.exe")).Edit(context.Background(), "/out/nw.exe", info)

	var notFound *common.ToolNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestWinresEditorRejectsNonExecutable(t *testing.T) {
	t.Parallel()

	exe := filepath.Join(t.TempDir(), "nw.exe")
	writeFile(t, exe, "not a PE image", 0o755)

	err := NewWinresEditor().Edit(context.Background(), exe, ResourceInfo{FileVersion: "1.0.0"})
	require.Error(t, err)

	contents, readErr := os.ReadFile(exe)
	require.NoError(t, readErr)
	assert.Equal(t, "not a PE image", string(contents))

	entries, readErr := os.ReadDir(filepath.Dir(exe))
	require.NoError(t, readErr)
	assert.Len(t, entries, 1)
}
