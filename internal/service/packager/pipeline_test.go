package packager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/oshokin/nwjs-packager/internal/archive"
	"github.com/oshokin/nwjs-packager/internal/config"
	"github.com/oshokin/nwjs-packager/internal/domain/release"
	"github.com/oshokin/nwjs-packager/internal/domain/target"
	"github.com/oshokin/nwjs-packager/internal/naming"
	"github.com/oshokin/nwjs-packager/internal/runtime/runtimetest"
	"github.com/oshokin/nwjs-packager/internal/staging"
	"github.com/oshokin/nwjs-packager/internal/transform"
)

var (
	osxX64   = target.Target{Platform: target.MacOS, Arch: target.X64}
	winX64   = target.Target{Platform: target.Windows, Arch: target.X64}
	linuxX64 = target.Target{Platform: target.Linux, Arch: target.X64}
)

// noopEditor stands in for the Windows resource editor; fake runtimes are not PE files.
type noopEditor struct{}

func (noopEditor) Edit(context.Context, string, transform.ResourceInfo) error {
	return nil
}

func testOptions(t *testing.T) *config.PackageOptions {
	t.Helper()

	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "package.json"),
		[]byte(`{"name":"demo","version":"1.0.0","main":"index.html"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "index.html"), []byte("<h1>demo</h1>"), 0o644))

	work := t.TempDir()

	return &config.PackageOptions{
		BaseDir:         base,
		Files:           []string{"index.html"},
		CacheDir:        filepath.Join(work, "cache"),
		TempDir:         filepath.Join(work, "temp"),
		OutputDir:       filepath.Join(work, "build"),
		NwVersion:       "0.44.5",
		NwFlavor:        target.FlavorNormal,
		AppPackageName:  "demo",
		AppVersion:      "1.0.0",
		AppOutputName:   naming.DefaultTemplate,
		AppFriendlyName: "Demo",
		AppCopyright:    "© 2026 Acme",
		Builds: map[target.Platform][]config.OutputSpec{
			target.Linux:   {{Kind: config.OutputTarGz}},
			target.MacOS:   {{Kind: config.OutputZip}},
			target.Windows: {{Kind: config.OutputZip}},
		},
		Concurrency: 2,
	}
}

func newTestPipeline(t *testing.T, opts *config.PackageOptions) (*Pipeline, *runtimetest.Downloader) {
	t.Helper()

	downloader := runtimetest.New(t.TempDir())

	return NewPipeline(opts, Dependencies{
		Downloader:       downloader,
		ResourceEditor:   noopEditor{},
		EnsureNotRunning: func(...string) error { return nil },
	}), downloader
}

func assertStagingCleaned(t *testing.T, opts *config.PackageOptions) {
	t.Helper()

	entries, err := os.ReadDir(opts.TempDir)
	if errors.Is(err, os.ErrNotExist) {
		return
	}

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPipelineAllPlatforms(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	pipeline, downloader := newTestPipeline(t, opts)

	results := pipeline.Run(context.Background(), []target.Target{osxX64, winX64, linuxX64})
	require.Len(t, results, 3)

	for _, result := range results {
		require.NoError(t, result.Err, result.Target.String())
		assert.Equal(t, "demo-1.0.0-"+result.Target.String(), result.PackageName)
		require.Len(t, result.Artifacts, 1)
		assert.FileExists(t, result.Artifacts[0].Path)
		assert.NotEmpty(t, result.Artifacts[0].Checksum)
	}

	assert.Equal(t, 3, downloader.Calls())
	assertStagingCleaned(t, opts)

	// macOS: payload copied as a directory into the renamed bundle.
	manifest, err := os.ReadFile(filepath.Join(results[0].AppDir, "demo.app", "Contents", "Resources", "app.nw", "package.json"))
	require.NoError(t, err)
	assert.Equal(t, "Demo", gjson.GetBytes(manifest, "product_string").String())
	assert.FileExists(t, filepath.Join(results[0].AppDir, "demo.app", "Contents", "MacOS", "Demo"))

	// Windows: runtime bytes first, then the zipped payload.
	exe, err := os.ReadFile(filepath.Join(results[1].AppDir, "demo.exe"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(exe), runtimetest.RuntimeBytes))
	assert.Equal(t, "PK", string(exe[len(runtimetest.RuntimeBytes):len(runtimetest.RuntimeBytes)+2]))
	assert.NoFileExists(t, filepath.Join(results[1].AppDir, "nw.exe"))

	// Linux: tar.gz rooted at the package name.
	assert.FileExists(t, filepath.Join(results[2].AppDir, "demo.desktop"))
	assert.Equal(t, filepath.Join(opts.OutputDir, "demo-1.0.0-linux-x64.tar.gz"), results[2].Artifacts[0].Path)

	extracted := t.TempDir()
	require.NoError(t, archive.Extract(results[2].Artifacts[0].Path, extracted))
	assert.FileExists(t, filepath.Join(extracted, "demo-1.0.0-linux-x64", "demo"))
	assert.FileExists(t, filepath.Join(extracted, "demo-1.0.0-linux-x64", "lib", "libffmpeg.so"))
}

func TestPipelineTargetFailureIsIsolated(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	pipeline, downloader := newTestPipeline(t, opts)
	downloader.Fail[linuxX64.String()] = errors.New("connection reset")

	results := pipeline.Run(context.Background(), []target.Target{linuxX64, winX64})

	var stepErr *StepError
	require.ErrorAs(t, results[0].Err, &stepErr)
	assert.Equal(t, StepDownload, stepErr.Step)
	assert.Equal(t, linuxX64, stepErr.Target)
	assert.Empty(t, results[0].Artifacts)

	require.NoError(t, results[1].Err)
	assert.FileExists(t, filepath.Join(opts.OutputDir, "demo-1.0.0-win-x64.zip"))

	assertStagingCleaned(t, opts)
}

func TestPipelineTransformFailureCleansStaging(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	opts.AppMacIcon = filepath.Join(t.TempDir(), "missing.icns")
	pipeline, _ := newTestPipeline(t, opts)

	results := pipeline.Run(context.Background(), []target.Target{osxX64})

	var stepErr *StepError
	require.ErrorAs(t, results[0].Err, &stepErr)
	assert.Equal(t, StepTransform, stepErr.Step)

	var transformErr *transform.TransformError
	require.ErrorAs(t, results[0].Err, &transformErr)
	assert.Equal(t, transform.StepMacIcon, transformErr.Step)
	assert.Equal(t, opts.AppMacIcon, transformErr.Path)

	assertStagingCleaned(t, opts)
	assert.NoFileExists(t, filepath.Join(opts.OutputDir, "demo-1.0.0-osx-x64.zip"))
}

func TestPipelineNoFilesSelected(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	opts.Files = []string{"*.missing"}
	pipeline, _ := newTestPipeline(t, opts)

	results := pipeline.Run(context.Background(), []target.Target{linuxX64})

	var noFiles *staging.NoFilesSelectedError
	require.ErrorAs(t, results[0].Err, &noFiles)
	assert.NoDirExists(t, opts.TempDir)
}

func TestPipelineRerunReplacesAppDir(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	pipeline, _ := newTestPipeline(t, opts)

	results := pipeline.Run(context.Background(), []target.Target{osxX64})
	require.NoError(t, results[0].Err)

	stale := filepath.Join(results[0].AppDir, "stale.txt")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	results = pipeline.Run(context.Background(), []target.Target{osxX64})
	require.NoError(t, results[0].Err)
	assert.NoFileExists(t, stale)
	assert.NoDirExists(t, filepath.Join(results[0].AppDir, target.MacBundleName))
	assert.DirExists(t, filepath.Join(results[0].AppDir, "demo.app"))
}

func TestPipelineNeverStagesItsOwnDirs(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	opts.Files = []string{"**"}
	opts.OutputDir = filepath.Join(opts.BaseDir, "build")
	opts.CacheDir = filepath.Join(opts.BaseDir, "cache")
	opts.TempDir = filepath.Join(opts.BaseDir, "tmp")
	pipeline, _ := newTestPipeline(t, opts)

	// The second run sees app dirs and archives left by the first one.
	for i := 0; i < 2; i++ {
		results := pipeline.Run(context.Background(), []target.Target{osxX64, winX64})
		for _, result := range results {
			require.NoError(t, result.Err, result.Target.String())
		}
	}

	payload := filepath.Join(opts.OutputDir, "demo-1.0.0-osx-x64", "demo.app", "Contents", "Resources", "app.nw")

	entries, err := os.ReadDir(payload)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	assert.ElementsMatch(t, []string{"index.html", "package.json"}, names)
	assertStagingCleaned(t, opts)
}

func TestPipelineSharesDownloadsAndSeparatesDirs(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	opts.AppOutputName = "%a%"
	opts.Concurrency = 0
	pipeline, downloader := newTestPipeline(t, opts)

	results := pipeline.Run(context.Background(), []target.Target{linuxX64, linuxX64, winX64})

	for _, result := range results {
		require.NoError(t, result.Err)
	}

	assert.Equal(t, 2, downloader.Calls())
	assert.Equal(t, "demo-linux-x64", results[0].PackageName)
	assert.Equal(t, "demo-linux-x64-2", results[1].PackageName)
	assert.Equal(t, "demo-win-x64", results[2].PackageName)
}

func TestPackageNames(t *testing.T) {
	t.Parallel()

	targets := []target.Target{osxX64, winX64}

	assert.Equal(t, []string{"demo-1.0.0-osx-x64", "demo-1.0.0-win-x64"},
		PackageNames(naming.DefaultTemplate, "demo", "1.0.0", targets))
	assert.Equal(t, []string{"demo-1.0.0-osx-x64", "demo-1.0.0-win-x64"},
		PackageNames("%a%-%v%", "demo", "1.0.0", targets))
	assert.Equal(t, []string{"demo-1.0.0"},
		PackageNames("%a%-%v%", "demo", "1.0.0", targets[:1]))
}

func TestBuildReport(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

	summary := BuildReport(opts, []Result{
		{
			Target:      winX64,
			PackageName: "demo-1.0.0-win-x64",
			AppDir:      "/build/demo-1.0.0-win-x64",
			Artifacts:   []release.Artifact{{Kind: "zip", Path: "/build/demo-1.0.0-win-x64.zip"}},
		},
		{
			Target:      osxX64,
			PackageName: "demo-1.0.0-osx-x64",
			AppDir:      "/build/demo-1.0.0-osx-x64",
			Err:         &StepError{Target: osxX64, Step: StepTransform, Err: errors.New("boom")},
		},
	}, now)

	assert.Equal(t, "demo", summary.App)
	assert.Equal(t, now, summary.GeneratedAt)
	require.Len(t, summary.Targets, 2)

	assert.Equal(t, "osx-x64", summary.Targets[0].Target)
	assert.Equal(t, release.StatusFailed, summary.Targets[0].Status)
	assert.Equal(t, StepTransform, summary.Targets[0].FailedStep)
	assert.Equal(t, "boom", summary.Targets[0].Error)
	assert.Empty(t, summary.Targets[0].AppDir)

	assert.Equal(t, release.StatusSucceeded, summary.Targets[1].Status)
	assert.Equal(t, "/build/demo-1.0.0-win-x64", summary.Targets[1].AppDir)
}

func TestGetFileChecksum(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "artifact.zip")
	require.NoError(t, os.WriteFile(file, []byte("abc"), 0o644))

	checksum, err := GetFileChecksum(file)
	require.NoError(t, err)
	assert.Equal(t,
		"3a81oZNherrMQXNJriBBMRLm+k6JqX6iCp7u5ktV05ohkpkqJ0/BqDa6PCOj/uu9RU1EI2Q86A4qmslPpUyknw==",
		checksum)
}
