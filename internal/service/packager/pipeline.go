package packager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/nwjs-packager/internal/archive"
	"github.com/oshokin/nwjs-packager/internal/config"
	"github.com/oshokin/nwjs-packager/internal/domain/release"
	"github.com/oshokin/nwjs-packager/internal/domain/target"
	"github.com/oshokin/nwjs-packager/internal/fsutil"
	"github.com/oshokin/nwjs-packager/internal/logger"
	"github.com/oshokin/nwjs-packager/internal/metrics"
	"github.com/oshokin/nwjs-packager/internal/naming"
	"github.com/oshokin/nwjs-packager/internal/output"
	"github.com/oshokin/nwjs-packager/internal/runtime"
	"github.com/oshokin/nwjs-packager/internal/service/common"
	"github.com/oshokin/nwjs-packager/internal/staging"
	"github.com/oshokin/nwjs-packager/internal/transform"
)

// Pipeline step names, in execution order.
const (
	StepDownload  = "download"
	StepStage     = "stage"
	StepMerge     = "merge"
	StepTransform = "transform"
	StepOutputs   = "outputs"
)

// Dependencies are the collaborators of a Pipeline. Nil fields get defaults.
type Dependencies struct {
	// Downloader fetches runtimes. It is wrapped so identical requests share one download.
	Downloader runtime.Downloader
	// Installer installs production dependencies into the staging directory.
	Installer staging.Installer
	// Runner executes external tools.
	Runner common.Runner
	// ResourceEditor embeds Windows resources.
	ResourceEditor transform.ResourceEditor
	// Recorder receives step and target observations.
	Recorder metrics.Recorder
	// EnsureNotRunning fails when the app about to be replaced is running.
	EnsureNotRunning func(names ...string) error
}

// Result is the outcome of one target.
type Result struct {
	// Target is the packaged target.
	Target target.Target
	// PackageName is the rendered, target-unique package name.
	PackageName string
	// AppDir is the app output directory.
	AppDir string
	// Artifacts are the produced distributables.
	Artifacts []release.Artifact
	// Duration is the wall time of the target pipeline.
	Duration time.Duration
	// Err is a *StepError when the target failed.
	Err error
}

// Pipeline packages targets from resolved options. Options are never modified.
type Pipeline struct {
	opts       *config.PackageOptions
	deps       Dependencies
	downloader runtime.Downloader
	assembler  *staging.Assembler
}

// NewPipeline creates a pipeline. The downloader is shared by every target.
func NewPipeline(opts *config.PackageOptions, deps Dependencies) *Pipeline {
	if deps.Runner == nil {
		deps.Runner = common.NewLocalRunner()
	}

	if deps.Downloader == nil {
		deps.Downloader = runtime.NewHTTPDownloader()
	}

	if deps.Installer == nil {
		deps.Installer = staging.NoopInstaller{}
		if opts.InstallDependencies {
			deps.Installer = staging.NewNpmInstaller(deps.Runner)
		}
	}

	if deps.ResourceEditor == nil {
		deps.ResourceEditor = transform.NewWinresEditor()
		if opts.RceditPath != "" {
			deps.ResourceEditor = transform.NewRceditEditor(deps.Runner, opts.RceditPath)
		}
	}

	if deps.Recorder == nil {
		deps.Recorder = metrics.Noop{}
	}

	if deps.EnsureNotRunning == nil {
		deps.EnsureNotRunning = common.EnsureNotRunning
	}

	return &Pipeline{
		opts:       opts,
		deps:       deps,
		downloader: runtime.NewCoalescing(deps.Downloader),
		assembler:  staging.NewAssembler(opts.TempDir, opts.OutputDir, opts.CacheDir),
	}
}

// Run packages every target and returns one result per target, in input order.
// At most Concurrency targets run at once when it is positive.
func (p *Pipeline) Run(ctx context.Context, targets []target.Target) []Result {
	var (
		names   = PackageNames(p.opts.AppOutputName, p.opts.AppPackageName, p.opts.AppVersion, targets)
		results = make([]Result, len(targets))
		group   errgroup.Group
	)

	if p.opts.Concurrency > 0 {
		group.SetLimit(p.opts.Concurrency)
	}

	for i, t := range targets {
		i, t := i, t

		group.Go(func() error {
			results[i] = p.runTarget(ctx, t, names[i])

			// A failed target is reported in its result; siblings keep running.
			return nil
		})
	}

	_ = group.Wait()

	return results
}

// PackageNames renders one package name per target. Names that would collide
// get the platform-architecture tag appended, so no two targets share an app
// directory.
func PackageNames(tmpl, appPackageName, appVersion string, targets []target.Target) []string {
	var (
		names = make([]string, len(targets))
		seen  = make(map[string]int, len(targets))
	)

	for i, t := range targets {
		names[i] = naming.Render(tmpl, appPackageName, appVersion, t)
		seen[names[i]]++
	}

	for i, t := range targets {
		if seen[names[i]] > 1 {
			names[i] += "-" + t.String()
		}
	}

	// The same target listed twice still gets two directories.
	used := make(map[string]int, len(targets))

	for i := range names {
		used[names[i]]++
		if n := used[names[i]]; n > 1 {
			names[i] += "-" + strconv.Itoa(n)
		}
	}

	return names
}

// targetRun is the state of one target pipeline.
type targetRun struct {
	target      target.Target
	packageName string
	appDir      string
	runtimeDir  string
	staged      *staging.Directory
	artifacts   []release.Artifact
}

func (p *Pipeline) runTarget(ctx context.Context, t target.Target, packageName string) Result {
	ctx = logger.WithKV(ctx, "target", t.String())

	var (
		startTime = time.Now()
		run       = &targetRun{
			target:      t,
			packageName: packageName,
			appDir:      filepath.Join(p.opts.OutputDir, packageName),
		}
	)

	logger.InfoKV(ctx, "Packaging target", "package", packageName)

	err := p.runSteps(ctx, run)

	if run.staged != nil {
		if removeErr := run.staged.Remove(); removeErr != nil {
			logger.WarnKV(ctx, "Failed to remove staging directory", "dir", run.staged.Path, "error", removeErr)
		}
	}

	result := Result{
		Target:      t,
		PackageName: packageName,
		AppDir:      run.appDir,
		Artifacts:   run.artifacts,
		Duration:    time.Since(startTime),
		Err:         err,
	}

	p.deps.Recorder.ObserveTarget(t.String(), result.Duration, err)

	if err != nil {
		logger.ErrorKV(ctx, "Target failed", "error", err)
	} else {
		logger.InfoKV(ctx, "Target packaged", "app_dir", run.appDir, "artifacts", len(run.artifacts))
	}

	return result
}

func (p *Pipeline) runSteps(ctx context.Context, run *targetRun) error {
	steps := []struct {
		name string
		run  func(ctx context.Context, run *targetRun) error
	}{
		{name: StepDownload, run: p.download},
		{name: StepStage, run: p.stage},
		{name: StepMerge, run: p.merge},
		{name: StepTransform, run: p.transform},
		{name: StepOutputs, run: p.generateOutputs},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return &StepError{Target: run.target, Step: s.name, Err: err}
		}

		stepStart := time.Now()
		err := s.run(logger.WithKV(ctx, "step", s.name), run)
		p.deps.Recorder.ObserveStep(run.target.String(), s.name, time.Since(stepStart), err)

		if err != nil {
			return &StepError{Target: run.target, Step: s.name, Err: err}
		}
	}

	return nil
}

func (p *Pipeline) download(ctx context.Context, run *targetRun) error {
	dir, err := p.downloader.Get(ctx, runtime.Request{
		Version:  p.opts.NwVersion,
		Flavor:   p.opts.NwFlavor,
		Target:   run.target,
		CacheDir: p.opts.CacheDir,
		Force:    p.opts.ForceDownload,
	})
	if err != nil {
		return err
	}

	run.runtimeDir = dir

	return nil
}

func (p *Pipeline) stage(ctx context.Context, run *targetRun) error {
	staged, err := p.assembler.Assemble(ctx, p.opts.Files, p.opts.BaseDir)
	if err != nil {
		return err
	}

	run.staged = staged

	if err = staging.CustomiseManifest(staged.Path, p.opts.AppFriendlyName); err != nil {
		return err
	}

	return p.deps.Installer.Install(ctx, staged.Path)
}

// merge recreates the app directory from the runtime and places the staged
// app files where the runtime looks for them. An existing directory is
// discarded, never patched.
func (p *Pipeline) merge(ctx context.Context, run *targetRun) error {
	if fsutil.Exists(run.appDir) {
		if err := p.ensureNotRunning(run); err != nil {
			return err
		}
	}

	if err := fsutil.ReplaceDir(run.appDir); err != nil {
		return err
	}

	logger.DebugKV(ctx, "Copying runtime", "from", run.runtimeDir, "to", run.appDir)

	if err := fsutil.CopyTree(run.runtimeDir, run.appDir); err != nil {
		return fmt.Errorf("copy runtime: %w", err)
	}

	platform := run.target.Platform
	payload := filepath.Join(run.appDir, filepath.FromSlash(platform.PayloadPath()))

	if err := os.RemoveAll(payload); err != nil {
		return err
	}

	if !platform.PayloadIsArchive() {
		return fsutil.CopyTree(run.staged.Path, payload)
	}

	return archive.Write(archive.Zip, payload, run.staged.Path, "")
}

// ensureNotRunning refuses to replace an app that is running from the output
// directory on this machine.
func (p *Pipeline) ensureNotRunning(run *targetRun) error {
	host, err := target.Host()
	if err != nil || host.Platform != run.target.Platform {
		return nil
	}

	app := transform.NewApp(run.appDir, run.target, p.opts)

	return p.deps.EnsureNotRunning(
		run.target.Platform.AppExecutable(p.opts.AppPackageName),
		app.ExecutableName(),
	)
}

func (p *Pipeline) transform(ctx context.Context, run *targetRun) error {
	tr, err := transform.New(run.target.Platform, transform.WithResourceEditor(p.deps.ResourceEditor))
	if err != nil {
		return err
	}

	return tr.Apply(ctx, transform.NewApp(run.appDir, run.target, p.opts))
}

func (p *Pipeline) generateOutputs(ctx context.Context, run *targetRun) error {
	specs := p.opts.Outputs(run.target.Platform)
	if len(specs) == 0 {
		logger.Info(ctx, "No outputs configured for this platform")

		return nil
	}

	app := transform.NewApp(run.appDir, run.target, p.opts)
	in := output.Input{
		AppDir:       run.appDir,
		OutputDir:    p.opts.OutputDir,
		PackageName:  run.packageName,
		AppName:      app.FriendlyName,
		AppVersion:   app.Version,
		AppCopyright: app.Copyright,
		Executable:   run.target.Platform.AppExecutable(p.opts.AppPackageName),
	}

	for _, spec := range specs {
		gen, err := output.New(spec, p.opts, p.deps.Runner)
		if err != nil {
			return err
		}

		artifactPath, err := gen.Build(ctx, in)
		if err != nil {
			return fmt.Errorf("%s: %w", spec.Kind, err)
		}

		artifact, err := describeArtifact(string(spec.Kind), artifactPath)
		if err != nil {
			return err
		}

		p.deps.Recorder.ObserveArtifact(run.target.String(), artifact.Kind, artifact.Size)
		run.artifacts = append(run.artifacts, artifact)
	}

	return nil
}

func describeArtifact(kind, path string) (release.Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return release.Artifact{}, fmt.Errorf("artifact %s: %w", path, err)
	}

	checksum, err := GetFileChecksum(path)
	if err != nil {
		return release.Artifact{}, err
	}

	return release.Artifact{
		Kind:     kind,
		Path:     path,
		Size:     info.Size(),
		Checksum: checksum,
	}, nil
}
