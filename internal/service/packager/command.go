package packager

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/oshokin/nwjs-packager/internal/config"
	"github.com/oshokin/nwjs-packager/internal/domain/release"
	"github.com/oshokin/nwjs-packager/internal/logger"
	"github.com/oshokin/nwjs-packager/internal/metrics"
	"github.com/oshokin/nwjs-packager/internal/repository/report"
	"github.com/oshokin/nwjs-packager/internal/runtime"
	"github.com/oshokin/nwjs-packager/internal/service/common"
	"github.com/oshokin/nwjs-packager/internal/version"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// BaseDir is the app directory; defaults to the working directory.
	BaseDir string
	// ConfigPath is an optional YAML configuration file.
	ConfigPath string
	// Flags is the command-line configuration layer.
	Flags config.Overrides
	// MetricsFile, when set, receives Prometheus metrics in text format.
	MetricsFile string
	// MirrorURL replaces the NW.js download mirror.
	MirrorURL string
}

// packager runs one packaging session.
// It is unexported; callers should use Run, which encapsulates setup and validation.
type packager struct {
	// opts is the resolved, read-only configuration.
	opts *config.PackageOptions
	// pipeline packages the targets.
	pipeline *Pipeline
	// recorder collects step and target metrics.
	recorder *metrics.PrometheusRecorder
	// reports persists the run report.
	reports report.Repository
	// metricsFile is where metrics are exported, if anywhere.
	metricsFile string
}

// Run executes the packaging workflow for every configured target. It fails
// with ErrTargetsFailed when any target failed; the others are still packaged.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "nwjs-packager")

	pkgOpts, err := config.Resolve(config.ResolveInput{
		BaseDir:    opts.BaseDir,
		ConfigPath: opts.ConfigPath,
		Flags:      opts.Flags,
	})
	if err != nil {
		return err
	}

	p := newPackager(pkgOpts, opts)

	return p.Run(ctx)
}

// newPackager wires the production dependencies.
func newPackager(pkgOpts *config.PackageOptions, opts *Options) *packager {
	var (
		runner   = common.NewLocalRunner()
		recorder = metrics.NewPrometheusRecorder()
	)

	return &packager{
		opts: pkgOpts,
		pipeline: NewPipeline(pkgOpts, Dependencies{
			Downloader: runtime.NewHTTPDownloader(runtime.WithBaseURL(opts.MirrorURL)),
			Runner:     runner,
			Recorder:   recorder,
		}),
		recorder:    recorder,
		reports:     report.NewFileRepository(filepath.Join(pkgOpts.OutputDir, report.DefaultFilename)),
		metricsFile: opts.MetricsFile,
	}
}

// Run packages the targets and persists the report.
func (p *packager) Run(ctx context.Context) error {
	logger.InfoKV(ctx, "Starting packaging",
		"app", p.opts.AppPackageName,
		"version", p.opts.AppVersion,
		"runtime", p.opts.NwVersion,
		"flavor", p.opts.NwFlavor,
		"targets", len(p.opts.Platforms))

	results := p.pipeline.Run(ctx, p.opts.Platforms)
	summary := BuildReport(p.opts, results, time.Now())

	if err := p.reports.Save(ctx, summary); err != nil {
		logger.WarnKV(ctx, "Failed to save run report", "error", err)
	}

	if p.metricsFile != "" {
		if err := p.recorder.WriteTextfile(p.metricsFile); err != nil {
			logger.WarnKV(ctx, "Failed to write metrics", "path", p.metricsFile, "error", err)
		}
	}

	failed := summary.Failed()
	if len(failed) == 0 {
		logger.InfoKV(ctx, "Packaging completed successfully", "output_dir", p.opts.OutputDir)

		return nil
	}

	tags := make([]string, 0, len(failed))
	for _, t := range failed {
		logger.ErrorKV(ctx, "Target failed", "target", t.Target, "step", t.FailedStep, "error", t.Error)
		tags = append(tags, t.Target)
	}

	return fmt.Errorf("%w: %d of %d targets (%s)",
		ErrTargetsFailed, len(failed), len(summary.Targets), strings.Join(tags, ", "))
}

// BuildReport turns pipeline results into the persisted report.
func BuildReport(opts *config.PackageOptions, results []Result, now time.Time) *release.Report {
	r := &release.Report{
		App:         opts.AppPackageName,
		Version:     opts.AppVersion,
		Runtime:     opts.NwVersion,
		Flavor:      string(opts.NwFlavor),
		Packager:    version.Short(),
		GeneratedAt: now.UTC().Truncate(time.Second),
		Targets:     make([]release.Target, 0, len(results)),
	}

	for _, result := range results {
		entry := release.Target{
			Target:      result.Target.String(),
			PackageName: result.PackageName,
			Status:      release.StatusSucceeded,
			Duration:    result.Duration.Round(time.Millisecond),
			Artifacts:   result.Artifacts,
		}

		if result.Err != nil {
			entry.Status = release.StatusFailed
			entry.Error = result.Err.Error()

			var stepErr *StepError
			if errors.As(result.Err, &stepErr) {
				entry.FailedStep = stepErr.Step
				entry.Error = stepErr.Err.Error()
			}
		} else {
			entry.AppDir = result.AppDir
		}

		r.Targets = append(r.Targets, entry)
	}

	r.Sort()

	return r
}
