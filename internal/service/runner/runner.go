package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oshokin/nwjs-packager/internal/config"
	"github.com/oshokin/nwjs-packager/internal/domain/target"
	"github.com/oshokin/nwjs-packager/internal/logger"
	"github.com/oshokin/nwjs-packager/internal/runtime"
	"github.com/oshokin/nwjs-packager/internal/service/common"
)

// ErrRuntimeExited is returned when the runtime exits with a non-zero status.
var ErrRuntimeExited = errors.New("runtime exited with an error")

// Options contains inputs for run mode.
type Options struct {
	// BaseDir is the app directory; defaults to the working directory.
	BaseDir string
	// ConfigPath is an optional YAML configuration file.
	ConfigPath string
	// Flags is the command-line configuration layer.
	Flags config.Overrides
	// MirrorURL replaces the NW.js download mirror.
	MirrorURL string
	// Stdout and Stderr receive the runtime output; they default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// runner launches the runtime once.
type runner struct {
	opts       *config.PackageOptions
	host       target.Target
	downloader runtime.Downloader
	exec       common.Runner
	stdout     io.Writer
	stderr     io.Writer
}

// Run downloads the SDK runtime for the host and runs the app with it,
// blocking until the runtime exits.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "nwjs-runner")

	pkgOpts, err := config.Resolve(config.ResolveInput{
		BaseDir:    opts.BaseDir,
		ConfigPath: opts.ConfigPath,
		Flags:      opts.Flags,
	})
	if err != nil {
		return err
	}

	host, err := target.Host()
	if err != nil {
		return err
	}

	r := &runner{
		opts:       pkgOpts,
		host:       host,
		downloader: runtime.NewHTTPDownloader(runtime.WithBaseURL(opts.MirrorURL)),
		exec:       common.NewLocalRunner(),
		stdout:     opts.Stdout,
		stderr:     opts.Stderr,
	}

	return r.Run(ctx)
}

// Run fetches the runtime and starts it with the app directory as its argument.
func (r *runner) Run(ctx context.Context) error {
	ctx = logger.WithKV(ctx, "target", r.host.String())

	dir, err := r.downloader.Get(ctx, runtime.Request{
		Version:  r.opts.NwVersion,
		Flavor:   target.FlavorSDK,
		Target:   r.host,
		CacheDir: r.opts.CacheDir,
		Force:    r.opts.ForceDownload,
	})
	if err != nil {
		return err
	}

	stdout, stderr := r.stdout, r.stderr
	if stdout == nil {
		stdout = os.Stdout
	}

	if stderr == nil {
		stderr = os.Stderr
	}

	executable := filepath.Join(dir, filepath.FromSlash(r.host.Platform.RuntimeExecutable()))

	logger.InfoKV(ctx, "Launching runtime", "executable", executable, "app_dir", r.opts.BaseDir)

	result, err := r.exec.Run(ctx, common.Command{
		Name:   executable,
		Args:   []string{r.opts.BaseDir},
		Dir:    r.opts.BaseDir,
		Stdout: stdout,
		Stderr: stderr,
	})
	if err != nil {
		return err
	}

	if result.ExitCode != 0 {
		logger.ErrorKV(ctx, "Runtime failed", "exit_code", result.ExitCode, "stderr", result.Stderr)

		return fmt.Errorf("%w: exit code %d", ErrRuntimeExited, result.ExitCode)
	}

	logger.InfoKV(ctx, "Runtime exited", "duration", result.Duration)

	return nil
}
