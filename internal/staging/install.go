package staging

import (
	"context"
	"fmt"
	"strings"

	"github.com/oshokin/nwjs-packager/internal/logger"
	"github.com/oshokin/nwjs-packager/internal/service/common"
)

// Installer installs the production dependencies of a staged app.
type Installer interface {
	Install(ctx context.Context, dir string) error
}

// NpmInstaller runs `npm install --production`.
type NpmInstaller struct {
	runner common.Runner
	npm    string
}

// NewNpmInstaller creates an installer using npm from PATH.
func NewNpmInstaller(runner common.Runner) *NpmInstaller {
	return &NpmInstaller{
		runner: runner,
		npm:    "npm",
	}
}

// Install implements Installer.
func (i *NpmInstaller) Install(ctx context.Context, dir string) error {
	logger.Info(ctx, "Running npm install --production")

	result, err := i.runner.Run(ctx, common.Command{
		Name: i.npm,
		Args: []string{"install", "--production"},
		Dir:  dir,
	})
	if err != nil {
		return err
	}

	if result.Stdout != "" {
		logger.Debug(ctx, strings.TrimSpace(result.Stdout))
	}

	if result.ExitCode != 0 {
		logger.ErrorKV(ctx, "npm install failed", "exit_code", result.ExitCode, "stderr", result.Stderr)

		return fmt.Errorf("%w: npm exited with code %d: %s",
			ErrInstallFailed, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	return nil
}

// NoopInstaller skips dependency installation.
type NoopInstaller struct{}

// Install implements Installer.
func (NoopInstaller) Install(context.Context, string) error {
	return nil
}
