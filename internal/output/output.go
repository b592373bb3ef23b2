package output

import (
	"context"
	"fmt"

	"github.com/oshokin/nwjs-packager/internal/config"
	"github.com/oshokin/nwjs-packager/internal/service/common"
)

// Input is what every generator works from.
type Input struct {
	// AppDir is the finished app directory.
	AppDir string
	// OutputDir receives the artifact.
	OutputDir string
	// PackageName is the rendered package name; artifacts are named after it.
	PackageName string

	// AppName is the user-visible app name.
	AppName string
	// AppVersion is the app version.
	AppVersion string
	// AppCopyright is the copyright line.
	AppCopyright string
	// Executable is the app executable relative to AppDir.
	Executable string
}

// Generator builds one artifact and returns its path.
type Generator interface {
	// Kind is the configured output kind.
	Kind() config.OutputKind
	// Build produces the artifact.
	Build(ctx context.Context, in Input) (string, error)
}

// UnsupportedFormatError is returned for output kinds without a generator.
type UnsupportedFormatError struct {
	// Format is the rejected name.
	Format string
}

// Error implements the error interface.
func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported output format %q (supported: zip, tar.gz, inno_setup)", e.Format)
}

// CompilerError is returned when the installer compiler exits non-zero.
type CompilerError struct {
	// ExitCode is the compiler's exit status.
	ExitCode int
	// Stderr is the captured error output.
	Stderr string
}

// Error implements the error interface.
func (e *CompilerError) Error() string {
	return fmt.Sprintf("installer compiler exited with code %d", e.ExitCode)
}

// New returns the generator for spec.
func New(spec config.OutputSpec, opts *config.PackageOptions, runner common.Runner) (Generator, error) {
	switch spec.Kind {
	case config.OutputZip, config.OutputTarGz:
		return NewArchive(string(spec.Kind))
	case config.OutputInnoSetup:
		return NewInno(runner, opts.InnoCompiler, spec.ScriptPath), nil
	default:
		return nil, &UnsupportedFormatError{Format: string(spec.Kind)}
	}
}
