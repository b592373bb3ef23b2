package transform

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/oshokin/nwjs-packager/internal/config"
	"github.com/oshokin/nwjs-packager/internal/domain/target"
	"github.com/oshokin/nwjs-packager/internal/logger"
)

// ErrUnsupportedPlatform is returned by New for platforms without a transform.
var ErrUnsupportedPlatform = errors.New("no transform for platform")

// TransformError reports the step and path at which a transform failed.
//
//nolint:revive // The package-qualified name reads as transform.TransformError on purpose.
type TransformError struct {
	// Step is the name of the failed step.
	Step string
	// Path is the file being processed, when known.
	Path string
	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *TransformError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("transform step %q: %v", e.Step, e.Err)
	}

	return fmt.Sprintf("transform step %q at %s: %v", e.Step, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransformError) Unwrap() error {
	return e.Err
}

// App is the app identity and the directory a transform works on.
type App struct {
	// Dir is the app output directory holding the merged runtime and payload.
	Dir string
	// Target is the platform and architecture being packaged.
	Target target.Target

	PackageName   string
	FriendlyName  string
	Version       string
	Description   string
	Copyright     string
	MacIcon       string
	WinIcon       string
	MacStringsDir string
}

// NewApp captures the identity fields of opts for one target.
func NewApp(dir string, t target.Target, opts *config.PackageOptions) *App {
	return &App{
		Dir:           dir,
		Target:        t,
		PackageName:   opts.AppPackageName,
		FriendlyName:  opts.AppFriendlyName,
		Version:       opts.AppVersion,
		Description:   opts.AppDescription,
		Copyright:     opts.AppCopyright,
		MacIcon:       opts.AppMacIcon,
		WinIcon:       opts.AppWinIcon,
		MacStringsDir: opts.AppMacStringsDir,
	}
}

// ExecutableName is the friendly name made safe for use as a file name.
func (a *App) ExecutableName() string {
	name := strings.TrimSpace(fileNameReplacer.Replace(a.FriendlyName))
	if name == "" {
		return a.PackageName
	}

	return name
}

//nolint:gochecknoglobals // Immutable replacer.
var fileNameReplacer = strings.NewReplacer("/", "-", "\\", "-", ":", "-")

// Transform applies the platform-specific bundle transformation.
type Transform interface {
	// Platform is the platform this transform handles.
	Platform() target.Platform
	// Steps lists the step names in execution order.
	Steps() []string
	// Apply runs every step against app, stopping at the first failure.
	Apply(ctx context.Context, app *App) error
}

// Option configures transforms built by New.
type Option func(*settings)

type settings struct {
	editor ResourceEditor
}

// WithResourceEditor replaces the in-process Windows resource editor.
func WithResourceEditor(editor ResourceEditor) Option {
	return func(s *settings) {
		if editor != nil {
			s.editor = editor
		}
	}
}

// New returns the transform for platform.
func New(platform target.Platform, opts ...Option) (Transform, error) {
	s := &settings{editor: NewWinresEditor()}
	for _, opt := range opts {
		opt(s)
	}

	switch platform {
	case target.MacOS:
		return NewMacOS(), nil
	case target.Windows:
		return NewWindows(s.editor), nil
	case target.Linux:
		return NewLinux(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, platform)
	}
}

// step is one named unit of a transform.
type step struct {
	name string
	run  func(ctx context.Context, app *App) error
}

func stepNames(steps []step) []string {
	names := make([]string, 0, len(steps))
	for _, s := range steps {
		names = append(names, s.name)
	}

	return names
}

func runSteps(ctx context.Context, app *App, steps []step) error {
	for _, s := range steps {
		logger.DebugKV(ctx, "Running transform step", "step", s.name)

		if err := s.run(ctx, app); err != nil {
			return asTransformError(s.name, err)
		}
	}

	return nil
}

// asTransformError attaches the step name and, when available, the failing path.
func asTransformError(stepName string, err error) error {
	var transformErr *TransformError
	if errors.As(err, &transformErr) {
		if transformErr.Step == "" {
			transformErr.Step = stepName
		}

		return err
	}

	transformErr = &TransformError{Step: stepName, Err: err}

	var (
		pathErr *fs.PathError
		linkErr *os.LinkError
	)

	switch {
	case errors.As(err, &pathErr):
		transformErr.Path = pathErr.Path
	case errors.As(err, &linkErr):
		transformErr.Path = linkErr.Old
	}

	return transformErr
}

// pathError tags err with the path it concerns.
func pathError(path string, err error) error {
	if err == nil {
		return nil
	}

	return &TransformError{Path: path, Err: err}
}

// removeFiles deletes intermediate files, failing on anything but a missing file.
func removeFiles(paths ...string) error {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return pathError(p, err)
		}
	}

	return nil
}
