package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/nwjs-packager/internal/archive"
	"github.com/oshokin/nwjs-packager/internal/config"
	"github.com/oshokin/nwjs-packager/internal/fsutil"
	"github.com/oshokin/nwjs-packager/internal/logger"
)

// Archive writes the app directory into a zip or tar.gz file.
type Archive struct {
	format archive.Format
}

// NewArchive creates an archive generator, rejecting unknown formats.
func NewArchive(format string) (*Archive, error) {
	parsed, err := archive.ParseFormat(format)
	if err != nil {
		return nil, &UnsupportedFormatError{Format: format}
	}

	return &Archive{format: parsed}, nil
}

// Kind implements Generator.
func (a *Archive) Kind() config.OutputKind {
	return config.OutputKind(a.format)
}

// Build implements Generator. The archive holds a single top-level directory
// named after the package.
func (a *Archive) Build(ctx context.Context, in Input) (string, error) {
	if _, err := archive.ParseFormat(string(a.format)); err != nil {
		return "", &UnsupportedFormatError{Format: string(a.format)}
	}

	if err := os.MkdirAll(in.OutputDir, fsutil.DirMode); err != nil {
		return "", err
	}

	artifact := filepath.Join(in.OutputDir, in.PackageName+"."+string(a.format))

	logger.InfoKV(ctx, "Writing archive", "path", artifact)

	if err := archive.Write(a.format, artifact, in.AppDir, in.PackageName); err != nil {
		return "", fmt.Errorf("write %s archive: %w", a.format, err)
	}

	return artifact, nil
}
