package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/nwjs-packager/internal/domain/release"
	"github.com/oshokin/nwjs-packager/internal/fsutil"
)

// DefaultFilename is the report file name inside the output directory.
const DefaultFilename = "nwjs-packager-report.yaml"

const fileMode = 0o644

// Repository defines persistence operations for the run report.
type Repository interface {
	Load(ctx context.Context) (*release.Report, error)
	Save(ctx context.Context, report *release.Report) error
}

// FileRepository persists the report to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the report.
	path string
	// mu serializes access to the file.
	mu sync.Mutex
}

// ErrNotFound is returned when no report has been written yet.
var ErrNotFound = errors.New("report not found")

// NewFileRepository creates a repository reading and writing YAML at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the report location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the report from disk.
func (r *FileRepository) Load(_ context.Context) (*release.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read report file: %w", err)
	}

	var report release.Report
	if err = yaml.Unmarshal(contents, &report); err != nil {
		return nil, fmt.Errorf("decode report file: %w", err)
	}

	return &report, nil
}

// Save writes the report, replacing any previous one atomically.
func (r *FileRepository) Save(_ context.Context, report *release.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(r.path), fsutil.DirMode); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, fileMode); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("write report file: %w", err)
	}

	return nil
}
