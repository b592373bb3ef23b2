package staging

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPatternOutsideBase is returned for absolute patterns or patterns escaping the base directory.
	ErrPatternOutsideBase = errors.New("file pattern points outside the app directory")
	// ErrInstallFailed is returned when the dependency installer exits non-zero.
	ErrInstallFailed = errors.New("dependency installation failed")
)

// NoFilesSelectedError is returned when the file patterns are empty or match nothing.
type NoFilesSelectedError struct {
	// Patterns are the patterns that were expanded.
	Patterns []string
}

// Error implements the error interface.
func (e *NoFilesSelectedError) Error() string {
	if len(e.Patterns) == 0 {
		return "no files were selected: the file list is empty"
	}

	return fmt.Sprintf("no files were selected by %s", strings.Join(e.Patterns, ", "))
}
