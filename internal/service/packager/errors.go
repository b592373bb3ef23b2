package packager

import (
	"errors"
	"fmt"

	"github.com/oshokin/nwjs-packager/internal/domain/target"
)

// ErrTargetsFailed is returned by Run when at least one target failed.
var ErrTargetsFailed = errors.New("packaging failed")

// StepError attaches the target and pipeline step to a failure.
type StepError struct {
	// Target is the failed target.
	Target target.Target
	// Step is the pipeline step that failed.
	Step string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s: step %s: %v", e.Target, e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}
