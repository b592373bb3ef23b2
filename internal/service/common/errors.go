//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

var (
	// errEmptyCommand is returned when a command has no executable.
	errEmptyCommand = errors.New("command cannot be empty")
	// ErrAppRunning is returned when the app being repackaged is still running.
	ErrAppRunning = errors.New("application is running")
)

// ToolNotFoundError reports an external tool missing from its expected location.
type ToolNotFoundError struct {
	// Tool is the short tool name.
	Tool string
	// Path is where the tool was looked for.
	Path string
}

// Error implements the error interface.
func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("%s not found at %s", e.Tool, e.Path)
}

// LookupTool resolves a tool given either as a path or as a bare name on PATH.
func LookupTool(tool, pathOrName string) (string, error) {
	if pathOrName == "" {
		return "", &ToolNotFoundError{Tool: tool, Path: "<unset>"}
	}

	if filepath.IsAbs(pathOrName) || filepath.Base(pathOrName) != pathOrName {
		if _, err := os.Stat(pathOrName); err != nil {
			return "", &ToolNotFoundError{Tool: tool, Path: pathOrName}
		}

		return pathOrName, nil
	}

	resolved, err := exec.LookPath(pathOrName)
	if err != nil {
		return "", &ToolNotFoundError{Tool: tool, Path: "PATH"}
	}

	return resolved, nil
}
