//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-ps"
)

// processLister is swapped in tests.
//
//nolint:gochecknoglobals // Indirection over go-ps for tests.
var processLister = ps.Processes

// RunningProcesses returns the PIDs of processes whose executable matches one of names.
// Matching ignores case and a trailing ".exe" so Windows and Unix names compare equal.
func RunningProcesses(names ...string) ([]int, error) {
	if len(names) == 0 {
		return nil, nil
	}

	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[normalizeProcessName(name)] = struct{}{}
	}

	processList, err := processLister()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	thisProcessID := os.Getpid()

	var pids []int

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if _, found := wanted[normalizeProcessName(process.Executable())]; found {
			pids = append(pids, process.Pid())
		}
	}

	return pids, nil
}

// EnsureNotRunning fails with ErrAppRunning when any of names is running.
// Replacing the files of a running app fails on Windows and corrupts it elsewhere.
func EnsureNotRunning(names ...string) error {
	pids, err := RunningProcesses(names...)
	if err != nil {
		return err
	}

	if len(pids) > 0 {
		return fmt.Errorf("%s (pids %v): %w", strings.Join(names, ", "), pids, ErrAppRunning)
	}

	return nil
}

func normalizeProcessName(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), ".exe")
}
