package release

import (
	"slices"
	"time"
)

// Status is the terminal state of one target.
type Status string

const (
	// StatusSucceeded means every step of the target finished.
	StatusSucceeded Status = "succeeded"
	// StatusFailed means a step failed and the remaining ones were skipped.
	StatusFailed Status = "failed"
)

// Artifact is one distributable file.
type Artifact struct {
	// Kind is the output kind that produced it (zip, tar.gz, inno_setup).
	Kind string `yaml:"kind"`
	// Path is the absolute artifact path.
	Path string `yaml:"path"`
	// Size is the file size in bytes.
	Size int64 `yaml:"size"`
	// Checksum is the base64-encoded SHA-512 of the file.
	Checksum string `yaml:"sha512"`
}

// Target is the outcome of one platform target.
type Target struct {
	// Target is the platform-architecture tag, e.g. osx-x64.
	Target string `yaml:"target"`
	// PackageName is the rendered package name.
	PackageName string `yaml:"package"`
	// AppDir is the finished app directory.
	AppDir string `yaml:"appDir,omitempty"`
	// Status is the terminal state.
	Status Status `yaml:"status"`
	// FailedStep names the failed step.
	FailedStep string `yaml:"failedStep,omitempty"`
	// Error is the failure message.
	Error string `yaml:"error,omitempty"`
	// Duration is the wall time of the pipeline.
	Duration time.Duration `yaml:"duration"`
	// Artifacts are the produced files.
	Artifacts []Artifact `yaml:"artifacts,omitempty"`
}

// Report summarizes one packaging run.
type Report struct {
	// App is the app package name.
	App string `yaml:"app"`
	// Version is the app version.
	Version string `yaml:"version"`
	// Runtime is the requested runtime version or channel.
	Runtime string `yaml:"runtime"`
	// Flavor is the runtime flavor.
	Flavor string `yaml:"flavor"`
	// Packager is the packager version that wrote the report.
	Packager string `yaml:"packager"`
	// GeneratedAt is when the run finished.
	GeneratedAt time.Time `yaml:"generatedAt"`
	// Targets are sorted by target tag.
	Targets []Target `yaml:"targets"`
}

// Failed returns the failed targets.
func (r *Report) Failed() []Target {
	var failed []Target

	for _, t := range r.Targets {
		if t.Status == StatusFailed {
			failed = append(failed, t)
		}
	}

	return failed
}

// Sort orders targets by tag so reports diff cleanly between runs.
func (r *Report) Sort() {
	slices.SortFunc(r.Targets, func(a, b Target) int {
		switch {
		case a.Target < b.Target:
			return -1
		case a.Target > b.Target:
			return 1
		default:
			return 0
		}
	})
}
