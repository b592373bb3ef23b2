// Package report persists the run report.
//
// FileRepository stores the release.Report as YAML next to the artifacts so
// that CI jobs and release scripts can pick up paths and checksums.
package report
