// Package packager runs the packaging pipeline.
//
// Pipeline processes every target independently: it fetches the runtime,
// stages the app files, merges both into a fresh app directory, applies the
// platform transform and generates the configured outputs. Targets run
// concurrently and a failing target never stops its siblings. Run is the
// command-line entry point: it resolves the configuration, runs the pipeline
// and writes the run report and optional metrics.
package packager
