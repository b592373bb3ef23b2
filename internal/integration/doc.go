// Package integration holds end-to-end tests that drive configuration
// resolution, the packaging pipeline and the run report together.
package integration
