// Package release contains the run report written after a packaging run.
//
// A Report lists every target with its status, the step it failed at and the
// artifacts it produced together with their checksums.
package release
