// Package target enumerates the platforms and architectures the NW.js runtime
// is published for and derives everything that depends on a target: runtime
// archive names, executable names and where the app payload lives.
package target
