// Package config resolves the immutable PackageOptions used by a packaging run.
//
// Options are layered: built-in defaults, then the app's package.json (its
// name/version/description/author fields and the required "nwjs-packager"
// block), then an optional YAML file, then command-line overrides. The result
// is validated once and never mutated afterwards.
package config
