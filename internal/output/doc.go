// Package output produces distributable artifacts from a finished app directory.
//
// Archive writes zip and tar.gz files rooted at the package name. Inno compiles
// a Windows installer with Inno Setup, either from a user script or from one
// generated for the app. Generators read the app directory and never modify it.
package output
