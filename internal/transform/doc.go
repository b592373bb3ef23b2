// Package transform turns a merged runtime and app directory into a branded,
// platform-native application.
//
// Each platform has its own Transform made of an ordered list of named steps.
// macOS rebrands the .app bundle (icon, Info.plist files, localized strings,
// executable and bundle renames). Windows embeds version metadata into the
// runtime executable and appends the app archive to it. Linux appends the app
// archive to the runtime binary and writes a desktop entry.
//
// A failing step stops the transform and is reported as *TransformError. Steps
// already committed are not rolled back; the orchestrator recreates the app
// directory from scratch on the next run.
package transform
