package staging

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/oshokin/nwjs-packager/internal/fsutil"
	"github.com/oshokin/nwjs-packager/internal/logger"
)

// ManifestFilename is always staged, whatever the patterns select.
const ManifestFilename = "package.json"

// excludePrefix marks a pattern whose matches are removed from the selection.
const excludePrefix = "!"

// Directory is a staging directory owned by exactly one pipeline run.
type Directory struct {
	// Path is the absolute location of the staged files.
	Path string
	// Files are the staged paths relative to Path, slash separated and sorted.
	Files []string

	removeOnce sync.Once
	removeErr  error
}

// Remove deletes the directory. It is safe to call more than once.
func (d *Directory) Remove() error {
	d.removeOnce.Do(func() {
		d.removeErr = os.RemoveAll(d.Path)
	})

	return d.removeErr
}

// Assembler creates staging directories under a temp root.
type Assembler struct {
	// tempDir holds one sub-directory per staging run.
	tempDir string
	// reserved are packager-owned directories never staged, even when a pattern matches them.
	reserved []string
}

// NewAssembler creates an assembler rooted at tempDir. The temp root and any
// reserved directories (output, cache) are excluded from every selection.
func NewAssembler(tempDir string, reserved ...string) *Assembler {
	return &Assembler{
		tempDir:  tempDir,
		reserved: append([]string{tempDir}, reserved...),
	}
}

// Assemble expands patterns relative to baseDir and copies the matches into a
// fresh directory. Directory matches are recreated empty; their contents are
// staged only when a pattern selects them. Nothing is created when the
// patterns select no file.
func (a *Assembler) Assemble(ctx context.Context, patterns []string, baseDir string) (*Directory, error) {
	selected, err := Select(patterns, baseDir, a.reserved...)
	if err != nil {
		return nil, err
	}

	dir := &Directory{
		Path:  filepath.Join(a.tempDir, uuid.NewString()),
		Files: selected,
	}

	if err = os.MkdirAll(dir.Path, fsutil.DirMode); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	logger.DebugKV(ctx, "Staging app files", "dir", dir.Path, "count", len(selected))

	for _, rel := range selected {
		if err = stageEntry(baseDir, dir.Path, rel); err != nil {
			_ = dir.Remove()

			return nil, fmt.Errorf("stage %s: %w", rel, err)
		}
	}

	return dir, nil
}

// Select returns the slash-separated paths under baseDir selected by patterns,
// sorted and without duplicates. Patterns prefixed with "!" exclude their
// matches and everything below them. Reserved directories inside baseDir are
// excluded the same way. The manifest is appended when it exists.
func Select(patterns []string, baseDir string, reserved ...string) ([]string, error) {
	var includes, excludes []string

	for _, raw := range patterns {
		pattern, exclude := strings.CutPrefix(strings.TrimSpace(raw), excludePrefix)

		normalized, err := normalizePattern(pattern)
		if err != nil {
			return nil, err
		}

		if exclude {
			excludes = append(excludes, normalized)
		} else {
			includes = append(includes, normalized)
		}
	}

	if len(includes) == 0 {
		return nil, &NoFilesSelectedError{Patterns: patterns}
	}

	skip := reservedPaths(baseDir, reserved)

	var (
		fsys  = os.DirFS(baseDir)
		found = make(map[string]struct{})
	)

	for _, pattern := range includes {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", pattern, err)
		}

		for _, match := range matches {
			if !underAny(match, skip) && !excluded(match, excludes) {
				found[match] = struct{}{}
			}
		}
	}

	if len(found) == 0 {
		return nil, &NoFilesSelectedError{Patterns: patterns}
	}

	if _, err := fs.Stat(fsys, ManifestFilename); err == nil {
		found[ManifestFilename] = struct{}{}
	}

	selected := make([]string, 0, len(found))
	for match := range found {
		selected = append(selected, match)
	}

	slices.Sort(selected)

	return selected, nil
}

func normalizePattern(pattern string) (string, error) {
	pattern = filepath.ToSlash(pattern)
	if pattern == "" || path.IsAbs(pattern) || filepath.IsAbs(pattern) {
		return "", fmt.Errorf("%w: %q", ErrPatternOutsideBase, pattern)
	}

	cleaned := path.Clean(strings.TrimPrefix(pattern, "./"))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrPatternOutsideBase, pattern)
	}

	if !doublestar.ValidatePattern(cleaned) {
		return "", fmt.Errorf("%w: %q", doublestar.ErrBadPattern, pattern)
	}

	return cleaned, nil
}

// reservedPaths returns the slash-separated paths, relative to baseDir, of
// the reserved directories located under it.
func reservedPaths(baseDir string, reserved []string) []string {
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return nil
	}

	var paths []string

	for _, dir := range reserved {
		if dir == "" {
			continue
		}

		abs, err := filepath.Abs(dir)
		if err != nil {
			continue
		}

		rel, err := filepath.Rel(base, abs)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}

		paths = append(paths, filepath.ToSlash(rel))
	}

	return paths
}

// underAny reports whether name is one of dirs or lies below one of them.
func underAny(name string, dirs []string) bool {
	for _, dir := range dirs {
		if name == dir || strings.HasPrefix(name, dir+"/") {
			return true
		}
	}

	return false
}

// excluded reports whether name or one of its parent directories matches an exclude pattern.
func excluded(name string, excludes []string) bool {
	for candidate := name; candidate != "." && candidate != "/"; candidate = path.Dir(candidate) {
		for _, pattern := range excludes {
			if matched, _ := doublestar.Match(pattern, candidate); matched {
				return true
			}
		}
	}

	return false
}

func stageEntry(baseDir, stagingDir, rel string) error {
	var (
		src = filepath.Join(baseDir, filepath.FromSlash(rel))
		dst = filepath.Join(stagingDir, filepath.FromSlash(rel))
	)

	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	if info.IsDir() {
		return os.MkdirAll(dst, fsutil.DirMode)
	}

	return fsutil.CopyFile(src, dst, info.Mode().Perm())
}
