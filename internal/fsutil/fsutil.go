// Package fsutil holds the directory-tree helpers shared by the staging,
// runtime and transform packages.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DirMode is used for every directory the packager creates.
const DirMode = 0o755

// Exists reports whether p exists. Errors other than "not exist" count as existing
// so callers fail later with the real error.
func Exists(p string) bool {
	_, err := os.Lstat(p)

	return !errors.Is(err, fs.ErrNotExist)
}

// CopyTree recreates src at dst, keeping file modes and symlinks.
// dst must not exist yet or must be an empty directory.
func CopyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(p)
			if err != nil {
				return err
			}

			return os.Symlink(link, target)
		case info.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		default:
			return CopyFile(p, target, info.Mode().Perm())
		}
	})
}

// CopyFile copies a regular file, creating parent directories as needed.
func CopyFile(src, dst string, perm fs.FileMode) (err error) {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	if err = os.MkdirAll(filepath.Dir(dst), DirMode); err != nil {
		return err
	}

	out, err := os.OpenFile(filepath.Clean(dst), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}

	return nil
}

// ReplaceDir removes dst when present and recreates it empty.
func ReplaceDir(dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("remove %s: %w", dst, err)
	}

	return os.MkdirAll(dst, DirMode)
}
