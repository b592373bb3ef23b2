package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const dirMode = 0o755

// ErrUnsafePath is returned for entries that would land outside the destination.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// FormatOf infers the format from a file name.
func FormatOf(name string) (Format, error) {
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return TarGz, nil
	case strings.HasSuffix(name, ".zip"), strings.HasSuffix(name, ".nw"):
		return Zip, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Base(name))
	}
}

// Extract unpacks src into destDir, creating it when needed.
func Extract(src, destDir string) error {
	format, err := FormatOf(src)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(destDir, dirMode); err != nil {
		return err
	}

	if format == Zip {
		return extractZip(src, destDir)
	}

	return extractTarGz(src, destDir)
}

// safeJoin resolves name below destDir or fails.
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))

	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}

	return target, nil
}

func extractZip(src, destDir string) error {
	zr, err := zip.OpenReader(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	defer func() {
		_ = zr.Close()
	}()

	for _, f := range zr.File {
		if err = extractZipEntry(f, destDir); err != nil {
			return err
		}
	}

	return nil
}

func extractZipEntry(f *zip.File, destDir string) error {
	p, err := safeJoin(destDir, f.Name)
	if err != nil {
		return err
	}

	mode := f.Mode()

	if mode.IsDir() {
		return os.MkdirAll(p, dirMode)
	}

	if err = os.MkdirAll(filepath.Dir(p), dirMode); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}

	defer func() {
		_ = rc.Close()
	}()

	if mode&fs.ModeSymlink != 0 {
		link, readErr := io.ReadAll(rc)
		if readErr != nil {
			return readErr
		}

		return os.Symlink(string(link), p)
	}

	return writeFile(p, rc, mode.Perm())
}

func extractTarGz(src, destDir string) error {
	f, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("open gzip: %w", err)
	}

	defer func() {
		_ = gz.Close()
	}()

	tr := tar.NewReader(gz)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}

		p, err := safeJoin(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			err = os.MkdirAll(p, dirMode)
		case tar.TypeSymlink:
			if err = os.MkdirAll(filepath.Dir(p), dirMode); err == nil {
				err = os.Symlink(header.Linkname, p)
			}
		case tar.TypeReg:
			if err = os.MkdirAll(filepath.Dir(p), dirMode); err == nil {
				err = writeFile(p, tr, fs.FileMode(header.Mode).Perm()) //nolint:gosec // Mode bits come from the archive.
			}
		default:
			continue
		}

		if err != nil {
			return err
		}
	}
}

func writeFile(p string, r io.Reader, perm fs.FileMode) (err error) {
	if perm == 0 {
		perm = fileMode
	}

	out, err := os.OpenFile(filepath.Clean(p), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	_, err = io.Copy(out, r) //nolint:gosec // Runtime archives are trusted downloads.

	return err
}
