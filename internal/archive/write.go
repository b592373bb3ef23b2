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
	"path"
	"path/filepath"
)

// Format is an archive format understood by Write and Extract.
type Format string

const (
	// Zip is a zip archive.
	Zip Format = "zip"
	// TarGz is a gzip-compressed tar archive.
	TarGz Format = "tar.gz"

	fileMode = 0o644
)

// ErrUnsupportedFormat is returned for formats other than zip and tar.gz.
var ErrUnsupportedFormat = errors.New("unsupported archive format")

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case Zip, TarGz:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Write archives srcDir into dst. Every entry is placed under root;
// an empty root puts the directory contents at the archive root.
func Write(format Format, dst, srcDir, root string) (err error) {
	if _, err = ParseFormat(string(format)); err != nil {
		return err
	}

	out, err := os.Create(filepath.Clean(dst))
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close archive: %w", closeErr)
		}

		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	if format == Zip {
		return writeZip(out, srcDir, root)
	}

	return writeTarGz(out, srcDir, root)
}

// entry is a visited file with its archive name.
type entry struct {
	path string
	name string
	info fs.FileInfo
	link string
}

// walk visits srcDir in lexical order and reports archive names under root.
func walk(srcDir, root string, visit func(e entry) error) error {
	return filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}

		name := path.Join(root, filepath.ToSlash(rel))
		if rel == "." {
			if root == "" {
				return nil
			}

			name = root
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		e := entry{path: p, name: name, info: info}

		if info.Mode()&fs.ModeSymlink != 0 {
			if e.link, err = os.Readlink(p); err != nil {
				return err
			}
		}

		return visit(e)
	})
}

func writeZip(out io.Writer, srcDir, root string) error {
	zw := zip.NewWriter(out)

	err := walk(srcDir, root, func(e entry) error {
		header, err := zip.FileInfoHeader(e.info)
		if err != nil {
			return err
		}

		header.Name = e.name

		switch {
		case e.info.IsDir():
			header.Name += "/"
			header.Method = zip.Store
		case e.link != "":
			header.Method = zip.Store
		default:
			header.Method = zip.Deflate
		}

		w, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("zip header %s: %w", e.name, err)
		}

		switch {
		case e.info.IsDir():
			return nil
		case e.link != "":
			_, err = io.WriteString(w, e.link)

			return err
		default:
			return copyFileTo(w, e.path)
		}
	})
	if err != nil {
		_ = zw.Close()

		return err
	}

	return zw.Close()
}

func writeTarGz(out io.Writer, srcDir, root string) error {
	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	err := walk(srcDir, root, func(e entry) error {
		header, err := tar.FileInfoHeader(e.info, e.link)
		if err != nil {
			return err
		}

		header.Name = e.name
		if e.info.IsDir() {
			header.Name += "/"
		}

		// Host account names are meaningless to whoever extracts the archive.
		header.Uid, header.Gid, header.Uname, header.Gname = 0, 0, "", ""

		if err = tw.WriteHeader(header); err != nil {
			return fmt.Errorf("tar header %s: %w", e.name, err)
		}

		if !e.info.Mode().IsRegular() {
			return nil
		}

		return copyFileTo(tw, e.path)
	})
	if err != nil {
		_ = tw.Close()
		_ = gz.Close()

		return err
	}

	if err = tw.Close(); err != nil {
		return err
	}

	return gz.Close()
}

func copyFileTo(w io.Writer, p string) error {
	f, err := os.Open(filepath.Clean(p))
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	_, err = io.Copy(w, f)

	return err
}
