package transform

import (
	"crypto"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	// Register SHA-512 for the concatenation checksum.
	_ "crypto/sha512"
)

// ExecutableMode is applied to produced executables.
const ExecutableMode fs.FileMode = 0o755

// concatHash verifies the written executable.
const concatHash = crypto.SHA512

// Concat writes the parts one after another into dst. The result is verified
// against a checksum of the parts and swapped into place atomically, so a
// failed run never leaves a truncated executable behind.
func Concat(dst string, mode fs.FileMode, parts ...string) error {
	checksum, err := checksumOf(parts...)
	if err != nil {
		return err
	}

	readers := make([]io.Reader, 0, len(parts))

	for _, part := range parts {
		f, err := os.Open(filepath.Clean(part))
		if err != nil {
			return pathError(part, err)
		}

		defer func() {
			_ = f.Close()
		}()

		readers = append(readers, f)
	}

	if _, err = os.Stat(dst); errors.Is(err, fs.ErrNotExist) {
		f, err := os.OpenFile(filepath.Clean(dst), os.O_CREATE|os.O_WRONLY, mode)
		if err != nil {
			return pathError(dst, err)
		}

		_ = f.Close()
	}

	err = goupdate.Apply(io.MultiReader(readers...), goupdate.Options{
		TargetPath: dst,
		TargetMode: mode,
		Checksum:   checksum,
		Hash:       concatHash,
	})
	if err != nil {
		return pathError(dst, fmt.Errorf("write concatenated file: %w", err))
	}

	removeStaleBackups(dst)

	// The file mode passed to go-update is subject to the umask.
	return pathError(dst, os.Chmod(dst, mode))
}

func checksumOf(parts ...string) ([]byte, error) {
	hasher := concatHash.New()

	for _, part := range parts {
		if err := hashFile(hasher, part); err != nil {
			return nil, pathError(part, err)
		}
	}

	return hasher.Sum(nil), nil
}

func hashFile(w io.Writer, p string) error {
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

// removeStaleBackups deletes the backup copies go-update may leave next to dst.
func removeStaleBackups(dst string) {
	dir, name := filepath.Split(dst)

	for _, backup := range []string{
		filepath.Join(dir, "."+name+".old"),
		dst + ".old",
	} {
		_ = os.Remove(backup)
	}
}
