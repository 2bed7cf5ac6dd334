package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// EnsureDir creates dir and any missing parents. Existing directories are
// not an error, so racing creators are safe.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// MoveEntry relocates a file or directory to dst. It prefers a rename and
// falls back to copy+delete when src and dst live on different filesystems.
func MoveEntry(src, dst string) error {
	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return fmt.Errorf("prepare destination: %w", err)
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return fmt.Errorf("rename %s: %w", src, err)
	}

	info, statErr := os.Stat(src)
	if statErr != nil {
		return fmt.Errorf("stat source: %w", statErr)
	}
	if info.IsDir() {
		if err := CopyTree(src, dst); err != nil {
			_ = os.RemoveAll(dst)
			return err
		}
		return os.RemoveAll(src)
	}
	if err := CopyFileMode(src, dst, info.Mode().Perm()); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// CopyTree recursively copies the directory rooted at src to dst.
func CopyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if entry.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		return CopyFileMode(path, target, info.Mode().Perm())
	})
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, syscall.EXDEV)
	}
	return errors.Is(err, syscall.EXDEV)
}
