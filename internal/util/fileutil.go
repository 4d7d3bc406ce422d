package util

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// AtomicWrite replaces dst with everything read from r. The data goes to a
// temp file next to dst which is then renamed over it, so a concurrent
// reader sees either the old or the new content. dst's directory must
// already exist. dst always stays owner-writable so the next replace can
// succeed even when perm is read-only.
func AtomicWrite(dst string, r io.Reader, perm fs.FileMode) (int64, error) {
	dir, base := filepath.Split(dst)
	if dir == "" {
		dir = "."
	}

	f, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp := f.Name()

	n, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return n, fmt.Errorf("failed to write: %w", err)
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return n, fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return n, fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tmp, perm|0200); err != nil {
		_ = os.Remove(tmp)
		return n, fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return n, fmt.Errorf("failed to rename: %w", err)
	}

	return n, nil
}

// EnsureParentDir creates the directory tree that will hold path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	return nil
}

// ResetSource leaves an empty file at path, creating it and its directory
// when missing. created reports whether the file did not exist before.
func ResetSource(path string) (created bool, err error) {
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		created = true
	}

	if err := EnsureParentDir(path); err != nil {
		return false, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return false, fmt.Errorf("failed to reset %s: %w", path, err)
	}

	return created, f.Close()
}
