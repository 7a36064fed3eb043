// Package fileutil provides the filesystem primitives migration is built on:
// digest-producing streamed copies, durable writes, and link creation.
package fileutil

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"reelvault/internal/digest"
)

// CopyFileDigest streams src to dst with a fixed-size buffer, returning the
// digest and byte count of the data written. dst is synced before close so a
// later rename publishes fully durable bytes. On error dst is removed.
func CopyFileDigest(src, dst string, blockSize int) (string, int64, error) {
	if blockSize <= 0 {
		blockSize = digest.DefaultBlockSize
	}

	in, err := os.Open(src)
	if err != nil {
		return "", 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", 0, err
	}

	hasher := sha256.New()
	buf := make([]byte, blockSize)
	written, err := io.CopyBuffer(io.MultiWriter(out, hasher), in, buf)
	if err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", 0, err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", 0, fmt.Errorf("sync %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", 0, err
	}

	return digest.Format(hasher.Sum(nil)), written, nil
}

// EnsureParentDir creates the directory containing path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Hardlink links newname to the existing oldname, replacing any previous
// entry at newname.
func Hardlink(oldname, newname string) error {
	if err := EnsureParentDir(newname); err != nil {
		return err
	}
	if err := os.Remove(newname); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Link(oldname, newname)
}

// Symlink points newname at oldname, replacing any previous entry.
func Symlink(oldname, newname string) error {
	if err := EnsureParentDir(newname); err != nil {
		return err
	}
	if err := os.Remove(newname); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Symlink(oldname, newname)
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
