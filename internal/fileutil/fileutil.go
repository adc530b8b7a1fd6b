package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyFileVerified writes src to a freshly created dst with the given mode,
// then re-reads dst and compares SHA-256 digests against the source stream.
// dst must not exist; it is removed again whenever the copy or the
// verification fails. Returns the number of bytes written.
func CopyFileVerified(src, dst string, mode fs.FileMode) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return 0, err
	}

	want := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, want), in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return 0, err
	}

	got, landed, err := digestFile(dst)
	if err != nil {
		_ = os.Remove(dst)
		return 0, fmt.Errorf("verify %s: %w", dst, err)
	}
	if landed != written || !bytes.Equal(got, want.Sum(nil)) {
		_ = os.Remove(dst)
		return 0, fmt.Errorf("verify %s: content differs from source after copy", dst)
	}
	return written, nil
}

// digestFile reads path back from disk and returns its SHA-256 sum and size.
func digestFile(path string) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return nil, 0, err
	}
	return h.Sum(nil), n, nil
}

// CopyTree mirrors the directory rooted at src into dst, which must not exist
// yet. Directories are recreated with their permission bits and regular files
// are copied with integrity verification. Any other entry type (symlinks,
// devices) fails the copy. Returns the number of files and total bytes copied.
func CopyTree(src, dst string) (int, int64, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, 0, fmt.Errorf("stat source: %w", err)
	}
	if !srcInfo.IsDir() {
		return 0, 0, fmt.Errorf("source %s is not a directory", src)
	}
	if _, err := os.Lstat(dst); err == nil {
		return 0, 0, fmt.Errorf("destination %s already exists", dst)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return 0, 0, fmt.Errorf("stat destination: %w", err)
	}

	files := 0
	var size int64
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		case d.Type().IsRegular():
			n, err := CopyFileVerified(path, target, info.Mode().Perm())
			if err != nil {
				return fmt.Errorf("copy %s: %w", rel, err)
			}
			files++
			size += n
			return nil
		default:
			return fmt.Errorf("unsupported entry %s (%s)", rel, d.Type())
		}
	})
	return files, size, err
}
