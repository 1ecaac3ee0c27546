// Package fsutil holds small filesystem helpers shared by the config tree code.
package fsutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

const defaultDirPerm os.FileMode = 0o755

// WriteFileAtomic writes data to a file atomically by writing to a temp file in
// the same directory and renaming it over filename.
func WriteFileAtomic(fs afero.Fs, filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	if err := fs.MkdirAll(dir, defaultDirPerm); err != nil {
		return fmt.Errorf("ensuring directories for %q: %w", filename, err)
	}
	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(filename)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file for %q: %w", filename, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = fs.Remove(tmpName)
	}
	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		cleanup()
		return fmt.Errorf("write temp file for %q: %w", filename, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file for %q: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("close temp file for %q: %w", filename, err)
	}
	if err := fs.Chmod(tmpName, perm); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("chmod temp file for %q: %w", filename, err)
	}
	if err := fs.Rename(tmpName, filename); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("rename temp file to %q: %w", filename, err)
	}
	return nil
}

// CopyFile copies src to dst, preserving the permission bits of src.
func CopyFile(fs afero.Fs, src string, dst string) error {
	info, err := fs.Stat(src)
	if err != nil {
		return err
	}
	data, err := afero.ReadFile(fs, src)
	if err != nil {
		return err
	}
	return WriteFileAtomic(fs, dst, data, permOr(info.Mode().Perm(), 0o644))
}

// CopyTree recursively copies the directory src into dst. dst is created when missing.
// A missing src is not an error; nothing is copied.
func CopyTree(fs afero.Fs, src string, dst string) error {
	if _, err := fs.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return afero.Walk(fs, src, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return fs.MkdirAll(target, permOr(info.Mode().Perm(), defaultDirPerm))
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("copy %s: unsupported file type %s", path, info.Mode().Type())
		}
		return CopyFile(fs, path, target)
	})
}

// ReadTree returns the contents of every regular file below root keyed by its
// slash-separated path relative to root. A missing root yields an empty map.
func ReadTree(fs afero.Fs, root string) (map[string][]byte, error) {
	files := map[string][]byte{}
	if _, err := fs.Stat(root); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return files, nil
		}
		return nil, err
	}
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ListFiles returns the sorted names of regular files in dir that end with suffix.
// Hidden files are skipped. A missing dir yields no names.
func ListFiles(fs afero.Fs, dir string, suffix string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether path exists.
func Exists(fs afero.Fs, path string) (bool, error) {
	_, err := fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func permOr(perm os.FileMode, fallback os.FileMode) os.FileMode {
	if perm == 0 {
		return fallback
	}
	return perm
}
