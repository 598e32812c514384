package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

type realFS struct {
	cwd string
}

func RealFS() (FS, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("cannot determine the working directory: %w", err)
	}

	// Resolve symlinks in the working directory so that the same file is
	// recognized as such no matter which path was used to reach it
	if path, err := filepath.EvalSymlinks(cwd); err == nil {
		cwd = path
	}
	return &realFS{cwd: filepath.ToSlash(cwd)}, nil
}

func (fs *realFS) ReadFile(path string) (string, error) {
	bytes, err := os.ReadFile(filepath.FromSlash(fs.Abs(path)))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", path, ErrNotExist)
	}
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	return string(bytes), nil
}

func (fs *realFS) IsFile(path string) bool {
	info, err := os.Stat(filepath.FromSlash(fs.Abs(path)))
	return err == nil && info.Mode().IsRegular()
}

func (fs *realFS) Abs(path string) string {
	path = filepath.ToSlash(path)
	if filepath.IsAbs(filepath.FromSlash(path)) {
		return Clean(path)
	}
	return Join(fs.cwd, path)
}

func (fs *realFS) Cwd() string {
	return fs.cwd
}
