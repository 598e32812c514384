package fs

// This is a mock implementation of the "fs" module for use with tests. It does
// not actually read from the file system. Instead, it reads from a pre-specified
// map of file paths to files.

import (
	"fmt"
	"strings"
)

type mockFS struct {
	files         map[string]string
	absWorkingDir string
}

func MockFS(input map[string]string, absWorkingDir string) FS {
	files := make(map[string]string, len(input))
	for k, v := range input {
		if !strings.HasPrefix(k, "/") {
			k = Join(absWorkingDir, k)
		}
		files[Clean(k)] = v
	}
	return &mockFS{files: files, absWorkingDir: absWorkingDir}
}

func (fs *mockFS) ReadFile(path string) (string, error) {
	if contents, ok := fs.files[fs.Abs(path)]; ok {
		return contents, nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrNotExist)
}

func (fs *mockFS) IsFile(path string) bool {
	_, ok := fs.files[fs.Abs(path)]
	return ok
}

func (fs *mockFS) Abs(path string) string {
	if strings.HasPrefix(path, "/") {
		return Clean(path)
	}
	return Join(fs.absWorkingDir, path)
}

func (fs *mockFS) Cwd() string {
	return fs.absWorkingDir
}
