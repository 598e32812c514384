package fs

// The bundler only needs to read files and ask whether paths exist. Both the
// real file system and the mock used by tests use "/" as the separator in the
// paths they hand out, since those paths end up in the generated output and
// the output should not depend on the OS.

import (
	"errors"
	"path"
	"strings"
)

var ErrNotExist = errors.New("file does not exist")

type FS interface {
	ReadFile(path string) (string, error)
	IsFile(path string) bool

	// These are part of the interface because the mock used for tests must
	// not depend on the working directory of the test process
	Abs(path string) string
	Cwd() string
}

// Resolves "." and ".." and removes trailing slashes
func Clean(p string) string {
	return path.Clean(p)
}

func Dir(p string) string {
	return path.Dir(p)
}

func Join(parts ...string) string {
	return path.Join(parts...)
}

// Returns "target" relative to "base" if "target" is inside "base". Otherwise
// "target" is returned unchanged.
func Rel(base string, target string) string {
	if base == "/" {
		return strings.TrimPrefix(target, "/")
	}
	if strings.HasPrefix(target, base+"/") {
		return target[len(base)+1:]
	}
	return target
}
