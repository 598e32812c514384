package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/bundlekit/finalizer/internal/fs"
	"github.com/bundlekit/finalizer/pkg/api"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: example ENTRY...")
		os.Exit(1)
	}

	realFS, err := fs.RealFS()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	result := api.Build(api.BuildOptions{
		LogLevel:    api.LogLevelWarning,
		EntryPoints: os.Args[1:],
		FS:          &EnvFS{FS: realFS, NodeEnv: "production"},
		Validate:    true,
	})
	if len(result.Errors) > 0 {
		os.Exit(1)
	}
	for _, file := range result.OutputFiles {
		fmt.Printf("//////// %s\n%s", file.Path, file.Contents)
	}
}

// EnvFS wraps the real file system in one that substitutes the value of
// "process.env.NODE_ENV" into every file as it is read
type EnvFS struct {
	fs.FS
	NodeEnv string
}

var _ fs.FS = (*EnvFS)(nil)

func (fs *EnvFS) ReadFile(path string) (string, error) {
	contents, err := fs.FS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(contents, "process.env.NODE_ENV", fmt.Sprintf("%q", fs.NodeEnv)), nil
}
