package resolver

// Only relative and absolute paths are resolved to files. Everything else is
// a package path and is left for the runtime to load, which is how the output
// refers to modules that weren't bundled. Given "./x", paths are tried in the
// following order:
//
//   ./x
//   ./x.js
//   ./x/index.js
//

import (
	"fmt"
	"strings"

	"github.com/bundlekit/finalizer/internal/ast"
	"github.com/bundlekit/finalizer/internal/fs"
	"github.com/bundlekit/finalizer/internal/logger"
)

type ResolveResult struct {
	// The namespace is "file" for bundled modules and empty for external ones
	Path logger.Path

	IsExternal bool
}

type Resolver struct {
	fs             fs.FS
	extensionOrder []string
}

func NewResolver(fs fs.FS) *Resolver {
	return &Resolver{
		fs:             fs,
		extensionOrder: []string{".js", ".mjs", ".cjs"},
	}
}

// Returns nil if the path looks like a file but no file was found
func (r *Resolver) Resolve(sourceDir string, importPath string, kind ast.ImportKind) *ResolveResult {
	if IsPackagePath(importPath) {
		// Entry points are never packages. "entry.js" means "./entry.js" there.
		if kind != ast.ImportEntryPoint {
			return &ResolveResult{Path: logger.Path{Text: importPath}, IsExternal: true}
		}
		importPath = "./" + importPath
	}

	absPath := importPath
	if !strings.HasPrefix(importPath, "/") {
		absPath = fs.Join(sourceDir, importPath)
	}
	if path, ok := r.loadAsFileOrDirectory(r.fs.Abs(absPath)); ok {
		return &ResolveResult{Path: logger.Path{Text: path, Namespace: "file"}}
	}
	return nil
}

func (r *Resolver) loadAsFileOrDirectory(path string) (string, bool) {
	if r.fs.IsFile(path) {
		return path, true
	}
	for _, ext := range r.extensionOrder {
		if r.fs.IsFile(path + ext) {
			return path + ext, true
		}
	}
	for _, ext := range r.extensionOrder {
		if index := fs.Join(path, "index"+ext); r.fs.IsFile(index) {
			return index, true
		}
	}
	return "", false
}

// The path shown to the user and used in "// path" comments in the output
func PrettyPath(fsys fs.FS, path logger.Path) string {
	if !path.IsFile() {
		return path.Text
	}
	return fs.Rel(fsys.Cwd(), path.Text)
}

func IsPackagePath(path string) bool {
	return !strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "./") &&
		!strings.HasPrefix(path, "../") && path != "." && path != ".."
}

func CouldNotResolveText(importPath string) string {
	return fmt.Sprintf("Could not resolve %q", importPath)
}
