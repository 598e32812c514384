package resolver

import (
	"testing"

	"github.com/bundlekit/finalizer/internal/ast"
	"github.com/bundlekit/finalizer/internal/fs"
	"github.com/bundlekit/finalizer/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver() *Resolver {
	return NewResolver(fs.MockFS(map[string]string{
		"/app/entry.js":         "",
		"/app/util.js":          "",
		"/app/lib/index.js":     "",
		"/app/lib/helper.mjs":   "",
		"/app/nested/deep.js":   "",
		"/app/nested/index.cjs": "",
	}, "/app"))
}

func expectResolved(t *testing.T, sourceDir string, importPath string, expected string) {
	t.Helper()
	t.Run(importPath, func(t *testing.T) {
		t.Helper()
		result := newTestResolver().Resolve(sourceDir, importPath, ast.ImportStmt)
		require.NotNil(t, result)
		assert.False(t, result.IsExternal)
		assert.True(t, result.Path.IsFile())
		assert.Equal(t, expected, result.Path.Text)
	})
}

func TestResolveRelative(t *testing.T) {
	expectResolved(t, "/app", "./util.js", "/app/util.js")
	expectResolved(t, "/app", "./util", "/app/util.js")
	expectResolved(t, "/app", "./lib", "/app/lib/index.js")
	expectResolved(t, "/app/lib", "./helper", "/app/lib/helper.mjs")
	expectResolved(t, "/app/lib", "../nested/deep", "/app/nested/deep.js")
	expectResolved(t, "/app/lib", "../nested", "/app/nested/index.cjs")
	expectResolved(t, "/other", "/app/util", "/app/util.js")
}

func TestResolveExternal(t *testing.T) {
	r := newTestResolver()
	for _, path := range []string{"react", "@scope/pkg", "lodash/fp", "node:fs"} {
		result := r.Resolve("/app", path, ast.ImportRequire)
		require.NotNil(t, result, path)
		assert.True(t, result.IsExternal, path)
		assert.Equal(t, path, result.Path.Text)
		assert.False(t, result.Path.IsFile(), path)
	}
}

func TestResolveEntryPoint(t *testing.T) {
	result := newTestResolver().Resolve("/app", "entry.js", ast.ImportEntryPoint)
	require.NotNil(t, result)
	assert.Equal(t, "/app/entry.js", result.Path.Text)
}

func TestResolveMissing(t *testing.T) {
	r := newTestResolver()
	assert.Nil(t, r.Resolve("/app", "./missing", ast.ImportStmt))
	assert.Nil(t, r.Resolve("/app", "missing.js", ast.ImportEntryPoint))
}

func TestPrettyPath(t *testing.T) {
	mock := fs.MockFS(nil, "/app")
	assert.Equal(t, "lib/index.js", PrettyPath(mock, logger.Path{Text: "/app/lib/index.js", Namespace: "file"}))
	assert.Equal(t, "/other/x.js", PrettyPath(mock, logger.Path{Text: "/other/x.js", Namespace: "file"}))
	assert.Equal(t, "react", PrettyPath(mock, logger.Path{Text: "react"}))
}

func TestPrettyPathAtRoot(t *testing.T) {
	mock := fs.MockFS(nil, "/")
	assert.Equal(t, "lib.js", PrettyPath(mock, logger.Path{Text: "/lib.js", Namespace: "file"}))
	assert.Equal(t, "src/a.js", PrettyPath(mock, logger.Path{Text: "/src/a.js", Namespace: "file"}))
}
