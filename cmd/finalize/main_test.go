package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/bundlekit/finalizer/internal/exitcode"
	"github.com/bundlekit/finalizer/internal/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `entryPoints: [entry.js]
files:
  entry.js: |
    import {a} from './lib'
    console.log(a)
  lib.js:
    path: src/lib.js
    exclude: [1]
validate: true
`

func writeManifest(t *testing.T, manifest string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "lib.js"), []byte("export let a = 1\nexport let b = 2\n"), 0o644))
	path := filepath.Join(dir, "build.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))
	return path
}

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBuildPrintsChunk(t *testing.T) {
	out, err := execute("build", writeManifest(t, testManifest), "--log-level", "error")
	require.NoError(t, err)
	test.AssertEqualWithDiff(t, out, `// lib.js
let a = 1;

// entry.js
console.log(a);
`)
}

func TestBuildWritesOutdir(t *testing.T) {
	manifestPath := writeManifest(t, testManifest)
	outdir := filepath.Join(t.TempDir(), "out")

	out, err := execute("build", manifestPath, "--outdir", outdir, "--workers", "2")
	require.NoError(t, err)
	assert.Empty(t, out)

	contents, err := os.ReadFile(filepath.Join(outdir, "entry.js"))
	require.NoError(t, err)
	assert.Contains(t, string(contents), "console.log(a);")
}

func TestInspect(t *testing.T) {
	manifestPath := writeManifest(t, testManifest)

	out, err := execute("inspect", manifestPath, "./lib.js")
	require.NoError(t, err)
	assert.Equal(t, "let a = 1;\n", out)

	_, err = execute("inspect", manifestPath, "missing.js")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no module named "missing.js"`)
}

func TestBuildFailures(t *testing.T) {
	_, err := execute("build", writeManifest(t, "entryPoints: []\n"))
	require.Error(t, err)
	assert.Equal(t, exitcode.Usage, exitcode.Get(err))

	_, err = execute("build", writeManifest(t, "entryPoints: [entry.js]\nfiles:\n  entry.js: \"import {x} from './nope'\"\n"))
	require.Error(t, err)
	assert.Equal(t, exitcode.Diagnostics, exitcode.Get(err))

	_, err = execute("build", writeManifest(t, testManifest), "--log-level", "loud")
	require.Error(t, err)
	assert.Equal(t, exitcode.Usage, exitcode.Get(err))
}
