package config

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseManifest(t *testing.T) {
	manifest, err := ParseManifest([]byte(`
entryPoints: [entry.js]
files:
  entry.js: |
    import {a} from './a'
  a.js:
    contents: export let a = 1
    exclude: [0, 2]
  b.js:
    path: src/b.js
workers: 3
validate: true
logLevel: debug
outdir: /out
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"entry.js"}, manifest.EntryPoints)
	assert.Equal(t, []string{"a.js", "b.js", "entry.js"}, manifest.SortedFileNames())
	assert.Equal(t, "import {a} from './a'\n", manifest.Files["entry.js"].Contents)
	assert.Equal(t, []uint32{0, 2}, manifest.Files["a.js"].Exclude)
	assert.Equal(t, "src/b.js", manifest.Files["b.js"].Path)

	options := manifest.Options()
	assert.Equal(t, 3, options.Workers)
	assert.True(t, options.Validate)
	assert.Equal(t, zapcore.DebugLevel, options.LogLevel)
	assert.Equal(t, "/out", options.AbsOutputDir)
	assert.Equal(t, ".js", options.OutputExtension)
}

func TestParseManifestErrors(t *testing.T) {
	cases := map[string]string{
		"no entry points":  "files: {a.js: x}",
		"unknown field":    "entryPoints: [a.js]\nentrypoint: a.js",
		"bad log level":    "entryPoints: [a.js]\nlogLevel: loud",
		"negative workers": "entryPoints: [a.js]\nworkers: -1",
		"path and inline":  "entryPoints: [a.js]\nfiles:\n  a.js: {path: x.js, contents: y}",
		"empty file":       "entryPoints: [a.js]\nfiles:\n  a.js:",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseManifest([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestLoadFiles(t *testing.T) {
	manifest, err := ParseManifest([]byte("entryPoints: [a.js]\nfiles:\n  a.js: {path: src/a.js}\n  b.js: inline\n"))
	require.NoError(t, err)

	var read []string
	err = manifest.LoadFiles("/project", func(path string) ([]byte, error) {
		read = append(read, path)
		return []byte("export default 1"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/project/src/a.js"}, read)
	assert.Equal(t, "export default 1", manifest.Files["a.js"].Contents)
	assert.Empty(t, manifest.Files["a.js"].Path)
	assert.Equal(t, "inline", manifest.Files["b.js"].Contents)

	manifest.Files["c.js"] = &FileSpec{Path: "missing.js"}
	err = manifest.LoadFiles("/project", func(string) ([]byte, error) { return nil, os.ErrNotExist })
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, level)

	level, err = ParseLogLevel("error")
	require.NoError(t, err)
	assert.Equal(t, zapcore.ErrorLevel, level)
}
