package api_test

import (
	"testing"

	"github.com/bundlekit/finalizer/internal/test"
	"github.com/bundlekit/finalizer/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	result := api.Build(api.BuildOptions{
		Files: map[string]string{
			"src/entry.js": "import {a} from './a'\nconsole.log(a)\n",
			"src/a.js":     "export let a = 1\nexport let b = 2\n",
		},
		EntryPoints: []string{"src/entry.js"},
		Exclude:     map[string][]uint32{"src/a.js": {1}},
		Validate:    true,
		Outdir:      "out",
	})
	require.Empty(t, result.Errors)
	require.Len(t, result.OutputFiles, 1)

	assert.Equal(t, "/out/entry.js", result.OutputFiles[0].Path)
	test.AssertEqualWithDiff(t, string(result.OutputFiles[0].Contents), `// src/a.js
let a = 1;

// src/entry.js
console.log(a);
`)
	assert.Equal(t, "let a = 1;\n", result.ModuleCode["src/a.js"])
}

func TestBuildErrors(t *testing.T) {
	result := api.Build(api.BuildOptions{
		Files: map[string]string{
			"entry.js": "import {nope} from './a'\n",
			"a.js":     "export let a = 1\n",
		},
		EntryPoints: []string{"entry.js"},
	})
	require.Len(t, result.Errors, 1)
	assert.Empty(t, result.OutputFiles)

	msg := result.Errors[0]
	assert.Equal(t, "No matching export in \"a.js\" for import \"nope\"", msg.Text)
	require.NotNil(t, msg.Location)
	assert.Equal(t, api.Location{
		File:     "entry.js",
		Line:     1,
		Column:   8,
		Length:   4,
		LineText: "import {nope} from './a'",
	}, *msg.Location)
}

func TestBuildValidatesOptions(t *testing.T) {
	result := api.Build(api.BuildOptions{
		Files:   map[string]string{"entry.js": "1"},
		Exclude: map[string][]uint32{"missing.js": {0}},
	})

	var texts []string
	for _, msg := range result.Errors {
		texts = append(texts, msg.Text)
	}
	assert.Equal(t, []string{
		"Cannot exclude statements from missing file \"missing.js\"",
		"No entry points were specified",
	}, texts)
}
