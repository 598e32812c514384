package bundler

import (
	"context"
	"strings"
	"testing"

	"github.com/bundlekit/finalizer/internal/config"
	"github.com/bundlekit/finalizer/internal/fs"
	"github.com/bundlekit/finalizer/internal/logger"
	"github.com/bundlekit/finalizer/internal/resolver"
	"github.com/bundlekit/finalizer/internal/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type bundled struct {
	files       map[string]string
	entryPaths  []string
	excluded    map[string][]uint32
	outdir      string
	expectedLog string
}

type bundleOutput struct {
	files      map[string]string
	moduleCode map[string]string
}

func (b bundled) run(t *testing.T) bundleOutput {
	t.Helper()
	mockFS := fs.MockFS(b.files, "/")
	options := config.DefaultOptions()
	options.Validate = true
	options.Workers = 2
	options.AbsOutputDir = b.outdir
	if b.excluded != nil {
		options.ExcludedStmts = make(map[string][]uint32)
		for path, indices := range b.excluded {
			options.ExcludedStmts[fs.Join("/", path)] = indices
		}
	}

	log := logger.NewDeferLog()
	bundle := ScanBundle(log, mockFS, resolver.NewResolver(mockFS), b.entryPaths, options)
	result, err := bundle.Compile(context.Background(), log, options, nil)
	require.NoError(t, err)

	text := ""
	for _, msg := range log.Done() {
		text += msg.String(logger.OutputOptions{}, logger.TerminalInfo{})
	}
	test.AssertEqualWithDiff(t, text, b.expectedLog)

	output := bundleOutput{files: make(map[string]string), moduleCode: result.ModuleCode}
	for _, file := range result.OutputFiles {
		output.files[file.AbsPath] = string(file.Contents)
	}
	return output
}

func TestSimpleESM(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/entry.js": `
				import {fn} from './foo'
				console.log(fn())
			`,
			"/foo.js": `
				export function fn() {
					return 123
				}
			`,
		},
		entryPaths: []string{"/entry.js"},
	}.run(t)

	test.AssertEqualWithDiff(t, out.files["entry.js"], `// foo.js
function fn() {
  return 123;
}

// entry.js
console.log(fn());
`)
}

func TestExcludedStatementIsDropped(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/entry.js": `
				import {used} from './lib'
				console.log(used)
			`,
			"/lib.js": `
				export let used = 1
				export let unused = 2
			`,
		},
		entryPaths: []string{"/entry.js"},
		excluded:   map[string][]uint32{"lib.js": {1}},
	}.run(t)

	code := out.moduleCode["lib.js"]
	assert.Equal(t, "let used = 1;\n", code)
	assert.NotContains(t, out.files["entry.js"], "unused")
}

func TestExcludedStatementOutOfRange(t *testing.T) {
	bundled{
		files: map[string]string{
			"/entry.js": `console.log(1)`,
		},
		entryPaths:  []string{"/entry.js"},
		excluded:    map[string][]uint32{"entry.js": {5}},
		expectedLog: "entry.js:1:0: error: Cannot exclude statement 5 because the file only has 1 statements\n",
	}.run(t)
}

func TestRequireOfESM(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/entry.js": `
				const lib = require('./lib')
				console.log(lib.x)
			`,
			"/lib.js": `
				export let x = 1
			`,
		},
		entryPaths: []string{"/entry.js"},
	}.run(t)

	lib := out.moduleCode["lib.js"]
	assert.Contains(t, lib, "var lib_exports, x;\n")
	assert.Contains(t, lib, "var init_lib = __esmMin(() => {")
	assert.Contains(t, lib, "  lib_exports = {};\n")
	assert.Contains(t, lib, "  __export(lib_exports, {")
	assert.Contains(t, lib, "  x = 1;\n")

	entry := out.moduleCode["entry.js"]
	assert.Contains(t, entry, "(init_lib(), __toCommonJS(lib_exports))")

	runtimeCode := out.moduleCode["<runtime>"]
	assert.Contains(t, runtimeCode, "var __esmMin =")
	assert.Contains(t, runtimeCode, "var __toCommonJS =")
	assert.NotContains(t, runtimeCode, "var __commonJSMin =")
	for _, line := range strings.Split(runtimeCode, "\n") {
		assert.False(t, strings.HasPrefix(line, "export "), line)
	}
}

func TestImportOfCommonJS(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/entry.js": `
				import {value} from './cjs'
				console.log(value)
			`,
			"/cjs.js": `
				exports.value = 123
			`,
		},
		entryPaths: []string{"/entry.js"},
	}.run(t)

	cjs := out.moduleCode["cjs.js"]
	assert.Contains(t, cjs, "var require_cjs = __commonJSMin((exports, module) => {")
	assert.Contains(t, cjs, "exports.value = 123;")

	entry := out.moduleCode["entry.js"]
	assert.Contains(t, entry, "var import_cjs = __toESM(require_cjs());")
	assert.Contains(t, entry, "console.log(import_cjs.value);")
}

func TestCommonJSEntryPointCallsWrapper(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/entry.js": `
				module.exports = 1
			`,
		},
		entryPaths: []string{"/entry.js"},
	}.run(t)

	assert.True(t, strings.HasSuffix(out.files["entry.js"], "\nrequire_entry();\n"))
}

func TestExportStarFromCommonJS(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/entry.js": `
				import * as ns from './reexport'
				console.log(ns.foo)
			`,
			"/reexport.js": `
				export * from './cjs'
				export let own = 1
			`,
			"/cjs.js": `
				exports.foo = 1
			`,
		},
		entryPaths: []string{"/entry.js"},
	}.run(t)

	reexport := out.moduleCode["reexport.js"]
	assert.Contains(t, reexport, "var reexport_exports = {};")
	assert.Contains(t, reexport, "own: () => own")
	assert.Contains(t, reexport, "__reExport(reexport_exports, __toESM(require_cjs()));")

	entry := out.moduleCode["entry.js"]
	assert.Contains(t, entry, "console.log(reexport_exports.foo);")
}

func TestImportFromDynamicExportsBecomesPropertyAccess(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/entry.js": `
				import {foo} from './reexport'
				foo()
			`,
			"/reexport.js": `
				export * from './cjs'
			`,
			"/cjs.js": `
				exports.foo = () => {}
			`,
		},
		entryPaths: []string{"/entry.js"},
	}.run(t)

	// Calling through a namespace must not pass the namespace as "this"
	assert.Contains(t, out.moduleCode["entry.js"], "(0, reexport_exports.foo)();")
}

func TestRenameCollision(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/entry.js": `
				import {Foo as Other} from './other'
				class Foo {}
				console.log(new Foo(), new Other())
			`,
			"/other.js": `
				export class Foo {}
			`,
		},
		entryPaths: []string{"/entry.js"},
	}.run(t)

	// The module that comes first in the bundle keeps the original name
	assert.Contains(t, out.moduleCode["other.js"], "class Foo {")
	entry := out.moduleCode["entry.js"]
	assert.Contains(t, entry, "var Foo$1 = class Foo {\n};")
	assert.Contains(t, entry, "console.log(new Foo$1(), new Foo());")
}

func TestRenamedClassDoesNotShadowImport(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/entry.js": `
				import {Foo as Other} from './other'
				class Foo {
					make() { return new Other() }
				}
				console.log(new Foo().make())
			`,
			"/other.js": `
				export class Foo {}
			`,
		},
		entryPaths: []string{"/entry.js"},
	}.run(t)

	// Naming the class expression "Foo" would make "new Foo()" construct
	// itself instead of the imported class
	entry := out.moduleCode["entry.js"]
	assert.Contains(t, entry, "var Foo$1 = class {")
	assert.Contains(t, entry, "return new Foo();")
	assert.NotContains(t, entry, "class Foo {")
}

func TestRenamedExpressionDoesNotShadowImport(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/entry.js": `
				import {f as y, h as z} from './lib'
				var f = class {
					make() { return y }
				}
				var h = function() { return z }
				var k = class {}
				console.log(f, h, k)
			`,
			"/lib.js": `
				export let f = 1, h = 2, k = 3
			`,
		},
		entryPaths: []string{"/entry.js"},
	}.run(t)

	entry := out.moduleCode["entry.js"]
	assert.Contains(t, entry, "var f$1 = class {")
	assert.Contains(t, entry, "return f;")
	assert.Contains(t, entry, "var h$1 = function() {")
	assert.Contains(t, entry, "return h;")
	assert.Contains(t, entry, "var k$1 = class k {")
	assert.Contains(t, entry, "console.log(f$1, h$1, k$1);")
}

func TestDefaultExportClassRenamed(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/entry.js": `
				import {Foo} from './a'
				import B from './b'
				console.log(Foo, B.self())
			`,
			"/a.js": `
				let Foo = 1
				export {Foo}
			`,
			"/b.js": `
				export default class Foo {
					static self() { return Foo }
				}
			`,
		},
		entryPaths: []string{"/entry.js"},
	}.run(t)

	b := out.moduleCode["b.js"]
	assert.Contains(t, b, "var Foo$1 = class Foo {")
	assert.Contains(t, b, "return Foo$1;")
	assert.NotContains(t, b, "b_default")
	assert.Contains(t, out.moduleCode["entry.js"], "console.log(Foo, Foo$1.self());")
}

func TestWrappedClassKeepsName(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/entry.js": `
				require('./lib')
			`,
			"/lib.js": `
				function helper() {}
				export class Foo {}
				export const a = helper(), b = 2
			`,
		},
		entryPaths: []string{"/entry.js"},
	}.run(t)

	lib := out.moduleCode["lib.js"]
	assert.Contains(t, lib, "function helper() {\n}")
	assert.Contains(t, lib, "var lib_exports, Foo, a, b;")
	assert.Contains(t, lib, "Foo = class Foo {")
	assert.Contains(t, lib, "a = helper(), b = 2;")

	// Function declarations are hoisted out of the closure
	assert.Less(t, strings.Index(lib, "function helper"), strings.Index(lib, "__esmMin"))
}

func TestShorthandPropertyKeepsKey(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/entry.js": `
				import {x as y} from './lib'
				let x = 0
				console.log({y, x})
			`,
			"/lib.js": `
				export let x = 1
			`,
		},
		entryPaths: []string{"/entry.js"},
	}.run(t)

	entry := out.moduleCode["entry.js"]
	assert.Contains(t, entry, "let x$1 = 0;")
	assert.Contains(t, entry, "y: x")
	assert.Contains(t, entry, "x: x$1")
}

func TestExternalImport(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/entry.js": `
				import {join} from 'path'
				import 'side-effect'
				console.log(join('a', 'b'))
			`,
		},
		entryPaths: []string{"/entry.js"},
	}.run(t)

	entry := out.moduleCode["entry.js"]
	assert.Contains(t, entry, "var import_path = __toESM(require(\"path\"));")
	assert.Contains(t, entry, "require(\"side-effect\");")
	assert.Contains(t, entry, "(0, import_path.join)(\"a\", \"b\")")
}

func TestMissingExport(t *testing.T) {
	bundled{
		files: map[string]string{
			"/entry.js": `import {valeu} from './foo'
console.log(valeu)`,
			"/foo.js": `export let value = 1`,
		},
		entryPaths:  []string{"/entry.js"},
		expectedLog: "entry.js:1:8: error: No matching export in \"foo.js\" for import \"valeu\" (did you mean \"value\"?)\n",
	}.run(t)
}

func TestCouldNotResolve(t *testing.T) {
	bundled{
		files: map[string]string{
			"/entry.js": `import './missing'`,
		},
		entryPaths:  []string{"/entry.js"},
		expectedLog: "entry.js:1:7: error: Could not resolve \"./missing\"\n",
	}.run(t)
}

func TestDynamicImportGetsChunk(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/entry.js": `
				import('./lazy').then(ns => console.log(ns.value))
			`,
			"/lazy.js": `
				export let value = 1
			`,
		},
		entryPaths: []string{"/entry.js"},
		outdir:     "/out",
	}.run(t)

	require.Contains(t, out.files, "/out/entry.js")
	require.Contains(t, out.files, "/out/lazy.js")
	assert.Contains(t, out.files["/out/entry.js"], "import(\"./lazy.js\")")
	assert.NotContains(t, out.files["/out/entry.js"], "// lazy.js")

	// The target of "import()" is observed through its namespace
	assert.Contains(t, out.moduleCode["lazy.js"], "var lazy_exports = {};")
	assert.True(t, strings.HasSuffix(out.files["/out/lazy.js"], "\nexport { value };\n"), out.files["/out/lazy.js"])
	assert.NotContains(t, out.files["/out/entry.js"], "export {")
}

func TestDynamicImportOfCommonJS(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/entry.js": `
				import('./cjs').then(ns => console.log(ns.default))
			`,
			"/cjs.js": `
				module.exports = 1
			`,
		},
		entryPaths: []string{"/entry.js"},
	}.run(t)

	assert.True(t, strings.HasSuffix(out.files["cjs.js"], "\nexport default require_cjs();\n"), out.files["cjs.js"])
}

func TestDynamicImportOfWrappedModule(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/entry.js": `
				const lib = require('./lib')
				import('./lib').then(ns => console.log(ns.renamed, lib))
			`,
			"/lib.js": `
				let value = 1
				export {value as renamed}
			`,
		},
		entryPaths: []string{"/entry.js"},
	}.run(t)

	assert.True(t, strings.HasSuffix(out.files["lib.js"], "\ninit_lib();\nexport { value as renamed };\n"), out.files["lib.js"])
}

func TestRuntimeHelpersArePerChunk(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/entry.js": `
				const c = require('./cjs')
				import('./lazy').then(ns => console.log(ns.value, c))
			`,
			"/cjs.js": `
				module.exports = 1
			`,
			"/lazy.js": `
				export let value = 1
			`,
		},
		entryPaths: []string{"/entry.js"},
	}.run(t)

	entry := out.files["entry.js"]
	assert.Contains(t, entry, "var __commonJSMin =")
	assert.NotContains(t, entry, "var __export =")

	lazy := out.files["lazy.js"]
	assert.Contains(t, lazy, "var __export =")
	assert.Contains(t, lazy, "var __defProp =")
	assert.NotContains(t, lazy, "__commonJSMin")

	// The runtime module itself has every helper that any chunk uses
	runtimeCode := out.moduleCode["<runtime>"]
	assert.Contains(t, runtimeCode, "var __commonJSMin =")
	assert.Contains(t, runtimeCode, "var __export =")
}

func TestExportStarFromDynamicExports(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/entry.js": `
				import * as ns from './b'
				console.log(ns)
			`,
			"/b.js": `
				export let before = 1
				export * from './a'
				export let after = 2
			`,
			"/a.js": `
				export * from './cjs'
			`,
			"/cjs.js": `
				exports.foo = 1
			`,
		},
		entryPaths: []string{"/entry.js"},
	}.run(t)

	assert.Contains(t, out.moduleCode["a.js"], "__reExport(a_exports, __toESM(require_cjs()));")

	// The copy happens where the statement was
	b := out.moduleCode["b.js"]
	before := strings.Index(b, "let before = 1;")
	reExport := strings.Index(b, "__reExport(b_exports, a_exports);")
	after := strings.Index(b, "let after = 2;")
	require.NotEqual(t, -1, before)
	require.NotEqual(t, -1, reExport)
	require.NotEqual(t, -1, after)
	assert.Less(t, before, reExport)
	assert.Less(t, reExport, after)
	assert.NotContains(t, b, "export ")
}

func TestShorthandPatternsAreExpanded(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/entry.js": `
				import {a as o} from './lib'
				let x
				const {a, d = 1, b} = o
				;({x} = o)
				;({x = 3} = o)
				console.log(a, b, d, x)
			`,
			"/lib.js": `
				export let a = {}, d = 2, x = 3
			`,
		},
		entryPaths: []string{"/entry.js"},
	}.run(t)

	entry := out.moduleCode["entry.js"]
	assert.Contains(t, entry, "const { a: a$1, d: d$1 = 1, b } = a;")
	assert.Contains(t, entry, "({ x: x$1 } = a);")
	assert.Contains(t, entry, "({ x: x$1 = 3 } = a);")
	assert.Contains(t, entry, "console.log(a$1, b, d$1, x$1);")
}

func TestChunkNamesAreUnique(t *testing.T) {
	out := bundled{
		files: map[string]string{
			"/a/index.js": `console.log(1)`,
			"/b/index.js": `console.log(2)`,
		},
		entryPaths: []string{"/a/index.js", "/b/index.js"},
	}.run(t)

	assert.Contains(t, out.files, "index.js")
	assert.Contains(t, out.files, "index2.js")
}

func TestDuplicateEntryPoint(t *testing.T) {
	bundled{
		files: map[string]string{
			"/entry.js": `console.log(1)`,
		},
		entryPaths:  []string{"/entry.js", "./entry.js"},
		expectedLog: "error: Duplicate entry point \"./entry.js\"\n",
	}.run(t)
}

func TestBuildIsDeterministic(t *testing.T) {
	b := bundled{
		files: map[string]string{
			"/entry.js": `
				import {a} from './a'
				import {b} from './b'
				const c = require('./c')
				console.log(a, b, c)
			`,
			"/a.js": `export let a = 1; export let shared = 1`,
			"/b.js": `export let b = 2; let shared = 2; console.log(shared)`,
			"/c.js": `module.exports = {shared: 3}`,
		},
		entryPaths: []string{"/entry.js"},
	}

	first := b.run(t)
	for i := 0; i < 5; i++ {
		next := b.run(t)
		assert.Equal(t, first.files, next.files)
	}
}
