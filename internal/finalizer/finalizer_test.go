package finalizer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bundlekit/finalizer/internal/ast"
	"github.com/bundlekit/finalizer/internal/graph"
	"github.com/bundlekit/finalizer/internal/js_ast"
	"github.com/bundlekit/finalizer/internal/js_parser"
	"github.com/bundlekit/finalizer/internal/js_printer"
	"github.com/bundlekit/finalizer/internal/logger"
	"github.com/bundlekit/finalizer/internal/renamer"
	"github.com/bundlekit/finalizer/internal/runtime"
	"github.com/bundlekit/finalizer/internal/test"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type linkedGraph struct {
	graph   graph.Graph
	renamer renamer.Renamer
}

// Builds a graph of the runtime plus the given modules. None of the modules
// import each other, so there is nothing for a linker to do except naming.
func makeGraph(t *testing.T, contents ...string) *linkedGraph {
	t.Helper()
	log := logger.NewDeferLog()

	files := []graph.InputFile{}
	runtimeAST, ok := js_parser.Parse(log, runtime.Source())
	require.True(t, ok)
	files = append(files, graph.InputFile{Source: runtime.Source(), AST: runtimeAST, IsRuntime: true})

	for i, text := range contents {
		source := test.SourceForTest(fmt.Sprintf("module%d.js", i+1), text)
		source.Index = uint32(i + 1)
		tree, ok := js_parser.Parse(log, source)
		require.True(t, ok, "failed to parse %s", source.PrettyPath)
		files = append(files, graph.InputFile{Source: source, AST: tree})
	}
	require.False(t, log.HasErrors())

	reachable := make([]uint32, len(files))
	for i := range files {
		reachable[i] = uint32(i)
	}
	g := graph.MakeGraph(files, reachable)
	for _, sourceIndex := range reachable {
		g.Modules[sourceIndex].ExportsKind = graph.ExportsESM
	}
	return &linkedGraph{graph: g}
}

// Wraps a module in an ESM closure the way the linker does for a module that
// something requires
func (lg *linkedGraph) wrapESM(sourceIndex uint32) {
	module := &lg.graph.Modules[sourceIndex]
	module.Link.Wrap = graph.WrapESM
	module.Link.WrapperRef = module.Ref(module.AST.WrapperRef)
	module.Link.WrapperStmtInfo = ast.MakeIndex32(uint32(len(module.StmtInfos)))
	module.StmtInfos = append(module.StmtInfos, graph.StmtInfo{IsIncluded: true})
}

func (lg *linkedGraph) rename() {
	r := renamer.NewNumberRenamer(lg.graph.Symbols, nil)
	nestedScopes := make(map[uint32][]*js_ast.Scope)
	for _, sourceIndex := range lg.graph.ReachableModules {
		module := &lg.graph.Modules[sourceIndex]
		for _, id := range module.AST.ModuleScope.Ordered {
			r.AddTopLevelSymbol(module.Ref(id))
		}
		nestedScopes[sourceIndex] = module.AST.ModuleScope.Children
	}
	r.AssignNamesByScope(nestedScopes)
	ast.FollowAllSymbols(lg.graph.Symbols)
	lg.renamer = r
}

func (lg *linkedGraph) print(sourceIndex uint32) string {
	module := &lg.graph.Modules[sourceIndex]
	return string(js_printer.Print(module.AST.Directives, module.AST.Stmts, js_printer.Options{}).JS)
}

func TestFinalizeStripsExports(t *testing.T) {
	lg := makeGraph(t, `
		export let a = 1
		export function f() { return a }
		export class C {}
		let b = a; export {b as c}
	`)
	lg.rename()

	require.NoError(t, FinalizeAll(context.Background(), &lg.graph, lg.renamer, Options{Validate: true}))
	test.AssertEqualWithDiff(t, lg.print(1), `let a = 1;
function f() {
  return a;
}
class C {
}
let b = a;
`)
}

func TestFinalizeExportDefault(t *testing.T) {
	lg := makeGraph(t, `export default 1 + 2`)
	lg.rename()

	require.NoError(t, FinalizeAll(context.Background(), &lg.graph, lg.renamer, Options{Validate: true}))
	test.AssertEqualWithDiff(t, lg.print(1), "var module1_default = 1 + 2;\n")
}

func TestFinalizeRespectsExcludedStatements(t *testing.T) {
	lg := makeGraph(t, `
		let kept = 1
		let dropped = 2
		console.log(kept)
	`)
	lg.graph.Modules[1].StmtInfos[2].IsIncluded = false
	lg.rename()

	require.NoError(t, FinalizeAll(context.Background(), &lg.graph, lg.renamer, Options{}))
	test.AssertEqualWithDiff(t, lg.print(1), "let kept = 1;\nconsole.log(kept);\n")
}

func TestFinalizeNamespaceObject(t *testing.T) {
	lg := makeGraph(t, `
		export let b = 1
		export function a() {}
	`)
	module := &lg.graph.Modules[1]
	module.StmtInfos[0].IsIncluded = true
	module.Link.SortedExports = []graph.ExportEntry{
		{Alias: "a", Ref: module.Ref(module.AST.NamedExports["a"].SymbolID)},
		{Alias: "b", Ref: module.Ref(module.AST.NamedExports["b"].SymbolID)},
	}
	lg.rename()

	require.NoError(t, FinalizeAll(context.Background(), &lg.graph, lg.renamer, Options{Validate: true}))
	test.AssertEqualWithDiff(t, lg.print(1), `var module1_exports = {};
__export(module1_exports, {
  a: () => a,
  b: () => b
});
let b = 1;
function a() {
}
`)
}

func TestFinalizeWrapsESM(t *testing.T) {
	lg := makeGraph(t, `
		export let x = f()
		export class Foo {}
		function f() { return 1 }
		x++
	`)
	lg.wrapESM(1)
	lg.rename()

	require.NoError(t, FinalizeAll(context.Background(), &lg.graph, lg.renamer, Options{Validate: true}))
	test.AssertEqualWithDiff(t, lg.print(1), `function f() {
  return 1;
}
var x, Foo;
var init_module1 = __esmMin(() => {
  x = f();
  Foo = class Foo {
  };
  x++;
});
`)
}

func TestInternalErrorIsRecovered(t *testing.T) {
	lg := makeGraph(t, `using x = y()`, `let fine = 1`)
	lg.wrapESM(1)
	lg.rename()

	err := FinalizeAll(context.Background(), &lg.graph, lg.renamer, Options{Workers: 1})
	require.Error(t, err)

	var internal *InternalError
	require.True(t, errors.As(err, &internal))
	assert.Equal(t, "module1.js", internal.Module)
	assert.Contains(t, fmt.Sprint(internal.Panic), "\"using\"")
	assert.NotEmpty(t, internal.Stack)

	// The fault in one module doesn't stop the others
	assert.Equal(t, "let fine = 1;\n", lg.print(2))
}

func TestFinalizeAllCancelled(t *testing.T) {
	lg := makeGraph(t, `export let a = 1`)
	lg.rename()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := FinalizeAll(ctx, &lg.graph, lg.renamer, Options{})
	assert.ErrorIs(t, err, context.Canceled)

	// Nothing was rewritten
	assert.Equal(t, "export let a = 1;\n", lg.print(1))
}

func TestCheckNoPendingSymbols(t *testing.T) {
	lg := makeGraph(t, `let a = 1; a++`, `export let b = 2`)
	lg.rename()

	err := CheckNoPendingSymbols(&lg.graph.Modules[1])
	require.Error(t, err)
	assert.Equal(t, `identifiers were not finalized in "module1.js": a`, err.Error())

	err = CheckNoPendingSymbols(&lg.graph.Modules[2])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module syntax")

	FinalizeModule(&lg.graph, lg.renamer, 1, nil)
	FinalizeModule(&lg.graph, lg.renamer, 2, nil)
	assert.NoError(t, CheckNoPendingSymbols(&lg.graph.Modules[1]))
	assert.NoError(t, CheckNoPendingSymbols(&lg.graph.Modules[2]))
}

func TestFinalizeIsDeterministic(t *testing.T) {
	sources := []string{
		`export let a = 1; let b = () => a; export {b}`,
		`let a = 2; export function f(a) { return a + 1 }`,
		`export class a { m() { return a } }`,
		`export default function () { return 3 }`,
	}

	build := func(workers int) []string {
		lg := makeGraph(t, sources...)
		lg.wrapESM(2)
		lg.rename()
		require.NoError(t, FinalizeAll(context.Background(), &lg.graph, lg.renamer, Options{Workers: workers, Validate: true}))
		var out []string
		for i := range sources {
			out = append(out, lg.print(uint32(i+1)))
		}
		return out
	}

	expected := build(1)
	for _, workers := range []int{2, 4, 0} {
		if diff := cmp.Diff(expected, build(workers)); diff != "" {
			t.Fatalf("output with %d workers differs (-want +got):\n%s", workers, diff)
		}
	}
}
