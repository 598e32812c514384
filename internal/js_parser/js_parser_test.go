package js_parser

import (
	"sort"
	"testing"

	"github.com/bundlekit/finalizer/internal/ast"
	"github.com/bundlekit/finalizer/internal/js_ast"
	"github.com/bundlekit/finalizer/internal/logger"
	"github.com/bundlekit/finalizer/internal/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseForTest(t *testing.T, contents string) js_ast.AST {
	t.Helper()
	log := logger.NewDeferLog()
	tree, ok := Parse(log, test.SourceForTest("entry.js", contents))
	text := ""
	for _, msg := range log.Done() {
		text += msg.String(logger.OutputOptions{}, logger.TerminalInfo{})
	}
	test.AssertEqualWithDiff(t, text, "")
	require.True(t, ok)
	return tree
}

func expectParseError(t *testing.T, contents string, expected string) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		log := logger.NewDeferLog()
		_, ok := Parse(log, test.SourceForTest("entry.js", contents))
		text := ""
		for _, msg := range log.Done() {
			text += msg.String(logger.OutputOptions{}, logger.TerminalInfo{})
		}
		test.AssertEqualWithDiff(t, text, expected)
		assert.False(t, ok)
	})
}

func symbolName(tree js_ast.AST, id ast.Index32) string {
	return tree.Symbols[id.GetIndex()].OriginalName
}

func TestParseErrors(t *testing.T) {
	expectParseError(t, "let a; let a", "entry.js:1:11: error: The symbol \"a\" has already been declared\n")
	expectParseError(t, "let a; var a", "entry.js:1:11: error: The symbol \"a\" has already been declared\n")
	expectParseError(t, "export {x}", "entry.js:1:8: error: \"x\" is not declared in this file\n")
	expectParseError(t, "export const a = 1; export {a}", "entry.js:1:28: error: Multiple exports with the same name \"a\"\n")
	expectParseError(t, "1 = 2", "entry.js:1:0: error: Invalid assignment target\n")
	expectParseError(t, "switch (a) {}", "entry.js:1:0: error: Unexpected \"switch\"\n")
	expectParseError(t, "function f() { import 'x' }", "entry.js:1:15: error: Unexpected \"import\"\n")
	expectParseError(t, "export class {}", "entry.js:1:13: error: Expected identifier but found \"{\"\n")
	expectParseError(t, "for (a() of b) {}", "entry.js:1:5: error: Invalid assignment target\n")
}

func TestHoistingAllowsRedeclaration(t *testing.T) {
	tree := parseForTest(t, "var a; var a; function f() {} var f; function g(x) { var x }")
	assert.Empty(t, tree.UnboundNames)

	// Only one symbol for each name ends up in the module scope
	names := []string{}
	for name := range tree.ModuleScope.Members {
		names = append(names, name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"a", "f", "g"}, names)
	assert.Equal(t, ast.SymbolHoistedFunction, tree.Symbols[tree.ModuleScope.Members["f"].GetIndex()].Kind)
}

func TestGeneratedSymbols(t *testing.T) {
	tree := parseForTest(t, "")
	assert.Equal(t, "entry_exports", symbolName(tree, tree.NamespaceRef))
	assert.Equal(t, "entry_default", symbolName(tree, tree.DefaultRef))
	assert.Equal(t, "init_entry", symbolName(tree, tree.WrapperRef))

	// Generated symbols can't be referenced from source code
	_, ok := tree.ModuleScope.Members["entry_exports"]
	assert.False(t, ok)
	assert.Len(t, tree.ModuleScope.Ordered, 3)
}

func TestBindReferences(t *testing.T) {
	tree := parseForTest(t, "let a = 1; { let a = 2; a } a; b")
	require.Len(t, tree.Stmts, 4)

	outer := tree.ModuleScope.Members["a"]
	block := tree.Stmts[1].Data.(*js_ast.SBlock)
	inner := block.Stmts[0].Data.(*js_ast.SLocal).Decls[0].Binding.Data.(*js_ast.BIdentifier).SymbolID
	assert.NotEqual(t, outer, inner)

	innerRef := block.Stmts[1].Data.(*js_ast.SExpr).Value.Data.(*js_ast.EIdentifier)
	assert.Equal(t, inner, innerRef.SymbolID)

	outerRef := tree.Stmts[2].Data.(*js_ast.SExpr).Value.Data.(*js_ast.EIdentifier)
	assert.Equal(t, outer, outerRef.SymbolID)

	global := tree.Stmts[3].Data.(*js_ast.SExpr).Value.Data.(*js_ast.EIdentifier)
	assert.False(t, global.SymbolID.IsValid())
	assert.Equal(t, []string{"b"}, tree.UnboundNames)
}

func TestTopLevelUses(t *testing.T) {
	tree := parseForTest(t, "let a = 1; function f() { return a } let c = () => f()")
	require.Len(t, tree.TopLevelUses, 3)

	a := tree.ModuleScope.Members["a"].GetIndex()
	f := tree.ModuleScope.Members["f"].GetIndex()
	assert.Empty(t, tree.TopLevelUses[0])
	assert.Equal(t, map[uint32]struct{}{a: {}}, tree.TopLevelUses[1])
	assert.Equal(t, map[uint32]struct{}{f: {}}, tree.TopLevelUses[2])
}

func TestImportRecords(t *testing.T) {
	tree := parseForTest(t, `
import def, {a as b, c} from './x'
import * as ns from './y'
import './z'
export * from './w'
export {d as e} from './v'
const r = require('./u')
import('./t')
`)
	require.Len(t, tree.ImportRecords, 7)
	paths := []string{}
	for _, record := range tree.ImportRecords {
		paths = append(paths, record.Path.Text)
	}
	assert.Equal(t, []string{"./x", "./y", "./z", "./w", "./v", "./t", "./u"}, paths)

	assert.True(t, tree.ImportRecords[0].Flags.Has(ast.ContainsDefaultAlias))
	assert.True(t, tree.ImportRecords[1].Flags.Has(ast.ContainsImportStar))
	assert.True(t, tree.ImportRecords[2].Flags.Has(ast.WasOriginallyBareImport))
	assert.True(t, tree.ImportRecords[3].Flags.Has(ast.IsExportStar))
	assert.Equal(t, []uint32{3}, tree.ExportStars)
	assert.Equal(t, ast.ImportDynamic, tree.ImportRecords[5].Kind)
	assert.Equal(t, ast.ImportRequire, tree.ImportRecords[6].Kind)

	// Statement imports are keyed by the statement location
	assert.Equal(t, uint32(0), tree.ImportRecordsByLoc[tree.Stmts[0].Loc])
	assert.Equal(t, uint32(4), tree.ImportRecordsByLoc[tree.Stmts[4].Loc])

	// "require" is keyed by the location of the call
	decl := tree.Stmts[5].Data.(*js_ast.SLocal).Decls[0]
	assert.Equal(t, uint32(6), tree.ImportRecordsByLoc[decl.ValueOrNil.Loc])

	// Import items remember which record they came from
	b := tree.ModuleScope.Members["b"]
	assert.Equal(t, js_ast.NamedImport{Alias: "a", AliasLoc: tree.NamedImports[b.GetIndex()].AliasLoc, ImportRecordIndex: 0}, tree.NamedImports[b.GetIndex()])
	assert.Equal(t, "*", tree.NamedImports[tree.ModuleScope.Members["ns"].GetIndex()].Alias)

	// Re-exports get a generated symbol that is not visible to the module
	e := tree.NamedExports["e"]
	assert.True(t, tree.NamedImports[e.SymbolID.GetIndex()].IsReExport)
	_, ok := tree.ModuleScope.Members["d"]
	assert.False(t, ok)

	assert.True(t, tree.HasESMSyntax)
	assert.NotEqual(t, ast.InvalidRef, tree.ImportRecords[0].NamespaceRef)
	assert.Equal(t, "import_x", tree.Symbols[tree.ImportRecords[0].NamespaceRef.InnerIndex].OriginalName)
}

func TestShadowedRequireIsNotAnImport(t *testing.T) {
	tree := parseForTest(t, "function f(require) { return require('./a') } require(x)")
	assert.Empty(t, tree.ImportRecords)
	assert.Equal(t, []string{"require", "x"}, tree.UnboundNames)
}

func TestCommonJSVars(t *testing.T) {
	tree := parseForTest(t, "module.exports = 1")
	assert.True(t, tree.UsesCommonJSVars)
	assert.False(t, tree.HasESMSyntax)

	tree = parseForTest(t, "function f(exports) { exports.a = 1 }")
	assert.False(t, tree.UsesCommonJSVars)
}

func TestNamedExports(t *testing.T) {
	tree := parseForTest(t, `
export const [a, {b}] = x
export function f() {}
export class C {}
let d
export {d as default2, d}
export default function () {}
`)
	aliases := []string{}
	for alias := range tree.NamedExports {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	assert.Equal(t, []string{"C", "a", "b", "d", "default", "default2", "f"}, aliases)
	assert.Equal(t, tree.DefaultRef, tree.NamedExports["default"].SymbolID)
	assert.Equal(t, tree.ModuleScope.Members["d"], tree.NamedExports["default2"].SymbolID)

	// The exported declarations keep their export flag until finalization
	assert.True(t, js_ast.IsModuleDecl(tree.Stmts[0].Data))
	assert.False(t, js_ast.IsModuleDecl(tree.Stmts[3].Data))
}

func TestNamedExportDefaultFunction(t *testing.T) {
	tree := parseForTest(t, "export default function foo() { return foo }")
	foo := tree.ModuleScope.Members["foo"]
	assert.Equal(t, foo, tree.NamedExports["default"].SymbolID)

	value := tree.Stmts[0].Data.(*js_ast.SExportDefault).Value.Data.(*js_ast.SFunction)
	assert.False(t, value.IsExport)
	ret := value.Fn.Body.Stmts[0].Data.(*js_ast.SReturn).ValueOrNil.Data.(*js_ast.EIdentifier)
	assert.Equal(t, foo, ret.SymbolID)
}

func TestClassExpressionName(t *testing.T) {
	tree := parseForTest(t, "var a = class b { m() { return b } }; b")
	decl := tree.Stmts[0].Data.(*js_ast.SLocal).Decls[0]
	class := decl.ValueOrNil.Data.(*js_ast.EClass).Class
	require.NotNil(t, class.Name)
	assert.True(t, tree.Symbols[class.Name.SymbolID.GetIndex()].MustNotBeRenamed)

	method := class.Properties[0].ValueOrNil.Data.(*js_ast.EFunction).Fn
	ret := method.Body.Stmts[0].Data.(*js_ast.SReturn).ValueOrNil.Data.(*js_ast.EIdentifier)
	assert.Equal(t, class.Name.SymbolID, ret.SymbolID)

	// The name is not visible outside of the class
	assert.Equal(t, []string{"b"}, tree.UnboundNames)
}

func TestShorthandAndDestructuring(t *testing.T) {
	tree := parseForTest(t, "let a, b; ({a, b = 2} = {a, b}); const {c, d = 1, ...e} = a; [a, , ...b] = c")
	assign := tree.Stmts[1].Data.(*js_ast.SExpr).Value.Data.(*js_ast.EAssign)
	target := assign.Target.Data.(*js_ast.TObject)
	require.Len(t, target.Properties, 2)
	assert.True(t, target.Properties[0].IsShorthand)
	assert.NotNil(t, target.Properties[1].DefaultValueOrNil.Data)
	assert.Equal(t, tree.ModuleScope.Members["b"], target.Properties[1].Target.Data.(*js_ast.TIdentifier).SymbolID)

	object := assign.Value.Data.(*js_ast.EObject)
	assert.True(t, object.Properties[0].IsShorthand)
	assert.Equal(t, tree.ModuleScope.Members["a"], object.Properties[0].ValueOrNil.Data.(*js_ast.EIdentifier).SymbolID)

	pattern := tree.Stmts[2].Data.(*js_ast.SLocal).Decls[0].Binding.Data.(*js_ast.BObject)
	require.Len(t, pattern.Properties, 3)
	assert.True(t, pattern.Properties[0].IsShorthand)
	assert.True(t, pattern.Properties[2].IsSpread)

	array := tree.Stmts[3].Data.(*js_ast.SExpr).Value.Data.(*js_ast.EAssign).Target.Data.(*js_ast.TArray)
	assert.True(t, array.HasSpread)
	assert.Len(t, array.Items, 3)
}

func TestArrowFunctions(t *testing.T) {
	tree := parseForTest(t, "let f = (a, {b} = {}, ...c) => a + b; let g = x => x; let h = async () => { await h }")
	f := tree.Stmts[0].Data.(*js_ast.SLocal).Decls[0].ValueOrNil.Data.(*js_ast.EArrow)
	assert.Len(t, f.Args, 3)
	assert.True(t, f.HasRestArg)
	assert.True(t, f.PreferExpr)

	h := tree.Stmts[2].Data.(*js_ast.SLocal).Decls[0].ValueOrNil.Data.(*js_ast.EArrow)
	assert.True(t, h.IsAsync)
	assert.False(t, h.PreferExpr)
	assert.Empty(t, tree.UnboundNames)
}

func TestTemplatesAndOperators(t *testing.T) {
	tree := parseForTest(t, "let x = `a${1 + 2}b${`c${3}`}d`; let y = a ? b : c ?? d ** e ** f")
	template := tree.Stmts[0].Data.(*js_ast.SLocal).Decls[0].ValueOrNil.Data.(*js_ast.ETemplate)
	assert.Equal(t, "a", template.Head)
	require.Len(t, template.Parts, 2)
	assert.Equal(t, "b", template.Parts[0].Tail)
	assert.Equal(t, "d", template.Parts[1].Tail)

	cond := tree.Stmts[1].Data.(*js_ast.SLocal).Decls[0].ValueOrNil.Data.(*js_ast.EIf)
	nullish := cond.No.Data.(*js_ast.EBinary)
	assert.Equal(t, js_ast.BinOpNullishCoalescing, nullish.Op)

	// Exponentiation is right-associative
	pow := nullish.Right.Data.(*js_ast.EBinary)
	assert.Equal(t, js_ast.BinOpPow, pow.Op)
	_, rightIsPow := pow.Right.Data.(*js_ast.EBinary)
	assert.True(t, rightIsPow)
}

func TestDirectives(t *testing.T) {
	tree := parseForTest(t, "'use strict'; \"other\"\nlet a")
	assert.Equal(t, []string{"use strict", "other"}, tree.Directives)
	assert.Len(t, tree.Stmts, 1)
}
