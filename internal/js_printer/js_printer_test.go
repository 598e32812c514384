package js_printer

import (
	"testing"

	"github.com/bundlekit/finalizer/internal/js_ast"
	"github.com/bundlekit/finalizer/internal/js_parser"
	"github.com/bundlekit/finalizer/internal/logger"
	"github.com/bundlekit/finalizer/internal/test"
)

func expectPrintedCommon(t *testing.T, name string, contents string, expected string, options Options) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		t.Helper()
		log := logger.NewDeferLog()
		tree, ok := js_parser.Parse(log, test.SourceForTest("entry.js", contents))
		msgs := log.Done()
		text := ""
		for _, msg := range msgs {
			text += msg.String(logger.OutputOptions{}, logger.TerminalInfo{})
		}
		test.AssertEqualWithDiff(t, text, "")
		if !ok {
			t.Fatal("Parse error")
		}
		options.ImportRecords = tree.ImportRecords
		options.ImportRecordsByLoc = tree.ImportRecordsByLoc
		js := Print(tree.Directives, tree.Stmts, options).JS
		test.AssertEqualWithDiff(t, string(js), expected)
	})
}

func expectPrinted(t *testing.T, contents string, expected string) {
	t.Helper()
	expectPrintedCommon(t, contents, contents, expected, Options{})
}

func expectPrintedMinify(t *testing.T, contents string, expected string) {
	t.Helper()
	expectPrintedCommon(t, contents+" [minified]", contents, expected, Options{
		MinifyWhitespace: true,
	})
}

func expectPrintedASCII(t *testing.T, contents string, expected string) {
	t.Helper()
	expectPrintedCommon(t, contents+" [ascii]", contents, expected, Options{
		ASCIIOnly: true,
	})
}

func TestNumber(t *testing.T) {
	expectPrinted(t, "x = 0", "x = 0;\n")
	expectPrinted(t, "x = 123", "x = 123;\n")
	expectPrinted(t, "x = 0.5", "x = 0.5;\n")
	expectPrinted(t, "x = 1e21", "x = 1e21;\n")
	expectPrinted(t, "x = 1e-7", "x = 1e-7;\n")
	expectPrinted(t, "x = -1", "x = -1;\n")
	expectPrinted(t, "x = 1 .toString()", "x = 1 .toString();\n")
}

func TestString(t *testing.T) {
	expectPrinted(t, "x = 'abc'", "x = \"abc\";\n")
	expectPrinted(t, "x = 'a\"b'", "x = \"a\\\"b\";\n")
	expectPrinted(t, "x = '\\n'", "x = \"\\n\";\n")
	expectPrintedASCII(t, "x = '\u00e9'", "x = \"\\u00E9\";\n")
}

func TestTemplate(t *testing.T) {
	expectPrinted(t, "x = `a${b}c`", "x = `a${b}c`;\n")
	expectPrinted(t, "x = `\\``", "x = `\\``;\n")
	expectPrinted(t, "x = `${a}${b}`", "x = `${a}${b}`;\n")
}

func TestPrecedence(t *testing.T) {
	expectPrinted(t, "(a + b) * c", "(a + b) * c;\n")
	expectPrinted(t, "a + b * c", "a + b * c;\n")
	expectPrinted(t, "a - (b - c)", "a - (b - c);\n")
	expectPrinted(t, "(a - b) - c", "a - b - c;\n")
	expectPrinted(t, "a ** (b ** c)", "a ** b ** c;\n")
	expectPrinted(t, "(a ** b) ** c", "(a ** b) ** c;\n")
	expectPrinted(t, "(a || b) ?? c", "(a || b) ?? c;\n")
	expectPrinted(t, "a = b = c", "a = b = c;\n")
	expectPrinted(t, "(a, b)", "a, b;\n")
	expectPrinted(t, "f((a, b))", "f((a, b));\n")
	expectPrinted(t, "a ? b : c ? d : e", "a ? b : c ? d : e;\n")
	expectPrinted(t, "(a ? b : c) ? d : e", "(a ? b : c) ? d : e;\n")
	expectPrinted(t, "typeof a", "typeof a;\n")
	expectPrinted(t, "!(a && b)", "!(a && b);\n")
	expectPrinted(t, "- -x", "- -x;\n")
	expectPrinted(t, "a + +b", "a + +b;\n")
	expectPrinted(t, "a++", "a++;\n")
}

func TestCallAndMember(t *testing.T) {
	expectPrinted(t, "f(a, b)", "f(a, b);\n")
	expectPrinted(t, "a.b.c(d)", "a.b.c(d);\n")
	expectPrinted(t, "a[b](c)", "a[b](c);\n")
	expectPrinted(t, "new Foo(1)", "new Foo(1);\n")
	expectPrinted(t, "new (f())(1)", "new (f())(1);\n")
	expectPrinted(t, "f(...args)", "f(...args);\n")
	expectPrinted(t, "import('./x')", "import(\"./x\");\n")
}

func TestFunction(t *testing.T) {
	expectPrinted(t, "function f(a, b = 1, ...c) { return a }", "function f(a, b = 1, ...c) {\n  return a;\n}\n")
	expectPrinted(t, "async function f() { await x }", "async function f() {\n  await x;\n}\n")
	expectPrinted(t, "function* f() { yield x }", "function* f() {\n  yield x;\n}\n")
	expectPrinted(t, "(function() {})", "(function() {\n});\n")
	expectPrinted(t, "x = function() {}", "x = function() {\n};\n")
}

func TestArrow(t *testing.T) {
	expectPrinted(t, "f = (a) => a + 1", "f = (a) => a + 1;\n")
	expectPrinted(t, "f = a => a", "f = (a) => a;\n")
	expectPrinted(t, "f = () => ({})", "f = () => ({});\n")
	expectPrinted(t, "f = () => { return 1 }", "f = () => {\n  return 1;\n};\n")
	expectPrinted(t, "f = async () => x", "f = async () => x;\n")
	expectPrinted(t, "f = ({a}) => a", "f = ({ a }) => a;\n")
	expectPrintedMinify(t, "f = (a) => a", "f=a=>a")
}

func TestClass(t *testing.T) {
	expectPrinted(t, "class A extends B { static x = 1; m() {} }",
		"class A extends B {\n  static x = 1;\n  m() {\n  }\n}\n")
	expectPrinted(t, "class A { get x() { return 1 } set x(v) {} }",
		"class A {\n  get x() {\n    return 1;\n  }\n  set x(v) {\n  }\n}\n")
	expectPrinted(t, "x = class {}", "x = class {\n};\n")
	expectPrinted(t, "(class {})", "(class {\n});\n")
}

func TestObject(t *testing.T) {
	expectPrinted(t, "x = {}", "x = {};\n")
	expectPrinted(t, "x = {a: 1, b}", "x = { a: 1, b };\n")
	expectPrinted(t, "x = {\n  a: 1,\n  b\n}", "x = {\n  a: 1,\n  b\n};\n")
	expectPrinted(t, "x = {'a-b': 1, [c]: 2}", "x = { \"a-b\": 1, [c]: 2 };\n")
	expectPrinted(t, "x = {m() {}, ...y}", "x = { m() {\n}, ...y };\n")
	expectPrinted(t, "({a} = b)", "({ a } = b);\n")
	expectPrinted(t, "[a, b = 1] = c", "[a, b = 1] = c;\n")
	expectPrinted(t, "x = [1, , 2]", "x = [1, , 2];\n")
	expectPrinted(t, "x = [1, ,]", "x = [1, ,];\n")
}

func TestStatements(t *testing.T) {
	expectPrinted(t, "let a = 1, b", "let a = 1, b;\n")
	expectPrinted(t, "const {a, b: [c]} = d", "const { a, b: [c] } = d;\n")
	expectPrinted(t, "if (a) b(); else c()", "if (a)\n  b();\nelse\n  c();\n")
	expectPrinted(t, "if (a) { b() } else if (c) { d() }", "if (a) {\n  b();\n} else if (c) {\n  d();\n}\n")
	expectPrinted(t, "if (a) { if (b) c() } else d()", "if (a) {\n  if (b)\n    c();\n} else\n  d();\n")
	expectPrinted(t, "for (let i = 0; i < n; i++) {}", "for (let i = 0; i < n; i++) {\n}\n")
	expectPrinted(t, "for (const k in o) f(k)", "for (const k in o)\n  f(k);\n")
	expectPrinted(t, "for (x of y) {}", "for (x of y) {\n}\n")
	expectPrinted(t, "while (a) { break }", "while (a) {\n  break;\n}\n")
	expectPrinted(t, "try { a() } catch (e) { b() } finally { c() }", "try {\n  a();\n} catch (e) {\n  b();\n} finally {\n  c();\n}\n")
	expectPrinted(t, "try {} catch {}", "try {\n} catch {\n}\n")
	expectPrinted(t, "throw new Error('x')", "throw new Error(\"x\");\n")
	expectPrinted(t, "'use strict'; a", "\"use strict\";\na;\n")
}

func TestModuleSyntax(t *testing.T) {
	expectPrinted(t, "import './x'", "import \"./x\";\n")
	expectPrinted(t, "import a, {b as c, d} from './x'", "import a, { b as c, d } from \"./x\";\n")
	expectPrinted(t, "import * as ns from './x'", "import * as ns from \"./x\";\n")
	expectPrinted(t, "export * from './x'", "export * from \"./x\";\n")
	expectPrinted(t, "export * as ns from './x'", "export * as ns from \"./x\";\n")
	expectPrinted(t, "export {a as b} from './x'", "export { a as b } from \"./x\";\n")
	expectPrinted(t, "let a; export {a as default}", "let a;\nexport { a as default };\n")
	expectPrinted(t, "export const a = 1", "export const a = 1;\n")
	expectPrinted(t, "export default function() {}", "export default function() {\n}\n")
	expectPrinted(t, "export default a + b", "export default a + b;\n")
}

func TestMinify(t *testing.T) {
	expectPrintedMinify(t, "let a = 1; f(a)", "let a=1;f(a)")
	expectPrintedMinify(t, "function f() { return a }", "function f(){return a}")
	expectPrintedMinify(t, "a + +b", "a+ +b")
	expectPrintedMinify(t, "x = {a: 1}", "x={a:1}")
}

func TestPrintExpr(t *testing.T) {
	expr := js_ast.Expr{Data: &js_ast.ECall{
		Target: js_ast.Expr{Data: &js_ast.EBinary{
			Op:    js_ast.BinOpComma,
			Left:  js_ast.Expr{Data: &js_ast.ENumber{Value: 0}},
			Right: js_ast.Expr{Data: &js_ast.EDot{Target: js_ast.Expr{Data: &js_ast.EIdentifier{Name: "ns"}}, Name: "foo"}},
		}},
	}}
	test.AssertEqualWithDiff(t, PrintExpr(expr, Options{}), "(0, ns.foo)()")

	obj := js_ast.Expr{Data: &js_ast.EObject{Properties: []js_ast.Property{{
		Key:        js_ast.Expr{Data: &js_ast.EString{Value: "a"}},
		ValueOrNil: js_ast.Expr{Data: &js_ast.EIdentifier{Name: "a"}},
	}}}}
	test.AssertEqualWithDiff(t, PrintExpr(obj, Options{}), "{\n  a: a\n}")
}
