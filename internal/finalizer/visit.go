package finalizer

// This file contains the reference rewriter. It walks every node that is left
// after the statement pass and does the following:
//
//   - Identifiers with a symbol id get their canonical name and lose the id.
//     A cleared id marks the identifier as processed.
//   - References to symbols with a namespace alias become property accesses.
//   - "require()" and "import()" are pointed at the bundled code.
//   - Shorthand properties are expanded when the name they bind changes,
//     since the property key must stay the same.
//   - Classes and function expressions keep their original name when their
//     binding is renamed.

import (
	"fmt"

	"github.com/bundlekit/finalizer/internal/ast"
	"github.com/bundlekit/finalizer/internal/graph"
	"github.com/bundlekit/finalizer/internal/js_ast"
	"github.com/bundlekit/finalizer/internal/logger"
)

func (f *finalizer) visitStmts(stmts []js_ast.Stmt) {
	for i := range stmts {
		f.visitStmt(&stmts[i])
	}
}

func (f *finalizer) visitStmt(stmt *js_ast.Stmt) {
	switch s := stmt.Data.(type) {
	case nil, *js_ast.SEmpty, *js_ast.SDebugger, *js_ast.SComment, *js_ast.SBreak, *js_ast.SContinue:

	case *js_ast.SImport, *js_ast.SExportClause, *js_ast.SExportFrom, *js_ast.SExportStar, *js_ast.SExportDefault:
		panic(fmt.Sprintf("Internal error: module syntax %T was not removed", stmt.Data))

	case *js_ast.SBlock:
		f.visitStmts(s.Stmts)

	case *js_ast.SExpr:
		f.visitExpr(&s.Value)

	case *js_ast.SLocal:
		f.visitDecls(s.Decls)

	case *js_ast.SFunction:
		f.visitFn(&s.Fn)

	case *js_ast.SClass:
		// A class declaration that has to be renamed becomes a variable holding
		// a class expression. The class expression keeps the original name so
		// that its "name" property doesn't change:
		//
		//   class Foo {}  =>  var Foo$1 = class Foo {}
		//
		// The name is dropped instead if something in the class body now
		// refers to a different symbol with that name.
		if name := s.Class.Name; name != nil && name.SymbolID.IsValid() {
			canonicalName := f.nameFor(f.localRef(name.SymbolID))
			if canonicalName != name.Name {
				class := s.Class
				class.IsDeclaration = false
				class.Name = nil
				f.visitClass(&class)
				if !classMentionsName(&class, name.Name) {
					class.Name = &js_ast.LocRef{Loc: name.Loc, Name: name.Name}
				}
				*stmt = js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SLocal{
					Kind: js_ast.LocalVar,
					Decls: []js_ast.Decl{{
						Binding:    js_ast.Binding{Loc: name.Loc, Data: &js_ast.BIdentifier{Name: canonicalName}},
						ValueOrNil: js_ast.Expr{Loc: stmt.Loc, Data: &js_ast.EClass{Class: class}},
					}},
				}}
				return
			}
		}
		f.visitClass(&s.Class)

	case *js_ast.SIf:
		f.visitExpr(&s.Test)
		f.visitStmt(&s.Yes)
		f.visitStmt(&s.NoOrNil)

	case *js_ast.SFor:
		f.visitStmt(&s.InitOrNil)
		f.visitExpr(&s.TestOrNil)
		f.visitExpr(&s.UpdateOrNil)
		f.visitStmt(&s.Body)

	case *js_ast.SForIn:
		f.visitStmt(&s.Init)
		f.visitExpr(&s.Value)
		f.visitStmt(&s.Body)

	case *js_ast.SForOf:
		f.visitStmt(&s.Init)
		f.visitExpr(&s.Value)
		f.visitStmt(&s.Body)

	case *js_ast.SWhile:
		f.visitExpr(&s.Test)
		f.visitStmt(&s.Body)

	case *js_ast.SReturn:
		f.visitExpr(&s.ValueOrNil)

	case *js_ast.SThrow:
		f.visitExpr(&s.Value)

	case *js_ast.STry:
		f.visitStmts(s.Block.Stmts)
		if s.Catch != nil {
			f.visitBinding(s.Catch.BindingOrNil)
			f.visitStmts(s.Catch.Block.Stmts)
		}
		if s.FinallyOrNil != nil {
			f.visitStmts(s.FinallyOrNil.Stmts)
		}

	default:
		panic(fmt.Sprintf("Internal error: unexpected statement %T", stmt.Data))
	}
}

func (f *finalizer) visitDecls(decls []js_ast.Decl) {
	for i := range decls {
		decl := &decls[i]

		// "var a = class {}" and "var a = function() {}" must keep "a" as the
		// name of the class or function even if the variable is renamed:
		//
		//   var a = class {}  =>  var a$1 = class a {}
		//
		if id, ok := decl.Binding.Data.(*js_ast.BIdentifier); ok {
			var name **js_ast.LocRef
			var mentionsName func(string) bool
			switch value := decl.ValueOrNil.Data.(type) {
			case *js_ast.EClass:
				name = &value.Class.Name
				mentionsName = func(text string) bool { return classMentionsName(&value.Class, text) }
			case *js_ast.EFunction:
				name = &value.Fn.Name
				mentionsName = func(text string) bool { return fnMentionsName(&value.Fn, text) }
			}
			if name != nil && *name == nil {
				oldName := id.Name
				f.visitBindingIdentifier(id)
				f.visitExpr(&decl.ValueOrNil)

				// The new name would shadow any reference inside the body to a
				// different symbol that happens to be called the same thing
				if id.Name != oldName && !mentionsName(oldName) {
					*name = &js_ast.LocRef{Loc: decl.Binding.Loc, Name: oldName}
				}
				continue
			}
		}

		f.visitBinding(decl.Binding)
		f.visitExpr(&decl.ValueOrNil)
	}
}

func (f *finalizer) visitBindingIdentifier(id *js_ast.BIdentifier) {
	if !id.SymbolID.IsValid() {
		// Bindings synthesized by the finalizer are already canonical
		return
	}
	ref := f.localRef(id.SymbolID)
	if _, symbol := f.graph.Canonical(ref); symbol.NamespaceAlias != nil {
		panic(fmt.Sprintf("Internal error: the binding %q resolves to a namespace alias", id.Name))
	}
	id.Name = f.nameFor(ref)
	id.SymbolID = ast.Index32{}
}

func (f *finalizer) visitLocRef(ref *js_ast.LocRef) {
	if ref == nil || !ref.SymbolID.IsValid() {
		return
	}
	symbolRef := f.localRef(ref.SymbolID)
	if _, symbol := f.graph.Canonical(symbolRef); symbol.NamespaceAlias != nil {
		panic(fmt.Sprintf("Internal error: the binding %q resolves to a namespace alias", ref.Name))
	}
	ref.Name = f.nameFor(symbolRef)
	ref.SymbolID = ast.Index32{}
}

func (f *finalizer) visitBinding(binding js_ast.Binding) {
	switch b := binding.Data.(type) {
	case nil, *js_ast.BMissing:

	case *js_ast.BIdentifier:
		f.visitBindingIdentifier(b)

	case *js_ast.BArray:
		for i := range b.Items {
			item := &b.Items[i]
			f.visitBinding(item.Binding)
			f.visitExpr(&item.DefaultValueOrNil)
		}

	case *js_ast.BObject:
		for i := range b.Properties {
			property := &b.Properties[i]
			f.visitExpr(&property.Key)
			f.visitBinding(property.Value)
			f.visitExpr(&property.DefaultValueOrNil)

			// "{ a }" => "{ a: a$1 }" and "{ a = 1 }" => "{ a: a$1 = 1 }"
			if property.IsShorthand {
				if id, ok := property.Value.Data.(*js_ast.BIdentifier); !ok || id.Name != keyName(property.Key) {
					property.IsShorthand = false
				}
			}
		}

	default:
		panic(fmt.Sprintf("Internal error: unexpected binding %T", binding.Data))
	}
}

func (f *finalizer) visitTarget(target *js_ast.Target) {
	switch t := target.Data.(type) {
	case nil, *js_ast.TMissing:

	case *js_ast.TIdentifier:
		if !t.SymbolID.IsValid() {
			return
		}
		ref := f.localRef(t.SymbolID)
		if _, symbol := f.graph.Canonical(ref); symbol.NamespaceAlias != nil {
			target.Data = &js_ast.TMember{Value: f.namespaceAliasExpr(target.Loc, symbol.NamespaceAlias, false)}
			return
		}
		t.Name = f.nameFor(ref)
		t.SymbolID = ast.Index32{}

	case *js_ast.TMember:
		f.visitExpr(&t.Value)

	case *js_ast.TArray:
		for i := range t.Items {
			item := &t.Items[i]
			f.visitTarget(&item.Target)
			f.visitExpr(&item.DefaultValueOrNil)
		}

	case *js_ast.TObject:
		for i := range t.Properties {
			property := &t.Properties[i]
			f.visitExpr(&property.Key)
			f.visitTarget(&property.Target)
			f.visitExpr(&property.DefaultValueOrNil)

			// "({ a } = b)" => "({ a: a$1 } = b)"
			if property.IsShorthand {
				if id, ok := property.Target.Data.(*js_ast.TIdentifier); !ok || id.Name != keyName(property.Key) {
					property.IsShorthand = false
				}
			}
		}

	default:
		panic(fmt.Sprintf("Internal error: unexpected assignment target %T", target.Data))
	}
}

func (f *finalizer) visitFn(fn *js_ast.Fn) {
	f.visitLocRef(fn.Name)
	f.visitArgs(fn.Args)
	f.visitStmts(fn.Body.Stmts)
}

func (f *finalizer) visitArgs(args []js_ast.Arg) {
	for i := range args {
		f.visitBinding(args[i].Binding)
		f.visitExpr(&args[i].DefaultOrNil)
	}
}

func (f *finalizer) visitClass(class *js_ast.Class) {
	f.visitLocRef(class.Name)
	f.visitExpr(&class.ExtendsOrNil)
	for i := range class.Properties {
		property := &class.Properties[i]
		f.visitExpr(&property.Key)
		f.visitExpr(&property.ValueOrNil)
	}
}

func (f *finalizer) visitExprs(exprs []js_ast.Expr) {
	for i := range exprs {
		f.visitExpr(&exprs[i])
	}
}

func (f *finalizer) visitExpr(expr *js_ast.Expr) {
	switch e := expr.Data.(type) {
	case nil, *js_ast.EBoolean, *js_ast.EThis, *js_ast.ESuper, *js_ast.EMissing, *js_ast.ENull,
		*js_ast.EUndefined, *js_ast.ENumber, *js_ast.EString:

	case *js_ast.EIdentifier:
		f.rewriteIdentifier(expr, e, false)

	case *js_ast.EArray:
		f.visitExprs(e.Items)

	case *js_ast.EUnary:
		f.visitExpr(&e.Value)

	case *js_ast.EBinary:
		f.visitExpr(&e.Left)
		f.visitExpr(&e.Right)

	case *js_ast.EAssign:
		f.visitTarget(&e.Target)
		f.visitExpr(&e.Value)

	case *js_ast.ENew:
		f.visitExpr(&e.Target)
		f.visitExprs(e.Args)

	case *js_ast.ECall:
		if f.rewriteRequire(expr, e) {
			return
		}

		// Calling an import through its namespace must not pass the namespace
		// as "this", so "foo()" becomes "(0, import_foo.foo)()"
		if id, ok := e.Target.Data.(*js_ast.EIdentifier); ok {
			f.rewriteIdentifier(&e.Target, id, true)
		} else {
			f.visitExpr(&e.Target)
		}
		f.visitExprs(e.Args)

	case *js_ast.EDot:
		f.visitExpr(&e.Target)

	case *js_ast.EIndex:
		f.visitExpr(&e.Target)
		f.visitExpr(&e.Index)

	case *js_ast.EArrow:
		f.visitArgs(e.Args)
		f.visitStmts(e.Body.Stmts)

	case *js_ast.EFunction:
		f.visitFn(&e.Fn)

	case *js_ast.EClass:
		f.visitClass(&e.Class)

	case *js_ast.EObject:
		for i := range e.Properties {
			property := &e.Properties[i]
			f.visitExpr(&property.Key)
			f.visitExpr(&property.ValueOrNil)
			f.visitExpr(&property.InitializerOrNil)

			// "{ a }" => "{ a: a$1 }" and "{ a }" => "{ a: import_foo.a }"
			if property.IsShorthand {
				if id, ok := property.ValueOrNil.Data.(*js_ast.EIdentifier); !ok || id.Name != keyName(property.Key) {
					property.IsShorthand = false
				}
			}
		}

	case *js_ast.ESpread:
		f.visitExpr(&e.Value)

	case *js_ast.ETemplate:
		for i := range e.Parts {
			f.visitExpr(&e.Parts[i].Value)
		}

	case *js_ast.EAwait:
		f.visitExpr(&e.Value)

	case *js_ast.EYield:
		f.visitExpr(&e.ValueOrNil)

	case *js_ast.EIf:
		f.visitExpr(&e.Test)
		f.visitExpr(&e.Yes)
		f.visitExpr(&e.No)

	case *js_ast.EImportCall:
		f.rewriteImportPath(expr, e)
		f.visitExpr(&e.Expr)
		f.visitExpr(&e.OptionsOrNil)

	default:
		panic(fmt.Sprintf("Internal error: unexpected expression %T", expr.Data))
	}
}

func (f *finalizer) rewriteIdentifier(expr *js_ast.Expr, id *js_ast.EIdentifier, isCallTarget bool) {
	if !id.SymbolID.IsValid() {
		// Globals and names synthesized by the finalizer
		return
	}
	ref := f.localRef(id.SymbolID)
	if _, symbol := f.graph.Canonical(ref); symbol.NamespaceAlias != nil {
		*expr = f.namespaceAliasExpr(expr.Loc, symbol.NamespaceAlias, isCallTarget)
		return
	}
	id.Name = f.nameFor(ref)
	id.SymbolID = ast.Index32{}
}

func (f *finalizer) namespaceAliasExpr(loc logger.Loc, alias *ast.NamespaceAlias, isCallTarget bool) js_ast.Expr {
	value := dotExpr(loc, identExpr(loc, f.nameFor(alias.NamespaceRef)), alias.Alias)
	if isCallTarget {
		value = seqExpr(js_ast.Expr{Loc: loc, Data: &js_ast.ENumber{Value: 0}}, value)
	}
	return value
}

// Calls to the global "require" that resolved to a bundled module:
//
//	require('./cjs')  =>  require_cjs()
//	require('./esm')  =>  (init_esm(), __toCommonJS(esm_exports))
//
// Requiring an ES module always returns the namespace object converted to a
// CommonJS-style exports object, never the raw namespace.
func (f *finalizer) rewriteRequire(expr *js_ast.Expr, call *js_ast.ECall) bool {
	callee, ok := call.Target.Data.(*js_ast.EIdentifier)
	if !ok || callee.Name != "require" || callee.SymbolID.IsValid() {
		return false
	}
	record, ok := f.module.ImportRecordAt(expr.Loc)
	if !ok || record.Kind != ast.ImportRequire {
		return false
	}
	importee := f.graph.ModuleForRecord(record)
	if importee == nil {
		// Leave "require" of a module that isn't bundled alone
		return false
	}

	loc := expr.Loc
	if importee.ExportsKind == graph.ExportsCommonJS {
		*expr = callExpr(loc, f.wrapperName(importee))
		return true
	}

	toCommonJS := callExpr(loc, f.runtimeName("__toCommonJS"), identExpr(loc, f.nameFor(importee.NamespaceRef())))
	if importee.Link.Wrap == graph.WrapNone {
		*expr = toCommonJS
	} else {
		*expr = seqExpr(callExpr(loc, f.wrapperName(importee)), toCommonJS)
	}
	return true
}

// "import('./foo')" => "import('./foo.js')" where "foo.js" is the chunk that
// contains the imported module. Only a lone string literal argument is
// rewritten. Modules that aren't bundled keep their path.
func (f *finalizer) rewriteImportPath(expr *js_ast.Expr, e *js_ast.EImportCall) {
	str, ok := e.Expr.Data.(*js_ast.EString)
	if !ok || e.OptionsOrNil.Data != nil {
		return
	}
	record, ok := f.module.ImportRecordAt(expr.Loc)
	if !ok || record.Kind != ast.ImportDynamic {
		return
	}
	if !record.SourceIndex.IsValid() {
		return
	}
	chunk, ok := f.graph.Chunks.ChunkForModule(record.SourceIndex.GetIndex())
	if !ok {
		panic(fmt.Sprintf("Internal error: %q is not in any chunk", record.Path.Text))
	}
	str.Value = "./" + chunk.FileName
}

func keyName(key js_ast.Expr) string {
	if str, ok := key.Data.(*js_ast.EString); ok {
		return str.Value
	}
	return ""
}
