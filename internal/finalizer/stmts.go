package finalizer

import (
	"fmt"

	"github.com/bundlekit/finalizer/internal/ast"
	"github.com/bundlekit/finalizer/internal/graph"
	"github.com/bundlekit/finalizer/internal/js_ast"
	"github.com/bundlekit/finalizer/internal/logger"
	"go.uber.org/zap"
)

// Converts the top-level statements of the module into statements without any
// import or export syntax. Statements that tree shaking removed are dropped
// here. Identifiers are not renamed yet, that happens in a separate pass over
// the result.
func (f *finalizer) convertStmts() []js_ast.Stmt {
	module := f.module
	stmts := make([]js_ast.Stmt, 0, len(module.AST.Stmts)+2)

	// The namespace object goes first so that it exists before any code that
	// could observe it runs
	if module.ExportsKind == graph.ExportsESM && module.StmtInfos[0].IsIncluded {
		stmts = f.generateNamespace(stmts)
	}

	for i, stmt := range module.AST.Stmts {
		// Entry 0 is the namespace object, so statement "i" has entry "i+1"
		if !module.StmtInfos[i+1].IsIncluded {
			continue
		}

		switch s := stmt.Data.(type) {
		case *js_ast.SImport:
			stmts = f.convertImport(stmts, stmt)
			continue

		case *js_ast.SExportStar:
			if s.Alias != nil {
				// "export * as ns from 'path'"
				stmts = f.convertImport(stmts, stmt)
			} else {
				// "export * from 'path'"
				stmts = f.convertExportStar(stmts, stmt)
			}
			continue

		case *js_ast.SExportFrom:
			// "export {a, b as c} from 'path'"
			stmts = f.convertImport(stmts, stmt)
			continue

		case *js_ast.SExportClause:
			// "export {a, b as c}" only names bindings that already exist, and
			// importers reference those bindings directly
			continue

		case *js_ast.SExportDefault:
			stmt = f.convertExportDefault(stmt, s)

		case *js_ast.SLocal:
			// "export var a = 1" => "var a = 1"
			s.IsExport = false

		case *js_ast.SFunction:
			// "export function f() {}" => "function f() {}"
			s.IsExport = false

		case *js_ast.SClass:
			// "export class A {}" => "class A {}"
			s.IsExport = false
		}

		stmts = append(stmts, stmt)
	}

	return stmts
}

func (f *finalizer) stmtRecord(stmt js_ast.Stmt) *ast.ImportRecord {
	record, ok := f.module.ImportRecordAt(stmt.Loc)
	if !ok {
		panic(fmt.Sprintf("Internal error: no import record for statement at offset %d", stmt.Loc.Start))
	}
	return record
}

// Import statements and re-exports that go through an import record. The
// imported names were already bound to their targets by the linker, so only
// the side effect of evaluating the imported module has to survive:
//
//	// Not wrapped: the module is already evaluated by the time we get here
//	import {a} from './esm'      =>  (removed)
//
//	// ESM-style wrapper
//	import {a} from './lazy'     =>  init_lazy();
//
//	// CommonJS-style wrapper
//	import {a} from './cjs'      =>  var import_cjs = __toESM(require_cjs());
//
//	// Not bundled
//	import {a} from 'external'   =>  var import_external = __toESM(require("external"));
func (f *finalizer) convertImport(stmts []js_ast.Stmt, stmt js_ast.Stmt) []js_ast.Stmt {
	loc := stmt.Loc
	record := f.stmtRecord(stmt)
	isBare := record.Flags.Has(ast.WasOriginallyBareImport)

	importee := f.graph.ModuleForRecord(record)
	if importee == nil {
		require := callExpr(loc, "require", stringExpr(loc, record.Path.Text))
		if isBare {
			return append(stmts, exprStmt(require))
		}
		return append(stmts, f.importNamespaceStmt(loc, record, callExpr(loc, f.runtimeName("__toESM"), require)))
	}

	switch importee.Link.Wrap {
	case graph.WrapESM:
		return append(stmts, callStmt(loc, f.wrapperName(importee)))

	case graph.WrapCJS:
		require := callExpr(loc, f.wrapperName(importee))
		if isBare {
			return append(stmts, exprStmt(require))
		}
		return append(stmts, f.importNamespaceStmt(loc, record, callExpr(loc, f.runtimeName("__toESM"), require)))
	}

	return stmts
}

// "var import_foo = value;" where "import_foo" is the namespace symbol of the
// import record. References to imports from this record were turned into
// property accesses off of this symbol by the linker.
func (f *finalizer) importNamespaceStmt(loc logger.Loc, record *ast.ImportRecord, value js_ast.Expr) js_ast.Stmt {
	if record.NamespaceRef.SourceIndex != f.module.Source.Index {
		panic("Internal error: import record namespace belongs to another module")
	}
	symbol := f.graph.Symbols.Get(record.NamespaceRef)
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{
		Kind: js_ast.LocalVar,
		Decls: []js_ast.Decl{{
			Binding: js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{
				Name:     symbol.OriginalName,
				SymbolID: ast.MakeIndex32(record.NamespaceRef.InnerIndex),
			}},
			ValueOrNil: value,
		}},
	}}
}

// "export * from 'path'" is removed. The linker already resolved every export
// it can know about at build time. Anything it can't know about has to be
// copied over at run time:
//
//	export * from './lazy'     =>  init_lazy();
//	export * from './dynamic'  =>  __reExport(entry_exports, dynamic_exports);
//	export * from './cjs'      =>  __reExport(entry_exports, __toESM(require_cjs()));
func (f *finalizer) convertExportStar(stmts []js_ast.Stmt, stmt js_ast.Stmt) []js_ast.Stmt {
	loc := stmt.Loc
	record := f.stmtRecord(stmt)

	importee := f.graph.ModuleForRecord(record)
	if importee == nil {
		// There is no way to enumerate the exports of a module that isn't
		// bundled without emitting code that runs at import time
		f.log.Debug("dropping \"export *\" from a module that isn't bundled",
			zap.String("module", f.module.Source.PrettyPath),
			zap.String("path", record.Path.Text))
		return stmts
	}

	if importee.Link.Wrap == graph.WrapESM {
		stmts = append(stmts, callStmt(loc, f.wrapperName(importee)))
	}

	switch importee.ExportsKind {
	case graph.ExportsESM:
		if importee.Link.HasDynamicExports {
			stmts = append(stmts, callStmt(loc, f.runtimeName("__reExport"),
				identExpr(loc, f.nameFor(f.module.NamespaceRef())),
				identExpr(loc, f.nameFor(importee.NamespaceRef()))))
		}

	case graph.ExportsCommonJS:
		stmts = append(stmts, callStmt(loc, f.runtimeName("__reExport"),
			identExpr(loc, f.nameFor(f.module.NamespaceRef())),
			callExpr(loc, f.runtimeName("__toESM"), callExpr(loc, f.wrapperName(importee)))))
	}

	return stmts
}

// Default exports become ordinary declarations:
//
//	export default foo;          =>  var entry_default = foo;
//	export default function() {} =>  function entry_default() {}
//	export default class Foo {}  =>  class Foo {}
func (f *finalizer) convertExportDefault(stmt js_ast.Stmt, s *js_ast.SExportDefault) js_ast.Stmt {
	defaultName := f.nameFor(f.localRef(s.DefaultName.SymbolID))

	switch value := s.Value.Data.(type) {
	case *js_ast.SExpr:
		return varDeclStmt(stmt.Loc, defaultName, value.Value)

	case *js_ast.SFunction:
		if value.Fn.Name == nil {
			value.Fn.Name = &js_ast.LocRef{Loc: s.DefaultName.Loc, Name: defaultName}
		}
		return js_ast.Stmt{Loc: stmt.Loc, Data: value}

	case *js_ast.SClass:
		if value.Class.Name == nil {
			value.Class.Name = &js_ast.LocRef{Loc: s.DefaultName.Loc, Name: defaultName}
		}
		return js_ast.Stmt{Loc: stmt.Loc, Data: value}

	default:
		panic(fmt.Sprintf("Internal error: unexpected default export %T", s.Value.Data))
	}
}

// Materializes the namespace object of the module:
//
//	var entry_exports = {};
//	__export(entry_exports, {
//	  bar: () => bar,
//	  foo: () => foo
//	});
//
// Each export is a getter so that the property observes later assignments to
// the binding, which is how live bindings work.
func (f *finalizer) generateNamespace(stmts []js_ast.Stmt) []js_ast.Stmt {
	loc := logger.Loc{}
	nsName := f.nameFor(f.module.NamespaceRef())
	stmts = append(stmts, varDeclStmt(loc, nsName, js_ast.Expr{Loc: loc, Data: &js_ast.EObject{}}))

	exports := f.module.Link.SortedExports
	if len(exports) == 0 {
		return stmts
	}

	properties := make([]js_ast.Property, 0, len(exports))
	for _, export := range exports {
		properties = append(properties, js_ast.Property{
			Key:        stringExpr(loc, export.Alias),
			ValueOrNil: getterExpr(loc, f.exprForRef(loc, export.Ref)),
		})
	}
	return append(stmts, callStmt(loc, f.runtimeName("__export"),
		identExpr(loc, nsName),
		js_ast.Expr{Loc: loc, Data: &js_ast.EObject{Properties: properties}}))
}

// An expression that reads the current value of a symbol, which is either the
// symbol itself or a property of the namespace it was imported through
func (f *finalizer) exprForRef(loc logger.Loc, ref ast.Ref) js_ast.Expr {
	_, symbol := f.graph.Canonical(ref)
	if alias := symbol.NamespaceAlias; alias != nil {
		return dotExpr(loc, identExpr(loc, f.nameFor(alias.NamespaceRef)), alias.Alias)
	}
	return identExpr(loc, f.nameFor(ref))
}
