package finalizer

import (
	"fmt"

	"github.com/bundlekit/finalizer/internal/graph"
	"github.com/bundlekit/finalizer/internal/js_ast"
	"github.com/bundlekit/finalizer/internal/logger"
)

// Moves the body of a lazily-evaluated module into a closure. This runs after
// renaming, so every name seen here is already canonical.
func (f *finalizer) wrapIfNeeded(stmts []js_ast.Stmt) []js_ast.Stmt {
	link := &f.module.Link
	if !link.WrapperStmtInfo.IsValid() || !f.module.StmtInfos[link.WrapperStmtInfo.GetIndex()].IsIncluded {
		return stmts
	}

	switch link.Wrap {
	case graph.WrapCJS:
		// Directives have to stay at the top of the function that they apply to
		var body []js_ast.Stmt
		if directives := f.module.AST.Directives; len(directives) > 0 {
			body = make([]js_ast.Stmt, 0, len(directives)+len(stmts))
			for _, directive := range directives {
				body = append(body, exprStmt(stringExpr(logger.Loc{}, directive)))
			}
			body = append(body, stmts...)
			f.module.AST.Directives = nil
		} else {
			body = stmts
		}

		return []js_ast.Stmt{commonJSWrapperStmt(logger.Loc{}, f.nameFor(link.WrapperRef), f.runtimeName("__commonJSMin"), body)}

	case graph.WrapESM:
		return f.wrapESM(stmts)
	}

	return stmts
}

// ES modules are wrapped like this:
//
//	function foo() {}
//	var bar, Baz;
//	var init_entry = __esmMin(() => {
//	  bar = foo();
//	  Baz = class Baz {};
//	  other();
//	});
//
// Function declarations stay outside the closure where they are hoisted as
// usual. Other declarations become assignments inside the closure and their
// names are declared once outside of it, so code that holds a reference to
// one of them before the wrapper runs still sees the same binding.
func (f *finalizer) wrapESM(stmts []js_ast.Stmt) []js_ast.Stmt {
	var hoistedFns []js_ast.Stmt
	var hoistedNames []string
	inside := make([]js_ast.Stmt, 0, len(stmts))

	for _, stmt := range stmts {
		if js_ast.IsModuleDecl(stmt.Data) {
			panic(fmt.Sprintf("Internal error: module syntax %T still present when wrapping", stmt.Data))
		}

		switch s := stmt.Data.(type) {
		case *js_ast.SFunction:
			hoistedFns = append(hoistedFns, stmt)

		case *js_ast.SLocal:
			if s.Kind == js_ast.LocalUsing {
				panic("Internal error: unsupported declaration kind \"using\" in a wrapped module")
			}
			for _, decl := range s.Decls {
				hoistedNames = appendBindingNames(hoistedNames, decl.Binding)
			}
			if value, ok := assignmentsForDecls(s.Decls); ok {
				inside = append(inside, js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SExpr{Value: value}})
			}

		case *js_ast.SClass:
			// "class Foo {}" => "Foo = class Foo {}"
			name := s.Class.Name.Name
			hoistedNames = append(hoistedNames, name)
			class := s.Class
			class.IsDeclaration = false
			inside = append(inside, exprStmt(js_ast.Expr{Loc: stmt.Loc, Data: &js_ast.EAssign{
				Op:     js_ast.BinOpAssign,
				Target: js_ast.Target{Loc: s.Class.Name.Loc, Data: &js_ast.TIdentifier{Name: name}},
				Value:  js_ast.Expr{Loc: stmt.Loc, Data: &js_ast.EClass{Class: class}},
			}}))

		default:
			inside = append(inside, stmt)
		}
	}

	loc := logger.Loc{}
	result := make([]js_ast.Stmt, 0, len(hoistedFns)+2)
	result = append(result, hoistedFns...)
	if len(hoistedNames) > 0 {
		result = append(result, hoistedVarStmt(loc, hoistedNames))
	}
	result = append(result, esmWrapperStmt(loc, f.nameFor(f.module.Link.WrapperRef), f.runtimeName("__esmMin"), inside))
	return result
}

func appendBindingNames(names []string, binding js_ast.Binding) []string {
	switch b := binding.Data.(type) {
	case *js_ast.BIdentifier:
		names = append(names, b.Name)

	case *js_ast.BArray:
		for _, item := range b.Items {
			names = appendBindingNames(names, item.Binding)
		}

	case *js_ast.BObject:
		for _, property := range b.Properties {
			names = appendBindingNames(names, property.Value)
		}
	}
	return names
}

// "var a = 1, b, {c} = d" => "a = 1, {c} = d". Declarations without a value
// produce nothing. This returns false if no declaration has a value.
func assignmentsForDecls(decls []js_ast.Decl) (js_ast.Expr, bool) {
	var result js_ast.Expr
	for _, decl := range decls {
		if decl.ValueOrNil.Data == nil {
			continue
		}
		assign := js_ast.Expr{Loc: decl.Binding.Loc, Data: &js_ast.EAssign{
			Op:     js_ast.BinOpAssign,
			Target: bindingToTarget(decl.Binding),
			Value:  decl.ValueOrNil,
		}}
		if result.Data == nil {
			result = assign
		} else {
			result = seqExpr(result, assign)
		}
	}
	return result, result.Data != nil
}

func bindingToTarget(binding js_ast.Binding) js_ast.Target {
	switch b := binding.Data.(type) {
	case *js_ast.BMissing:
		return js_ast.Target{Loc: binding.Loc, Data: &js_ast.TMissing{}}

	case *js_ast.BIdentifier:
		return js_ast.Target{Loc: binding.Loc, Data: &js_ast.TIdentifier{Name: b.Name}}

	case *js_ast.BArray:
		items := make([]js_ast.TArrayItem, len(b.Items))
		for i, item := range b.Items {
			items[i] = js_ast.TArrayItem{
				Target:            bindingToTarget(item.Binding),
				DefaultValueOrNil: item.DefaultValueOrNil,
			}
		}
		return js_ast.Target{Loc: binding.Loc, Data: &js_ast.TArray{Items: items, HasSpread: b.HasSpread}}

	case *js_ast.BObject:
		properties := make([]js_ast.TProperty, len(b.Properties))
		for i, property := range b.Properties {
			properties[i] = js_ast.TProperty{
				Key:               property.Key,
				Target:            bindingToTarget(property.Value),
				DefaultValueOrNil: property.DefaultValueOrNil,
				IsComputed:        property.IsComputed,
				IsSpread:          property.IsSpread,
				IsShorthand:       property.IsShorthand,
			}
		}
		return js_ast.Target{Loc: binding.Loc, Data: &js_ast.TObject{Properties: properties}}

	default:
		panic(fmt.Sprintf("Internal error: unexpected binding %T", binding.Data))
	}
}
