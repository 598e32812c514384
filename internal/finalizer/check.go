package finalizer

import (
	"fmt"
	"strings"

	"github.com/bundlekit/finalizer/internal/ast"
	"github.com/bundlekit/finalizer/internal/graph"
	"github.com/bundlekit/finalizer/internal/js_ast"
)

// CheckNoPendingSymbols verifies that a finalized module has no identifier
// left with a symbol id and no import or export syntax. Either one means that
// the reference rewriter or the statement pass skipped part of the tree.
func CheckNoPendingSymbols(module *graph.Module) error {
	var pending []string
	seen := make(map[string]bool)
	w := identifierWalker{visit: func(name string, id ast.Index32) {
		if id.IsValid() && !seen[name] {
			seen[name] = true
			pending = append(pending, name)
		}
	}}

	for _, stmt := range module.AST.Stmts {
		if js_ast.IsModuleDecl(stmt.Data) {
			return fmt.Errorf("module syntax %T remains in %q", stmt.Data, module.Source.PrettyPath)
		}
		w.stmt(stmt)
	}

	if len(pending) > 0 {
		return fmt.Errorf("identifiers were not finalized in %q: %s", module.Source.PrettyPath, strings.Join(pending, ", "))
	}
	return nil
}

func classMentionsName(class *js_ast.Class, name string) bool {
	found := false
	w := identifierWalker{visit: func(text string, _ ast.Index32) {
		if text == name {
			found = true
		}
	}}
	w.class(class)
	return found
}

func fnMentionsName(fn *js_ast.Fn, name string) bool {
	found := false
	w := identifierWalker{visit: func(text string, _ ast.Index32) {
		if text == name {
			found = true
		}
	}}
	w.fn(fn)
	return found
}

// Calls "visit" for every identifier in a tree, including binding sites
type identifierWalker struct {
	visit func(name string, id ast.Index32)
}

func (w identifierWalker) stmts(stmts []js_ast.Stmt) {
	for _, stmt := range stmts {
		w.stmt(stmt)
	}
}

func (w identifierWalker) stmt(stmt js_ast.Stmt) {
	switch s := stmt.Data.(type) {
	case *js_ast.SBlock:
		w.stmts(s.Stmts)
	case *js_ast.SExpr:
		w.expr(s.Value)
	case *js_ast.SLocal:
		for _, decl := range s.Decls {
			w.binding(decl.Binding)
			w.expr(decl.ValueOrNil)
		}
	case *js_ast.SFunction:
		w.fn(&s.Fn)
	case *js_ast.SClass:
		w.class(&s.Class)
	case *js_ast.SExportDefault:
		w.stmt(s.Value)
	case *js_ast.SIf:
		w.expr(s.Test)
		w.stmt(s.Yes)
		w.stmt(s.NoOrNil)
	case *js_ast.SFor:
		w.stmt(s.InitOrNil)
		w.expr(s.TestOrNil)
		w.expr(s.UpdateOrNil)
		w.stmt(s.Body)
	case *js_ast.SForIn:
		w.stmt(s.Init)
		w.expr(s.Value)
		w.stmt(s.Body)
	case *js_ast.SForOf:
		w.stmt(s.Init)
		w.expr(s.Value)
		w.stmt(s.Body)
	case *js_ast.SWhile:
		w.expr(s.Test)
		w.stmt(s.Body)
	case *js_ast.SReturn:
		w.expr(s.ValueOrNil)
	case *js_ast.SThrow:
		w.expr(s.Value)
	case *js_ast.STry:
		w.stmts(s.Block.Stmts)
		if s.Catch != nil {
			w.binding(s.Catch.BindingOrNil)
			w.stmts(s.Catch.Block.Stmts)
		}
		if s.FinallyOrNil != nil {
			w.stmts(s.FinallyOrNil.Stmts)
		}
	}
}

func (w identifierWalker) locRef(ref *js_ast.LocRef) {
	if ref != nil {
		w.visit(ref.Name, ref.SymbolID)
	}
}

func (w identifierWalker) fn(fn *js_ast.Fn) {
	w.locRef(fn.Name)
	w.args(fn.Args)
	w.stmts(fn.Body.Stmts)
}

func (w identifierWalker) args(args []js_ast.Arg) {
	for _, arg := range args {
		w.binding(arg.Binding)
		w.expr(arg.DefaultOrNil)
	}
}

func (w identifierWalker) class(class *js_ast.Class) {
	w.locRef(class.Name)
	w.expr(class.ExtendsOrNil)
	for _, property := range class.Properties {
		if property.IsComputed {
			w.expr(property.Key)
		}
		w.expr(property.ValueOrNil)
	}
}

func (w identifierWalker) binding(binding js_ast.Binding) {
	switch b := binding.Data.(type) {
	case *js_ast.BIdentifier:
		w.visit(b.Name, b.SymbolID)
	case *js_ast.BArray:
		for _, item := range b.Items {
			w.binding(item.Binding)
			w.expr(item.DefaultValueOrNil)
		}
	case *js_ast.BObject:
		for _, property := range b.Properties {
			if property.IsComputed {
				w.expr(property.Key)
			}
			w.binding(property.Value)
			w.expr(property.DefaultValueOrNil)
		}
	}
}

func (w identifierWalker) target(target js_ast.Target) {
	switch t := target.Data.(type) {
	case *js_ast.TIdentifier:
		w.visit(t.Name, t.SymbolID)
	case *js_ast.TMember:
		w.expr(t.Value)
	case *js_ast.TArray:
		for _, item := range t.Items {
			w.target(item.Target)
			w.expr(item.DefaultValueOrNil)
		}
	case *js_ast.TObject:
		for _, property := range t.Properties {
			if property.IsComputed {
				w.expr(property.Key)
			}
			w.target(property.Target)
			w.expr(property.DefaultValueOrNil)
		}
	}
}

func (w identifierWalker) exprs(exprs []js_ast.Expr) {
	for _, expr := range exprs {
		w.expr(expr)
	}
}

func (w identifierWalker) expr(expr js_ast.Expr) {
	switch e := expr.Data.(type) {
	case *js_ast.EIdentifier:
		w.visit(e.Name, e.SymbolID)
	case *js_ast.EArray:
		w.exprs(e.Items)
	case *js_ast.EUnary:
		w.expr(e.Value)
	case *js_ast.EBinary:
		w.expr(e.Left)
		w.expr(e.Right)
	case *js_ast.EAssign:
		w.target(e.Target)
		w.expr(e.Value)
	case *js_ast.ENew:
		w.expr(e.Target)
		w.exprs(e.Args)
	case *js_ast.ECall:
		w.expr(e.Target)
		w.exprs(e.Args)
	case *js_ast.EDot:
		w.expr(e.Target)
	case *js_ast.EIndex:
		w.expr(e.Target)
		w.expr(e.Index)
	case *js_ast.EArrow:
		w.args(e.Args)
		w.stmts(e.Body.Stmts)
	case *js_ast.EFunction:
		w.fn(&e.Fn)
	case *js_ast.EClass:
		w.class(&e.Class)
	case *js_ast.EObject:
		for _, property := range e.Properties {
			if property.IsComputed {
				w.expr(property.Key)
			}
			w.expr(property.ValueOrNil)
			w.expr(property.InitializerOrNil)
		}
	case *js_ast.ESpread:
		w.expr(e.Value)
	case *js_ast.ETemplate:
		for _, part := range e.Parts {
			w.expr(part.Value)
		}
	case *js_ast.EAwait:
		w.expr(e.Value)
	case *js_ast.EYield:
		w.expr(e.ValueOrNil)
	case *js_ast.EIf:
		w.expr(e.Test)
		w.expr(e.Yes)
		w.expr(e.No)
	case *js_ast.EImportCall:
		w.expr(e.Expr)
		w.expr(e.OptionsOrNil)
	}
}
