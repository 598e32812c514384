package finalizer

// Builders for the small pieces of syntax the finalizer synthesizes. Names
// passed in here are already canonical, so the identifiers carry no symbol id
// and the reference rewriter leaves them alone.

import (
	"github.com/bundlekit/finalizer/internal/js_ast"
	"github.com/bundlekit/finalizer/internal/logger"
)

func identExpr(loc logger.Loc, name string) js_ast.Expr {
	return js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Name: name}}
}

func stringExpr(loc logger.Loc, value string) js_ast.Expr {
	return js_ast.Expr{Loc: loc, Data: &js_ast.EString{Value: value}}
}

func dotExpr(loc logger.Loc, target js_ast.Expr, name string) js_ast.Expr {
	return js_ast.Expr{Loc: loc, Data: &js_ast.EDot{Target: target, Name: name, NameLoc: loc}}
}

// "callee(args...)"
func callExpr(loc logger.Loc, callee string, args ...js_ast.Expr) js_ast.Expr {
	if args == nil {
		args = []js_ast.Expr{}
	}
	return js_ast.Expr{Loc: loc, Data: &js_ast.ECall{Target: identExpr(loc, callee), Args: args}}
}

// "callee(args...);"
func callStmt(loc logger.Loc, callee string, args ...js_ast.Expr) js_ast.Stmt {
	return exprStmt(callExpr(loc, callee, args...))
}

func exprStmt(value js_ast.Expr) js_ast.Stmt {
	return js_ast.Stmt{Loc: value.Loc, Data: &js_ast.SExpr{Value: value}}
}

// "(a, b)"
func seqExpr(a js_ast.Expr, b js_ast.Expr) js_ast.Expr {
	return js_ast.Expr{Loc: a.Loc, Data: &js_ast.EBinary{Op: js_ast.BinOpComma, Left: a, Right: b}}
}

// "var name = value;"
func varDeclStmt(loc logger.Loc, name string, value js_ast.Expr) js_ast.Stmt {
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{
		Kind: js_ast.LocalVar,
		Decls: []js_ast.Decl{{
			Binding:    js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Name: name}},
			ValueOrNil: value,
		}},
	}}
}

// "var a, b, c;"
func hoistedVarStmt(loc logger.Loc, names []string) js_ast.Stmt {
	decls := make([]js_ast.Decl, len(names))
	for i, name := range names {
		decls[i] = js_ast.Decl{Binding: js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Name: name}}}
	}
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: decls}}
}

// "(params...) => { body }"
func arrowExpr(loc logger.Loc, params []string, body []js_ast.Stmt) js_ast.Expr {
	args := make([]js_ast.Arg, len(params))
	for i, param := range params {
		args[i] = js_ast.Arg{Binding: js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Name: param}}}
	}
	return js_ast.Expr{Loc: loc, Data: &js_ast.EArrow{Args: args, Body: js_ast.FnBody{Loc: loc, Stmts: body}}}
}

// "() => value"
func getterExpr(loc logger.Loc, value js_ast.Expr) js_ast.Expr {
	return js_ast.Expr{Loc: loc, Data: &js_ast.EArrow{
		Args:       []js_ast.Arg{},
		Body:       js_ast.FnBody{Loc: loc, Stmts: []js_ast.Stmt{{Loc: loc, Data: &js_ast.SReturn{ValueOrNil: value}}}},
		PreferExpr: true,
	}}
}

// "var require_foo = __commonJSMin((exports, module) => { body });"
func commonJSWrapperStmt(loc logger.Loc, wrapperName string, helperName string, body []js_ast.Stmt) js_ast.Stmt {
	closure := arrowExpr(loc, []string{"exports", "module"}, body)
	return varDeclStmt(loc, wrapperName, callExpr(loc, helperName, closure))
}

// "var init_foo = __esmMin(() => { body });"
func esmWrapperStmt(loc logger.Loc, wrapperName string, helperName string, body []js_ast.Stmt) js_ast.Stmt {
	closure := arrowExpr(loc, nil, body)
	return varDeclStmt(loc, wrapperName, callExpr(loc, helperName, closure))
}
