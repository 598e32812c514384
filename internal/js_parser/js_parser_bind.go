package js_parser

import (
	"fmt"

	"github.com/bundlekit/finalizer/internal/ast"
	"github.com/bundlekit/finalizer/internal/js_ast"
	"github.com/bundlekit/finalizer/internal/logger"
)

// The visit pass replays the scope tree built by the parse pass in the same
// order. Every scope push must line up with the scope the parse pass created
// at the same point or the two passes have diverged.
func (p *parser) pushScopeForVisitPass(kind js_ast.ScopeKind) {
	scope := p.scopesInOrder[p.visitScopeIndex]
	if scope.Kind != kind {
		panic(fmt.Sprintf("Internal error: expected scope kind %d but found %d", kind, scope.Kind))
	}
	p.visitScopeIndex++
	p.currentScope = scope
}

func (p *parser) visitTopLevelStmts(stmts []js_ast.Stmt) []map[uint32]struct{} {
	p.currentScope = p.moduleScope
	uses := make([]map[uint32]struct{}, len(stmts))

	for i := range stmts {
		p.currentUses = make(map[uint32]struct{})
		p.visitStmt(&stmts[i])
		uses[i] = p.currentUses
	}
	p.currentUses = nil

	if p.visitScopeIndex != len(p.scopesInOrder) {
		panic("Internal error: not all scopes were visited")
	}
	return uses
}

// Binds a reference to the innermost declaration with the same name. Names
// with no declaration are globals and keep an invalid symbol id.
func (p *parser) resolveName(loc logger.Loc, name string) ast.Index32 {
	for scope := p.currentScope; scope != nil; scope = scope.Parent {
		if id, ok := scope.Members[name]; ok {
			if scope == p.moduleScope && p.currentUses != nil {
				p.currentUses[id.GetIndex()] = struct{}{}
			}
			return id
		}
	}

	if !p.unbound[name] {
		p.unbound[name] = true
		p.unboundNames = append(p.unboundNames, name)
	}
	if name == "module" || name == "exports" {
		p.usesCommonJSVars = true
	}
	return ast.Index32{}
}

func (p *parser) visitStmts(stmts []js_ast.Stmt) {
	for i := range stmts {
		p.visitStmt(&stmts[i])
	}
}

func (p *parser) visitBlock(block *js_ast.SBlock) {
	p.pushScopeForVisitPass(js_ast.ScopeBlock)
	p.visitStmts(block.Stmts)
	p.popScope()
}

func (p *parser) visitStmt(stmt *js_ast.Stmt) {
	switch s := stmt.Data.(type) {
	case nil, *js_ast.SEmpty, *js_ast.SDebugger, *js_ast.SComment, *js_ast.SBreak, *js_ast.SContinue,
		*js_ast.SImport, *js_ast.SExportFrom, *js_ast.SExportStar:

	case *js_ast.SExportClause:
		for i, item := range s.Items {
			id, ok := p.moduleScope.Members[item.Name.Name]
			if !ok {
				p.addRangeError(p.rangeOfIdentifier(item.Name.Loc), fmt.Sprintf("%q is not declared in this file", item.Name.Name))
				continue
			}
			p.currentUses[id.GetIndex()] = struct{}{}
			s.Items[i].Name.SymbolID = id
			p.recordExport(item.AliasLoc, item.Alias, id)
		}

	case *js_ast.SExportDefault:
		p.visitStmt(&s.Value)

	case *js_ast.SBlock:
		p.visitBlock(s)

	case *js_ast.SExpr:
		p.visitExpr(&s.Value)

	case *js_ast.SLocal:
		p.visitDecls(s.Decls)

	case *js_ast.SFunction:
		p.visitFn(&s.Fn)

	case *js_ast.SClass:
		p.visitClass(&s.Class)

	case *js_ast.SIf:
		p.visitExpr(&s.Test)
		p.visitStmt(&s.Yes)
		p.visitStmt(&s.NoOrNil)

	case *js_ast.SWhile:
		p.visitExpr(&s.Test)
		p.visitStmt(&s.Body)

	case *js_ast.SFor:
		p.pushScopeForVisitPass(js_ast.ScopeBlock)
		p.visitStmt(&s.InitOrNil)
		p.visitExpr(&s.TestOrNil)
		p.visitExpr(&s.UpdateOrNil)
		p.visitStmt(&s.Body)
		p.popScope()

	case *js_ast.SForIn:
		p.pushScopeForVisitPass(js_ast.ScopeBlock)
		p.visitForInit(&s.Init)
		p.visitExpr(&s.Value)
		p.visitStmt(&s.Body)
		p.popScope()

	case *js_ast.SForOf:
		p.pushScopeForVisitPass(js_ast.ScopeBlock)
		p.visitForInit(&s.Init)
		p.visitExpr(&s.Value)
		p.visitStmt(&s.Body)
		p.popScope()

	case *js_ast.SReturn:
		p.visitExpr(&s.ValueOrNil)

	case *js_ast.SThrow:
		p.visitExpr(&s.Value)

	case *js_ast.STry:
		p.visitBlock(&s.Block)
		if s.Catch != nil {
			p.pushScopeForVisitPass(js_ast.ScopeCatchBinding)
			p.visitBinding(s.Catch.BindingOrNil)
			p.visitBlock(&s.Catch.Block)
			p.popScope()
		}
		if s.FinallyOrNil != nil {
			p.visitBlock(s.FinallyOrNil)
		}

	default:
		panic(fmt.Sprintf("Internal error: unexpected statement %T", stmt.Data))
	}
}

// The head of "for (x of y)" may be an expression used as an assignment
// target. It is parsed as an expression and must be checked as a target.
func (p *parser) visitForInit(init *js_ast.Stmt) {
	if s, ok := init.Data.(*js_ast.SExpr); ok {
		switch s.Value.Data.(type) {
		case *js_ast.EIdentifier, *js_ast.EDot, *js_ast.EIndex, *js_ast.EArray, *js_ast.EObject:
		default:
			p.addError(s.Value.Loc, "Invalid assignment target")
		}
	}
	p.visitStmt(init)
}

func (p *parser) visitDecls(decls []js_ast.Decl) {
	for i := range decls {
		p.visitBinding(decls[i].Binding)
		p.visitExpr(&decls[i].ValueOrNil)
	}
}

// Binding identifiers got their symbols in the parse pass. Only default
// values and computed keys contain references.
func (p *parser) visitBinding(binding js_ast.Binding) {
	switch b := binding.Data.(type) {
	case *js_ast.BArray:
		for i := range b.Items {
			p.visitBinding(b.Items[i].Binding)
			p.visitExpr(&b.Items[i].DefaultValueOrNil)
		}

	case *js_ast.BObject:
		for i := range b.Properties {
			property := &b.Properties[i]
			p.visitExpr(&property.Key)
			p.visitBinding(property.Value)
			p.visitExpr(&property.DefaultValueOrNil)
		}
	}
}

func (p *parser) visitTarget(target *js_ast.Target) {
	switch t := target.Data.(type) {
	case *js_ast.TIdentifier:
		t.SymbolID = p.resolveName(target.Loc, t.Name)

	case *js_ast.TMember:
		p.visitExpr(&t.Value)

	case *js_ast.TArray:
		for i := range t.Items {
			p.visitTarget(&t.Items[i].Target)
			p.visitExpr(&t.Items[i].DefaultValueOrNil)
		}

	case *js_ast.TObject:
		for i := range t.Properties {
			property := &t.Properties[i]
			p.visitExpr(&property.Key)
			p.visitTarget(&property.Target)
			p.visitExpr(&property.DefaultValueOrNil)
		}
	}
}

func (p *parser) visitFn(fn *js_ast.Fn) {
	p.pushScopeForVisitPass(js_ast.ScopeFunctionArgs)
	for i := range fn.Args {
		p.visitBinding(fn.Args[i].Binding)
		p.visitExpr(&fn.Args[i].DefaultOrNil)
	}
	p.pushScopeForVisitPass(js_ast.ScopeFunctionBody)
	p.visitStmts(fn.Body.Stmts)
	p.popScope()
	p.popScope()
}

func (p *parser) visitClass(class *js_ast.Class) {
	p.pushScopeForVisitPass(js_ast.ScopeClassName)
	p.visitExpr(&class.ExtendsOrNil)
	p.pushScopeForVisitPass(js_ast.ScopeClassBody)
	for i := range class.Properties {
		property := &class.Properties[i]
		p.visitExpr(&property.Key)
		p.visitExpr(&property.ValueOrNil)
	}
	p.popScope()
	p.popScope()
}

func (p *parser) visitExprs(exprs []js_ast.Expr) {
	for i := range exprs {
		p.visitExpr(&exprs[i])
	}
}

func (p *parser) visitExpr(expr *js_ast.Expr) {
	switch e := expr.Data.(type) {
	case nil, *js_ast.EBoolean, *js_ast.EThis, *js_ast.ESuper, *js_ast.EMissing, *js_ast.ENull,
		*js_ast.EUndefined, *js_ast.ENumber, *js_ast.EString:

	case *js_ast.EIdentifier:
		e.SymbolID = p.resolveName(expr.Loc, e.Name)

	case *js_ast.EArray:
		p.visitExprs(e.Items)

	case *js_ast.EUnary:
		p.visitExpr(&e.Value)

	case *js_ast.EBinary:
		p.visitExpr(&e.Left)
		p.visitExpr(&e.Right)

	case *js_ast.EAssign:
		p.visitTarget(&e.Target)
		p.visitExpr(&e.Value)

	case *js_ast.ENew:
		p.visitExpr(&e.Target)
		p.visitExprs(e.Args)

	case *js_ast.ECall:
		p.visitExpr(&e.Target)
		p.visitExprs(e.Args)

		// Only a call to the global "require" with a single string literal is
		// treated as an import
		if id, ok := e.Target.Data.(*js_ast.EIdentifier); ok && id.Name == "require" && !id.SymbolID.IsValid() && len(e.Args) == 1 {
			if str, ok := e.Args[0].Data.(*js_ast.EString); ok {
				index := p.addImportRecord(ast.ImportRequire, e.Args[0].Loc, str.Value)
				p.importRecordsByLoc[expr.Loc] = index
			}
		}

	case *js_ast.EDot:
		p.visitExpr(&e.Target)

	case *js_ast.EIndex:
		p.visitExpr(&e.Target)
		p.visitExpr(&e.Index)

	case *js_ast.EArrow:
		p.pushScopeForVisitPass(js_ast.ScopeFunctionArgs)
		for i := range e.Args {
			p.visitBinding(e.Args[i].Binding)
			p.visitExpr(&e.Args[i].DefaultOrNil)
		}
		p.pushScopeForVisitPass(js_ast.ScopeFunctionBody)
		p.visitStmts(e.Body.Stmts)
		p.popScope()
		p.popScope()

	case *js_ast.EFunction:
		p.visitFn(&e.Fn)

	case *js_ast.EClass:
		p.visitClass(&e.Class)

	case *js_ast.EObject:
		for i := range e.Properties {
			property := &e.Properties[i]
			p.visitExpr(&property.Key)
			p.visitExpr(&property.ValueOrNil)
			p.visitExpr(&property.InitializerOrNil)
		}

	case *js_ast.ESpread:
		p.visitExpr(&e.Value)

	case *js_ast.ETemplate:
		for i := range e.Parts {
			p.visitExpr(&e.Parts[i].Value)
		}

	case *js_ast.EAwait:
		p.visitExpr(&e.Value)

	case *js_ast.EYield:
		p.visitExpr(&e.ValueOrNil)

	case *js_ast.EIf:
		p.visitExpr(&e.Test)
		p.visitExpr(&e.Yes)
		p.visitExpr(&e.No)

	case *js_ast.EImportCall:
		p.visitExpr(&e.Expr)
		p.visitExpr(&e.OptionsOrNil)

	default:
		panic(fmt.Sprintf("Internal error: unexpected expression %T", expr.Data))
	}
}
