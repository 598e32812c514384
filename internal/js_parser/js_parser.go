package js_parser

// This parser does two passes:
//
//  1. Parse the source into an AST, create the scope tree, and declare all
//     binding identifiers. Binding identifiers get their symbol id here.
//
//  2. Visit each node in the AST, bind identifier references to declared
//     symbols, and collect import records and exports that depend on those
//     bindings. This can't happen in the first pass because identifiers can
//     be bound to declarations that appear later than they do in the source
//     code (hoisting).
//
// The parser understands a practical subset of JavaScript: everything a module
// needs for imports, exports, declarations, functions, classes, and ordinary
// expressions. Regular expression literals, labels, "switch", "do", "with",
// and optional chaining are reported as syntax errors.

import (
	"fmt"

	"github.com/bundlekit/finalizer/internal/ast"
	"github.com/bundlekit/finalizer/internal/js_ast"
	"github.com/bundlekit/finalizer/internal/js_lexer"
	"github.com/bundlekit/finalizer/internal/logger"
)

type parser struct {
	log    logger.Log
	source logger.Source
	lexer  js_lexer.Lexer

	symbols       []ast.Symbol
	moduleScope   *js_ast.Scope
	currentScope  *js_ast.Scope
	scopesInOrder []*js_ast.Scope
	hadErrors     bool

	importRecords      []ast.ImportRecord
	importRecordsByLoc map[logger.Loc]uint32
	namedImports       map[uint32]js_ast.NamedImport
	namedExports       map[string]js_ast.NamedExport
	exportStars        []uint32
	hasESMSyntax       bool

	namespaceRef ast.Index32
	defaultRef   ast.Index32
	wrapperRef   ast.Index32

	// Function state while parsing
	allowAwait bool
	allowYield bool

	// Visit pass state
	visitScopeIndex  int
	unbound          map[string]bool
	unboundNames     []string
	usesCommonJSVars bool
	currentUses      map[uint32]struct{}
}

func Parse(log logger.Log, source logger.Source) (result js_ast.AST, ok bool) {
	ok = true
	defer func() {
		r := recover()
		if _, isLexerPanic := r.(js_lexer.LexerPanic); isLexerPanic {
			ok = false
		} else if r != nil {
			panic(r)
		}
	}()

	p := newParser(log, source, js_lexer.NewLexer(log, source))

	// Top-level await is allowed in modules
	p.allowAwait = true

	directives := p.parseDirectives()
	stmts := p.parseStmtsUpTo(js_lexer.TEndOfFile, parseStmtOpts{isModuleScope: true})
	uses := p.visitTopLevelStmts(stmts)

	result = js_ast.AST{
		Directives:         directives,
		Stmts:              stmts,
		ModuleScope:        p.moduleScope,
		Symbols:            p.symbols,
		ImportRecords:      p.importRecords,
		ImportRecordsByLoc: p.importRecordsByLoc,
		UnboundNames:       p.unboundNames,
		HasESMSyntax:       p.hasESMSyntax,
		UsesCommonJSVars:   p.usesCommonJSVars,
		NamedImports:       p.namedImports,
		NamedExports:       p.namedExports,
		ExportStars:        p.exportStars,
		TopLevelUses:       uses,
		NamespaceRef:       p.namespaceRef,
		DefaultRef:         p.defaultRef,
		WrapperRef:         p.wrapperRef,
	}
	ok = !p.hadErrors
	return
}

func newParser(log logger.Log, source logger.Source, lexer js_lexer.Lexer) *parser {
	p := &parser{
		log:                log,
		source:             source,
		lexer:              lexer,
		importRecordsByLoc: make(map[logger.Loc]uint32),
		namedImports:       make(map[uint32]js_ast.NamedImport),
		namedExports:       make(map[string]js_ast.NamedExport),
		unbound:            make(map[string]bool),
	}

	p.moduleScope = &js_ast.Scope{Kind: js_ast.ScopeEntry, Members: make(map[string]ast.Index32)}
	p.currentScope = p.moduleScope

	// These symbols exist for every module whether or not they end up used
	p.namespaceRef = p.newGeneratedSymbol(source.IdentifierName + "_exports")
	p.defaultRef = p.newGeneratedSymbol(source.IdentifierName + "_default")
	p.wrapperRef = p.newGeneratedSymbol("init_" + source.IdentifierName)
	return p
}

func (p *parser) addError(loc logger.Loc, text string) {
	p.hadErrors = true
	p.log.AddError(&p.source, loc, text)
}

func (p *parser) addRangeError(r logger.Range, text string) {
	p.hadErrors = true
	p.log.AddRangeError(&p.source, r, text)
}

////////////////////////////////////////////////////////////////////////////////
// Scopes and symbols

func (p *parser) pushScopeForParsePass(kind js_ast.ScopeKind) {
	parent := p.currentScope
	scope := &js_ast.Scope{
		Kind:    kind,
		Parent:  parent,
		Members: make(map[string]ast.Index32),
	}
	parent.Children = append(parent.Children, scope)
	p.currentScope = scope
	p.scopesInOrder = append(p.scopesInOrder, scope)
}

func (p *parser) popScope() {
	p.currentScope = p.currentScope.Parent
}

func (p *parser) newSymbol(kind ast.SymbolKind, name string) ast.Index32 {
	id := ast.MakeIndex32(uint32(len(p.symbols)))
	p.symbols = append(p.symbols, ast.Symbol{
		Kind:         kind,
		OriginalName: name,
		Link:         ast.InvalidRef,
	})
	return id
}

// Generated symbols belong to the module scope for renaming purposes but are
// not visible to name lookup, so user code can never bind to them.
func (p *parser) newGeneratedSymbol(name string) ast.Index32 {
	id := p.newSymbol(ast.SymbolGenerated, name)
	p.moduleScope.Ordered = append(p.moduleScope.Ordered, id)
	return id
}

// Returns the scope that "var" and function declarations hoist to
func (p *parser) hoistScope() *js_ast.Scope {
	scope := p.currentScope
	for scope.Kind != js_ast.ScopeEntry && scope.Kind != js_ast.ScopeFunctionBody && scope.Kind != js_ast.ScopeFunctionArgs {
		scope = scope.Parent
	}
	return scope
}

func (p *parser) declareSymbol(kind ast.SymbolKind, loc logger.Loc, name string) ast.Index32 {
	scope := p.currentScope
	if kind == ast.SymbolHoisted {
		scope = p.hoistScope()
	}

	// "function f(a) { var a }" redeclares the argument
	if kind == ast.SymbolHoisted && scope.Kind == js_ast.ScopeFunctionBody {
		if existing, ok := scope.Parent.Members[name]; ok {
			return existing
		}
	}

	if existing, ok := scope.Members[name]; ok {
		existingKind := p.symbols[existing.GetIndex()].Kind

		// Redeclaring "var" or a function with "var" or a function is allowed
		if kind.IsHoisted() && existingKind.IsHoisted() {
			if kind == ast.SymbolHoistedFunction {
				p.symbols[existing.GetIndex()].Kind = kind
			}
			return existing
		}

		r := p.rangeOfIdentifier(loc)
		p.addRangeError(r, fmt.Sprintf("The symbol %q has already been declared", name))
		return existing
	}

	id := p.newSymbol(kind, name)
	scope.Members[name] = id
	scope.Ordered = append(scope.Ordered, id)
	return id
}

func (p *parser) rangeOfIdentifier(loc logger.Loc) logger.Range {
	text := p.source.Contents[loc.Start:]
	n := 0
	for i, c := range text {
		if (i == 0 && !js_lexer.IsIdentifierStart(c)) || (i > 0 && !js_lexer.IsIdentifierContinue(c)) {
			break
		}
		n = i + len(string(c))
	}
	return logger.Range{Loc: loc, Len: int32(n)}
}

// Runs "scan" on a copy of the lexer with errors disabled. The lexer is
// always restored, so this can be used to decide between two parses.
func (p *parser) lookahead(scan func() bool) (result bool) {
	saved := p.lexer
	p.lexer.IsLogDisabled = true
	defer func() {
		p.lexer = saved
		if r := recover(); r != nil {
			if _, ok := r.(js_lexer.LexerPanic); !ok {
				panic(r)
			}
			result = false
		}
	}()
	return scan()
}

////////////////////////////////////////////////////////////////////////////////
// Import records

func (p *parser) addImportRecord(kind ast.ImportKind, loc logger.Loc, path string) uint32 {
	index := uint32(len(p.importRecords))
	p.importRecords = append(p.importRecords, ast.ImportRecord{
		Kind:         kind,
		Range:        p.source.RangeOfString(loc),
		Path:         logger.Path{Text: path},
		SourceIndex:  ast.Index32{},
		NamespaceRef: ast.InvalidRef,
	})
	return index
}

// Statement-level import records get a namespace symbol, which holds the
// imported module when its bindings can't be inlined (CommonJS or external)
func (p *parser) addStmtImportRecord(stmtLoc logger.Loc, pathLoc logger.Loc, path string) uint32 {
	index := p.addImportRecord(ast.ImportStmt, pathLoc, path)
	id := p.newGeneratedSymbol("import_" + ast.GenerateNonUniqueNameFromPath(path))
	p.importRecords[index].NamespaceRef = ast.Ref{SourceIndex: p.source.Index, InnerIndex: id.GetIndex()}
	p.importRecordsByLoc[stmtLoc] = index
	return index
}

////////////////////////////////////////////////////////////////////////////////
// Statements

type parseStmtOpts struct {
	isModuleScope   bool
	isExport        bool
	isExportDefault bool
}

func (p *parser) parseDirectives() (directives []string) {
	isDirective := func() bool {
		p.lexer.Next()
		return p.lexer.Token == js_lexer.TSemicolon || p.lexer.Token == js_lexer.TEndOfFile || p.lexer.HasNewlineBefore
	}
	for p.lexer.Token == js_lexer.TStringLiteral && p.lookahead(isDirective) {
		directives = append(directives, p.lexer.StringLiteral)
		p.lexer.Next()
		if p.lexer.Token == js_lexer.TSemicolon {
			p.lexer.Next()
		}
	}
	return
}

func (p *parser) parseStmtsUpTo(end js_lexer.T, opts parseStmtOpts) []js_ast.Stmt {
	stmts := []js_ast.Stmt{}
	for p.lexer.Token != end {
		if p.lexer.Token == js_lexer.TEndOfFile {
			p.lexer.Expected(end)
		}
		stmt := p.parseStmt(opts)

		// Skip stray semicolons
		if _, ok := stmt.Data.(*js_ast.SEmpty); ok {
			continue
		}
		stmts = append(stmts, stmt)
	}
	return stmts
}

func (p *parser) parseBlock() js_ast.SBlock {
	p.lexer.Expect(js_lexer.TOpenBrace)
	p.pushScopeForParsePass(js_ast.ScopeBlock)
	stmts := p.parseStmtsUpTo(js_lexer.TCloseBrace, parseStmtOpts{})
	p.popScope()
	p.lexer.Next()
	return js_ast.SBlock{Stmts: stmts}
}

func (p *parser) parseStmt(opts parseStmtOpts) js_ast.Stmt {
	loc := p.lexer.Loc()

	switch p.lexer.Token {
	case js_lexer.TSemicolon:
		p.lexer.Next()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SEmpty{}}

	case js_lexer.TOpenBrace:
		block := p.parseBlock()
		return js_ast.Stmt{Loc: loc, Data: &block}

	case js_lexer.TImport:
		// "import()" and "import.meta" are expressions
		isExpr := p.lookahead(func() bool {
			p.lexer.Next()
			return p.lexer.Token == js_lexer.TOpenParen || p.lexer.Token == js_lexer.TDot
		})
		if isExpr {
			break
		}
		if !opts.isModuleScope {
			p.lexer.Unexpected()
		}
		return p.parseImportStmt(loc)

	case js_lexer.TExport:
		if !opts.isModuleScope {
			p.lexer.Unexpected()
		}
		return p.parseExportStmt(loc)

	case js_lexer.TFunction:
		p.lexer.Next()
		return p.parseFnStmt(loc, opts, false)

	case js_lexer.TClass:
		return p.parseClassStmt(loc, opts)

	case js_lexer.TVar:
		p.lexer.Next()
		decls := p.parseAndDeclareDecls(ast.SymbolHoisted, true)
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: decls, IsExport: opts.isExport}}

	case js_lexer.TConst:
		p.lexer.Next()
		decls := p.parseAndDeclareDecls(ast.SymbolConst, true)
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: js_ast.LocalConst, Decls: decls, IsExport: opts.isExport}}

	case js_lexer.TIf:
		p.lexer.Next()
		p.lexer.Expect(js_lexer.TOpenParen)
		test := p.parseExpr(js_ast.LLowest)
		p.lexer.Expect(js_lexer.TCloseParen)
		yes := p.parseStmt(parseStmtOpts{})
		var no js_ast.Stmt
		if p.lexer.Token == js_lexer.TElse {
			p.lexer.Next()
			no = p.parseStmt(parseStmtOpts{})
		}
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SIf{Test: test, Yes: yes, NoOrNil: no}}

	case js_lexer.TWhile:
		p.lexer.Next()
		p.lexer.Expect(js_lexer.TOpenParen)
		test := p.parseExpr(js_ast.LLowest)
		p.lexer.Expect(js_lexer.TCloseParen)
		body := p.parseStmt(parseStmtOpts{})
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SWhile{Test: test, Body: body}}

	case js_lexer.TFor:
		return p.parseForStmt(loc)

	case js_lexer.TReturn:
		p.lexer.Next()
		var value js_ast.Expr
		if p.lexer.Token != js_lexer.TSemicolon && !p.lexer.HasNewlineBefore &&
			p.lexer.Token != js_lexer.TCloseBrace && p.lexer.Token != js_lexer.TEndOfFile {
			value = p.parseExpr(js_ast.LLowest)
		}
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SReturn{ValueOrNil: value}}

	case js_lexer.TThrow:
		p.lexer.Next()
		if p.lexer.HasNewlineBefore {
			p.addError(loc, "Unexpected newline after \"throw\"")
		}
		value := p.parseExpr(js_ast.LLowest)
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SThrow{Value: value}}

	case js_lexer.TTry:
		return p.parseTryStmt(loc)

	case js_lexer.TBreak:
		p.lexer.Next()
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SBreak{}}

	case js_lexer.TContinue:
		p.lexer.Next()
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SContinue{}}

	case js_lexer.TDebugger:
		p.lexer.Next()
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SDebugger{}}

	case js_lexer.TSwitch, js_lexer.TDo, js_lexer.TWith:
		p.lexer.Unexpected()

	case js_lexer.TIdentifier:
		switch p.lexer.Identifier {
		case "let", "using":
			if kind, ok := p.isLexicalDeclaration(); ok {
				p.lexer.Next()
				decls := p.parseAndDeclareDecls(ast.SymbolOther, true)
				p.lexer.ExpectOrInsertSemicolon()
				return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: kind, Decls: decls, IsExport: opts.isExport}}
			}

		case "async":
			isAsyncFn := p.lookahead(func() bool {
				p.lexer.Next()
				return p.lexer.Token == js_lexer.TFunction && !p.lexer.HasNewlineBefore
			})
			if isAsyncFn {
				p.lexer.Next()
				p.lexer.Next()
				return p.parseFnStmt(loc, opts, true)
			}
		}
	}

	expr := p.parseExpr(js_ast.LLowest)
	p.lexer.ExpectOrInsertSemicolon()
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{Value: expr}}
}

// "let" and "using" are only keywords when followed by a binding
func (p *parser) isLexicalDeclaration() (js_ast.LocalKind, bool) {
	kind := js_ast.LocalLet
	if p.lexer.Identifier == "using" {
		kind = js_ast.LocalUsing
	}
	ok := p.lookahead(func() bool {
		p.lexer.Next()
		switch p.lexer.Token {
		case js_lexer.TIdentifier:
			return kind == js_ast.LocalLet || !p.lexer.HasNewlineBefore
		case js_lexer.TOpenBrace, js_lexer.TOpenBracket:
			return kind == js_ast.LocalLet
		}
		return false
	})
	return kind, ok
}

func (p *parser) parseAndDeclareDecls(kind ast.SymbolKind, allowIn bool) []js_ast.Decl {
	decls := []js_ast.Decl{}
	for {
		binding := p.parseBinding(kind)
		var value js_ast.Expr
		if p.lexer.Token == js_lexer.TEquals {
			p.lexer.Next()
			value = p.parseExprWithFlags(js_ast.LComma, exprFlags{forbidIn: !allowIn})
		}
		decls = append(decls, js_ast.Decl{Binding: binding, ValueOrNil: value})
		if p.lexer.Token != js_lexer.TComma {
			break
		}
		p.lexer.Next()
	}
	return decls
}

func (p *parser) parseForStmt(loc logger.Loc) js_ast.Stmt {
	p.lexer.Next()
	p.pushScopeForParsePass(js_ast.ScopeBlock)
	defer p.popScope()

	p.lexer.Expect(js_lexer.TOpenParen)

	var init js_ast.Stmt
	var decls []js_ast.Decl
	initLoc := p.lexer.Loc()

	switch p.lexer.Token {
	case js_lexer.TSemicolon:

	case js_lexer.TVar:
		p.lexer.Next()
		decls = p.parseAndDeclareDecls(ast.SymbolHoisted, false)
		init = js_ast.Stmt{Loc: initLoc, Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: decls}}

	case js_lexer.TConst:
		p.lexer.Next()
		decls = p.parseAndDeclareDecls(ast.SymbolConst, false)
		init = js_ast.Stmt{Loc: initLoc, Data: &js_ast.SLocal{Kind: js_ast.LocalConst, Decls: decls}}

	default:
		if p.lexer.IsContextualKeyword("let") {
			if _, ok := p.isLexicalDeclaration(); ok {
				p.lexer.Next()
				decls = p.parseAndDeclareDecls(ast.SymbolOther, false)
				init = js_ast.Stmt{Loc: initLoc, Data: &js_ast.SLocal{Kind: js_ast.LocalLet, Decls: decls}}
				break
			}
		}
		expr := p.parseExprWithFlags(js_ast.LLowest, exprFlags{forbidIn: true})
		init = js_ast.Stmt{Loc: initLoc, Data: &js_ast.SExpr{Value: expr}}
	}

	// "for (a of b)" and "for (a in b)"
	if p.lexer.IsContextualKeyword("of") || p.lexer.Token == js_lexer.TIn {
		isOf := p.lexer.Token != js_lexer.TIn
		if len(decls) > 1 {
			p.addError(initLoc, "for-in and for-of loops must have a single declaration")
		}
		if init.Data == nil {
			p.lexer.Unexpected()
		}
		p.lexer.Next()
		var value js_ast.Expr
		if isOf {
			value = p.parseExpr(js_ast.LComma)
		} else {
			value = p.parseExpr(js_ast.LLowest)
		}
		p.lexer.Expect(js_lexer.TCloseParen)
		body := p.parseStmt(parseStmtOpts{})
		if isOf {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SForOf{Init: init, Value: value, Body: body}}
		}
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SForIn{Init: init, Value: value, Body: body}}
	}

	p.lexer.Expect(js_lexer.TSemicolon)
	var test, update js_ast.Expr
	if p.lexer.Token != js_lexer.TSemicolon {
		test = p.parseExpr(js_ast.LLowest)
	}
	p.lexer.Expect(js_lexer.TSemicolon)
	if p.lexer.Token != js_lexer.TCloseParen {
		update = p.parseExpr(js_ast.LLowest)
	}
	p.lexer.Expect(js_lexer.TCloseParen)
	body := p.parseStmt(parseStmtOpts{})
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SFor{InitOrNil: init, TestOrNil: test, UpdateOrNil: update, Body: body}}
}

func (p *parser) parseTryStmt(loc logger.Loc) js_ast.Stmt {
	p.lexer.Next()
	block := p.parseBlock()
	var catch *js_ast.Catch
	var finally *js_ast.SBlock

	if p.lexer.Token == js_lexer.TCatch {
		p.lexer.Next()
		p.pushScopeForParsePass(js_ast.ScopeCatchBinding)
		var binding js_ast.Binding
		if p.lexer.Token == js_lexer.TOpenParen {
			p.lexer.Next()
			binding = p.parseBinding(ast.SymbolOther)
			p.lexer.Expect(js_lexer.TCloseParen)
		}
		catch = &js_ast.Catch{BindingOrNil: binding, Block: p.parseBlock()}
		p.popScope()
	}

	if p.lexer.Token == js_lexer.TFinally {
		p.lexer.Next()
		block := p.parseBlock()
		finally = &block
	}

	if catch == nil && finally == nil {
		p.lexer.Expected(js_lexer.TCatch)
	}
	return js_ast.Stmt{Loc: loc, Data: &js_ast.STry{Block: block, Catch: catch, FinallyOrNil: finally}}
}

func (p *parser) parseFnStmt(loc logger.Loc, opts parseStmtOpts, isAsync bool) js_ast.Stmt {
	isGenerator := false
	if p.lexer.Token == js_lexer.TAsterisk {
		isGenerator = true
		p.lexer.Next()
	}

	var name *js_ast.LocRef
	if p.lexer.Token != js_lexer.TIdentifier {
		// Only "export default function() {}" may omit the name
		if !opts.isExportDefault || p.lexer.Token != js_lexer.TOpenParen {
			p.lexer.Expected(js_lexer.TIdentifier)
		}
	} else {
		nameLoc := p.lexer.Loc()
		text := p.lexer.Identifier
		kind := ast.SymbolHoistedFunction
		if !opts.isModuleScope && p.currentScope.Kind != js_ast.ScopeFunctionBody {
			kind = ast.SymbolOther
		}
		name = &js_ast.LocRef{Loc: nameLoc, Name: text, SymbolID: p.declareSymbol(kind, nameLoc, text)}
		p.lexer.Next()
	}

	fn := p.parseFn(name, isAsync, isGenerator, nil)
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SFunction{Fn: fn, IsExport: opts.isExport}}
}

func (p *parser) parseClassStmt(loc logger.Loc, opts parseStmtOpts) js_ast.Stmt {
	p.lexer.Expect(js_lexer.TClass)

	var name *js_ast.LocRef
	if p.lexer.Token == js_lexer.TIdentifier && !p.lexer.IsContextualKeyword("implements") {
		nameLoc := p.lexer.Loc()
		text := p.lexer.Identifier
		name = &js_ast.LocRef{Loc: nameLoc, Name: text, SymbolID: p.declareSymbol(ast.SymbolClass, nameLoc, text)}
		p.lexer.Next()
	} else if !opts.isExportDefault {
		p.lexer.Expected(js_lexer.TIdentifier)
	}

	class := p.parseClass(name, true)
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SClass{Class: class, IsExport: opts.isExport}}
}

////////////////////////////////////////////////////////////////////////////////
// Module syntax

func (p *parser) parsePath() (logger.Loc, string) {
	loc := p.lexer.Loc()
	if p.lexer.Token != js_lexer.TStringLiteral {
		p.lexer.Expected(js_lexer.TStringLiteral)
	}
	text := p.lexer.StringLiteral
	p.lexer.Next()
	return loc, text
}

func (p *parser) parseClauseAlias() string {
	if p.lexer.Token == js_lexer.TStringLiteral {
		alias := p.lexer.StringLiteral
		p.lexer.Next()
		return alias
	}
	if !p.lexer.IsIdentifierOrKeyword() {
		p.lexer.Expected(js_lexer.TIdentifier)
	}
	alias := p.lexer.Identifier
	p.lexer.Next()
	return alias
}

func (p *parser) parseImportStmt(loc logger.Loc) js_ast.Stmt {
	p.hasESMSyntax = true
	p.lexer.Next()
	stmt := &js_ast.SImport{}

	// "import 'path'"
	if p.lexer.Token == js_lexer.TStringLiteral {
		pathLoc, path := p.parsePath()
		p.lexer.ExpectOrInsertSemicolon()
		index := p.addStmtImportRecord(loc, pathLoc, path)
		p.importRecords[index].Flags |= ast.WasOriginallyBareImport
		return js_ast.Stmt{Loc: loc, Data: stmt}
	}

	type pendingItem struct {
		alias    string
		aliasLoc logger.Loc
		id       ast.Index32
	}
	var pending []pendingItem
	var flags ast.ImportRecordFlags

	declare := func(alias string, aliasLoc logger.Loc) *js_ast.LocRef {
		nameLoc := p.lexer.Loc()
		if p.lexer.Token != js_lexer.TIdentifier {
			p.lexer.Expected(js_lexer.TIdentifier)
		}
		name := p.lexer.Identifier
		id := p.declareSymbol(ast.SymbolImport, nameLoc, name)
		p.lexer.Next()
		pending = append(pending, pendingItem{alias, aliasLoc, id})
		return &js_ast.LocRef{Loc: nameLoc, Name: name, SymbolID: id}
	}

	// "import defaultItem from 'path'"
	if p.lexer.Token == js_lexer.TIdentifier {
		stmt.DefaultName = declare("default", p.lexer.Loc())
		flags |= ast.ContainsDefaultAlias
		if p.lexer.Token == js_lexer.TComma {
			p.lexer.Next()
		}
	}

	switch p.lexer.Token {
	case js_lexer.TAsterisk:
		// "import * as ns from 'path'"
		starLoc := p.lexer.Loc()
		p.lexer.Next()
		p.lexer.ExpectContextualKeyword("as")
		stmt.StarName = declare("*", starLoc)
		flags |= ast.ContainsImportStar

	case js_lexer.TOpenBrace:
		// "import {item1, item2 as x} from 'path'"
		p.lexer.Next()
		items := []js_ast.ClauseItem{}
		for p.lexer.Token != js_lexer.TCloseBrace {
			aliasLoc := p.lexer.Loc()
			isIdentifier := p.lexer.Token == js_lexer.TIdentifier
			alias := p.parseClauseAlias()
			var name *js_ast.LocRef
			if p.lexer.IsContextualKeyword("as") {
				p.lexer.Next()
				name = declare(alias, aliasLoc)
			} else {
				if !isIdentifier {
					p.lexer.ExpectedString("\"as\"")
				}
				id := p.declareSymbol(ast.SymbolImport, aliasLoc, alias)
				pending = append(pending, pendingItem{alias, aliasLoc, id})
				name = &js_ast.LocRef{Loc: aliasLoc, Name: alias, SymbolID: id}
			}
			if alias == "default" {
				flags |= ast.ContainsDefaultAlias
			}
			items = append(items, js_ast.ClauseItem{Alias: alias, AliasLoc: aliasLoc, Name: *name})
			if p.lexer.Token != js_lexer.TComma {
				break
			}
			p.lexer.Next()
		}
		p.lexer.Expect(js_lexer.TCloseBrace)
		stmt.Items = &items
	}

	p.lexer.ExpectContextualKeyword("from")
	pathLoc, path := p.parsePath()
	p.lexer.ExpectOrInsertSemicolon()

	index := p.addStmtImportRecord(loc, pathLoc, path)
	p.importRecords[index].Flags |= flags
	for _, item := range pending {
		p.namedImports[item.id.GetIndex()] = js_ast.NamedImport{
			Alias:             item.alias,
			AliasLoc:          item.aliasLoc,
			ImportRecordIndex: index,
		}
	}
	return js_ast.Stmt{Loc: loc, Data: stmt}
}

func (p *parser) parseExportStmt(loc logger.Loc) js_ast.Stmt {
	p.hasESMSyntax = true
	p.lexer.Next()
	opts := parseStmtOpts{isModuleScope: true, isExport: true}

	switch p.lexer.Token {
	case js_lexer.TVar, js_lexer.TConst, js_lexer.TFunction, js_lexer.TClass:
		stmt := p.parseStmt(opts)
		p.recordExportedBindings(stmt)
		return stmt

	case js_lexer.TIdentifier:
		if p.lexer.Identifier == "let" || p.lexer.Identifier == "async" {
			stmt := p.parseStmt(opts)
			if !js_ast.IsModuleDecl(stmt.Data) {
				p.addError(loc, "Unexpected expression after \"export\"")
			}
			p.recordExportedBindings(stmt)
			return stmt
		}
		p.lexer.Unexpected()

	case js_lexer.TDefault:
		return p.parseExportDefault(loc)

	case js_lexer.TAsterisk:
		// "export * from 'path'" and "export * as ns from 'path'"
		p.lexer.Next()
		stmt := &js_ast.SExportStar{}
		var aliasID ast.Index32
		var aliasName string
		var aliasLoc logger.Loc
		if p.lexer.IsContextualKeyword("as") {
			p.lexer.Next()
			aliasLoc = p.lexer.Loc()
			aliasName = p.parseClauseAlias()
			aliasID = p.newGeneratedSymbol(aliasName)
			p.symbols[aliasID.GetIndex()].Kind = ast.SymbolImport
			stmt.Alias = &js_ast.ExportStarAlias{Loc: aliasLoc, Name: js_ast.LocRef{Loc: aliasLoc, Name: aliasName, SymbolID: aliasID}}
		}
		p.lexer.ExpectContextualKeyword("from")
		pathLoc, path := p.parsePath()
		p.lexer.ExpectOrInsertSemicolon()

		index := p.addStmtImportRecord(loc, pathLoc, path)
		if stmt.Alias != nil {
			p.importRecords[index].Flags |= ast.ContainsImportStar
			p.namedImports[aliasID.GetIndex()] = js_ast.NamedImport{Alias: "*", AliasLoc: aliasLoc, ImportRecordIndex: index, IsReExport: true}
			p.recordExport(aliasLoc, aliasName, aliasID)
		} else {
			p.importRecords[index].Flags |= ast.IsExportStar
			p.exportStars = append(p.exportStars, index)
		}
		return js_ast.Stmt{Loc: loc, Data: stmt}

	case js_lexer.TOpenBrace:
		items := p.parseExportClause()

		// "export {a, b as c} from 'path'"
		if p.lexer.IsContextualKeyword("from") {
			p.lexer.Next()
			pathLoc, path := p.parsePath()
			p.lexer.ExpectOrInsertSemicolon()
			index := p.addStmtImportRecord(loc, pathLoc, path)
			for i, item := range items {
				id := p.newGeneratedSymbol(item.Name.Name)
				p.symbols[id.GetIndex()].Kind = ast.SymbolImport
				items[i].Name.SymbolID = id
				p.namedImports[id.GetIndex()] = js_ast.NamedImport{
					Alias:             item.Name.Name,
					AliasLoc:          item.Name.Loc,
					ImportRecordIndex: index,
					IsReExport:        true,
				}
				if item.Name.Name == "default" {
					p.importRecords[index].Flags |= ast.ContainsDefaultAlias
				}
				p.recordExport(item.AliasLoc, item.Alias, id)
			}
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportFrom{Items: items}}
		}

		// "export {a, b as c}" is bound to local symbols in the visit pass
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportClause{Items: items}}
	}

	p.lexer.Unexpected()
	return js_ast.Stmt{}
}

func (p *parser) parseExportClause() []js_ast.ClauseItem {
	p.lexer.Expect(js_lexer.TOpenBrace)
	items := []js_ast.ClauseItem{}
	for p.lexer.Token != js_lexer.TCloseBrace {
		nameLoc := p.lexer.Loc()
		name := p.parseClauseAlias()
		alias, aliasLoc := name, nameLoc
		if p.lexer.IsContextualKeyword("as") {
			p.lexer.Next()
			aliasLoc = p.lexer.Loc()
			alias = p.parseClauseAlias()
		}
		items = append(items, js_ast.ClauseItem{
			Alias:    alias,
			AliasLoc: aliasLoc,
			Name:     js_ast.LocRef{Loc: nameLoc, Name: name},
		})
		if p.lexer.Token != js_lexer.TComma {
			break
		}
		p.lexer.Next()
	}
	p.lexer.Expect(js_lexer.TCloseBrace)
	return items
}

func (p *parser) parseExportDefault(loc logger.Loc) js_ast.Stmt {
	defaultLoc := p.lexer.Loc()
	p.lexer.Next()
	defaultName := js_ast.LocRef{Loc: defaultLoc, Name: p.symbols[p.defaultRef.GetIndex()].OriginalName, SymbolID: p.defaultRef}
	opts := parseStmtOpts{isModuleScope: true, isExport: true, isExportDefault: true}

	isAsyncFn := p.lexer.IsContextualKeyword("async") && p.lookahead(func() bool {
		p.lexer.Next()
		return p.lexer.Token == js_lexer.TFunction && !p.lexer.HasNewlineBefore
	})

	if p.lexer.Token == js_lexer.TFunction || p.lexer.Token == js_lexer.TClass || isAsyncFn {
		valueLoc := p.lexer.Loc()
		var value js_ast.Stmt
		if p.lexer.Token == js_lexer.TClass {
			value = p.parseClassStmt(valueLoc, opts)
		} else {
			if isAsyncFn {
				p.lexer.Next()
			}
			p.lexer.Next()
			value = p.parseFnStmt(valueLoc, opts, isAsyncFn)
		}

		// The declaration itself is not exported by name, only as "default"
		exported := p.defaultRef
		switch s := value.Data.(type) {
		case *js_ast.SFunction:
			s.IsExport = false
			if s.Fn.Name != nil {
				exported = s.Fn.Name.SymbolID
			}
		case *js_ast.SClass:
			s.IsExport = false
			if s.Class.Name != nil {
				exported = s.Class.Name.SymbolID
			}
		}
		p.recordExport(defaultLoc, "default", exported)
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportDefault{DefaultName: defaultName, Value: value}}
	}

	valueLoc := p.lexer.Loc()
	expr := p.parseExpr(js_ast.LComma)
	p.lexer.ExpectOrInsertSemicolon()
	p.recordExport(defaultLoc, "default", p.defaultRef)
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportDefault{
		DefaultName: defaultName,
		Value:       js_ast.Stmt{Loc: valueLoc, Data: &js_ast.SExpr{Value: expr}},
	}}
}

func (p *parser) recordExport(loc logger.Loc, alias string, id ast.Index32) {
	if _, ok := p.namedExports[alias]; ok {
		p.addError(loc, fmt.Sprintf("Multiple exports with the same name %q", alias))
		return
	}
	p.namedExports[alias] = js_ast.NamedExport{SymbolID: id, AliasLoc: loc}
}

func (p *parser) recordExportedBindings(stmt js_ast.Stmt) {
	switch s := stmt.Data.(type) {
	case *js_ast.SLocal:
		for _, decl := range s.Decls {
			p.recordBindingExports(decl.Binding)
		}
	case *js_ast.SFunction:
		p.recordExport(s.Fn.Name.Loc, s.Fn.Name.Name, s.Fn.Name.SymbolID)
	case *js_ast.SClass:
		p.recordExport(s.Class.Name.Loc, s.Class.Name.Name, s.Class.Name.SymbolID)
	}
}

func (p *parser) recordBindingExports(binding js_ast.Binding) {
	switch b := binding.Data.(type) {
	case *js_ast.BIdentifier:
		p.recordExport(binding.Loc, b.Name, b.SymbolID)
	case *js_ast.BArray:
		for _, item := range b.Items {
			p.recordBindingExports(item.Binding)
		}
	case *js_ast.BObject:
		for _, property := range b.Properties {
			p.recordBindingExports(property.Value)
		}
	}
}
