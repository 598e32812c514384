package js_parser

import (
	"github.com/bundlekit/finalizer/internal/ast"
	"github.com/bundlekit/finalizer/internal/js_ast"
	"github.com/bundlekit/finalizer/internal/js_lexer"
	"github.com/bundlekit/finalizer/internal/logger"
)

type exprFlags struct {
	// The "in" operator is not allowed in the initializer of a "for" loop
	forbidIn bool
}

var binaryOps = map[js_lexer.T]js_ast.OpCode{
	js_lexer.TPlus:                              js_ast.BinOpAdd,
	js_lexer.TMinus:                             js_ast.BinOpSub,
	js_lexer.TAsterisk:                          js_ast.BinOpMul,
	js_lexer.TSlash:                             js_ast.BinOpDiv,
	js_lexer.TPercent:                           js_ast.BinOpRem,
	js_lexer.TAsteriskAsterisk:                  js_ast.BinOpPow,
	js_lexer.TLessThan:                          js_ast.BinOpLt,
	js_lexer.TLessThanEquals:                    js_ast.BinOpLe,
	js_lexer.TGreaterThan:                       js_ast.BinOpGt,
	js_lexer.TGreaterThanEquals:                 js_ast.BinOpGe,
	js_lexer.TIn:                                js_ast.BinOpIn,
	js_lexer.TInstanceof:                        js_ast.BinOpInstanceof,
	js_lexer.TLessThanLessThan:                  js_ast.BinOpShl,
	js_lexer.TGreaterThanGreaterThan:            js_ast.BinOpShr,
	js_lexer.TGreaterThanGreaterThanGreaterThan: js_ast.BinOpUShr,
	js_lexer.TEqualsEquals:                      js_ast.BinOpLooseEq,
	js_lexer.TExclamationEquals:                 js_ast.BinOpLooseNe,
	js_lexer.TEqualsEqualsEquals:                js_ast.BinOpStrictEq,
	js_lexer.TExclamationEqualsEquals:           js_ast.BinOpStrictNe,
	js_lexer.TQuestionQuestion:                  js_ast.BinOpNullishCoalescing,
	js_lexer.TBarBar:                            js_ast.BinOpLogicalOr,
	js_lexer.TAmpersandAmpersand:                js_ast.BinOpLogicalAnd,
	js_lexer.TBar:                               js_ast.BinOpBitwiseOr,
	js_lexer.TAmpersand:                         js_ast.BinOpBitwiseAnd,
	js_lexer.TCaret:                             js_ast.BinOpBitwiseXor,
}

var assignOps = map[js_lexer.T]js_ast.OpCode{
	js_lexer.TEquals:                                  js_ast.BinOpAssign,
	js_lexer.TPlusEquals:                              js_ast.BinOpAddAssign,
	js_lexer.TMinusEquals:                             js_ast.BinOpSubAssign,
	js_lexer.TAsteriskEquals:                          js_ast.BinOpMulAssign,
	js_lexer.TSlashEquals:                             js_ast.BinOpDivAssign,
	js_lexer.TPercentEquals:                           js_ast.BinOpRemAssign,
	js_lexer.TAsteriskAsteriskEquals:                  js_ast.BinOpPowAssign,
	js_lexer.TLessThanLessThanEquals:                  js_ast.BinOpShlAssign,
	js_lexer.TGreaterThanGreaterThanEquals:            js_ast.BinOpShrAssign,
	js_lexer.TGreaterThanGreaterThanGreaterThanEquals: js_ast.BinOpUShrAssign,
	js_lexer.TBarEquals:                               js_ast.BinOpBitwiseOrAssign,
	js_lexer.TAmpersandEquals:                         js_ast.BinOpBitwiseAndAssign,
	js_lexer.TCaretEquals:                             js_ast.BinOpBitwiseXorAssign,
	js_lexer.TQuestionQuestionEquals:                  js_ast.BinOpNullishCoalescingAssign,
	js_lexer.TBarBarEquals:                            js_ast.BinOpLogicalOrAssign,
	js_lexer.TAmpersandAmpersandEquals:                js_ast.BinOpLogicalAndAssign,
}

var prefixOps = map[js_lexer.T]js_ast.OpCode{
	js_lexer.TPlus:        js_ast.UnOpPos,
	js_lexer.TMinus:       js_ast.UnOpNeg,
	js_lexer.TTilde:       js_ast.UnOpCpl,
	js_lexer.TExclamation: js_ast.UnOpNot,
	js_lexer.TVoid:        js_ast.UnOpVoid,
	js_lexer.TTypeof:      js_ast.UnOpTypeof,
	js_lexer.TDelete:      js_ast.UnOpDelete,
	js_lexer.TMinusMinus:  js_ast.UnOpPreDec,
	js_lexer.TPlusPlus:    js_ast.UnOpPreInc,
}

func (p *parser) parseExpr(level js_ast.L) js_ast.Expr {
	return p.parseExprWithFlags(level, exprFlags{})
}

func (p *parser) parseExprWithFlags(level js_ast.L, flags exprFlags) js_ast.Expr {
	expr := p.parsePrefix(level, flags)
	return p.parseSuffix(expr, level, flags)
}

func (p *parser) parsePrefix(level js_ast.L, flags exprFlags) js_ast.Expr {
	loc := p.lexer.Loc()

	switch p.lexer.Token {
	case js_lexer.TSuper:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.ESuper{}}

	case js_lexer.TThis:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EThis{}}

	case js_lexer.TTrue, js_lexer.TFalse:
		value := p.lexer.Token == js_lexer.TTrue
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EBoolean{Value: value}}

	case js_lexer.TNull:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.ENull{}}

	case js_lexer.TStringLiteral:
		value := p.lexer.StringLiteral
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EString{Value: value}}

	case js_lexer.TNumericLiteral:
		value := p.lexer.Number
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.ENumber{Value: value}}

	case js_lexer.TNoSubstitutionTemplateLiteral:
		head := p.lexer.StringLiteral
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.ETemplate{Head: head}}

	case js_lexer.TTemplateHead:
		return js_ast.Expr{Loc: loc, Data: p.parseTemplate()}

	case js_lexer.TOpenParen:
		if p.isArrowAhead() {
			return p.parseParenArrow(loc, false)
		}
		p.lexer.Next()
		value := p.parseExpr(js_ast.LLowest)
		p.lexer.Expect(js_lexer.TCloseParen)
		return value

	case js_lexer.TIdentifier:
		name := p.lexer.Identifier

		switch name {
		case "await":
			if p.allowAwait {
				p.lexer.Next()
				return js_ast.Expr{Loc: loc, Data: &js_ast.EAwait{Value: p.parseExpr(js_ast.LPrefix)}}
			}

		case "yield":
			if p.allowYield {
				p.lexer.Next()
				yield := &js_ast.EYield{}
				if p.lexer.Token == js_lexer.TAsterisk {
					yield.IsStar = true
					p.lexer.Next()
				}
				switch p.lexer.Token {
				case js_lexer.TCloseParen, js_lexer.TCloseBracket, js_lexer.TCloseBrace,
					js_lexer.TColon, js_lexer.TComma, js_lexer.TSemicolon:
				default:
					if yield.IsStar || !p.lexer.HasNewlineBefore {
						yield.ValueOrNil = p.parseExpr(js_ast.LYield)
					}
				}
				return js_ast.Expr{Loc: loc, Data: yield}
			}

		case "async":
			next := p.peekToken()
			if next == js_lexer.TFunction {
				p.lexer.Next()
				return p.parseFnExpr(loc, true)
			}
			if next == js_lexer.TIdentifier && p.isSingleArgArrowAhead(true) {
				p.lexer.Next()
				return p.parseSingleArgArrow(loc, true)
			}
			if next == js_lexer.TOpenParen && p.lookahead(func() bool { p.lexer.Next(); return p.isArrowAhead() }) {
				p.lexer.Next()
				return p.parseParenArrow(loc, true)
			}
		}

		if p.isSingleArgArrowAhead(false) {
			return p.parseSingleArgArrow(loc, false)
		}
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Name: name}}

	case js_lexer.TFunction:
		return p.parseFnExpr(loc, false)

	case js_lexer.TClass:
		p.lexer.Next()
		var name *js_ast.LocRef
		if p.lexer.Token == js_lexer.TIdentifier {
			name = &js_ast.LocRef{Loc: p.lexer.Loc(), Name: p.lexer.Identifier}
			p.lexer.Next()
		}
		class := p.parseClass(name, false)
		return js_ast.Expr{Loc: loc, Data: &js_ast.EClass{Class: class}}

	case js_lexer.TNew:
		p.lexer.Next()
		target := p.parseExprWithFlags(js_ast.LMember, flags)
		var args []js_ast.Expr
		if p.lexer.Token == js_lexer.TOpenParen {
			args = p.parseCallArgs()
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.ENew{Target: target, Args: args}}

	case js_lexer.TOpenBracket:
		return p.parseArrayLiteral(loc)

	case js_lexer.TOpenBrace:
		return p.parseObjectLiteral(loc)

	case js_lexer.TImport:
		p.lexer.Next()
		p.lexer.Expect(js_lexer.TOpenParen)
		value := p.parseExpr(js_ast.LComma)
		var options js_ast.Expr
		if p.lexer.Token == js_lexer.TComma {
			p.lexer.Next()
			if p.lexer.Token != js_lexer.TCloseParen {
				options = p.parseExpr(js_ast.LComma)
				if p.lexer.Token == js_lexer.TComma {
					p.lexer.Next()
				}
			}
		}
		p.lexer.Expect(js_lexer.TCloseParen)

		// Only string literal paths can be resolved
		if str, ok := value.Data.(*js_ast.EString); ok {
			index := p.addImportRecord(ast.ImportDynamic, value.Loc, str.Value)
			p.importRecordsByLoc[loc] = index
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EImportCall{Expr: value, OptionsOrNil: options}}
	}

	if op, ok := prefixOps[p.lexer.Token]; ok {
		p.lexer.Next()
		value := p.parseExpr(js_ast.LPrefix - 1)
		if op.IsUpdate() {
			p.checkUpdateTarget(value)
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: op, Value: value}}
	}

	p.lexer.Unexpected()
	return js_ast.Expr{}
}

func (p *parser) parseSuffix(left js_ast.Expr, level js_ast.L, flags exprFlags) js_ast.Expr {
	for {
		switch p.lexer.Token {
		case js_lexer.TDot:
			p.lexer.Next()
			if !p.lexer.IsIdentifierOrKeyword() {
				p.lexer.Expected(js_lexer.TIdentifier)
			}
			nameLoc := p.lexer.Loc()
			name := p.lexer.Identifier
			p.lexer.Next()
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EDot{Target: left, Name: name, NameLoc: nameLoc}}
			continue

		case js_lexer.TOpenBracket:
			p.lexer.Next()
			index := p.parseExpr(js_ast.LLowest)
			p.lexer.Expect(js_lexer.TCloseBracket)
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EIndex{Target: left, Index: index}}
			continue

		case js_lexer.TOpenParen:
			if level >= js_ast.LCall {
				return left
			}
			args := p.parseCallArgs()
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.ECall{Target: left, Args: args}}
			continue

		case js_lexer.TPlusPlus, js_lexer.TMinusMinus:
			if p.lexer.HasNewlineBefore || level >= js_ast.LPostfix {
				return left
			}
			op := js_ast.UnOpPostInc
			if p.lexer.Token == js_lexer.TMinusMinus {
				op = js_ast.UnOpPostDec
			}
			p.checkUpdateTarget(left)
			p.lexer.Next()
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EUnary{Op: op, Value: left}}
			continue

		case js_lexer.TQuestion:
			if level >= js_ast.LConditional {
				return left
			}
			p.lexer.Next()
			yes := p.parseExpr(js_ast.LComma)
			p.lexer.Expect(js_lexer.TColon)
			no := p.parseExprWithFlags(js_ast.LComma, flags)
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EIf{Test: left, Yes: yes, No: no}}
			continue

		case js_lexer.TComma:
			if level >= js_ast.LComma {
				return left
			}
			p.lexer.Next()
			right := p.parseExprWithFlags(js_ast.LComma, flags)
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EBinary{Op: js_ast.BinOpComma, Left: left, Right: right}}
			continue
		}

		if op, ok := assignOps[p.lexer.Token]; ok {
			if level >= js_ast.LAssign {
				return left
			}
			target := p.exprToTarget(left)
			p.lexer.Next()
			value := p.parseExprWithFlags(js_ast.LAssign-1, flags)
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EAssign{Op: op, Target: target, Value: value}}
			continue
		}

		if op, ok := binaryOps[p.lexer.Token]; ok {
			if op == js_ast.BinOpIn && flags.forbidIn {
				return left
			}
			opLevel := js_ast.OpTable[op].Level
			if level >= opLevel {
				return left
			}
			p.lexer.Next()
			rightLevel := opLevel
			if op.IsRightAssociative() {
				rightLevel = opLevel - 1
			}
			right := p.parseExprWithFlags(rightLevel, flags)
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EBinary{Op: op, Left: left, Right: right}}
			continue
		}

		return left
	}
}

func (p *parser) checkUpdateTarget(value js_ast.Expr) {
	switch value.Data.(type) {
	case *js_ast.EIdentifier, *js_ast.EDot, *js_ast.EIndex:
	default:
		p.addError(value.Loc, "Invalid assignment target")
	}
}

func (p *parser) peekToken() (token js_lexer.T) {
	p.lookahead(func() bool {
		p.lexer.Next()
		token = p.lexer.Token
		return true
	})
	return
}

func (p *parser) parseCallArgs() []js_ast.Expr {
	p.lexer.Expect(js_lexer.TOpenParen)
	args := []js_ast.Expr{}
	for p.lexer.Token != js_lexer.TCloseParen {
		loc := p.lexer.Loc()
		if p.lexer.Token == js_lexer.TDotDotDot {
			p.lexer.Next()
			args = append(args, js_ast.Expr{Loc: loc, Data: &js_ast.ESpread{Value: p.parseExpr(js_ast.LComma)}})
		} else {
			args = append(args, p.parseExpr(js_ast.LComma))
		}
		if p.lexer.Token != js_lexer.TComma {
			break
		}
		p.lexer.Next()
	}
	p.lexer.Expect(js_lexer.TCloseParen)
	return args
}

func (p *parser) parseTemplate() *js_ast.ETemplate {
	template := &js_ast.ETemplate{Head: p.lexer.StringLiteral}
	p.lexer.Next()
	for {
		value := p.parseExpr(js_ast.LLowest)
		p.lexer.RescanCloseBraceAsTemplateToken()
		tail := p.lexer.StringLiteral
		template.Parts = append(template.Parts, js_ast.ETemplatePart{Value: value, Tail: tail})
		done := p.lexer.Token == js_lexer.TTemplateTail
		p.lexer.Next()
		if done {
			return template
		}
	}
}

func (p *parser) parseArrayLiteral(loc logger.Loc) js_ast.Expr {
	p.lexer.Next()
	items := []js_ast.Expr{}
	isSingleLine := true
	for p.lexer.Token != js_lexer.TCloseBracket {
		if p.lexer.HasNewlineBefore {
			isSingleLine = false
		}
		itemLoc := p.lexer.Loc()
		switch p.lexer.Token {
		case js_lexer.TComma:
			items = append(items, js_ast.Expr{Loc: itemLoc, Data: &js_ast.EMissing{}})

		case js_lexer.TDotDotDot:
			p.lexer.Next()
			items = append(items, js_ast.Expr{Loc: itemLoc, Data: &js_ast.ESpread{Value: p.parseExpr(js_ast.LComma)}})

		default:
			items = append(items, p.parseExpr(js_ast.LComma))
		}
		if p.lexer.Token != js_lexer.TComma {
			break
		}
		p.lexer.Next()
	}
	if p.lexer.HasNewlineBefore {
		isSingleLine = false
	}
	p.lexer.Expect(js_lexer.TCloseBracket)
	return js_ast.Expr{Loc: loc, Data: &js_ast.EArray{Items: items, IsSingleLine: isSingleLine}}
}

// Parses a property key and reports whether it's a plain identifier, which
// is the only kind of key that can be used in shorthand form
func (p *parser) parsePropertyKey() (key js_ast.Expr, isComputed bool, isIdentifier bool) {
	loc := p.lexer.Loc()
	switch p.lexer.Token {
	case js_lexer.TOpenBracket:
		p.lexer.Next()
		key = p.parseExpr(js_ast.LComma)
		p.lexer.Expect(js_lexer.TCloseBracket)
		return key, true, false

	case js_lexer.TStringLiteral:
		key = js_ast.Expr{Loc: loc, Data: &js_ast.EString{Value: p.lexer.StringLiteral}}

	case js_lexer.TNumericLiteral:
		key = js_ast.Expr{Loc: loc, Data: &js_ast.ENumber{Value: p.lexer.Number}}

	default:
		if !p.lexer.IsIdentifierOrKeyword() {
			p.lexer.Expected(js_lexer.TIdentifier)
		}
		key = js_ast.Expr{Loc: loc, Data: &js_ast.EString{Value: p.lexer.Identifier}}
		isIdentifier = p.lexer.Token == js_lexer.TIdentifier
	}
	p.lexer.Next()
	return
}

type methodModifiers struct {
	kind        js_ast.PropertyKind
	isAsync     bool
	isGenerator bool
	isStatic    bool
}

// Consumes "static", "async", "get", "set" and "*" when they are modifiers
// rather than property names
func (p *parser) parseMethodModifiers(allowStatic bool) (mods methodModifiers) {
	isModifier := func() bool {
		return p.lookahead(func() bool {
			p.lexer.Next()
			switch p.lexer.Token {
			case js_lexer.TOpenParen, js_lexer.TColon, js_lexer.TComma, js_lexer.TCloseBrace,
				js_lexer.TEquals, js_lexer.TSemicolon:
				return false
			}
			return !p.lexer.HasNewlineBefore
		})
	}

	if allowStatic && p.lexer.IsContextualKeyword("static") && isModifier() {
		mods.isStatic = true
		p.lexer.Next()
	}
	if p.lexer.IsContextualKeyword("async") && isModifier() {
		mods.isAsync = true
		p.lexer.Next()
	}
	if p.lexer.Token == js_lexer.TAsterisk {
		mods.isGenerator = true
		p.lexer.Next()
		return
	}
	if !mods.isAsync && (p.lexer.IsContextualKeyword("get") || p.lexer.IsContextualKeyword("set")) && isModifier() {
		mods.kind = js_ast.PropertyGet
		if p.lexer.Identifier == "set" {
			mods.kind = js_ast.PropertySet
		}
		p.lexer.Next()
	}
	return
}

func (p *parser) parseObjectLiteral(loc logger.Loc) js_ast.Expr {
	p.lexer.Next()
	properties := []js_ast.Property{}
	isSingleLine := true

	for p.lexer.Token != js_lexer.TCloseBrace {
		if p.lexer.HasNewlineBefore {
			isSingleLine = false
		}
		if p.lexer.Token == js_lexer.TDotDotDot {
			p.lexer.Next()
			value := p.parseExpr(js_ast.LComma)
			properties = append(properties, js_ast.Property{Kind: js_ast.PropertySpread, ValueOrNil: value})
		} else {
			mods := p.parseMethodModifiers(false)
			keyLoc := p.lexer.Loc()
			key, isComputed, isIdentifier := p.parsePropertyKey()
			property := js_ast.Property{Kind: mods.kind, Key: key, IsComputed: isComputed}

			switch {
			case p.lexer.Token == js_lexer.TOpenParen || mods != (methodModifiers{}):
				fnLoc := p.lexer.Loc()
				fn := p.parseFn(nil, mods.isAsync, mods.isGenerator, nil)
				property.IsMethod = true
				property.ValueOrNil = js_ast.Expr{Loc: fnLoc, Data: &js_ast.EFunction{Fn: fn}}

			case p.lexer.Token == js_lexer.TColon:
				p.lexer.Next()
				property.ValueOrNil = p.parseExpr(js_ast.LComma)

			default:
				// "{ a }" and "{ a = 1 }"
				if !isIdentifier {
					p.lexer.Expected(js_lexer.TColon)
				}
				name := key.Data.(*js_ast.EString).Value
				property.IsShorthand = true
				property.ValueOrNil = js_ast.Expr{Loc: keyLoc, Data: &js_ast.EIdentifier{Name: name}}
				if p.lexer.Token == js_lexer.TEquals {
					p.lexer.Next()
					property.InitializerOrNil = p.parseExpr(js_ast.LComma)
				}
			}
			properties = append(properties, property)
		}

		if p.lexer.Token != js_lexer.TComma {
			break
		}
		p.lexer.Next()
	}

	if p.lexer.HasNewlineBefore {
		isSingleLine = false
	}
	p.lexer.Expect(js_lexer.TCloseBrace)
	return js_ast.Expr{Loc: loc, Data: &js_ast.EObject{Properties: properties, IsSingleLine: isSingleLine}}
}

////////////////////////////////////////////////////////////////////////////////
// Assignment targets

func (p *parser) exprToTarget(expr js_ast.Expr) js_ast.Target {
	switch e := expr.Data.(type) {
	case *js_ast.EIdentifier:
		return js_ast.Target{Loc: expr.Loc, Data: &js_ast.TIdentifier{Name: e.Name}}

	case *js_ast.EDot, *js_ast.EIndex:
		return js_ast.Target{Loc: expr.Loc, Data: &js_ast.TMember{Value: expr}}

	case *js_ast.EArray:
		target := &js_ast.TArray{}
		for i, item := range e.Items {
			switch v := item.Data.(type) {
			case *js_ast.EMissing:
				target.Items = append(target.Items, js_ast.TArrayItem{Target: js_ast.Target{Loc: item.Loc, Data: &js_ast.TMissing{}}})
			case *js_ast.ESpread:
				if i+1 != len(e.Items) {
					p.addError(item.Loc, "Unexpected \"...\"")
				}
				target.HasSpread = true
				target.Items = append(target.Items, js_ast.TArrayItem{Target: p.exprToTarget(v.Value)})
			case *js_ast.EAssign:
				if v.Op != js_ast.BinOpAssign {
					p.addError(item.Loc, "Invalid assignment target")
				}
				target.Items = append(target.Items, js_ast.TArrayItem{Target: v.Target, DefaultValueOrNil: v.Value})
			default:
				target.Items = append(target.Items, js_ast.TArrayItem{Target: p.exprToTarget(item)})
			}
		}
		return js_ast.Target{Loc: expr.Loc, Data: target}

	case *js_ast.EObject:
		target := &js_ast.TObject{}
		for _, property := range e.Properties {
			switch {
			case property.Kind == js_ast.PropertySpread:
				target.Properties = append(target.Properties, js_ast.TProperty{
					Target:   p.exprToTarget(property.ValueOrNil),
					IsSpread: true,
				})

			case property.IsMethod || property.Kind != js_ast.PropertyNormal:
				p.addError(property.Key.Loc, "Invalid assignment target")

			case property.IsShorthand:
				name := property.ValueOrNil.Data.(*js_ast.EIdentifier).Name
				target.Properties = append(target.Properties, js_ast.TProperty{
					Key:               property.Key,
					Target:            js_ast.Target{Loc: property.ValueOrNil.Loc, Data: &js_ast.TIdentifier{Name: name}},
					DefaultValueOrNil: property.InitializerOrNil,
					IsShorthand:       true,
				})

			default:
				item := js_ast.TProperty{Key: property.Key, IsComputed: property.IsComputed}
				if assign, ok := property.ValueOrNil.Data.(*js_ast.EAssign); ok && assign.Op == js_ast.BinOpAssign {
					item.Target = assign.Target
					item.DefaultValueOrNil = assign.Value
				} else {
					item.Target = p.exprToTarget(property.ValueOrNil)
				}
				target.Properties = append(target.Properties, item)
			}
		}
		return js_ast.Target{Loc: expr.Loc, Data: target}
	}

	p.addError(expr.Loc, "Invalid assignment target")
	return js_ast.Target{Loc: expr.Loc, Data: &js_ast.TMissing{}}
}

////////////////////////////////////////////////////////////////////////////////
// Binding patterns

func (p *parser) parseBinding(kind ast.SymbolKind) js_ast.Binding {
	loc := p.lexer.Loc()

	switch p.lexer.Token {
	case js_lexer.TIdentifier:
		name := p.lexer.Identifier
		id := p.declareSymbol(kind, loc, name)
		p.lexer.Next()
		return js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Name: name, SymbolID: id}}

	case js_lexer.TOpenBracket:
		p.lexer.Next()
		array := &js_ast.BArray{}
		for p.lexer.Token != js_lexer.TCloseBracket {
			itemLoc := p.lexer.Loc()
			if p.lexer.Token == js_lexer.TComma {
				array.Items = append(array.Items, js_ast.ArrayBinding{Binding: js_ast.Binding{Loc: itemLoc, Data: &js_ast.BMissing{}}})
			} else {
				if p.lexer.Token == js_lexer.TDotDotDot {
					p.lexer.Next()
					array.HasSpread = true
				}
				item := js_ast.ArrayBinding{Binding: p.parseBinding(kind)}
				if !array.HasSpread && p.lexer.Token == js_lexer.TEquals {
					p.lexer.Next()
					item.DefaultValueOrNil = p.parseExpr(js_ast.LComma)
				}
				array.Items = append(array.Items, item)
				if array.HasSpread {
					break
				}
			}
			if p.lexer.Token != js_lexer.TComma {
				break
			}
			p.lexer.Next()
		}
		p.lexer.Expect(js_lexer.TCloseBracket)
		return js_ast.Binding{Loc: loc, Data: array}

	case js_lexer.TOpenBrace:
		p.lexer.Next()
		object := &js_ast.BObject{}
		for p.lexer.Token != js_lexer.TCloseBrace {
			if p.lexer.Token == js_lexer.TDotDotDot {
				p.lexer.Next()
				object.Properties = append(object.Properties, js_ast.PropertyBinding{Value: p.parseBinding(kind), IsSpread: true})
				break
			}

			keyLoc := p.lexer.Loc()
			key, isComputed, isIdentifier := p.parsePropertyKey()
			property := js_ast.PropertyBinding{Key: key, IsComputed: isComputed}

			if p.lexer.Token == js_lexer.TColon {
				p.lexer.Next()
				property.Value = p.parseBinding(kind)
			} else {
				if !isIdentifier {
					p.lexer.Expected(js_lexer.TColon)
				}
				name := key.Data.(*js_ast.EString).Value
				property.IsShorthand = true
				property.Value = js_ast.Binding{Loc: keyLoc, Data: &js_ast.BIdentifier{Name: name, SymbolID: p.declareSymbol(kind, keyLoc, name)}}
			}

			if p.lexer.Token == js_lexer.TEquals {
				p.lexer.Next()
				property.DefaultValueOrNil = p.parseExpr(js_ast.LComma)
			}
			object.Properties = append(object.Properties, property)

			if p.lexer.Token != js_lexer.TComma {
				break
			}
			p.lexer.Next()
		}
		p.lexer.Expect(js_lexer.TCloseBrace)
		return js_ast.Binding{Loc: loc, Data: object}
	}

	p.lexer.Expected(js_lexer.TIdentifier)
	return js_ast.Binding{}
}

////////////////////////////////////////////////////////////////////////////////
// Functions and classes

// Each function gets an argument scope and a body scope. A function
// expression's own name lives in the argument scope so that it is visible
// inside the function but not outside of it.
func (p *parser) parseFn(name *js_ast.LocRef, isAsync bool, isGenerator bool, exprName *js_ast.LocRef) js_ast.Fn {
	p.pushScopeForParsePass(js_ast.ScopeFunctionArgs)
	defer p.popScope()

	if exprName != nil {
		exprName.SymbolID = p.declareSymbol(ast.SymbolHoistedFunction, exprName.Loc, exprName.Name)
		name = exprName
	}

	oldAwait, oldYield := p.allowAwait, p.allowYield
	p.allowAwait, p.allowYield = isAsync, isGenerator
	defer func() { p.allowAwait, p.allowYield = oldAwait, oldYield }()

	args, hasRest := p.parseFnArgs()
	body := p.parseFnBody()
	return js_ast.Fn{
		Name:        name,
		Args:        args,
		Body:        body,
		HasRestArg:  hasRest,
		IsAsync:     isAsync,
		IsGenerator: isGenerator,
	}
}

func (p *parser) parseFnExpr(loc logger.Loc, isAsync bool) js_ast.Expr {
	p.lexer.Expect(js_lexer.TFunction)
	isGenerator := false
	if p.lexer.Token == js_lexer.TAsterisk {
		isGenerator = true
		p.lexer.Next()
	}
	var exprName *js_ast.LocRef
	if p.lexer.Token == js_lexer.TIdentifier {
		exprName = &js_ast.LocRef{Loc: p.lexer.Loc(), Name: p.lexer.Identifier}
		p.lexer.Next()
	}
	fn := p.parseFn(nil, isAsync, isGenerator, exprName)
	return js_ast.Expr{Loc: loc, Data: &js_ast.EFunction{Fn: fn}}
}

func (p *parser) parseFnArgs() (args []js_ast.Arg, hasRest bool) {
	p.lexer.Expect(js_lexer.TOpenParen)
	args = []js_ast.Arg{}
	for p.lexer.Token != js_lexer.TCloseParen {
		if p.lexer.Token == js_lexer.TDotDotDot {
			p.lexer.Next()
			hasRest = true
		}
		arg := js_ast.Arg{Binding: p.parseBinding(ast.SymbolHoisted)}
		if !hasRest && p.lexer.Token == js_lexer.TEquals {
			p.lexer.Next()
			arg.DefaultOrNil = p.parseExpr(js_ast.LComma)
		}
		args = append(args, arg)
		if hasRest || p.lexer.Token != js_lexer.TComma {
			break
		}
		p.lexer.Next()
	}
	p.lexer.Expect(js_lexer.TCloseParen)
	return
}

func (p *parser) parseFnBody() js_ast.FnBody {
	loc := p.lexer.Loc()
	p.lexer.Expect(js_lexer.TOpenBrace)
	p.pushScopeForParsePass(js_ast.ScopeFunctionBody)
	stmts := p.parseStmtsUpTo(js_lexer.TCloseBrace, parseStmtOpts{})
	p.popScope()
	p.lexer.Next()
	return js_ast.FnBody{Loc: loc, Stmts: stmts}
}

// Scans forward to the matching ")" and reports whether "=>" follows it
func (p *parser) isArrowAhead() bool {
	return p.lookahead(func() bool {
		var templates []bool
		depth := 0
		for {
			switch p.lexer.Token {
			case js_lexer.TOpenParen, js_lexer.TOpenBracket, js_lexer.TOpenBrace:
				depth++
				templates = append(templates, false)
			case js_lexer.TTemplateHead:
				templates = append(templates, true)
			case js_lexer.TCloseBrace:
				if len(templates) > 0 && templates[len(templates)-1] {
					p.lexer.RescanCloseBraceAsTemplateToken()
					if p.lexer.Token == js_lexer.TTemplateTail {
						templates = templates[:len(templates)-1]
					}
					break
				}
				fallthrough
			case js_lexer.TCloseParen, js_lexer.TCloseBracket:
				depth--
				if len(templates) > 0 {
					templates = templates[:len(templates)-1]
				}
				if depth == 0 {
					p.lexer.Next()
					return p.lexer.Token == js_lexer.TEqualsGreaterThan && !p.lexer.HasNewlineBefore
				}
			case js_lexer.TEndOfFile:
				return false
			}
			p.lexer.Next()
		}
	})
}

func (p *parser) isSingleArgArrowAhead(skipAsync bool) bool {
	return p.lookahead(func() bool {
		if skipAsync {
			p.lexer.Next()
		}
		p.lexer.Next()
		return p.lexer.Token == js_lexer.TEqualsGreaterThan && !p.lexer.HasNewlineBefore
	})
}

func (p *parser) parseParenArrow(loc logger.Loc, isAsync bool) js_ast.Expr {
	p.pushScopeForParsePass(js_ast.ScopeFunctionArgs)
	defer p.popScope()

	oldAwait := p.allowAwait
	p.allowAwait = isAsync
	args, hasRest := p.parseFnArgs()
	p.allowAwait = oldAwait

	p.lexer.Expect(js_lexer.TEqualsGreaterThan)
	arrow := p.parseArrowBody(isAsync)
	arrow.Args = args
	arrow.HasRestArg = hasRest
	return js_ast.Expr{Loc: loc, Data: arrow}
}

func (p *parser) parseSingleArgArrow(loc logger.Loc, isAsync bool) js_ast.Expr {
	p.pushScopeForParsePass(js_ast.ScopeFunctionArgs)
	defer p.popScope()

	binding := p.parseBinding(ast.SymbolHoisted)
	p.lexer.Expect(js_lexer.TEqualsGreaterThan)
	arrow := p.parseArrowBody(isAsync)
	arrow.Args = []js_ast.Arg{{Binding: binding}}
	return js_ast.Expr{Loc: loc, Data: arrow}
}

func (p *parser) parseArrowBody(isAsync bool) *js_ast.EArrow {
	oldAwait, oldYield := p.allowAwait, p.allowYield
	p.allowAwait, p.allowYield = isAsync, false
	defer func() { p.allowAwait, p.allowYield = oldAwait, oldYield }()

	if p.lexer.Token == js_lexer.TOpenBrace {
		return &js_ast.EArrow{Body: p.parseFnBody(), IsAsync: isAsync}
	}

	loc := p.lexer.Loc()
	p.pushScopeForParsePass(js_ast.ScopeFunctionBody)
	value := p.parseExpr(js_ast.LComma)
	p.popScope()
	return &js_ast.EArrow{
		Body:       js_ast.FnBody{Loc: loc, Stmts: []js_ast.Stmt{{Loc: loc, Data: &js_ast.SReturn{ValueOrNil: value}}}},
		IsAsync:    isAsync,
		PreferExpr: true,
	}
}

// Class names get their own scope. A class expression's name is declared in
// it and keeps its original name, since renaming it would change the class's
// observable "name" property.
func (p *parser) parseClass(name *js_ast.LocRef, isDeclaration bool) js_ast.Class {
	p.pushScopeForParsePass(js_ast.ScopeClassName)
	defer p.popScope()

	if !isDeclaration && name != nil {
		name.SymbolID = p.declareSymbol(ast.SymbolClass, name.Loc, name.Name)
		p.symbols[name.SymbolID.GetIndex()].MustNotBeRenamed = true
	}

	class := js_ast.Class{Name: name, IsDeclaration: isDeclaration}
	if p.lexer.Token == js_lexer.TExtends {
		p.lexer.Next()
		class.ExtendsOrNil = p.parseExpr(js_ast.LNew)
	}

	class.BodyLoc = p.lexer.Loc()
	p.lexer.Expect(js_lexer.TOpenBrace)
	p.pushScopeForParsePass(js_ast.ScopeClassBody)
	defer p.popScope()

	for p.lexer.Token != js_lexer.TCloseBrace {
		if p.lexer.Token == js_lexer.TSemicolon {
			p.lexer.Next()
			continue
		}

		mods := p.parseMethodModifiers(true)
		key, isComputed, _ := p.parsePropertyKey()
		property := js_ast.ClassProperty{Key: key, Kind: mods.kind, IsStatic: mods.isStatic, IsComputed: isComputed}

		if p.lexer.Token == js_lexer.TOpenParen || mods.isAsync || mods.isGenerator || mods.kind != js_ast.PropertyNormal {
			fnLoc := p.lexer.Loc()
			fn := p.parseFn(nil, mods.isAsync, mods.isGenerator, nil)
			property.IsMethod = true
			property.ValueOrNil = js_ast.Expr{Loc: fnLoc, Data: &js_ast.EFunction{Fn: fn}}
		} else {
			if p.lexer.Token == js_lexer.TEquals {
				p.lexer.Next()
				property.ValueOrNil = p.parseExpr(js_ast.LComma)
			}
			p.lexer.ExpectOrInsertSemicolon()
		}
		class.Properties = append(class.Properties, property)
	}

	p.lexer.Expect(js_lexer.TCloseBrace)
	return class
}
