package js_printer

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/bundlekit/finalizer/internal/ast"
	"github.com/bundlekit/finalizer/internal/helpers"
	"github.com/bundlekit/finalizer/internal/js_ast"
	"github.com/bundlekit/finalizer/internal/js_lexer"
	"github.com/bundlekit/finalizer/internal/logger"
)

var positiveInfinity = math.Inf(1)
var negativeInfinity = math.Inf(-1)

// Identifiers are printed using the text stored on the node. The finalizer
// has already replaced that text with each symbol's canonical name, so the
// printer never needs to consult a renamer.
type printer struct {
	js                 []byte
	options            Options
	stmtStart          int
	exportDefaultStart int
	arrowExprStart     int
	prevOpEnd          int
	prevNumEnd         int
	intToBytesBuffer   [64]byte
	needsSemicolon     bool
	prevOp             js_ast.OpCode
}

func (p *printer) print(text string) {
	p.js = append(p.js, text...)
}

// This is the same as "print(string(bytes))" without any unnecessary temporary
// allocations
func (p *printer) printBytes(bytes []byte) {
	p.js = append(p.js, bytes...)
}

func (p *printer) printQuoted(text string) {
	p.printBytes(helpers.QuoteForJSON(text, p.options.ASCIIOnly))
}

func (p *printer) printIndent() {
	if !p.options.MinifyWhitespace {
		for i := 0; i < p.options.Indent; i++ {
			p.print("  ")
		}
	}
}

func (p *printer) printIdentifier(name string) {
	p.printSpaceBeforeIdentifier()
	p.print(name)
}

func (p *printer) printClauseAlias(alias string) {
	if js_lexer.IsIdentifier(alias) {
		p.printIdentifier(alias)
	} else {
		p.printQuoted(alias)
	}
}

func (p *printer) printNumber(value float64, level js_ast.L) {
	absValue := math.Abs(value)

	if value != value {
		p.printSpaceBeforeIdentifier()
		p.print("NaN")
	} else if value == positiveInfinity || value == negativeInfinity {
		wrap := value == negativeInfinity && level >= js_ast.LPrefix
		if wrap {
			p.print("(")
		}
		if value == negativeInfinity {
			p.printSpaceBeforeOperator(js_ast.UnOpNeg)
			p.print("-")
		} else {
			p.printSpaceBeforeIdentifier()
		}
		p.print("Infinity")
		if wrap {
			p.print(")")
		}
	} else {
		if !math.Signbit(value) {
			p.printSpaceBeforeIdentifier()
			p.printNonNegativeFloat(absValue)

			// Remember the end of the latest number
			p.prevNumEnd = len(p.js)
		} else if level >= js_ast.LPrefix {
			// Expressions such as "(-1).toString" need to wrap negative numbers
			p.print("(-")
			p.printNonNegativeFloat(absValue)
			p.print(")")
		} else {
			p.printSpaceBeforeOperator(js_ast.UnOpNeg)
			p.print("-")
			p.printNonNegativeFloat(absValue)

			// Remember the end of the latest number
			p.prevNumEnd = len(p.js)
		}
	}
}

func (p *printer) printNonNegativeFloat(absValue float64) {
	// Integers less than 1000 can skip the slow call to strconv.FormatFloat()
	// because exponential notation is never shorter for them
	if absValue < 1000 {
		if asInt := int64(absValue); absValue == float64(asInt) {
			p.printBytes(p.smallIntToBytes(int(asInt)))
			return
		}
	}

	result := []byte(strconv.FormatFloat(absValue, 'g', -1, 64))

	// Simplify the exponent
	// "e+05" => "e5"
	// "e-05" => "e-5"
	if e := bytes.LastIndexByte(result, 'e'); e != -1 {
		from := e + 1
		to := from

		switch result[from] {
		case '+':
			// Strip off the leading "+"
			from++

		case '-':
			// Skip past the leading "-"
			to++
			from++
		}

		// Strip off leading zeros
		for from < len(result) && result[from] == '0' {
			from++
		}

		result = append(result[:to], result[from:]...)
	}

	p.printBytes(result)
}

func (p *printer) smallIntToBytes(n int) []byte {
	wasNegative := n < 0
	if wasNegative {
		n = -n
	}

	bytes := p.intToBytesBuffer[:]
	start := len(bytes)

	// Write out the number from the end to the front
	for {
		start--
		bytes[start] = '0' + byte(n%10)
		n /= 10
		if n == 0 {
			break
		}
	}

	if wasNegative {
		start--
		bytes[start] = '-'
	}

	return bytes[start:]
}

func (p *printer) printSpace() {
	if !p.options.MinifyWhitespace {
		p.print(" ")
	}
}

func (p *printer) printNewline() {
	if !p.options.MinifyWhitespace {
		p.print("\n")
	}
}

func (p *printer) printSpaceBeforeOperator(next js_ast.OpCode) {
	if p.prevOpEnd == len(p.js) {
		prev := p.prevOp

		// "+ + y" => "+ +y"
		// "+ ++ y" => "+ ++y"
		// "x + + y" => "x+ +y"
		// "x ++ + y" => "x+++y"
		// "x + ++ y" => "x+ ++y"
		// "-- >" => "-- >"
		if ((prev == js_ast.BinOpAdd || prev == js_ast.UnOpPos) && (next == js_ast.BinOpAdd || next == js_ast.UnOpPos || next == js_ast.UnOpPreInc)) ||
			((prev == js_ast.BinOpSub || prev == js_ast.UnOpNeg) && (next == js_ast.BinOpSub || next == js_ast.UnOpNeg || next == js_ast.UnOpPreDec)) ||
			(prev == js_ast.UnOpPostDec && next == js_ast.BinOpGt) {
			p.print(" ")
		}
	}
}

func (p *printer) printSemicolonAfterStatement() {
	if !p.options.MinifyWhitespace {
		p.print(";\n")
	} else {
		p.needsSemicolon = true
	}
}

func (p *printer) printSemicolonIfNeeded() {
	if p.needsSemicolon {
		p.print(";")
		p.needsSemicolon = false
	}
}

func (p *printer) printSpaceBeforeIdentifier() {
	buffer := p.js
	n := len(buffer)
	if n > 0 && (js_lexer.IsIdentifierContinue(rune(buffer[n-1])) || buffer[n-1] == '$') {
		p.print(" ")
	}
}

////////////////////////////////////////////////////////////////////////////////
// Bindings and assignment targets

func (p *printer) printBinding(binding js_ast.Binding) {
	switch b := binding.Data.(type) {
	case *js_ast.BMissing:

	case *js_ast.BIdentifier:
		p.printIdentifier(b.Name)

	case *js_ast.BArray:
		p.print("[")
		for i, item := range b.Items {
			if i != 0 {
				p.print(",")
				p.printSpace()
			}
			if b.HasSpread && i+1 == len(b.Items) {
				p.print("...")
			}
			p.printBinding(item.Binding)
			p.printDefaultValue(item.DefaultValueOrNil)

			// Make sure there's a comma after trailing missing items
			if _, ok := item.Binding.Data.(*js_ast.BMissing); ok && i == len(b.Items)-1 {
				p.print(",")
			}
		}
		p.print("]")

	case *js_ast.BObject:
		p.print("{")
		if len(b.Properties) != 0 {
			p.printSpace()
			for i, property := range b.Properties {
				if i != 0 {
					p.print(",")
					p.printSpace()
				}
				if property.IsSpread {
					p.print("...")
					p.printBinding(property.Value)
					continue
				}
				if property.IsShorthand {
					p.printBinding(property.Value)
				} else {
					p.printPropertyKey(property.Key, property.IsComputed)
					p.print(":")
					p.printSpace()
					p.printBinding(property.Value)
				}
				p.printDefaultValue(property.DefaultValueOrNil)
			}
			p.printSpace()
		}
		p.print("}")

	default:
		panic(fmt.Sprintf("Unexpected binding of type %T", binding.Data))
	}
}

func (p *printer) printDefaultValue(value js_ast.Expr) {
	if value.Data != nil {
		p.printSpace()
		p.print("=")
		p.printSpace()
		p.printExpr(value, js_ast.LComma, 0)
	}
}

func (p *printer) printTarget(target js_ast.Target) {
	switch t := target.Data.(type) {
	case *js_ast.TMissing:

	case *js_ast.TIdentifier:
		p.printIdentifier(t.Name)

	case *js_ast.TMember:
		p.printExpr(t.Value, js_ast.LPostfix, 0)

	case *js_ast.TArray:
		p.print("[")
		for i, item := range t.Items {
			if i != 0 {
				p.print(",")
				p.printSpace()
			}
			if t.HasSpread && i+1 == len(t.Items) {
				p.print("...")
			}
			p.printTarget(item.Target)
			p.printDefaultValue(item.DefaultValueOrNil)
			if _, ok := item.Target.Data.(*js_ast.TMissing); ok && i == len(t.Items)-1 {
				p.print(",")
			}
		}
		p.print("]")

	case *js_ast.TObject:
		p.print("{")
		if len(t.Properties) != 0 {
			p.printSpace()
			for i, property := range t.Properties {
				if i != 0 {
					p.print(",")
					p.printSpace()
				}
				if property.IsSpread {
					p.print("...")
					p.printTarget(property.Target)
					continue
				}
				if property.IsShorthand {
					p.printTarget(property.Target)
				} else {
					p.printPropertyKey(property.Key, property.IsComputed)
					p.print(":")
					p.printSpace()
					p.printTarget(property.Target)
				}
				p.printDefaultValue(property.DefaultValueOrNil)
			}
			p.printSpace()
		}
		p.print("}")

	default:
		panic(fmt.Sprintf("Unexpected assignment target of type %T", target.Data))
	}
}

////////////////////////////////////////////////////////////////////////////////
// Functions, classes, and properties

func (p *printer) printFnArgs(args []js_ast.Arg, hasRestArg bool, isArrow bool) {
	wrap := true

	// Minify "(a) => {}" as "a=>{}"
	if p.options.MinifyWhitespace && !hasRestArg && isArrow && len(args) == 1 {
		if _, ok := args[0].Binding.Data.(*js_ast.BIdentifier); ok && args[0].DefaultOrNil.Data == nil {
			wrap = false
		}
	}

	if wrap {
		p.print("(")
	}

	for i, arg := range args {
		if i != 0 {
			p.print(",")
			p.printSpace()
		}
		if hasRestArg && i+1 == len(args) {
			p.print("...")
		}
		p.printBinding(arg.Binding)
		p.printDefaultValue(arg.DefaultOrNil)
	}

	if wrap {
		p.print(")")
	}
}

func (p *printer) printFn(fn js_ast.Fn) {
	p.printFnArgs(fn.Args, fn.HasRestArg, false /* isArrow */)
	p.printSpace()
	p.printBlock(fn.Body.Stmts)
}

func (p *printer) printFnKeyword(fn js_ast.Fn) {
	p.printSpaceBeforeIdentifier()
	if fn.IsAsync {
		p.print("async ")
	}
	p.print("function")
	if fn.IsGenerator {
		p.print("*")
		p.printSpace()
	}
	if fn.Name != nil {
		p.printIdentifier(fn.Name.Name)
	}
}

func (p *printer) printClass(class js_ast.Class) {
	if class.ExtendsOrNil.Data != nil {
		p.print(" extends")
		p.printSpace()
		p.printExpr(class.ExtendsOrNil, js_ast.LNew-1, 0)
	}
	p.printSpace()

	p.print("{")
	p.printNewline()
	p.options.Indent++

	for _, item := range class.Properties {
		p.printSemicolonIfNeeded()
		p.printIndent()

		if item.IsStatic {
			p.print("static")
			p.printSpace()
		}
		p.printMethodPrefix(item.Kind, item.IsMethod, item.ValueOrNil)
		p.printPropertyKey(item.Key, item.IsComputed)

		if item.IsMethod {
			p.printFn(item.ValueOrNil.Data.(*js_ast.EFunction).Fn)
			p.printNewline()
			continue
		}

		// Need semicolons after class fields
		p.printDefaultValue(item.ValueOrNil)
		p.printSemicolonAfterStatement()
	}

	p.needsSemicolon = false
	p.options.Indent--
	p.printIndent()
	p.print("}")
}

func (p *printer) printMethodPrefix(kind js_ast.PropertyKind, isMethod bool, value js_ast.Expr) {
	switch kind {
	case js_ast.PropertyGet:
		p.printSpaceBeforeIdentifier()
		p.print("get")
		p.printSpace()

	case js_ast.PropertySet:
		p.printSpaceBeforeIdentifier()
		p.print("set")
		p.printSpace()

	default:
		if isMethod {
			if fn, ok := value.Data.(*js_ast.EFunction); ok {
				if fn.Fn.IsAsync {
					p.printSpaceBeforeIdentifier()
					p.print("async")
					p.printSpace()
				}
				if fn.Fn.IsGenerator {
					p.print("*")
				}
			}
		}
	}
}

func (p *printer) printPropertyKey(key js_ast.Expr, isComputed bool) {
	if isComputed {
		p.print("[")
		p.printExpr(key, js_ast.LComma, 0)
		p.print("]")
		return
	}

	switch k := key.Data.(type) {
	case *js_ast.EString:
		if js_lexer.IsIdentifier(k.Value) || js_lexer.Keywords[k.Value] != 0 {
			p.printIdentifier(k.Value)
		} else {
			p.printQuoted(k.Value)
		}

	default:
		p.printExpr(key, js_ast.LLowest, 0)
	}
}

func (p *printer) printProperty(item js_ast.Property) {
	if item.Kind == js_ast.PropertySpread {
		p.print("...")
		p.printExpr(item.ValueOrNil, js_ast.LComma, 0)
		return
	}

	p.printMethodPrefix(item.Kind, item.IsMethod, item.ValueOrNil)

	if item.IsShorthand {
		if id, ok := item.ValueOrNil.Data.(*js_ast.EIdentifier); ok {
			p.printIdentifier(id.Name)
			p.printDefaultValue(item.InitializerOrNil)
			return
		}
	}

	p.printPropertyKey(item.Key, item.IsComputed)

	if item.IsMethod {
		p.printFn(item.ValueOrNil.Data.(*js_ast.EFunction).Fn)
		return
	}

	p.print(":")
	p.printSpace()
	p.printExpr(item.ValueOrNil, js_ast.LComma, 0)
}

// Template literal text is stored cooked, so it has to be escaped again
func (p *printer) printTemplateText(text string) {
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '`' || c == '\\':
			p.js = append(p.js, '\\', c)
		case c == '$' && i+1 < len(text) && text[i+1] == '{':
			p.js = append(p.js, '\\', '$')
		case c == '\r':
			p.print("\\r")
		case c < 0x20 && c != '\n' && c != '\t':
			p.print(fmt.Sprintf("\\x%02X", c))
		default:
			p.js = append(p.js, c)
		}
	}
}

////////////////////////////////////////////////////////////////////////////////
// Expressions

type printExprFlags uint8

const (
	forbidCall printExprFlags = 1 << iota
	forbidIn
)

func (p *printer) printArgs(args []js_ast.Expr) {
	p.print("(")
	for i, arg := range args {
		if i != 0 {
			p.print(",")
			p.printSpace()
		}
		p.printExpr(arg, js_ast.LComma, 0)
	}
	p.print(")")
}

func (p *printer) printExpr(expr js_ast.Expr, level js_ast.L, flags printExprFlags) {
	switch e := expr.Data.(type) {
	case *js_ast.EMissing:

	case *js_ast.EUndefined:
		if level >= js_ast.LPrefix {
			p.print("(void 0)")
		} else {
			p.printSpaceBeforeIdentifier()
			p.print("void 0")
		}

	case *js_ast.ESuper:
		p.printIdentifier("super")

	case *js_ast.ENull:
		p.printIdentifier("null")

	case *js_ast.EThis:
		p.printIdentifier("this")

	case *js_ast.ESpread:
		p.print("...")
		p.printExpr(e.Value, js_ast.LComma, 0)

	case *js_ast.ENew:
		wrap := level >= js_ast.LCall
		if wrap {
			p.print("(")
		}
		p.printIdentifier("new")
		p.printSpace()
		p.printExpr(e.Target, js_ast.LNew, forbidCall)

		// Omit the "()" when minifying, but only when safe to do so
		if !p.options.MinifyWhitespace || len(e.Args) > 0 || level >= js_ast.LPostfix {
			p.printArgs(e.Args)
		}
		if wrap {
			p.print(")")
		}

	case *js_ast.ECall:
		wrap := level >= js_ast.LNew || (flags&forbidCall) != 0
		if wrap {
			p.print("(")
		}
		p.printExpr(e.Target, js_ast.LPostfix, 0)
		p.printArgs(e.Args)
		if wrap {
			p.print(")")
		}

	case *js_ast.EImportCall:
		wrap := level >= js_ast.LNew || (flags&forbidCall) != 0
		if wrap {
			p.print("(")
		}
		p.printIdentifier("import(")
		p.printExpr(e.Expr, js_ast.LComma, 0)
		if e.OptionsOrNil.Data != nil {
			p.print(",")
			p.printSpace()
			p.printExpr(e.OptionsOrNil, js_ast.LComma, 0)
		}
		p.print(")")
		if wrap {
			p.print(")")
		}

	case *js_ast.EDot:
		p.printExpr(e.Target, js_ast.LPostfix, flags&forbidCall)
		if js_lexer.IsIdentifier(e.Name) || js_lexer.Keywords[e.Name] != 0 {
			if p.prevNumEnd == len(p.js) {
				// "1.toString" is a syntax error, so print "1 .toString" instead
				p.print(" ")
			}
			p.print(".")
			p.print(e.Name)
		} else {
			p.print("[")
			p.printQuoted(e.Name)
			p.print("]")
		}

	case *js_ast.EIndex:
		p.printExpr(e.Target, js_ast.LPostfix, flags&forbidCall)
		p.print("[")
		p.printExpr(e.Index, js_ast.LLowest, 0)
		p.print("]")

	case *js_ast.EIf:
		wrap := level >= js_ast.LConditional
		if wrap {
			p.print("(")
			flags &= ^forbidIn
		}
		p.printExpr(e.Test, js_ast.LConditional, flags&forbidIn)
		p.printSpace()
		p.print("?")
		p.printSpace()
		p.printExpr(e.Yes, js_ast.LYield, 0)
		p.printSpace()
		p.print(":")
		p.printSpace()
		p.printExpr(e.No, js_ast.LYield, flags&forbidIn)
		if wrap {
			p.print(")")
		}

	case *js_ast.EArrow:
		wrap := level >= js_ast.LAssign
		if wrap {
			p.print("(")
		}
		if e.IsAsync {
			p.printIdentifier("async")
			p.printSpace()
		}

		p.printFnArgs(e.Args, e.HasRestArg, true /* isArrow */)
		p.printSpace()
		p.print("=>")
		p.printSpace()

		wasPrinted := false
		if len(e.Body.Stmts) == 1 && e.PreferExpr {
			if s, ok := e.Body.Stmts[0].Data.(*js_ast.SReturn); ok && s.ValueOrNil.Data != nil {
				p.arrowExprStart = len(p.js)
				p.printExpr(s.ValueOrNil, js_ast.LComma, flags&forbidIn)
				wasPrinted = true
			}
		}
		if !wasPrinted {
			p.printBlock(e.Body.Stmts)
		}
		if wrap {
			p.print(")")
		}

	case *js_ast.EFunction:
		n := len(p.js)
		wrap := p.stmtStart == n || p.exportDefaultStart == n
		if wrap {
			p.print("(")
		}
		p.printFnKeyword(e.Fn)
		p.printFn(e.Fn)
		if wrap {
			p.print(")")
		}

	case *js_ast.EClass:
		n := len(p.js)
		wrap := p.stmtStart == n || p.exportDefaultStart == n
		if wrap {
			p.print("(")
		}
		p.printIdentifier("class")
		if e.Class.Name != nil {
			p.printIdentifier(e.Class.Name.Name)
		}
		p.printClass(e.Class)
		if wrap {
			p.print(")")
		}

	case *js_ast.EArray:
		p.print("[")
		if len(e.Items) > 0 {
			if !e.IsSingleLine {
				p.options.Indent++
			}

			for i, item := range e.Items {
				if i != 0 {
					p.print(",")
					if e.IsSingleLine {
						p.printSpace()
					}
				}
				if !e.IsSingleLine {
					p.printNewline()
					p.printIndent()
				}
				p.printExpr(item, js_ast.LComma, 0)

				// Make sure there's a comma after trailing missing items
				_, ok := item.Data.(*js_ast.EMissing)
				if ok && i == len(e.Items)-1 {
					p.print(",")
				}
			}

			if !e.IsSingleLine {
				p.options.Indent--
				p.printNewline()
				p.printIndent()
			}
		}
		p.print("]")

	case *js_ast.EObject:
		n := len(p.js)
		wrap := p.stmtStart == n || p.arrowExprStart == n
		if wrap {
			p.print("(")
		}
		p.print("{")
		if len(e.Properties) != 0 {
			if !e.IsSingleLine {
				p.options.Indent++
			}

			for i, item := range e.Properties {
				if i != 0 {
					p.print(",")
				}
				if e.IsSingleLine {
					p.printSpace()
				} else {
					p.printNewline()
					p.printIndent()
				}
				p.printProperty(item)
			}

			if !e.IsSingleLine {
				p.options.Indent--
				p.printNewline()
				p.printIndent()
			} else {
				p.printSpace()
			}
		}
		p.print("}")
		if wrap {
			p.print(")")
		}

	case *js_ast.EBoolean:
		if e.Value {
			p.printIdentifier("true")
		} else {
			p.printIdentifier("false")
		}

	case *js_ast.EString:
		p.printQuoted(e.Value)

	case *js_ast.ETemplate:
		p.print("`")
		p.printTemplateText(e.Head)
		for _, part := range e.Parts {
			p.print("${")
			p.printExpr(part.Value, js_ast.LLowest, 0)
			p.print("}")
			p.printTemplateText(part.Tail)
		}
		p.print("`")

	case *js_ast.ENumber:
		p.printNumber(e.Value, level)

	case *js_ast.EIdentifier:
		p.printIdentifier(e.Name)

	case *js_ast.EAwait:
		wrap := level >= js_ast.LPrefix
		if wrap {
			p.print("(")
		}
		p.printIdentifier("await")
		p.printSpace()
		p.printExpr(e.Value, js_ast.LPrefix-1, 0)
		if wrap {
			p.print(")")
		}

	case *js_ast.EYield:
		wrap := level >= js_ast.LAssign
		if wrap {
			p.print("(")
		}
		p.printIdentifier("yield")
		if e.ValueOrNil.Data != nil {
			if e.IsStar {
				p.print("*")
			}
			p.printSpace()
			p.printExpr(e.ValueOrNil, js_ast.LYield, 0)
		}
		if wrap {
			p.print(")")
		}

	case *js_ast.EUnary:
		entry := js_ast.OpTable[e.Op]
		wrap := level >= entry.Level
		if wrap {
			p.print("(")
		}

		if !e.Op.IsPrefix() {
			p.printExpr(e.Value, js_ast.LPostfix-1, 0)
		}

		if entry.IsKeyword {
			p.printIdentifier(entry.Text)
			p.printSpace()
		} else {
			p.printSpaceBeforeOperator(e.Op)
			p.print(entry.Text)
			p.prevOp = e.Op
			p.prevOpEnd = len(p.js)
		}

		if e.Op.IsPrefix() {
			p.printExpr(e.Value, js_ast.LPrefix-1, 0)
		}

		if wrap {
			p.print(")")
		}

	case *js_ast.EAssign:
		entry := js_ast.OpTable[e.Op]
		wrap := level >= entry.Level

		// Destructuring assignments must be parenthesized
		if n := len(p.js); p.stmtStart == n || p.arrowExprStart == n {
			if _, ok := e.Target.Data.(*js_ast.TObject); ok {
				wrap = true
			}
		}

		if wrap {
			p.print("(")
			flags &= ^forbidIn
		}
		p.printTarget(e.Target)
		p.printSpace()
		p.printSpaceBeforeOperator(e.Op)
		p.print(entry.Text)
		p.prevOp = e.Op
		p.prevOpEnd = len(p.js)
		p.printSpace()
		p.printExpr(e.Value, entry.Level-1, flags&forbidIn)
		if wrap {
			p.print(")")
		}

	case *js_ast.EBinary:
		entry := js_ast.OpTable[e.Op]
		wrap := level >= entry.Level || (e.Op == js_ast.BinOpIn && (flags&forbidIn) != 0)

		if wrap {
			p.print("(")
			flags &= ^forbidIn
		}

		leftLevel := entry.Level - 1
		rightLevel := entry.Level - 1

		if e.Op.IsRightAssociative() {
			leftLevel = entry.Level
		}
		if e.Op.IsLeftAssociative() {
			rightLevel = entry.Level
		}

		switch e.Op {
		case js_ast.BinOpNullishCoalescing:
			// "??" can't directly contain "||" or "&&" without being wrapped in parentheses
			if left, ok := e.Left.Data.(*js_ast.EBinary); ok && (left.Op == js_ast.BinOpLogicalOr || left.Op == js_ast.BinOpLogicalAnd) {
				leftLevel = js_ast.LPrefix
			}
			if right, ok := e.Right.Data.(*js_ast.EBinary); ok && (right.Op == js_ast.BinOpLogicalOr || right.Op == js_ast.BinOpLogicalAnd) {
				rightLevel = js_ast.LPrefix
			}

		case js_ast.BinOpPow:
			// "**" can't contain certain unary expressions
			switch e.Left.Data.(type) {
			case *js_ast.EUnary, *js_ast.EAwait, *js_ast.EUndefined, *js_ast.ENumber:
				leftLevel = js_ast.LCall
			}
		}

		p.printExpr(e.Left, leftLevel, flags&forbidIn)

		if e.Op != js_ast.BinOpComma {
			p.printSpace()
		}

		if entry.IsKeyword {
			p.printIdentifier(entry.Text)
		} else {
			p.printSpaceBeforeOperator(e.Op)
			p.print(entry.Text)
			p.prevOp = e.Op
			p.prevOpEnd = len(p.js)
		}

		p.printSpace()
		p.printExpr(e.Right, rightLevel, flags&forbidIn)

		if wrap {
			p.print(")")
		}

	default:
		panic(fmt.Sprintf("Unexpected expression of type %T", expr.Data))
	}
}

////////////////////////////////////////////////////////////////////////////////
// Statements

func (p *printer) printDeclStmt(isExport bool, keyword string, decls []js_ast.Decl) {
	p.printIndent()
	p.printSpaceBeforeIdentifier()
	if isExport {
		p.print("export ")
	}
	p.printDecls(keyword, decls, 0)
	p.printSemicolonAfterStatement()
}

func (p *printer) printForLoopInit(init js_ast.Stmt, flags printExprFlags) {
	switch s := init.Data.(type) {
	case *js_ast.SExpr:
		p.printExpr(s.Value, js_ast.LLowest, flags)
	case *js_ast.SLocal:
		p.printDecls(s.Kind.String(), s.Decls, flags)
	default:
		panic("Internal error")
	}
}

func (p *printer) printDecls(keyword string, decls []js_ast.Decl, flags printExprFlags) {
	p.print(keyword)
	p.printSpace()

	for i, decl := range decls {
		if i != 0 {
			p.print(",")
			p.printSpace()
		}
		p.printBinding(decl.Binding)

		if decl.ValueOrNil.Data != nil {
			p.printSpace()
			p.print("=")
			p.printSpace()
			p.printExpr(decl.ValueOrNil, js_ast.LComma, flags)
		}
	}
}

func (p *printer) printBody(body js_ast.Stmt) {
	if block, ok := body.Data.(*js_ast.SBlock); ok {
		p.printSpace()
		p.printBlock(block.Stmts)
		p.printNewline()
	} else {
		p.printNewline()
		p.options.Indent++
		p.printStmt(body)
		p.options.Indent--
	}
}

func (p *printer) printBlock(stmts []js_ast.Stmt) {
	p.print("{")
	p.printNewline()

	p.options.Indent++
	for _, stmt := range stmts {
		p.printSemicolonIfNeeded()
		p.printStmt(stmt)
	}
	p.options.Indent--
	p.needsSemicolon = false

	p.printIndent()
	p.print("}")
}

func wrapToAvoidAmbiguousElse(s js_ast.S) bool {
	for {
		switch current := s.(type) {
		case *js_ast.SIf:
			if current.NoOrNil.Data == nil {
				return true
			}
			s = current.NoOrNil.Data

		case *js_ast.SFor:
			s = current.Body.Data

		case *js_ast.SForIn:
			s = current.Body.Data

		case *js_ast.SForOf:
			s = current.Body.Data

		case *js_ast.SWhile:
			s = current.Body.Data

		default:
			return false
		}
	}
}

func (p *printer) printIf(s *js_ast.SIf) {
	p.printIdentifier("if")
	p.printSpace()
	p.print("(")
	p.printExpr(s.Test, js_ast.LLowest, 0)
	p.print(")")
	no := s.NoOrNil

	if yes, ok := s.Yes.Data.(*js_ast.SBlock); ok {
		p.printSpace()
		p.printBlock(yes.Stmts)

		if no.Data != nil {
			p.printSpace()
		} else {
			p.printNewline()
		}
	} else if wrapToAvoidAmbiguousElse(s.Yes.Data) {
		p.printSpace()
		p.print("{")
		p.printNewline()

		p.options.Indent++
		p.printStmt(s.Yes)
		p.options.Indent--
		p.needsSemicolon = false

		p.printIndent()
		p.print("}")

		if no.Data != nil {
			p.printSpace()
		} else {
			p.printNewline()
		}
	} else {
		p.printNewline()
		p.options.Indent++
		p.printStmt(s.Yes)
		p.options.Indent--

		if no.Data != nil {
			p.printIndent()
		}
	}

	if no.Data != nil {
		p.printSemicolonIfNeeded()
		p.printIdentifier("else")

		if block, ok := no.Data.(*js_ast.SBlock); ok {
			p.printSpace()
			p.printBlock(block.Stmts)
			p.printNewline()
		} else if ifStmt, ok := no.Data.(*js_ast.SIf); ok {
			p.print(" ")
			p.printIf(ifStmt)
		} else {
			p.printNewline()
			p.options.Indent++
			p.printStmt(no)
			p.options.Indent--
		}
	}
}

func (p *printer) printPath(stmtLoc logger.Loc) {
	if index, ok := p.options.ImportRecordsByLoc[stmtLoc]; ok && int(index) < len(p.options.ImportRecords) {
		p.printQuoted(p.options.ImportRecords[index].Path.Text)
		return
	}
	p.print("\"<unknown>\"")
}

func (p *printer) printClause(items []js_ast.ClauseItem, useAliasFirst bool) {
	p.print("{")
	for i, item := range items {
		if i != 0 {
			p.print(",")
		}
		p.printSpace()
		if useAliasFirst {
			// "import {alias as name}"
			p.printClauseAlias(item.Alias)
			if item.Name.Name != item.Alias {
				p.print(" as ")
				p.printIdentifier(item.Name.Name)
			}
		} else {
			// "export {name as alias}"
			p.printClauseAlias(item.Name.Name)
			if item.Name.Name != item.Alias {
				p.print(" as ")
				p.printClauseAlias(item.Alias)
			}
		}
	}
	if len(items) > 0 {
		p.printSpace()
	}
	p.print("}")
}

func (p *printer) printStmt(stmt js_ast.Stmt) {
	switch s := stmt.Data.(type) {
	case *js_ast.SComment:
		p.printIndent()
		p.print(s.Text)
		p.print("\n")

	case *js_ast.SFunction:
		p.printIndent()
		p.printSpaceBeforeIdentifier()
		if s.IsExport {
			p.print("export ")
		}
		p.printFnKeyword(s.Fn)
		p.printFn(s.Fn)
		p.printNewline()

	case *js_ast.SClass:
		p.printIndent()
		p.printSpaceBeforeIdentifier()
		if s.IsExport {
			p.print("export ")
		}
		p.print("class")
		if s.Class.Name != nil {
			p.printIdentifier(s.Class.Name.Name)
		}
		p.printClass(s.Class)
		p.printNewline()

	case *js_ast.SEmpty:
		p.printIndent()
		p.print(";")
		p.printNewline()

	case *js_ast.SExportDefault:
		p.printIndent()
		p.printIdentifier("export default")
		p.printSpace()

		switch s2 := s.Value.Data.(type) {
		case *js_ast.SExpr:
			// Functions and classes must be wrapped to avoid confusion with their statement forms
			p.exportDefaultStart = len(p.js)
			p.printExpr(s2.Value, js_ast.LComma, 0)
			p.printSemicolonAfterStatement()

		case *js_ast.SFunction:
			p.printFnKeyword(s2.Fn)
			p.printFn(s2.Fn)
			p.printNewline()

		case *js_ast.SClass:
			p.print("class")
			if s2.Class.Name != nil {
				p.printIdentifier(s2.Class.Name.Name)
			}
			p.printClass(s2.Class)
			p.printNewline()

		default:
			panic("Internal error")
		}

	case *js_ast.SExportStar:
		p.printIndent()
		p.printIdentifier("export")
		p.printSpace()
		p.print("*")
		p.printSpace()
		if s.Alias != nil {
			p.print("as ")
			p.printClauseAlias(s.Alias.Name.Name)
			p.printSpace()
		}
		p.printIdentifier("from")
		p.printSpace()
		p.printPath(stmt.Loc)
		p.printSemicolonAfterStatement()

	case *js_ast.SExportClause:
		p.printIndent()
		p.printIdentifier("export")
		p.printSpace()
		p.printClause(s.Items, false)
		p.printSemicolonAfterStatement()

	case *js_ast.SExportFrom:
		p.printIndent()
		p.printIdentifier("export")
		p.printSpace()
		p.printClause(s.Items, false)
		p.printSpace()
		p.printIdentifier("from")
		p.printSpace()
		p.printPath(stmt.Loc)
		p.printSemicolonAfterStatement()

	case *js_ast.SImport:
		itemCount := 0
		p.printIndent()
		p.printIdentifier("import")
		p.printSpace()

		if s.DefaultName != nil {
			p.printIdentifier(s.DefaultName.Name)
			itemCount++
		}
		if s.Items != nil {
			if itemCount > 0 {
				p.print(",")
				p.printSpace()
			}
			p.printClause(*s.Items, true)
			itemCount++
		}
		if s.StarName != nil {
			if itemCount > 0 {
				p.print(",")
				p.printSpace()
			}
			p.print("*")
			p.printSpace()
			p.print("as ")
			p.printIdentifier(s.StarName.Name)
			itemCount++
		}
		if itemCount > 0 {
			p.printSpace()
			p.printIdentifier("from")
			p.printSpace()
		}
		p.printPath(stmt.Loc)
		p.printSemicolonAfterStatement()

	case *js_ast.SLocal:
		p.printDeclStmt(s.IsExport, s.Kind.String(), s.Decls)

	case *js_ast.SIf:
		p.printIndent()
		p.printIf(s)

	case *js_ast.SWhile:
		p.printIndent()
		p.printIdentifier("while")
		p.printSpace()
		p.print("(")
		p.printExpr(s.Test, js_ast.LLowest, 0)
		p.print(")")
		p.printBody(s.Body)

	case *js_ast.SFor:
		p.printIndent()
		p.printIdentifier("for")
		p.printSpace()
		p.print("(")
		if s.InitOrNil.Data != nil {
			p.printForLoopInit(s.InitOrNil, forbidIn)
		}
		p.print(";")
		p.printSpace()
		if s.TestOrNil.Data != nil {
			p.printExpr(s.TestOrNil, js_ast.LLowest, 0)
		}
		p.print(";")
		p.printSpace()
		if s.UpdateOrNil.Data != nil {
			p.printExpr(s.UpdateOrNil, js_ast.LLowest, 0)
		}
		p.print(")")
		p.printBody(s.Body)

	case *js_ast.SForIn:
		p.printIndent()
		p.printIdentifier("for")
		p.printSpace()
		p.print("(")
		p.printForLoopInit(s.Init, forbidIn)
		p.printSpace()
		p.printIdentifier("in")
		p.printSpace()
		p.printExpr(s.Value, js_ast.LLowest, 0)
		p.print(")")
		p.printBody(s.Body)

	case *js_ast.SForOf:
		p.printIndent()
		p.printIdentifier("for")
		p.printSpace()
		p.print("(")
		p.printForLoopInit(s.Init, 0)
		p.printSpace()
		p.printIdentifier("of")
		p.printSpace()
		p.printExpr(s.Value, js_ast.LComma, 0)
		p.print(")")
		p.printBody(s.Body)

	case *js_ast.STry:
		p.printIndent()
		p.printIdentifier("try")
		p.printSpace()
		p.printBlock(s.Block.Stmts)

		if s.Catch != nil {
			p.printSpace()
			p.print("catch")
			if s.Catch.BindingOrNil.Data != nil {
				p.printSpace()
				p.print("(")
				p.printBinding(s.Catch.BindingOrNil)
				p.print(")")
			}
			p.printSpace()
			p.printBlock(s.Catch.Block.Stmts)
		}

		if s.FinallyOrNil != nil {
			p.printSpace()
			p.print("finally")
			p.printSpace()
			p.printBlock(s.FinallyOrNil.Stmts)
		}

		p.printNewline()

	case *js_ast.SBlock:
		p.printIndent()
		p.printBlock(s.Stmts)
		p.printNewline()

	case *js_ast.SDebugger:
		p.printIndent()
		p.printIdentifier("debugger")
		p.printSemicolonAfterStatement()

	case *js_ast.SBreak:
		p.printIndent()
		p.printIdentifier("break")
		p.printSemicolonAfterStatement()

	case *js_ast.SContinue:
		p.printIndent()
		p.printIdentifier("continue")
		p.printSemicolonAfterStatement()

	case *js_ast.SReturn:
		p.printIndent()
		p.printIdentifier("return")
		if s.ValueOrNil.Data != nil {
			p.printSpace()
			p.printExpr(s.ValueOrNil, js_ast.LLowest, 0)
		}
		p.printSemicolonAfterStatement()

	case *js_ast.SThrow:
		p.printIndent()
		p.printIdentifier("throw")
		p.printSpace()
		p.printExpr(s.Value, js_ast.LLowest, 0)
		p.printSemicolonAfterStatement()

	case *js_ast.SExpr:
		p.printIndent()
		p.stmtStart = len(p.js)
		p.printExpr(s.Value, js_ast.LLowest, 0)
		p.printSemicolonAfterStatement()

	default:
		panic(fmt.Sprintf("Unexpected statement of type %T", stmt.Data))
	}
}

type Options struct {
	// Used to print the paths of import and export statements, which only
	// appear in trees that have not been finalized
	ImportRecords      []ast.ImportRecord
	ImportRecordsByLoc map[logger.Loc]uint32

	Indent           int
	MinifyWhitespace bool
	ASCIIOnly        bool
}

type PrintResult struct {
	JS []byte
}

func newPrinter(options Options) *printer {
	return &printer{
		options:            options,
		stmtStart:          -1,
		exportDefaultStart: -1,
		arrowExprStart:     -1,
		prevOpEnd:          -1,
		prevNumEnd:         -1,
	}
}

// Print prints the directives and statements of a tree
func Print(directives []string, stmts []js_ast.Stmt, options Options) PrintResult {
	p := newPrinter(options)

	for _, directive := range directives {
		p.printIndent()
		p.printQuoted(directive)
		p.print(";")
		p.printNewline()
	}

	for _, stmt := range stmts {
		p.printSemicolonIfNeeded()
		p.printStmt(stmt)
	}

	return PrintResult{JS: p.js}
}

// PrintExpr prints a single expression, which is useful in tests and
// diagnostics
func PrintExpr(expr js_ast.Expr, options Options) string {
	p := newPrinter(options)
	p.printExpr(expr, js_ast.LLowest, 0)
	return string(p.js)
}
