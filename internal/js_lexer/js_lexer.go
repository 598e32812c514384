package js_lexer

// The lexer converts a source file to a stream of tokens. Unlike many
// compilers, this parser does not run the lexer to completion before
// the parser is started. Instead, the lexer is called repeatedly by the parser
// as the parser parses the file. This is because many tokens are
// context-sensitive and need high-level information from the parser.
//
// Syntax errors are reported to the log and then the lexer panics with a
// "LexerPanic" value, which the parser recovers from at the top level.

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bundlekit/finalizer/internal/logger"
)

type T uint8

// If you add a new token, remember to add it to "tokenToString" too
const (
	TEndOfFile T = iota
	TSyntaxError

	// Literals
	TNoSubstitutionTemplateLiteral // Contents are in lexer.StringLiteral
	TNumericLiteral                // Contents are in lexer.Number
	TStringLiteral                 // Contents are in lexer.StringLiteral

	// Pseudo-literals
	TTemplateHead   // Contents are in lexer.StringLiteral
	TTemplateMiddle // Contents are in lexer.StringLiteral
	TTemplateTail   // Contents are in lexer.StringLiteral

	// Punctuation
	TAmpersand
	TAmpersandAmpersand
	TAsterisk
	TAsteriskAsterisk
	TBar
	TBarBar
	TCaret
	TCloseBrace
	TCloseBracket
	TCloseParen
	TColon
	TComma
	TDot
	TDotDotDot
	TEqualsEquals
	TEqualsEqualsEquals
	TEqualsGreaterThan
	TExclamation
	TExclamationEquals
	TExclamationEqualsEquals
	TGreaterThan
	TGreaterThanEquals
	TGreaterThanGreaterThan
	TGreaterThanGreaterThanGreaterThan
	TLessThan
	TLessThanEquals
	TLessThanLessThan
	TMinus
	TMinusMinus
	TOpenBrace
	TOpenBracket
	TOpenParen
	TPercent
	TPlus
	TPlusPlus
	TQuestion
	TQuestionQuestion
	TSemicolon
	TSlash
	TTilde

	// Assignments
	TAmpersandAmpersandEquals
	TAmpersandEquals
	TAsteriskAsteriskEquals
	TAsteriskEquals
	TBarBarEquals
	TBarEquals
	TCaretEquals
	TEquals
	TGreaterThanGreaterThanEquals
	TGreaterThanGreaterThanGreaterThanEquals
	TLessThanLessThanEquals
	TMinusEquals
	TPercentEquals
	TPlusEquals
	TQuestionQuestionEquals
	TSlashEquals

	// Identifiers
	TIdentifier // Contents are in lexer.Identifier

	// Reserved words
	TBreak
	TCase
	TCatch
	TClass
	TConst
	TContinue
	TDebugger
	TDefault
	TDelete
	TDo
	TElse
	TExport
	TExtends
	TFalse
	TFinally
	TFor
	TFunction
	TIf
	TImport
	TIn
	TInstanceof
	TNew
	TNull
	TReturn
	TSuper
	TSwitch
	TThis
	TThrow
	TTrue
	TTry
	TTypeof
	TVar
	TVoid
	TWhile
	TWith
)

var Keywords = map[string]T{
	"break":      TBreak,
	"case":       TCase,
	"catch":      TCatch,
	"class":      TClass,
	"const":      TConst,
	"continue":   TContinue,
	"debugger":   TDebugger,
	"default":    TDefault,
	"delete":     TDelete,
	"do":         TDo,
	"else":       TElse,
	"export":     TExport,
	"extends":    TExtends,
	"false":      TFalse,
	"finally":    TFinally,
	"for":        TFor,
	"function":   TFunction,
	"if":         TIf,
	"import":     TImport,
	"in":         TIn,
	"instanceof": TInstanceof,
	"new":        TNew,
	"null":       TNull,
	"return":     TReturn,
	"super":      TSuper,
	"switch":     TSwitch,
	"this":       TThis,
	"throw":      TThrow,
	"true":       TTrue,
	"try":        TTry,
	"typeof":     TTypeof,
	"var":        TVar,
	"void":       TVoid,
	"while":      TWhile,
	"with":       TWith,
}

var StrictModeReservedWords = map[string]bool{
	"implements": true,
	"interface":  true,
	"let":        true,
	"package":    true,
	"private":    true,
	"protected":  true,
	"public":     true,
	"static":     true,
	"yield":      true,
}

var tokenToString = map[T]string{
	TEndOfFile:   "end of file",
	TSyntaxError: "syntax error",

	TNoSubstitutionTemplateLiteral: "template literal",
	TNumericLiteral:                "number",
	TStringLiteral:                 "string",
	TTemplateHead:                  "template literal",
	TTemplateMiddle:                "template literal",
	TTemplateTail:                  "template literal",
	TIdentifier:                    "identifier",

	TCloseBrace:        "\"}\"",
	TCloseBracket:      "\"]\"",
	TCloseParen:        "\")\"",
	TColon:             "\":\"",
	TComma:             "\",\"",
	TEquals:            "\"=\"",
	TEqualsGreaterThan: "\"=>\"",
	TOpenBrace:         "\"{\"",
	TOpenBracket:       "\"[\"",
	TOpenParen:         "\"(\"",
	TSemicolon:         "\";\"",
}

func init() {
	for text, token := range Keywords {
		tokenToString[token] = fmt.Sprintf("%q", text)
	}
}

// Punctuators sorted so that longer operators are tried before their prefixes
var punctuators = []struct {
	text  string
	token T
}{
	{">>>=", TGreaterThanGreaterThanGreaterThanEquals},
	{"...", TDotDotDot},
	{"===", TEqualsEqualsEquals},
	{"!==", TExclamationEqualsEquals},
	{"**=", TAsteriskAsteriskEquals},
	{"<<=", TLessThanLessThanEquals},
	{">>=", TGreaterThanGreaterThanEquals},
	{">>>", TGreaterThanGreaterThanGreaterThan},
	{"&&=", TAmpersandAmpersandEquals},
	{"||=", TBarBarEquals},
	{"??=", TQuestionQuestionEquals},
	{"&&", TAmpersandAmpersand},
	{"||", TBarBar},
	{"??", TQuestionQuestion},
	{"**", TAsteriskAsterisk},
	{"==", TEqualsEquals},
	{"!=", TExclamationEquals},
	{"=>", TEqualsGreaterThan},
	{"<=", TLessThanEquals},
	{">=", TGreaterThanEquals},
	{"<<", TLessThanLessThan},
	{">>", TGreaterThanGreaterThan},
	{"++", TPlusPlus},
	{"--", TMinusMinus},
	{"+=", TPlusEquals},
	{"-=", TMinusEquals},
	{"*=", TAsteriskEquals},
	{"/=", TSlashEquals},
	{"%=", TPercentEquals},
	{"&=", TAmpersandEquals},
	{"|=", TBarEquals},
	{"^=", TCaretEquals},
	{"&", TAmpersand},
	{"*", TAsterisk},
	{"|", TBar},
	{"^", TCaret},
	{"}", TCloseBrace},
	{"]", TCloseBracket},
	{")", TCloseParen},
	{":", TColon},
	{",", TComma},
	{".", TDot},
	{"!", TExclamation},
	{">", TGreaterThan},
	{"<", TLessThan},
	{"-", TMinus},
	{"{", TOpenBrace},
	{"[", TOpenBracket},
	{"(", TOpenParen},
	{"%", TPercent},
	{"+", TPlus},
	{"?", TQuestion},
	{";", TSemicolon},
	{"/", TSlash},
	{"~", TTilde},
	{"=", TEquals},
}

type Lexer struct {
	log              logger.Log
	source           logger.Source
	start            int
	end              int
	Token            T
	HasNewlineBefore bool
	Identifier       string
	StringLiteral    string
	Number           float64

	// Set by the parser after "}" inside a template literal substitution
	rescanCloseBraceAsTemplateToken bool

	// The log is disabled during speculative scans that may backtrack
	IsLogDisabled bool
}

type LexerPanic struct{}

func NewLexer(log logger.Log, source logger.Source) Lexer {
	lexer := Lexer{
		log:    log,
		source: source,
	}
	lexer.Next()
	return lexer
}

func (lexer *Lexer) Loc() logger.Loc {
	return logger.Loc{Start: int32(lexer.start)}
}

func (lexer *Lexer) Range() logger.Range {
	return logger.Range{Loc: logger.Loc{Start: int32(lexer.start)}, Len: int32(lexer.end - lexer.start)}
}

func (lexer *Lexer) Raw() string {
	return lexer.source.Contents[lexer.start:lexer.end]
}

func (lexer *Lexer) IsIdentifierOrKeyword() bool {
	return lexer.Token >= TIdentifier
}

func (lexer *Lexer) IsContextualKeyword(text string) bool {
	return lexer.Token == TIdentifier && lexer.Raw() == text
}

func (lexer *Lexer) ExpectContextualKeyword(text string) {
	if !lexer.IsContextualKeyword(text) {
		lexer.ExpectedString(fmt.Sprintf("%q", text))
	}
	lexer.Next()
}

func (lexer *Lexer) SyntaxError() {
	loc := logger.Loc{Start: int32(lexer.end)}
	message := "Unexpected end of file"
	if lexer.end < len(lexer.source.Contents) {
		c, _ := utf8.DecodeRuneInString(lexer.source.Contents[lexer.end:])
		if c < 0x20 {
			message = fmt.Sprintf("Syntax error \"\\x%02X\"", c)
		} else if c >= 0x80 {
			message = fmt.Sprintf("Syntax error \"\\u{%x}\"", c)
		} else if c != '"' {
			message = fmt.Sprintf("Syntax error \"%c\"", c)
		} else {
			message = "Syntax error '\"'"
		}
	}
	lexer.addError(loc, message)
	panic(LexerPanic{})
}

func (lexer *Lexer) ExpectedString(text string) {
	found := fmt.Sprintf("%q", lexer.Raw())
	if lexer.start == len(lexer.source.Contents) {
		found = "end of file"
	}
	lexer.addRangeError(lexer.Range(), fmt.Sprintf("Expected %s but found %s", text, found))
	panic(LexerPanic{})
}

func (lexer *Lexer) Expected(token T) {
	if text, ok := tokenToString[token]; ok {
		lexer.ExpectedString(text)
	} else {
		lexer.Unexpected()
	}
}

func (lexer *Lexer) Unexpected() {
	found := fmt.Sprintf("%q", lexer.Raw())
	if lexer.start == len(lexer.source.Contents) {
		found = "end of file"
	}
	lexer.addRangeError(lexer.Range(), fmt.Sprintf("Unexpected %s", found))
	panic(LexerPanic{})
}

func (lexer *Lexer) Expect(token T) {
	if lexer.Token != token {
		lexer.Expected(token)
	}
	lexer.Next()
}

func (lexer *Lexer) ExpectOrInsertSemicolon() {
	if lexer.Token == TSemicolon || (!lexer.HasNewlineBefore &&
		lexer.Token != TCloseBrace && lexer.Token != TEndOfFile) {
		lexer.Expect(TSemicolon)
	}
}

// The parser calls this when it sees a "}" that closes a template literal
// substitution, since only the parser knows that context.
func (lexer *Lexer) RescanCloseBraceAsTemplateToken() {
	if lexer.Token != TCloseBrace {
		lexer.Expected(TCloseBrace)
	}
	lexer.rescanCloseBraceAsTemplateToken = true
	lexer.end = lexer.start
	lexer.Next()
	lexer.rescanCloseBraceAsTemplateToken = false
}

func IsIdentifier(text string) bool {
	if len(text) == 0 {
		return false
	}
	for i, c := range text {
		if i == 0 {
			if !IsIdentifierStart(c) {
				return false
			}
		} else if !IsIdentifierContinue(c) {
			return false
		}
	}
	return true
}

func IsIdentifierStart(codePoint rune) bool {
	switch codePoint {
	case '_', '$':
		return true
	}
	return unicode.IsLetter(codePoint)
}

func IsIdentifierContinue(codePoint rune) bool {
	switch codePoint {
	case '_', '$', '\u200C', '\u200D':
		return true
	}
	return unicode.IsLetter(codePoint) || unicode.IsDigit(codePoint) || unicode.Is(unicode.Mn, codePoint)
}

func isLineTerminator(c rune) bool {
	return c == '\n' || c == '\r' || c == '\u2028' || c == '\u2029'
}

func (lexer *Lexer) peek() rune {
	if lexer.end >= len(lexer.source.Contents) {
		return -1
	}
	c, _ := utf8.DecodeRuneInString(lexer.source.Contents[lexer.end:])
	return c
}

func (lexer *Lexer) step() {
	_, width := utf8.DecodeRuneInString(lexer.source.Contents[lexer.end:])
	lexer.end += width
}

func (lexer *Lexer) Next() {
	lexer.HasNewlineBefore = lexer.end == 0
	contents := lexer.source.Contents

	if lexer.rescanCloseBraceAsTemplateToken {
		lexer.start = lexer.end
		lexer.step()
		lexer.scanTemplate(TTemplateMiddle, TTemplateTail)
		return
	}

	for {
		lexer.start = lexer.end
		c := lexer.peek()

		switch {
		case c == -1:
			lexer.Token = TEndOfFile
			return

		case isLineTerminator(c):
			lexer.step()
			lexer.HasNewlineBefore = true
			continue

		case c == ' ' || c == '\t' || c == '\v' || c == '\f' || c == '\u00A0' || c == '\uFEFF' || unicode.Is(unicode.Zs, c):
			lexer.step()
			continue

		case c == '/' && strings.HasPrefix(contents[lexer.end:], "//"):
			for lexer.end < len(contents) && !isLineTerminator(lexer.peek()) {
				lexer.step()
			}
			continue

		case c == '/' && strings.HasPrefix(contents[lexer.end:], "/*"):
			close := strings.Index(contents[lexer.end+2:], "*/")
			if close == -1 {
				lexer.end = len(contents)
				lexer.start = lexer.end
				lexer.SyntaxError()
			}
			if strings.ContainsAny(contents[lexer.end:lexer.end+2+close], "\r\n\u2028\u2029") {
				lexer.HasNewlineBefore = true
			}
			lexer.end += close + 4
			continue

		case c == '#' && lexer.end == 0 && strings.HasPrefix(contents, "#!"):
			for lexer.end < len(contents) && !isLineTerminator(lexer.peek()) {
				lexer.step()
			}
			continue

		case c == '\'' || c == '"':
			lexer.scanString(c)
			return

		case c == '`':
			lexer.step()
			lexer.scanTemplate(TTemplateHead, TNoSubstitutionTemplateLiteral)
			return

		case c >= '0' && c <= '9', c == '.' && lexer.end+1 < len(contents) && contents[lexer.end+1] >= '0' && contents[lexer.end+1] <= '9':
			lexer.scanNumber()
			return

		case IsIdentifierStart(c) || c == '\\':
			if c == '\\' {
				lexer.SyntaxError()
			}
			for lexer.end < len(contents) && IsIdentifierContinue(lexer.peek()) {
				lexer.step()
			}
			lexer.Identifier = lexer.Raw()
			if keyword, ok := Keywords[lexer.Identifier]; ok {
				lexer.Token = keyword
			} else {
				lexer.Token = TIdentifier
			}
			return
		}

		for _, p := range punctuators {
			if strings.HasPrefix(contents[lexer.end:], p.text) {
				lexer.end += len(p.text)
				lexer.Token = p.token
				return
			}
		}

		lexer.end = lexer.start
		lexer.SyntaxError()
	}
}

func (lexer *Lexer) scanString(quote rune) {
	lexer.step()
	sb := strings.Builder{}

	for {
		c := lexer.peek()
		switch {
		case c == -1 || c == '\n' || c == '\r':
			lexer.SyntaxError()

		case c == quote:
			lexer.step()
			lexer.StringLiteral = sb.String()
			lexer.Token = TStringLiteral
			return

		case c == '\\':
			lexer.step()
			lexer.scanEscape(&sb)

		default:
			lexer.step()
			sb.WriteRune(c)
		}
	}
}

// Template literals are scanned up to and including the next "${" or the
// closing backtick. The cooked value is stored in "StringLiteral".
func (lexer *Lexer) scanTemplate(withSubstitution T, withoutSubstitution T) {
	sb := strings.Builder{}
	contents := lexer.source.Contents

	for {
		c := lexer.peek()
		switch {
		case c == -1:
			lexer.SyntaxError()

		case c == '`':
			lexer.step()
			lexer.StringLiteral = sb.String()
			lexer.Token = withoutSubstitution
			return

		case c == '$' && strings.HasPrefix(contents[lexer.end:], "${"):
			lexer.end += 2
			lexer.StringLiteral = sb.String()
			lexer.Token = withSubstitution
			return

		case c == '\\':
			lexer.step()
			lexer.scanEscape(&sb)

		case c == '\r':
			// Line endings are normalized to "\n" inside template literals
			lexer.step()
			if lexer.peek() == '\n' {
				lexer.step()
			}
			sb.WriteByte('\n')

		default:
			lexer.step()
			sb.WriteRune(c)
		}
	}
}

func (lexer *Lexer) scanEscape(sb *strings.Builder) {
	c := lexer.peek()
	if c == -1 {
		lexer.SyntaxError()
	}
	lexer.step()

	switch c {
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'n':
		sb.WriteByte('\n')
	case 'r':
		sb.WriteByte('\r')
	case 't':
		sb.WriteByte('\t')
	case 'v':
		sb.WriteByte('\v')
	case '0':
		sb.WriteByte(0)

	case '\r':
		// Line continuation
		if lexer.peek() == '\n' {
			lexer.step()
		}
	case '\n', '\u2028', '\u2029':

	case 'x':
		sb.WriteRune(lexer.scanHexDigits(2))

	case 'u':
		if lexer.peek() == '{' {
			lexer.step()
			start := lexer.end
			for lexer.peek() != '}' {
				if lexer.peek() == -1 {
					lexer.SyntaxError()
				}
				lexer.step()
			}
			value, err := strconv.ParseUint(lexer.source.Contents[start:lexer.end], 16, 32)
			if err != nil || value > 0x10FFFF {
				lexer.SyntaxError()
			}
			lexer.step()
			sb.WriteRune(rune(value))
		} else {
			sb.WriteRune(lexer.scanHexDigits(4))
		}

	default:
		sb.WriteRune(c)
	}
}

func (lexer *Lexer) scanHexDigits(count int) rune {
	if lexer.end+count > len(lexer.source.Contents) {
		lexer.SyntaxError()
	}
	value, err := strconv.ParseUint(lexer.source.Contents[lexer.end:lexer.end+count], 16, 32)
	if err != nil {
		lexer.SyntaxError()
	}
	lexer.end += count
	return rune(value)
}

func (lexer *Lexer) scanNumber() {
	contents := lexer.source.Contents
	isDigit := func(c byte) bool { return c >= '0' && c <= '9' }
	isHex := func(c byte) bool { return isDigit(c) || (c|0x20 >= 'a' && c|0x20 <= 'f') }

	if contents[lexer.end] == '0' && lexer.end+1 < len(contents) && strings.ContainsRune("xXoObB", rune(contents[lexer.end+1])) {
		base := 16
		switch contents[lexer.end+1] | 0x20 {
		case 'o':
			base = 8
		case 'b':
			base = 2
		}
		lexer.end += 2
		for lexer.end < len(contents) && (isHex(contents[lexer.end]) || contents[lexer.end] == '_') {
			lexer.end++
		}
		value, err := strconv.ParseUint(strings.ReplaceAll(contents[lexer.start+2:lexer.end], "_", ""), base, 64)
		if err != nil {
			lexer.SyntaxError()
		}
		lexer.Number = float64(value)
		lexer.Token = TNumericLiteral
		return
	}

	for lexer.end < len(contents) && (isDigit(contents[lexer.end]) || contents[lexer.end] == '_') {
		lexer.end++
	}
	if lexer.end < len(contents) && contents[lexer.end] == '.' {
		lexer.end++
		for lexer.end < len(contents) && (isDigit(contents[lexer.end]) || contents[lexer.end] == '_') {
			lexer.end++
		}
	}
	if lexer.end < len(contents) && contents[lexer.end]|0x20 == 'e' {
		lexer.end++
		if lexer.end < len(contents) && (contents[lexer.end] == '+' || contents[lexer.end] == '-') {
			lexer.end++
		}
		for lexer.end < len(contents) && isDigit(contents[lexer.end]) {
			lexer.end++
		}
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(lexer.Raw(), "_", ""), 64)
	if err != nil {
		lexer.SyntaxError()
	}
	if lexer.end < len(contents) && IsIdentifierStart(rune(contents[lexer.end])) {
		lexer.SyntaxError()
	}
	lexer.Number = value
	lexer.Token = TNumericLiteral
}

func (lexer *Lexer) addError(loc logger.Loc, text string) {
	if !lexer.IsLogDisabled {
		lexer.log.AddError(&lexer.source, loc, text)
	}
}

func (lexer *Lexer) addRangeError(r logger.Range, text string) {
	if !lexer.IsLogDisabled {
		lexer.log.AddRangeError(&lexer.source, r, text)
	}
}
