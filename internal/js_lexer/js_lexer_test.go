package js_lexer

import (
	"testing"

	"github.com/bundlekit/finalizer/internal/logger"
	"github.com/bundlekit/finalizer/internal/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, contents string) (tokens []T, log logger.Log) {
	t.Helper()
	log = logger.NewDeferLog()
	func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(LexerPanic); !ok {
					panic(r)
				}
				tokens = append(tokens, TSyntaxError)
			}
		}()
		lexer := NewLexer(log, test.SourceForTest("<stdin>", contents))
		for lexer.Token != TEndOfFile {
			tokens = append(tokens, lexer.Token)
			lexer.Next()
		}
	}()
	return
}

func expectLexerError(t *testing.T, contents string, expected string) {
	t.Helper()
	tokens, log := lexAll(t, contents)
	require.NotEmpty(t, tokens)
	assert.Equal(t, TSyntaxError, tokens[len(tokens)-1])
	msgs := log.Done()
	require.Len(t, msgs, 1)
	test.AssertEqual(t, msgs[0].Text, expected)
}

func TestTokens(t *testing.T) {
	tokens, log := lexAll(t, "a >>>= b ?? c => ... === !== **")
	assert.False(t, log.HasErrors())
	assert.Equal(t, []T{
		TIdentifier, TGreaterThanGreaterThanGreaterThanEquals, TIdentifier, TQuestionQuestion,
		TIdentifier, TEqualsGreaterThan, TDotDotDot, TEqualsEqualsEquals, TExclamationEqualsEquals,
		TAsteriskAsterisk,
	}, tokens)
}

func TestKeywords(t *testing.T) {
	tokens, _ := lexAll(t, "import export default from as")
	assert.Equal(t, []T{TImport, TExport, TDefault, TIdentifier, TIdentifier}, tokens)
}

func TestComments(t *testing.T) {
	lexer := NewLexer(logger.NewDeferLog(), test.SourceForTest("<stdin>", "a /* x\n */ b // c\nd"))
	assert.Equal(t, "a", lexer.Identifier)
	lexer.Next()
	assert.Equal(t, "b", lexer.Identifier)
	assert.True(t, lexer.HasNewlineBefore)
	lexer.Next()
	assert.Equal(t, "d", lexer.Identifier)
	assert.True(t, lexer.HasNewlineBefore)
}

func TestStringLiterals(t *testing.T) {
	check := func(contents string, expected string) {
		t.Helper()
		lexer := NewLexer(logger.NewDeferLog(), test.SourceForTest("<stdin>", contents))
		assert.Equal(t, TStringLiteral, lexer.Token)
		assert.Equal(t, expected, lexer.StringLiteral)
	}

	check(`"./a"`, "./a")
	check(`'it\'s'`, "it's")
	check(`"\n\t\\"`, "\n\t\\")
	check(`"\x41B\u{43}"`, "ABC")
	check("'a\\\nb'", "ab")
}

func TestNumericLiterals(t *testing.T) {
	check := func(contents string, expected float64) {
		t.Helper()
		lexer := NewLexer(logger.NewDeferLog(), test.SourceForTest("<stdin>", contents))
		assert.Equal(t, TNumericLiteral, lexer.Token)
		assert.Equal(t, expected, lexer.Number)
	}

	check("0", 0)
	check("1_000", 1000)
	check(".5", 0.5)
	check("1e3", 1000)
	check("0xFF", 255)
	check("0b101", 5)
	check("0o17", 15)
}

func TestTemplateLiterals(t *testing.T) {
	lexer := NewLexer(logger.NewDeferLog(), test.SourceForTest("<stdin>", "`a${b}c`"))
	assert.Equal(t, TTemplateHead, lexer.Token)
	assert.Equal(t, "a", lexer.StringLiteral)
	lexer.Next()
	assert.Equal(t, TIdentifier, lexer.Token)
	lexer.Next()
	lexer.RescanCloseBraceAsTemplateToken()
	assert.Equal(t, TTemplateTail, lexer.Token)
	assert.Equal(t, "c", lexer.StringLiteral)
}

func TestSyntaxErrors(t *testing.T) {
	expectLexerError(t, "'abc", "Unexpected end of file")
	expectLexerError(t, "a @ b", "Syntax error \"@\"")
	expectLexerError(t, "/* open", "Unexpected end of file")
	expectLexerError(t, "1a", "Syntax error \"a\"")
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier("require_foo"))
	assert.True(t, IsIdentifier("$a1"))
	assert.False(t, IsIdentifier("1a"))
	assert.False(t, IsIdentifier("a-b"))
	assert.False(t, IsIdentifier(""))
}
