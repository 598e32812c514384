package helpers_test

import (
	"testing"

	"github.com/bundlekit/finalizer/internal/helpers"
	"github.com/bundlekit/finalizer/internal/test"
	"github.com/stretchr/testify/assert"
)

func TestJoiner(t *testing.T) {
	j := helpers.Joiner{}
	j.AddString("var a")
	j.AddBytes([]byte(" = 1;"))
	j.AddString("")
	j.EnsureNewlineAtEnd()
	j.EnsureNewlineAtEnd()

	test.AssertEqual(t, string(j.Done()), "var a = 1;\n")
	test.AssertEqual(t, j.Length(), uint32(11))
	assert.True(t, j.Contains("= 1"))
	assert.False(t, j.Contains("b"))
}

func TestQuoteForJSON(t *testing.T) {
	test.AssertEqual(t, string(helpers.QuoteForJSON("./chunk.js", false)), `"./chunk.js"`)
	test.AssertEqual(t, string(helpers.QuoteForJSON("a\"b\\c\n", false)), `"a\"b\\c\n"`)
	test.AssertEqual(t, string(helpers.QuoteForJSON("é", true)), `"\u00E9"`)
	test.AssertEqual(t, string(helpers.QuoteForJSON("é", false)), "\"é\"")
	test.AssertEqual(t, string(helpers.QuoteForJSON("\U0001F600", true)), `"\uD83D\uDE00"`)
}

func TestTypoDetector(t *testing.T) {
	detector := helpers.MakeTypoDetector([]string{"default", "render", "x"})

	corrected, ok := detector.MaybeCorrectTypo("defalt")
	assert.True(t, ok)
	assert.Equal(t, "default", corrected)

	corrected, ok = detector.MaybeCorrectTypo("rendre")
	assert.True(t, ok)
	assert.Equal(t, "render", corrected)

	_, ok = detector.MaybeCorrectTypo("y")
	assert.False(t, ok)
}
