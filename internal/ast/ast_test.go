package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertEqual(t *testing.T, a interface{}, b interface{}) {
	t.Helper()
	if a != b {
		t.Fatalf("%s != %s", a, b)
	}
}

func TestGenerateNonUniqueNameFromPath(t *testing.T) {
	assertEqual(t, GenerateNonUniqueNameFromPath("<stdin>"), "stdin")
	assertEqual(t, GenerateNonUniqueNameFromPath("foo/bar"), "bar")
	assertEqual(t, GenerateNonUniqueNameFromPath("foo/bar.js"), "bar")
	assertEqual(t, GenerateNonUniqueNameFromPath("foo/bar.min.js"), "bar_min")
	assertEqual(t, GenerateNonUniqueNameFromPath("trailing//slashes//"), "slashes")
	assertEqual(t, GenerateNonUniqueNameFromPath("path/with/spaces in name.js"), "spaces_in_name")
	assertEqual(t, GenerateNonUniqueNameFromPath("path\\on\\windows.js"), "windows")
	assertEqual(t, GenerateNonUniqueNameFromPath("node_modules/demo-pkg/index.js"), "demo_pkg")
	assertEqual(t, GenerateNonUniqueNameFromPath("123_invalid_identifier.js"), "invalid_identifier")
}

func TestIndex32(t *testing.T) {
	var zero Index32
	assert.False(t, zero.IsValid())

	index := MakeIndex32(0)
	require.True(t, index.IsValid())
	assert.Equal(t, uint32(0), index.GetIndex())
	assert.Equal(t, uint32(7), MakeIndex32(7).GetIndex())
}

func newTestSymbols(counts ...int) SymbolMap {
	symbols := NewSymbolMap(len(counts))
	for source, count := range counts {
		inner := make([]Symbol, count)
		for i := range inner {
			inner[i].Link = InvalidRef
		}
		symbols.SymbolsForSource[source] = inner
	}
	return symbols
}

func TestMergeSymbolsIsIdempotentAndTotal(t *testing.T) {
	symbols := newTestSymbols(2, 2)
	a := Ref{SourceIndex: 0, InnerIndex: 1}
	b := Ref{SourceIndex: 1, InnerIndex: 0}
	c := Ref{SourceIndex: 1, InnerIndex: 1}

	MergeSymbols(symbols, a, b)
	MergeSymbols(symbols, b, c)

	assert.Equal(t, c, FollowSymbols(symbols, a))
	assert.Equal(t, c, FollowSymbols(symbols, b))
	assert.Equal(t, c, FollowSymbols(symbols, c))

	// Following twice yields the same result
	assert.Equal(t, FollowSymbols(symbols, a), FollowSymbols(symbols, FollowSymbols(symbols, a)))

	// Unrelated symbols are their own canonical symbol
	unrelated := Ref{SourceIndex: 0, InnerIndex: 0}
	assert.Equal(t, unrelated, FollowSymbols(symbols, unrelated))
}

func TestMergeSymbolsCycle(t *testing.T) {
	symbols := newTestSymbols(2)
	a := Ref{SourceIndex: 0, InnerIndex: 0}
	b := Ref{SourceIndex: 0, InnerIndex: 1}

	MergeSymbols(symbols, a, b)
	MergeSymbols(symbols, b, a)

	assert.Equal(t, FollowSymbols(symbols, a), FollowSymbols(symbols, b))
}

func TestFollowAllSymbolsCompressesPaths(t *testing.T) {
	symbols := newTestSymbols(3)
	refs := []Ref{{0, 0}, {0, 1}, {0, 2}}
	MergeSymbols(symbols, refs[0], refs[1])
	MergeSymbols(symbols, refs[1], refs[2])

	FollowAllSymbols(symbols)
	assert.Equal(t, refs[2], symbols.Get(refs[0]).Link)
	assert.Equal(t, refs[2], symbols.Get(refs[1]).Link)
	assert.Equal(t, InvalidRef, symbols.Get(refs[2]).Link)
}

func TestMergeSymbolsPropagatesMustNotBeRenamed(t *testing.T) {
	symbols := newTestSymbols(2)
	old := Ref{0, 0}
	new := Ref{0, 1}
	symbols.Get(old).MustNotBeRenamed = true
	MergeSymbols(symbols, old, new)
	assert.True(t, symbols.Get(new).MustNotBeRenamed)
}
