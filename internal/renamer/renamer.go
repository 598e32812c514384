package renamer

import (
	"strconv"
	"sync"

	"github.com/bundlekit/finalizer/internal/ast"
	"github.com/bundlekit/finalizer/internal/js_ast"
	"github.com/bundlekit/finalizer/internal/js_lexer"
)

// Names that no symbol may be renamed to: keywords, strict mode reserved
// words, globals referenced by any module, and names that are pinned
func ComputeReservedNames(unboundNames [][]string, pinnedNames []string) map[string]uint32 {
	names := make(map[string]uint32)

	// All keywords and strict mode reserved words are reserved names
	for k := range js_lexer.Keywords {
		names[k] = 1
	}
	for k := range js_lexer.StrictModeReservedWords {
		names[k] = 1
	}

	// All unbound symbols must be reserved names
	for _, list := range unboundNames {
		for _, name := range list {
			names[name] = 1
		}
	}
	for _, name := range pinnedNames {
		names[name] = 1
	}

	return names
}

type Renamer interface {
	NameForSymbol(ref ast.Ref) string
}

////////////////////////////////////////////////////////////////////////////////
// NumberRenamer

// Gives every symbol a name that is unique across the bundle. Collisions are
// resolved by appending "$1", "$2", and so on to the original name. Top-level
// symbols must be added in a deterministic order, since that order decides
// which symbol keeps its original name.
type NumberRenamer struct {
	symbols ast.SymbolMap
	names   [][]string
	root    numberScope
}

func NewNumberRenamer(symbols ast.SymbolMap, reservedNames map[string]uint32) *NumberRenamer {
	if reservedNames == nil {
		reservedNames = make(map[string]uint32)
	}
	return &NumberRenamer{
		symbols: symbols,
		names:   make([][]string, len(symbols.SymbolsForSource)),
		root:    numberScope{nameCounts: reservedNames},
	}
}

func (r *NumberRenamer) NameForSymbol(ref ast.Ref) string {
	ref = ast.FollowSymbols(r.symbols, ref)
	if inner := r.names[ref.SourceIndex]; inner != nil {
		if name := inner[ref.InnerIndex]; name != "" {
			return name
		}
	}
	return r.symbols.Get(ref).OriginalName
}

func (r *NumberRenamer) AddTopLevelSymbol(ref ast.Ref) {
	r.assignName(&r.root, ref)
}

func (r *NumberRenamer) assignName(scope *numberScope, ref ast.Ref) {
	ref = ast.FollowSymbols(r.symbols, ref)

	// Don't rename the same symbol more than once
	inner := r.names[ref.SourceIndex]
	if inner != nil && inner[ref.InnerIndex] != "" {
		return
	}

	// Don't rename unbound symbols or symbols marked as reserved names. Symbols
	// with a namespace alias are always printed as a property access, so they
	// never need a name of their own.
	symbol := r.symbols.Get(ref)
	if symbol.Kind == ast.SymbolUnbound || symbol.MustNotBeRenamed || symbol.NamespaceAlias != nil {
		return
	}

	// Compute a new name
	name := scope.findUnusedName(symbol.OriginalName)

	// Store the new name
	if inner == nil {
		// This is not a data race even though nested scopes are renamed from
		// separate goroutines. Only symbols from one module's nested scopes are
		// ever touched by a given goroutine, and each module has its own slice.
		inner = make([]string, len(r.symbols.SymbolsForSource[ref.SourceIndex]))
		r.names[ref.SourceIndex] = inner
	}
	inner[ref.InnerIndex] = name
}

func (r *NumberRenamer) assignNamesRecursive(scope *js_ast.Scope, sourceIndex uint32, parent *numberScope) {
	s := &numberScope{parent: parent, nameCounts: make(map[string]uint32)}

	// "Ordered" is in declaration order, which is deterministic
	for _, id := range scope.Ordered {
		r.assignName(s, ast.Ref{SourceIndex: sourceIndex, InnerIndex: id.GetIndex()})
	}

	// Symbols in child scopes may also have to be renamed to avoid conflicts
	for _, child := range scope.Children {
		r.assignNamesRecursive(child, sourceIndex, s)
	}
}

// Renames the symbols in the nested scopes of each module. All top-level
// symbols must have been added first, since the root scope is shared by all
// goroutines here and is only read from then on.
func (r *NumberRenamer) AssignNamesByScope(nestedScopes map[uint32][]*js_ast.Scope) {
	waitGroup := sync.WaitGroup{}
	waitGroup.Add(len(nestedScopes))

	// Rename nested scopes from separate files in parallel
	for sourceIndex, scopes := range nestedScopes {
		go func(sourceIndex uint32, scopes []*js_ast.Scope) {
			for _, scope := range scopes {
				r.assignNamesRecursive(scope, sourceIndex, &r.root)
			}
			waitGroup.Done()
		}(sourceIndex, scopes)
	}

	waitGroup.Wait()
}

type numberScope struct {
	parent *numberScope

	// This is used as a set of used names in this scope. This also maps the name
	// to the number of times the name has experienced a collision. When a name
	// collides with an already-used name, we need to rename it. This is done by
	// incrementing a number at the end until the name is unused. We save the
	// count here so that subsequent collisions can start counting from where the
	// previous collision ended instead of having to start counting from 1.
	nameCounts map[string]uint32
}

type nameUse uint8

const (
	nameUnused nameUse = iota
	nameUsed
	nameUsedInSameScope
)

func (s *numberScope) findNameUse(name string) nameUse {
	original := s
	for {
		if _, ok := s.nameCounts[name]; ok {
			if s == original {
				return nameUsedInSameScope
			}
			return nameUsed
		}
		s = s.parent
		if s == nil {
			return nameUnused
		}
	}
}

func (s *numberScope) findUnusedName(name string) string {
	if use := s.findNameUse(name); use != nameUnused {
		// If the name is already in use, generate a new name by appending a number
		tries := uint32(0)
		if use == nameUsedInSameScope {
			// To avoid O(n^2) behavior, the number must start off being the number
			// that we used last time there was a collision with this name. Only do
			// this if this symbol comes from the same scope as the previous one
			// since sibling scopes can reuse the same name without problems.
			tries = s.nameCounts[name] - 1
		}
		prefix := name

		// Keep incrementing the number until the name is unused
		for {
			tries++
			name = prefix + "$" + strconv.Itoa(int(tries))

			// Make sure this new name is unused
			if s.findNameUse(name) == nameUnused {
				// Store the count so we can start here next time instead of starting
				// from 1. This means we avoid O(n^2) behavior.
				if use == nameUsedInSameScope {
					s.nameCounts[prefix] = tries + 1
				}
				break
			}
		}
	}

	// Each name starts off with a count of 1 so that the first collision with
	// "name" is called "name$1"
	s.nameCounts[name] = 1
	return name
}
