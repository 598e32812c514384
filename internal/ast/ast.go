package ast

// This file contains data structures that are shared between the syntax tree,
// the module graph, and the finalizer. Symbols live here instead of in the
// syntax tree package so that the graph can canonicalize them without touching
// any tree.

import (
	"strings"

	"github.com/bundlekit/finalizer/internal/logger"
)

type ImportKind uint8

const (
	// An entry point provided by the user
	ImportEntryPoint ImportKind = iota

	// An ES6 import or re-export statement
	ImportStmt

	// A call to "require()"
	ImportRequire

	// An "import()" expression with a string argument
	ImportDynamic
)

func (kind ImportKind) String() string {
	switch kind {
	case ImportEntryPoint:
		return "entry-point"
	case ImportStmt:
		return "import-statement"
	case ImportRequire:
		return "require-call"
	case ImportDynamic:
		return "dynamic-import"
	default:
		panic("Internal error")
	}
}

type ImportRecordFlags uint8

const (
	// If this is true, the import contains syntax like "* as ns". A star import
	// of an ES module forces that module's namespace object to exist.
	ContainsImportStar ImportRecordFlags = 1 << iota

	// If this is true, the import contains an import for the alias "default",
	// either via the "import x from" or "import {default as x} from" syntax.
	ContainsDefaultAlias

	// If true, this was originally written as a bare "import 'file'" statement
	WasOriginallyBareImport

	// If true, this is an "export * from 'path'" statement without an alias
	IsExportStar
)

func (flags ImportRecordFlags) Has(flag ImportRecordFlags) bool {
	return (flags & flag) != 0
}

type ImportRecord struct {
	Path  logger.Path
	Range logger.Range

	// The resolved source index for an internal import (within the bundle) or
	// invalid for an external import (not included in the bundle)
	SourceIndex Index32

	// This is the symbol that holds the result of evaluating the imported module
	// when the import can't be inlined. Only statement-level imports have one.
	NamespaceRef Ref

	Flags ImportRecordFlags
	Kind  ImportKind
}

// This stores a 32-bit index where the zero value is an invalid index. This is
// a better alternative to storing the index as a pointer since that has the
// same properties but takes up more space and costs an extra pointer traversal.
type Index32 struct {
	flippedBits uint32
}

func MakeIndex32(index uint32) Index32 {
	return Index32{flippedBits: ^index}
}

func (i Index32) IsValid() bool {
	return i.flippedBits != 0
}

func (i Index32) GetIndex() uint32 {
	return ^i.flippedBits
}

var InvalidRef Ref = Ref{^uint32(0), ^uint32(0)}

// Files are parsed in parallel for speed. We want to allow each parser to
// generate symbol IDs that won't conflict with each other. We also want to be
// able to quickly merge symbol tables from all files into one giant symbol
// table.
//
// We can accomplish both goals by giving each symbol ID two parts: a source
// index that is unique to the parser goroutine, and an inner index that
// increments as the parser generates new symbol IDs. Then a symbol map can
// be an array of arrays indexed first by source index, then by inner index.
type Ref struct {
	SourceIndex uint32
	InnerIndex  uint32
}

func (ref Ref) IsValid() bool {
	return ref != InvalidRef
}

type SymbolKind uint8

const (
	// An unbound symbol is one that isn't declared in the file it's referenced
	// in. For example, using "window" without declaring it will be unbound.
	SymbolUnbound SymbolKind = iota

	// These are hoisted to the closest function or module scope: function
	// arguments, function statements, and variables declared using "var".
	SymbolHoisted
	SymbolHoistedFunction

	SymbolClass

	// An item in the clause of an import statement. These are merged with the
	// symbol they import during linking.
	SymbolImport

	// Assigning to a "const" symbol will throw a TypeError at runtime
	SymbolConst

	// Symbols created by the bundler instead of the source code, such as the
	// namespace object or the lazy wrapper of a module
	SymbolGenerated

	// This annotates all other symbols that don't have special behavior.
	SymbolOther
)

func (kind SymbolKind) IsHoisted() bool {
	return kind == SymbolHoisted || kind == SymbolHoistedFunction
}

type NamespaceAlias struct {
	NamespaceRef Ref
	Alias        string
}

type Symbol struct {
	// This is the name that came from the parser. Canonical names may differ
	// to avoid name collisions. Do not use the original name for output.
	OriginalName string

	// This is used for imports that can't be bound statically, for example
	// imports of CommonJS modules. References to a symbol with an alias must
	// be rewritten to a property access off of the namespace.
	//
	// For correctness this lives on the symbol and not on the reference. Once
	// import items are merged with the symbols they import, every reference
	// that ends up at this symbol must see the alias.
	NamespaceAlias *NamespaceAlias

	// Symbols that have been merged form a linked-list where the last link is
	// the symbol to use. This link is an invalid ref if it's the last link. If
	// this isn't invalid, you need to FollowSymbols to get the real one.
	Link Ref

	Kind SymbolKind

	// Certain symbols must not be renamed. For example, unbound globals keep
	// their names because the environment defines them.
	MustNotBeRenamed bool
}

type SymbolMap struct {
	// This could be represented as a "map[Ref]Symbol" but a two-level array is
	// more efficient. This representation also makes it trivial to merge the
	// symbol tables of separately-parsed files together.
	SymbolsForSource [][]Symbol
}

func NewSymbolMap(sourceCount int) SymbolMap {
	return SymbolMap{make([][]Symbol, sourceCount)}
}

func (sm SymbolMap) Get(ref Ref) *Symbol {
	return &sm.SymbolsForSource[ref.SourceIndex][ref.InnerIndex]
}

// Returns the canonical ref that represents the ref for the provided symbol.
// This may not be the provided ref if the symbol has been merged with another
// symbol.
func FollowSymbols(symbols SymbolMap, ref Ref) Ref {
	symbol := symbols.Get(ref)
	if symbol.Link == InvalidRef {
		return ref
	}

	link := FollowSymbols(symbols, symbol.Link)

	// Only write if needed to avoid concurrent map update hazards
	if symbol.Link != link {
		symbol.Link = link
	}

	return link
}

// Use this before calling "FollowSymbols" from separate goroutines to avoid
// concurrent update hazards. Calling "FollowAllSymbols" first ensures that
// all path compression is done up front, after which "FollowSymbols" never
// writes.
func FollowAllSymbols(symbols SymbolMap) {
	for sourceIndex, inner := range symbols.SymbolsForSource {
		for symbolIndex := range inner {
			FollowSymbols(symbols, Ref{uint32(sourceIndex), uint32(symbolIndex)})
		}
	}
}

// Makes "old" point to "new" by joining the linked lists for the two symbols
// together. That way "FollowSymbols" on both "old" and "new" will result in
// the same ref.
func MergeSymbols(symbols SymbolMap, old Ref, new Ref) Ref {
	if old == new {
		return new
	}

	oldSymbol := symbols.Get(old)
	if oldSymbol.Link != InvalidRef {
		oldSymbol.Link = MergeSymbols(symbols, oldSymbol.Link, new)
		return oldSymbol.Link
	}

	newSymbol := symbols.Get(new)
	if newSymbol.Link != InvalidRef {
		newSymbol.Link = MergeSymbols(symbols, old, newSymbol.Link)
		return newSymbol.Link
	}

	oldSymbol.Link = new
	if oldSymbol.MustNotBeRenamed {
		newSymbol.MustNotBeRenamed = true
	}
	return new
}

// This has a custom implementation instead of using "filepath.Dir/Base/Ext"
// because it should work the same on Unix and Windows. These names end up in
// the generated output and the generated output should not depend on the OS.
func PlatformIndependentPathDirBaseExt(path string) (dir string, base string, ext string) {
	for {
		i := strings.LastIndexAny(path, "/\\")

		// Stop if there are no more slashes
		if i < 0 {
			base = path
			break
		}

		// Stop if we found a non-trailing slash
		if i+1 != len(path) {
			dir, base = path[:i], path[i+1:]
			break
		}

		// Ignore trailing slashes
		path = path[:i]
	}

	// Strip off the extension
	if dot := strings.LastIndexByte(base, '.'); dot >= 0 {
		base, ext = base[:dot], base[dot:]
	}

	return
}

// For readability, the names of generated symbols are derived from the file
// name. For example, instead of the CommonJS wrapper for a file being called
// something like "require273" it is called "require_react" instead.
//
// These names have nothing to do with avoiding collisions. They still go
// through the renamer like every other symbol.
func GenerateNonUniqueNameFromPath(path string) string {
	// Get the file name without the extension
	dir, base, _ := PlatformIndependentPathDirBaseExt(path)

	// If the name is "index", use the directory name instead. Many packages
	// use "index.js" because node resolves a directory import to it.
	if base == "index" {
		_, dirBase, _ := PlatformIndependentPathDirBaseExt(dir)
		if dirBase != "" {
			base = dirBase
		}
	}

	// Convert it to an ASCII identifier
	bytes := []byte{}
	needsGap := false
	for _, c := range base {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (len(bytes) > 0 && c >= '0' && c <= '9') {
			if needsGap {
				bytes = append(bytes, '_')
				needsGap = false
			}
			bytes = append(bytes, byte(c))
		} else if len(bytes) > 0 {
			needsGap = true
		}
	}

	// Make sure the name isn't empty
	if len(bytes) == 0 {
		return "_"
	}
	return string(bytes)
}
