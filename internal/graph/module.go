package graph

import (
	"github.com/bundlekit/finalizer/internal/ast"
	"github.com/bundlekit/finalizer/internal/js_ast"
	"github.com/bundlekit/finalizer/internal/logger"
)

type ExportsKind uint8

const (
	// This file doesn't have any kind of export, so it's impossible to say what
	// kind of file this is. An empty file is in this category, for example.
	ExportsNone ExportsKind = iota

	// The exports are stored on "module" and/or "exports". Calling "require()"
	// on this module returns "module.exports". All imports to this module are
	// allowed but may return undefined.
	ExportsCommonJS

	// All export names are known explicitly. Calling "require()" on this module
	// generates an exports object (stored in "exports") with getters for the
	// export names. Named imports to this module are only allowed if they are
	// in the set of export names.
	ExportsESM
)

func (kind ExportsKind) String() string {
	switch kind {
	case ExportsCommonJS:
		return "cjs"
	case ExportsESM:
		return "esm"
	default:
		return "none"
	}
}

// One entry per top-level statement. The entry at index 0 stands for the
// namespace object of the module and never corresponds to a real statement.
// Wrapped modules have one more entry at the end for the wrapper.
type StmtInfo struct {
	// Index into "AST.Stmts". This is invalid for the namespace entry and the
	// wrapper entry.
	StmtIndex ast.Index32

	// Set by tree shaking before the finalizer runs and never changed after
	IsIncluded bool
}

type Module struct {
	Source logger.Source

	// The finalizer rewrites this tree in place. Symbols live in the graph's
	// symbol map instead of "AST.Symbols" so all modules can share them.
	AST js_ast.AST

	StmtInfos   []StmtInfo
	ExportsKind ExportsKind
	Link        LinkingInfo

	EntryPointKind EntryPointKind

	// The runtime helpers are compiled as an ordinary module
	IsRuntime bool
}

// Converts a module-local symbol id into a bundle-wide ref
func (m *Module) Ref(id ast.Index32) ast.Ref {
	if !id.IsValid() {
		return ast.InvalidRef
	}
	return ast.Ref{SourceIndex: m.Source.Index, InnerIndex: id.GetIndex()}
}

func (m *Module) NamespaceRef() ast.Ref {
	return m.Ref(m.AST.NamespaceRef)
}

func (m *Module) DefaultRef() ast.Ref {
	return m.Ref(m.AST.DefaultRef)
}

// Returns the import record created by the statement, "require" call, or
// "import()" expression at this location
func (m *Module) ImportRecordAt(loc logger.Loc) (*ast.ImportRecord, bool) {
	if index, ok := m.AST.ImportRecordsByLoc[loc]; ok {
		return &m.AST.ImportRecords[index], true
	}
	return nil, false
}
