package graph

import (
	"github.com/bundlekit/finalizer/internal/ast"
	"github.com/bundlekit/finalizer/internal/js_ast"
)

type EntryPointKind uint8

const (
	EntryPointNone EntryPointKind = iota
	EntryPointUserSpecified
	EntryPointDynamicImport
)

// This is the read-only snapshot handed to the finalizer. Each module's tree is
// owned by the task finalizing it. Everything else is shared between tasks and
// must not be written to once finalization starts.
type Graph struct {
	Modules []Module
	Symbols ast.SymbolMap
	Chunks  ChunkGraph

	// We should avoid traversing all modules in the bundle. This holds all
	// modules that could possibly be reached through the entry points. If you
	// need to iterate over all modules, iterate over this array. This array is
	// also sorted in a deterministic ordering to help ensure deterministic
	// builds. The runtime always comes first.
	ReachableModules []uint32

	// This maps from source index to stable reachable module index. This is
	// useful as a deterministic key for sorting if you need to sort something
	// containing a source index (such as "ast.Ref" symbol references).
	StableSourceIndices []uint32

	RuntimeSourceIndex uint32
}

func MakeGraph(
	inputFiles []InputFile,
	reachableFiles []uint32,
) Graph {
	symbols := ast.NewSymbolMap(len(inputFiles))
	modules := make([]Module, len(inputFiles))
	runtimeSourceIndex := ^uint32(0)

	// Clone various things since we may mutate them later
	for _, sourceIndex := range reachableFiles {
		file := inputFiles[sourceIndex]
		tree := file.AST

		// Clone the symbol map
		symbols.SymbolsForSource[sourceIndex] = append([]ast.Symbol{}, tree.Symbols...)
		tree.Symbols = nil

		// Clone the import records
		tree.ImportRecords = append([]ast.ImportRecord{}, tree.ImportRecords...)

		// Clone the top-level statements so the finalizer doesn't change the
		// slice seen by the caller
		tree.Stmts = append([]js_ast.Stmt{}, tree.Stmts...)

		// The namespace pseudo-statement is included until tree shaking says
		// otherwise
		stmtInfos := make([]StmtInfo, 0, len(tree.Stmts)+1)
		stmtInfos = append(stmtInfos, StmtInfo{})
		for i := range tree.Stmts {
			stmtInfos = append(stmtInfos, StmtInfo{
				StmtIndex:  ast.MakeIndex32(uint32(i)),
				IsIncluded: !file.ExcludedStmts[uint32(i)],
			})
		}

		if file.IsRuntime {
			runtimeSourceIndex = sourceIndex
		}

		modules[sourceIndex] = Module{
			Source:    file.Source,
			AST:       tree,
			StmtInfos: stmtInfos,
			IsRuntime: file.IsRuntime,
			Link:      LinkingInfo{WrapperRef: ast.InvalidRef},
		}
	}

	// Create a way to convert source indices to a stable ordering
	stableSourceIndices := make([]uint32, len(inputFiles))
	for stableIndex, sourceIndex := range reachableFiles {
		stableSourceIndices[sourceIndex] = uint32(stableIndex)
	}

	return Graph{
		Modules:             modules,
		Symbols:             symbols,
		ReachableModules:    reachableFiles,
		StableSourceIndices: stableSourceIndices,
		RuntimeSourceIndex:  runtimeSourceIndex,
	}
}

// Returns the module an import record points at, or nil for external imports
func (g *Graph) ModuleForRecord(record *ast.ImportRecord) *Module {
	if !record.SourceIndex.IsValid() {
		return nil
	}
	return &g.Modules[record.SourceIndex.GetIndex()]
}

// Follows the symbol links to the canonical symbol. This only reads once
// "ast.FollowAllSymbols" has run, so it's safe to call from many goroutines.
func (g *Graph) Canonical(ref ast.Ref) (ast.Ref, *ast.Symbol) {
	ref = ast.FollowSymbols(g.Symbols, ref)
	return ref, g.Symbols.Get(ref)
}
