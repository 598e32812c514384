package graph

// The code in this file represents data that passes from the scan phase to
// the link phase of the bundler. Everything in here is produced by parsing a
// single file and doesn't depend on any other file.

import (
	"github.com/bundlekit/finalizer/internal/js_ast"
	"github.com/bundlekit/finalizer/internal/logger"
)

type InputFile struct {
	Source logger.Source
	AST    js_ast.AST

	// Indices of top-level statements that tree shaking removed. Statements
	// not in this set are included.
	ExcludedStmts map[uint32]bool

	IsRuntime bool
}
