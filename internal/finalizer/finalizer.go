package finalizer

// The finalizer is the last step before printing. It takes the linked module
// graph and rewrites the tree of every module into the exact statements that
// end up in the output file:
//
//   - import and export syntax is removed or replaced with runtime calls
//   - every identifier is renamed to its bundle-wide canonical name
//   - "require()" and "import()" calls are pointed at the bundled code
//   - modules that are evaluated lazily are wrapped in a closure
//
// All cross-module decisions were made by the linker. Modules don't depend on
// each other at this stage, so each one is finalized by an independent task.

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/bundlekit/finalizer/internal/ast"
	"github.com/bundlekit/finalizer/internal/graph"
	"github.com/bundlekit/finalizer/internal/helpers"
	"github.com/bundlekit/finalizer/internal/renamer"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	// The maximum number of modules finalized at once. Zero means one per CPU.
	Workers int

	// Walk every finalized tree afterward and fail if any identifier was not
	// visited by the reference rewriter
	Validate bool

	Logger *zap.Logger
}

// An internal-consistency fault inside the finalization of one module. These
// are bugs in an earlier phase or in the finalizer itself, never user errors.
type InternalError struct {
	Module string
	Panic  interface{}
	Stack  string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("Internal error while finalizing %q: %v", e.Module, e.Panic)
}

// FinalizeAll rewrites every reachable module of the graph in place. Modules
// are finalized in parallel. A fault in one module does not stop the others,
// and all faults are returned together.
//
// The symbol map must be fully path-compressed with "ast.FollowAllSymbols"
// before calling this, since it is read from many goroutines at once.
func FinalizeAll(ctx context.Context, g *graph.Graph, r renamer.Renamer, options Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	log := options.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := options.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var group errgroup.Group
	group.SetLimit(workers)

	var mutex sync.Mutex
	var errs error
	fail := func(err error) {
		mutex.Lock()
		errs = multierr.Append(errs, err)
		mutex.Unlock()
	}

	for _, sourceIndex := range g.ReachableModules {
		sourceIndex := sourceIndex
		group.Go(func() error {
			// The stage may only be abandoned before a task starts
			if ctx.Err() != nil {
				return nil
			}
			if err := finalizeModuleRecovered(g, r, sourceIndex, log); err != nil {
				fail(err)
				return nil
			}
			if options.Validate {
				if err := CheckNoPendingSymbols(&g.Modules[sourceIndex]); err != nil {
					log.Error("finalized module failed validation",
						zap.String("module", g.Modules[sourceIndex].Source.PrettyPath),
						zap.Error(err))
					fail(err)
				}
			}
			return nil
		})
	}

	// Tasks never return an error themselves, they report through "fail"
	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

func finalizeModuleRecovered(g *graph.Graph, r renamer.Renamer, sourceIndex uint32, log *zap.Logger) (err error) {
	module := &g.Modules[sourceIndex]
	defer func() {
		if recovered := recover(); recovered != nil {
			stack := helpers.PrettyPrintedStack()
			log.Error("internal error while finalizing module",
				zap.String("module", module.Source.PrettyPath),
				zap.Any("panic", recovered),
				zap.String("stack", stack))
			err = &InternalError{Module: module.Source.PrettyPath, Panic: recovered, Stack: stack}
		}
	}()
	FinalizeModule(g, r, sourceIndex, log)
	return nil
}

// FinalizeModule rewrites a single module. It panics on internal-consistency
// faults. Only the tree of this module is written to.
func FinalizeModule(g *graph.Graph, r renamer.Renamer, sourceIndex uint32, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	f := &finalizer{
		graph:   g,
		module:  &g.Modules[sourceIndex],
		renamer: r,
		log:     log,
	}

	stmtsIn := len(f.module.AST.Stmts)
	stmts := f.convertStmts()
	f.visitStmts(stmts)
	stmts = f.wrapIfNeeded(stmts)
	f.module.AST.Stmts = stmts

	log.Debug("finalized module",
		zap.String("module", f.module.Source.PrettyPath),
		zap.Stringer("exports", f.module.ExportsKind),
		zap.Stringer("wrap", f.module.Link.Wrap),
		zap.Int("stmts_in", stmtsIn),
		zap.Int("stmts_out", len(stmts)))
}

// Per-module state for one finalization task. Everything except the module's
// own tree is shared with other tasks and is only read.
type finalizer struct {
	graph   *graph.Graph
	module  *graph.Module
	renamer renamer.Renamer
	log     *zap.Logger
}

func (f *finalizer) nameFor(ref ast.Ref) string {
	return f.renamer.NameForSymbol(ref)
}

func (f *finalizer) localRef(id ast.Index32) ast.Ref {
	return f.module.Ref(id)
}

// Runtime helpers are ordinary top-level symbols of the runtime module, so
// they are renamed like everything else if user code takes their names
func (f *finalizer) runtimeName(name string) string {
	runtimeModule := &f.graph.Modules[f.graph.RuntimeSourceIndex]
	id, ok := runtimeModule.AST.ModuleScope.Members[name]
	if !ok {
		panic(fmt.Sprintf("Internal error: missing runtime helper %q", name))
	}
	return f.nameFor(runtimeModule.Ref(id))
}

func (f *finalizer) wrapperName(module *graph.Module) string {
	if !module.Link.WrapperRef.IsValid() {
		panic(fmt.Sprintf("Internal error: %q is not wrapped", module.Source.PrettyPath))
	}
	return f.nameFor(module.Link.WrapperRef)
}
