package bundler

// The linker runs after every file has been scanned. It makes all decisions
// that involve more than one module: what kind of exports each module has,
// which modules have to be evaluated lazily, what each import binds to, which
// runtime helpers are needed, and which chunk each module goes in. The result
// is a graph that the finalizer can process one module at a time.

import (
	"fmt"
	"sort"

	"github.com/bundlekit/finalizer/internal/ast"
	"github.com/bundlekit/finalizer/internal/config"
	"github.com/bundlekit/finalizer/internal/graph"
	"github.com/bundlekit/finalizer/internal/helpers"
	"github.com/bundlekit/finalizer/internal/js_ast"
	"github.com/bundlekit/finalizer/internal/logger"
	"github.com/bundlekit/finalizer/internal/renamer"
	"github.com/bundlekit/finalizer/internal/runtime"
	"go.uber.org/zap"
)

type linkerContext struct {
	options     *config.Options
	log         logger.Log
	zlog        *zap.Logger
	graph       graph.Graph
	entryPoints []uint32
	renamer     renamer.Renamer

	// This is only used while linking and is indexed by source index
	linkMeta []linkMeta

	// The index of every runtime statement that survives finalization, in
	// order. The runtime is never wrapped, so the finalized runtime has
	// exactly one statement for each of these.
	runtimeStmtOrder []int

	// Which runtime statements each chunk prints, indexed by chunk
	chunkRuntimeStmts [][]bool
}

type exportsState uint8

const (
	exportsUnresolved exportsState = iota
	exportsResolving
	exportsResolved
)

type linkMeta struct {
	// All exports of the module including the ones from "export * from",
	// keyed by alias
	resolvedExports map[string]graph.ExportEntry
	exportsState    exportsState

	// Reasons why the namespace object of a module has to exist at run time
	isStarImported bool
	isAliasTarget  bool

	// The runtime helpers that the finalized module will reference
	runtimeHelpers map[string]bool
}

func newLinkerContext(options *config.Options, log logger.Log, zlog *zap.Logger, files []graph.InputFile, entryPoints []uint32) *linkerContext {
	c := &linkerContext{
		options:     options,
		log:         log,
		zlog:        zlog,
		entryPoints: append([]uint32{}, entryPoints...),
		linkMeta:    make([]linkMeta, len(files)),
	}
	c.graph = graph.MakeGraph(files, c.computeReachableFiles(files))

	for _, sourceIndex := range c.entryPoints {
		c.graph.Modules[sourceIndex].EntryPointKind = graph.EntryPointUserSpecified
	}
	return c
}

// Files are ordered so that dependencies come before the files that import
// them, starting with the runtime. This order decides which symbols keep
// their original names, so it must not depend on goroutine scheduling.
func (c *linkerContext) computeReachableFiles(files []graph.InputFile) []uint32 {
	visited := make(map[uint32]bool)
	order := []uint32{}

	var visit func(uint32)
	visit = func(sourceIndex uint32) {
		if visited[sourceIndex] {
			return
		}
		visited[sourceIndex] = true
		for _, record := range files[sourceIndex].AST.ImportRecords {
			if record.SourceIndex.IsValid() {
				visit(record.SourceIndex.GetIndex())
			}
		}
		order = append(order, sourceIndex)
	}

	visit(runtime.SourceIndex)
	for _, entryPoint := range c.entryPoints {
		visit(entryPoint)
	}
	return order
}

func (c *linkerContext) link() {
	c.determineExportsKinds()
	c.determineWraps()
	c.bindImports()
	if c.log.HasErrors() {
		return
	}
	c.computeSortedExports()
	c.markNamespaceObjects()
	c.includeRuntimeHelpers()
	c.computeChunks()
	c.renamer = c.renameSymbols()

	// The finalizer reads symbols from many goroutines, so all path
	// compression has to happen now
	ast.FollowAllSymbols(c.graph.Symbols)
}

func (c *linkerContext) moduleForRecord(record *ast.ImportRecord) (uint32, *graph.Module) {
	if !record.SourceIndex.IsValid() {
		return 0, nil
	}
	sourceIndex := record.SourceIndex.GetIndex()
	return sourceIndex, &c.graph.Modules[sourceIndex]
}

////////////////////////////////////////////////////////////////////////////////
// Module kinds

func (c *linkerContext) determineExportsKinds() {
	for _, sourceIndex := range c.graph.ReachableModules {
		module := &c.graph.Modules[sourceIndex]
		switch {
		case module.IsRuntime || module.AST.HasESMSyntax:
			module.ExportsKind = graph.ExportsESM
		case module.AST.UsesCommonJSVars:
			module.ExportsKind = graph.ExportsCommonJS
		}
	}

	// A module with no exports takes on the kind of its first importer. It's
	// CommonJS if it's required and ESM if it's imported.
	for _, sourceIndex := range c.graph.ReachableModules {
		module := &c.graph.Modules[sourceIndex]
		for i := range module.AST.ImportRecords {
			record := &module.AST.ImportRecords[i]
			_, other := c.moduleForRecord(record)
			if other == nil {
				continue
			}

			if record.Kind == ast.ImportDynamic && other.EntryPointKind == graph.EntryPointNone {
				other.EntryPointKind = graph.EntryPointDynamicImport
			}

			if other.ExportsKind == graph.ExportsNone {
				if record.Kind == ast.ImportRequire {
					other.ExportsKind = graph.ExportsCommonJS
				} else {
					other.ExportsKind = graph.ExportsESM
				}
				c.zlog.Debug("module kind inferred from importer",
					zap.String("module", other.Source.PrettyPath),
					zap.String("importer", module.Source.PrettyPath),
					zap.Stringer("kind", other.ExportsKind))
			}
		}
	}
}

func (c *linkerContext) determineWraps() {
	for _, sourceIndex := range c.graph.ReachableModules {
		module := &c.graph.Modules[sourceIndex]
		if module.ExportsKind == graph.ExportsCommonJS {
			module.Link.Wrap = graph.WrapCJS
		}
	}

	// An ES module that is required has to be evaluated at the point of the
	// "require" call instead of up front. So do all of the modules it imports,
	// or they would be evaluated before it even though they come after it.
	var wrapESM func(sourceIndex uint32)
	wrapESM = func(sourceIndex uint32) {
		module := &c.graph.Modules[sourceIndex]
		if module.Link.Wrap != graph.WrapNone || module.IsRuntime {
			return
		}
		module.Link.Wrap = graph.WrapESM
		for i := range module.AST.ImportRecords {
			record := &module.AST.ImportRecords[i]
			if record.Kind != ast.ImportStmt {
				continue
			}
			if otherIndex, other := c.moduleForRecord(record); other != nil {
				wrapESM(otherIndex)
			}
		}
	}
	for _, sourceIndex := range c.graph.ReachableModules {
		module := &c.graph.Modules[sourceIndex]
		for i := range module.AST.ImportRecords {
			record := &module.AST.ImportRecords[i]
			if record.Kind != ast.ImportRequire {
				continue
			}
			if otherIndex, other := c.moduleForRecord(record); other != nil && other.ExportsKind != graph.ExportsCommonJS {
				wrapESM(otherIndex)
			}
		}
	}

	for _, sourceIndex := range c.graph.ReachableModules {
		module := &c.graph.Modules[sourceIndex]
		if module.Link.Wrap == graph.WrapNone {
			continue
		}

		module.Link.WrapperRef = module.Ref(module.AST.WrapperRef)
		if module.Link.Wrap == graph.WrapCJS {
			c.graph.Symbols.Get(module.Link.WrapperRef).OriginalName = "require_" + module.Source.IdentifierName
		}

		// The wrapper gets its own statement entry so that tree shaking can
		// treat it like any other statement
		module.Link.WrapperStmtInfo = ast.MakeIndex32(uint32(len(module.StmtInfos)))
		module.StmtInfos = append(module.StmtInfos, graph.StmtInfo{IsIncluded: true})

		c.zlog.Debug("module is wrapped",
			zap.String("module", module.Source.PrettyPath),
			zap.Stringer("wrap", module.Link.Wrap))
	}
}

////////////////////////////////////////////////////////////////////////////////
// Exports

// Returns every export of the module including those that come from
// "export * from". Exports that can't be known at build time because they
// come from a CommonJS or external module mark the module as having dynamic
// exports instead.
func (c *linkerContext) resolveExports(sourceIndex uint32) map[string]graph.ExportEntry {
	meta := &c.linkMeta[sourceIndex]
	switch meta.exportsState {
	case exportsResolved:
		return meta.resolvedExports
	case exportsResolving:
		// "export * from" cycles contribute nothing new
		return nil
	}
	meta.exportsState = exportsResolving

	module := &c.graph.Modules[sourceIndex]
	exports := make(map[string]graph.ExportEntry, len(module.AST.NamedExports))
	for alias, export := range module.AST.NamedExports {
		exports[alias] = graph.ExportEntry{Alias: alias, Ref: module.Ref(export.SymbolID)}
	}

	// Local exports shadow star exports, and earlier star exports shadow
	// later ones
	for _, recordIndex := range module.AST.ExportStars {
		record := &module.AST.ImportRecords[recordIndex]
		otherIndex, other := c.moduleForRecord(record)
		if other == nil || other.ExportsKind == graph.ExportsCommonJS {
			module.Link.HasDynamicExports = true
			continue
		}
		for alias, entry := range c.resolveExports(otherIndex) {
			if _, ok := exports[alias]; !ok && alias != "default" {
				exports[alias] = graph.ExportEntry{Alias: alias, Ref: entry.Ref}
			}
		}
		if other.Link.HasDynamicExports {
			module.Link.HasDynamicExports = true
		}
	}

	meta.resolvedExports = exports
	meta.exportsState = exportsResolved
	return exports
}

func (c *linkerContext) computeSortedExports() {
	for _, sourceIndex := range c.graph.ReachableModules {
		module := &c.graph.Modules[sourceIndex]
		if module.ExportsKind != graph.ExportsESM || module.IsRuntime {
			continue
		}
		exports := c.resolveExports(sourceIndex)
		sorted := make([]graph.ExportEntry, 0, len(exports))
		for _, entry := range exports {
			sorted = append(sorted, entry)
		}
		sort.Slice(sorted, func(i int, j int) bool {
			return sorted[i].Alias < sorted[j].Alias
		})
		module.Link.SortedExports = sorted
	}
}

////////////////////////////////////////////////////////////////////////////////
// Imports

type importTracker struct {
	sourceIndex uint32
	importID    uint32
}

type importStatus uint8

const (
	// The imported name doesn't exist
	importMissing importStatus = iota

	// The import resolved to an export, which may itself be an import
	importFound

	// The target is CommonJS or external, so the import becomes a property
	// access off of the namespace of the import record
	importCommonJS

	// "import * as ns" of an ES module
	importNamespace

	// The name isn't known at build time but the target has dynamic exports,
	// so the import becomes a property access off of the target's namespace
	importDynamic
)

func (c *linkerContext) bindImports() {
	for _, sourceIndex := range c.graph.ReachableModules {
		module := &c.graph.Modules[sourceIndex]
		if len(module.AST.NamedImports) == 0 {
			continue
		}

		// Sort imports for determinism. Otherwise error messages would be
		// reordered from run to run.
		sortedIDs := make([]uint32, 0, len(module.AST.NamedImports))
		for id := range module.AST.NamedImports {
			sortedIDs = append(sortedIDs, id)
		}
		sort.Slice(sortedIDs, func(i int, j int) bool { return sortedIDs[i] < sortedIDs[j] })

		for _, id := range sortedIDs {
			c.bindImport(sourceIndex, id)
		}
	}
}

func (c *linkerContext) bindImport(sourceIndex uint32, importID uint32) {
	importRef := ast.Ref{SourceIndex: sourceIndex, InnerIndex: importID}
	tracker := importTracker{sourceIndex, importID}
	cycleDetector := tracker
	checkCycle := false

	for {
		// Make sure we avoid infinite loops trying to resolve cycles:
		//
		//   // foo.js
		//   export {a as b} from './foo.js'
		//   export {b as c} from './foo.js'
		//   export {c as a} from './foo.js'
		//
		if !checkCycle {
			checkCycle = true
		} else {
			checkCycle = false
			if cycleDetector == tracker {
				c.addImportError(tracker, "Detected cycle while resolving import %q")
				return
			}
			cycleDetector, _ = c.advanceImportTracker(cycleDetector)
		}

		next, status := c.advanceImportTracker(tracker)
		module := &c.graph.Modules[tracker.sourceIndex]
		namedImport := module.AST.NamedImports[tracker.importID]
		record := &module.AST.ImportRecords[namedImport.ImportRecordIndex]

		switch status {
		case importCommonJS:
			if namedImport.Alias == "*" {
				ast.MergeSymbols(c.graph.Symbols, importRef, record.NamespaceRef)
			} else {
				c.graph.Symbols.Get(importRef).NamespaceAlias = &ast.NamespaceAlias{
					NamespaceRef: record.NamespaceRef,
					Alias:        namedImport.Alias,
				}
			}
			return

		case importNamespace:
			c.linkMeta[next.sourceIndex].isStarImported = true
			ast.MergeSymbols(c.graph.Symbols, importRef, c.graph.Modules[next.sourceIndex].NamespaceRef())
			return

		case importDynamic:
			other := &c.graph.Modules[next.sourceIndex]
			c.linkMeta[next.sourceIndex].isAliasTarget = true
			c.graph.Symbols.Get(importRef).NamespaceAlias = &ast.NamespaceAlias{
				NamespaceRef: other.NamespaceRef(),
				Alias:        namedImport.Alias,
			}
			return

		case importMissing:
			other := &c.graph.Modules[record.SourceIndex.GetIndex()]
			text := fmt.Sprintf("No matching export in %q for import %q", other.Source.PrettyPath, namedImport.Alias)
			var valid []string
			for alias := range c.resolveExports(record.SourceIndex.GetIndex()) {
				valid = append(valid, alias)
			}
			sort.Strings(valid)
			if suggestion, ok := helpers.MakeTypoDetector(valid).MaybeCorrectTypo(namedImport.Alias); ok {
				text += fmt.Sprintf(" (did you mean %q?)", suggestion)
			}
			c.log.AddRangeError(&module.Source, logger.Range{Loc: namedImport.AliasLoc, Len: int32(len(namedImport.Alias))}, text)
			return

		case importFound:
			// Keep following re-exports of imports
			if _, ok := c.graph.Modules[next.sourceIndex].AST.NamedImports[next.importID]; ok {
				tracker = next
				continue
			}
			ast.MergeSymbols(c.graph.Symbols, importRef, ast.Ref{SourceIndex: next.sourceIndex, InnerIndex: next.importID})
			return
		}
	}
}

// Resolves an import by one step
func (c *linkerContext) advanceImportTracker(tracker importTracker) (importTracker, importStatus) {
	module := &c.graph.Modules[tracker.sourceIndex]
	namedImport := module.AST.NamedImports[tracker.importID]
	record := &module.AST.ImportRecords[namedImport.ImportRecordIndex]

	// Use a CommonJS import if this is either a bundled CommonJS file or an
	// external file
	otherIndex, other := c.moduleForRecord(record)
	if other == nil || other.ExportsKind == graph.ExportsCommonJS {
		return importTracker{}, importCommonJS
	}

	if namedImport.Alias == "*" {
		return importTracker{sourceIndex: otherIndex}, importNamespace
	}

	// Match this import up with an export from the imported file
	if export, ok := c.resolveExports(otherIndex)[namedImport.Alias]; ok {
		return importTracker{export.Ref.SourceIndex, export.Ref.InnerIndex}, importFound
	}
	if other.Link.HasDynamicExports {
		return importTracker{sourceIndex: otherIndex}, importDynamic
	}
	return importTracker{}, importMissing
}

func (c *linkerContext) addImportError(tracker importTracker, format string) {
	module := &c.graph.Modules[tracker.sourceIndex]
	namedImport := module.AST.NamedImports[tracker.importID]
	r := logger.Range{Loc: namedImport.AliasLoc, Len: int32(len(namedImport.Alias))}
	c.log.AddRangeError(&module.Source, r, fmt.Sprintf(format, namedImport.Alias))
}

////////////////////////////////////////////////////////////////////////////////
// Namespace objects and runtime helpers

// The namespace object of an ES module only exists if something observes it
func (c *linkerContext) markNamespaceObjects() {
	dynamicStarTargets := make(map[uint32]bool)
	for _, sourceIndex := range c.graph.ReachableModules {
		module := &c.graph.Modules[sourceIndex]
		for _, recordIndex := range module.AST.ExportStars {
			otherIndex, other := c.moduleForRecord(&module.AST.ImportRecords[recordIndex])
			if other != nil && other.ExportsKind == graph.ExportsESM && other.Link.HasDynamicExports {
				dynamicStarTargets[otherIndex] = true
			}
		}
	}

	for _, sourceIndex := range c.graph.ReachableModules {
		module := &c.graph.Modules[sourceIndex]
		if module.ExportsKind != graph.ExportsESM || module.IsRuntime {
			continue
		}
		meta := &c.linkMeta[sourceIndex]
		module.StmtInfos[0].IsIncluded = module.Link.Wrap == graph.WrapESM ||
			module.Link.HasDynamicExports ||
			module.EntryPointKind == graph.EntryPointDynamicImport ||
			meta.isStarImported ||
			meta.isAliasTarget ||
			dynamicStarTargets[sourceIndex]
	}
}

// Works out which helpers the finalizer will reference and then includes the
// runtime statements that declare them and everything those depend on. The
// runtime is finalized once with the helpers of the whole bundle, and each
// chunk later prints only the part its own modules need.
func (c *linkerContext) includeRuntimeHelpers() {
	needed := make(map[string]bool)
	for _, sourceIndex := range c.graph.ReachableModules {
		module := &c.graph.Modules[sourceIndex]
		if module.IsRuntime {
			continue
		}
		moduleHelpers := c.helpersForModule(module)
		c.linkMeta[sourceIndex].runtimeHelpers = moduleHelpers
		for name := range moduleHelpers {
			needed[name] = true
		}
	}

	included, names := c.runtimeStmtsForHelpers(needed)
	runtimeModule := &c.graph.Modules[c.graph.RuntimeSourceIndex]
	c.runtimeStmtOrder = c.runtimeStmtOrder[:0]
	for i, isIncluded := range included {
		runtimeModule.StmtInfos[i+1].IsIncluded = isIncluded
		if isIncluded {
			c.runtimeStmtOrder = append(c.runtimeStmtOrder, i)
		}
	}

	c.zlog.Debug("runtime helpers included", zap.Strings("helpers", names))
}

func (c *linkerContext) helpersForModule(module *graph.Module) map[string]bool {
	needed := make(map[string]bool)

	if module.StmtInfos[0].IsIncluded && len(module.Link.SortedExports) > 0 {
		needed["__export"] = true
	}
	switch module.Link.Wrap {
	case graph.WrapCJS:
		needed["__commonJSMin"] = true
	case graph.WrapESM:
		needed["__esmMin"] = true
	}

	for i, stmt := range module.AST.Stmts {
		if !module.StmtInfos[i+1].IsIncluded {
			continue
		}
		record, ok := module.ImportRecordAt(stmt.Loc)
		if !ok || record.Kind != ast.ImportStmt {
			continue
		}
		_, other := c.moduleForRecord(record)

		if star, ok := stmt.Data.(*js_ast.SExportStar); ok && star.Alias == nil {
			if other != nil && other.ExportsKind == graph.ExportsCommonJS {
				needed["__reExport"] = true
				needed["__toESM"] = true
			} else if other != nil && other.Link.HasDynamicExports {
				needed["__reExport"] = true
			}
			continue
		}

		if !record.Flags.Has(ast.WasOriginallyBareImport) && (other == nil || other.Link.Wrap == graph.WrapCJS) {
			needed["__toESM"] = true
		}
	}

	for i := range module.AST.ImportRecords {
		record := &module.AST.ImportRecords[i]
		if _, other := c.moduleForRecord(record); record.Kind == ast.ImportRequire && other != nil && other.ExportsKind != graph.ExportsCommonJS {
			needed["__toCommonJS"] = true
		}
	}
	return needed
}

// Returns which top-level runtime statements declare the given helpers or
// something they depend on, indexed by statement
func (c *linkerContext) runtimeStmtsForHelpers(needed map[string]bool) ([]bool, []string) {
	runtimeModule := &c.graph.Modules[c.graph.RuntimeSourceIndex]
	declaredBy := make(map[uint32]int)
	for i, stmt := range runtimeModule.AST.Stmts {
		if local, ok := stmt.Data.(*js_ast.SLocal); ok {
			for _, decl := range local.Decls {
				if id, ok := decl.Binding.Data.(*js_ast.BIdentifier); ok {
					declaredBy[id.SymbolID.GetIndex()] = i
				}
			}
		}
	}

	included := make([]bool, len(runtimeModule.AST.Stmts))
	var include func(int)
	include = func(i int) {
		if included[i] {
			return
		}
		included[i] = true
		for id := range runtimeModule.AST.TopLevelUses[i] {
			if j, ok := declaredBy[id]; ok {
				include(j)
			}
		}
	}

	names := make([]string, 0, len(needed))
	for _, name := range runtime.HelperNames {
		if !needed[name] {
			continue
		}
		names = append(names, name)
		id, ok := runtimeModule.AST.ModuleScope.Members[name]
		if !ok {
			panic(fmt.Sprintf("Internal error: missing runtime helper %q", name))
		}
		include(declaredBy[id.GetIndex()])
	}
	return included, names
}

////////////////////////////////////////////////////////////////////////////////
// Chunks

// Each user entry point and each target of "import()" gets its own chunk. A
// chunk holds everything its entry point imports statically, so modules
// shared by two entry points are included in both.
func (c *linkerContext) computeChunks() {
	chunkEntries := append([]uint32{}, c.entryPoints...)
	for _, sourceIndex := range c.graph.ReachableModules {
		if c.graph.Modules[sourceIndex].EntryPointKind == graph.EntryPointDynamicImport {
			chunkEntries = append(chunkEntries, sourceIndex)
		}
	}

	chunks := make([]graph.Chunk, 0, len(chunkEntries))
	moduleToChunk := make([]ast.Index32, len(c.graph.Modules))
	usedNames := make(map[string]bool)

	for _, entryPoint := range chunkEntries {
		chunkIndex := ast.MakeIndex32(uint32(len(chunks)))
		modules := c.chunkModuleOrder(entryPoint)

		chunkHelpers := make(map[string]bool)
		for _, sourceIndex := range modules {
			for name := range c.linkMeta[sourceIndex].runtimeHelpers {
				chunkHelpers[name] = true
			}
		}
		runtimeStmts, _ := c.runtimeStmtsForHelpers(chunkHelpers)
		c.chunkRuntimeStmts = append(c.chunkRuntimeStmts, runtimeStmts)
		chunks = append(chunks, graph.Chunk{
			FileName:   c.chunkFileName(entryPoint, usedNames),
			Modules:    modules,
			EntryPoint: entryPoint,
		})

		moduleToChunk[entryPoint] = chunkIndex
		for _, sourceIndex := range modules {
			if !moduleToChunk[sourceIndex].IsValid() {
				moduleToChunk[sourceIndex] = chunkIndex
			}
		}
	}

	c.graph.Chunks = graph.ChunkGraph{Chunks: chunks, ModuleToChunk: moduleToChunk}
}

func (c *linkerContext) chunkFileName(entryPoint uint32, usedNames map[string]bool) string {
	_, base, _ := ast.PlatformIndependentPathDirBaseExt(c.graph.Modules[entryPoint].Source.PrettyPath)
	name := base + c.options.OutputExtension
	for i := 2; usedNames[name]; i++ {
		name = fmt.Sprintf("%s%d%s", base, i, c.options.OutputExtension)
	}
	usedNames[name] = true
	return name
}

// Dependencies come before the modules that import them, and the runtime
// always comes first
func (c *linkerContext) chunkModuleOrder(entryPoint uint32) []uint32 {
	visited := make(map[uint32]bool)
	order := []uint32{}

	var visit func(uint32)
	visit = func(sourceIndex uint32) {
		if visited[sourceIndex] {
			return
		}
		visited[sourceIndex] = true
		module := &c.graph.Modules[sourceIndex]
		for i := range module.AST.ImportRecords {
			record := &module.AST.ImportRecords[i]
			if record.Kind == ast.ImportDynamic {
				continue
			}
			if otherIndex, other := c.moduleForRecord(record); other != nil {
				visit(otherIndex)
			}
		}
		order = append(order, sourceIndex)
	}

	visit(c.graph.RuntimeSourceIndex)
	visit(entryPoint)
	return order
}

////////////////////////////////////////////////////////////////////////////////
// Renaming

func (c *linkerContext) renameSymbols() renamer.Renamer {
	unboundNames := make([][]string, 0, len(c.graph.ReachableModules))
	for _, sourceIndex := range c.graph.ReachableModules {
		unboundNames = append(unboundNames, c.graph.Modules[sourceIndex].AST.UnboundNames)
	}

	// The CommonJS wrapper declares "exports" and "module", and bundled code
	// calls "require" for modules that weren't bundled
	reservedNames := renamer.ComputeReservedNames(unboundNames, []string{"require", "exports", "module"})
	r := renamer.NewNumberRenamer(c.graph.Symbols, reservedNames)
	nestedScopes := make(map[uint32][]*js_ast.Scope)

	for _, sourceIndex := range c.graph.ReachableModules {
		module := &c.graph.Modules[sourceIndex]

		// The top-level scope of a CommonJS module ends up inside a closure
		if module.Link.Wrap == graph.WrapCJS {
			r.AddTopLevelSymbol(module.Link.WrapperRef)
			nestedScopes[sourceIndex] = []*js_ast.Scope{module.AST.ModuleScope}
			continue
		}

		for _, id := range module.AST.ModuleScope.Ordered {
			if !c.isUnusedGeneratedSymbol(module, id) {
				r.AddTopLevelSymbol(module.Ref(id))
			}
		}
		nestedScopes[sourceIndex] = module.AST.ModuleScope.Children
	}

	r.AssignNamesByScope(nestedScopes)
	return r
}

// Unused generated symbols don't get a name, so they can't push a symbol
// from the source code away from its original name
func (c *linkerContext) isUnusedGeneratedSymbol(module *graph.Module, id ast.Index32) bool {
	if c.graph.Symbols.Get(module.Ref(id)).Kind != ast.SymbolGenerated {
		return false
	}
	switch id {
	case module.AST.NamespaceRef:
		return !module.StmtInfos[0].IsIncluded
	case module.AST.WrapperRef:
		return module.Link.Wrap == graph.WrapNone
	case module.AST.DefaultRef:
		export, ok := module.AST.NamedExports["default"]
		return !ok || export.SymbolID != id
	}
	return false
}
