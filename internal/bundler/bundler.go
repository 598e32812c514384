package bundler

import (
	"context"
	"fmt"
	"strings"

	"github.com/bundlekit/finalizer/internal/ast"
	"github.com/bundlekit/finalizer/internal/config"
	"github.com/bundlekit/finalizer/internal/finalizer"
	"github.com/bundlekit/finalizer/internal/fs"
	"github.com/bundlekit/finalizer/internal/graph"
	"github.com/bundlekit/finalizer/internal/helpers"
	"github.com/bundlekit/finalizer/internal/js_ast"
	"github.com/bundlekit/finalizer/internal/js_lexer"
	"github.com/bundlekit/finalizer/internal/js_parser"
	"github.com/bundlekit/finalizer/internal/js_printer"
	"github.com/bundlekit/finalizer/internal/logger"
	"github.com/bundlekit/finalizer/internal/resolver"
	"github.com/bundlekit/finalizer/internal/runtime"
	"go.uber.org/zap"
)

type Bundle struct {
	files       []graph.InputFile
	entryPoints []uint32
}

type parseArgs struct {
	fs              fs.FS
	log             logger.Log
	res             *resolver.Resolver
	absPath         string
	prettyPath      string
	sourceIndex     uint32
	importSource    *logger.Source
	importPathRange logger.Range
	excludedStmts   []uint32
	results         chan parseResult
}

type parseResult struct {
	file graph.InputFile
	ok   bool

	// One entry per import record. This is nil for records that failed to
	// resolve, which have already been reported.
	resolveResults []*resolver.ResolveResult
}

func parseFile(args parseArgs) {
	contents, err := args.fs.ReadFile(args.absPath)
	if err != nil {
		args.log.AddRangeError(args.importSource, args.importPathRange,
			fmt.Sprintf("Could not read from file: %s", args.absPath))
		args.results <- parseResult{}
		return
	}

	source := logger.Source{
		Index:          args.sourceIndex,
		PrettyPath:     args.prettyPath,
		IdentifierName: ast.GenerateNonUniqueNameFromPath(args.absPath),
		Contents:       contents,
	}
	tree, ok := js_parser.Parse(args.log, source)

	var excluded map[uint32]bool
	if len(args.excludedStmts) > 0 {
		excluded = make(map[uint32]bool, len(args.excludedStmts))
		for _, index := range args.excludedStmts {
			if int(index) >= len(tree.Stmts) {
				args.log.AddError(&source, logger.Loc{},
					fmt.Sprintf("Cannot exclude statement %d because the file only has %d statements", index, len(tree.Stmts)))
				ok = false
				continue
			}
			excluded[index] = true
		}
	}

	result := parseResult{
		file: graph.InputFile{Source: source, AST: tree, ExcludedStmts: excluded},
		ok:   ok,
	}

	// Resolve all import paths here instead of on the main goroutine
	if ok {
		sourceDir := fs.Dir(args.absPath)
		result.resolveResults = make([]*resolver.ResolveResult, len(tree.ImportRecords))
		for i, record := range tree.ImportRecords {
			resolveResult := args.res.Resolve(sourceDir, record.Path.Text, record.Kind)
			if resolveResult == nil {
				args.log.AddRangeError(&source, record.Range, resolver.CouldNotResolveText(record.Path.Text))
				continue
			}
			result.resolveResults[i] = resolveResult
		}
	}

	args.results <- result
}

func parseRuntime(log logger.Log, results chan parseResult) {
	source := runtime.Source()
	tree, ok := js_parser.Parse(log, source)
	if !ok {
		panic("Internal error: the runtime failed to parse")
	}
	results <- parseResult{file: graph.InputFile{Source: source, AST: tree, IsRuntime: true}, ok: true}
}

// Every file is parsed on its own goroutine as soon as the first import of it
// is seen. The main goroutine only allocates source indices and records the
// resolved targets of import records, so it's the only one that writes to the
// results array.
func ScanBundle(log logger.Log, fs fs.FS, res *resolver.Resolver, entryPaths []string, options config.Options) Bundle {
	results := []parseResult{{}}
	visited := make(map[string]uint32)
	resultChannel := make(chan parseResult)
	remaining := 1

	// Always start by parsing the runtime file
	go parseRuntime(log, resultChannel)

	maybeParseFile := func(absPath string, importSource *logger.Source, importPathRange logger.Range) uint32 {
		sourceIndex, ok := visited[absPath]
		if !ok {
			sourceIndex = uint32(len(results))
			visited[absPath] = sourceIndex
			results = append(results, parseResult{})
			remaining++
			go parseFile(parseArgs{
				fs:              fs,
				log:             log,
				res:             res,
				absPath:         absPath,
				prettyPath:      resolver.PrettyPath(fs, logger.Path{Text: absPath, Namespace: "file"}),
				sourceIndex:     sourceIndex,
				importSource:    importSource,
				importPathRange: importPathRange,
				excludedStmts:   options.ExcludedStmts[absPath],
				results:         resultChannel,
			})
		}
		return sourceIndex
	}

	entryPoints := []uint32{}
	duplicateEntryPoints := make(map[uint32]bool)
	for _, path := range entryPaths {
		resolveResult := res.Resolve(fs.Cwd(), path, ast.ImportEntryPoint)
		if resolveResult == nil {
			log.AddError(nil, logger.Loc{}, resolver.CouldNotResolveText(path))
			continue
		}
		sourceIndex := maybeParseFile(resolveResult.Path.Text, nil, logger.Range{})
		if duplicateEntryPoints[sourceIndex] {
			log.AddError(nil, logger.Loc{}, fmt.Sprintf("Duplicate entry point %q", path))
			continue
		}
		duplicateEntryPoints[sourceIndex] = true
		entryPoints = append(entryPoints, sourceIndex)
	}

	for remaining > 0 {
		result := <-resultChannel
		remaining--
		if !result.ok {
			continue
		}

		source := &result.file.Source
		records := result.file.AST.ImportRecords
		for i, resolveResult := range result.resolveResults {
			if resolveResult == nil || resolveResult.IsExternal {
				continue
			}
			record := &records[i]
			sourceIndex := maybeParseFile(resolveResult.Path.Text, source, record.Range)
			record.SourceIndex = ast.MakeIndex32(sourceIndex)
			record.Path = resolveResult.Path
		}

		results[source.Index] = result
	}

	files := make([]graph.InputFile, len(results))
	for i, result := range results {
		files[i] = result.file
	}
	return Bundle{
		files:       files,
		entryPoints: entryPoints,
	}
}

type OutputFile struct {
	AbsPath  string
	Contents []byte
}

type CompileResult struct {
	OutputFiles []OutputFile

	// The finalized code of every module, keyed by its pretty path. The
	// runtime is keyed by "<runtime>".
	ModuleCode map[string]string
}

// Links the scanned files, finalizes every module, and prints one output file
// per chunk. Problems with the input are reported to "log". The returned error
// is only for faults inside finalization and for cancellation.
func (b *Bundle) Compile(ctx context.Context, log logger.Log, options config.Options, zlog *zap.Logger) (CompileResult, error) {
	if zlog == nil {
		zlog = zap.NewNop()
	}
	if options.OutputExtension == "" {
		options.OutputExtension = ".js"
	}
	timer := &helpers.Timer{}
	defer timer.Log(zlog)

	timer.Begin("Link")
	c := newLinkerContext(&options, log, zlog, b.files, b.entryPoints)
	c.link()
	timer.End("Link")
	if log.HasErrors() {
		return CompileResult{}, nil
	}

	timer.Begin("Finalize")
	err := finalizer.FinalizeAll(ctx, &c.graph, c.renamer, finalizer.Options{
		Workers:  options.Workers,
		Validate: options.Validate,
		Logger:   zlog,
	})
	timer.End("Finalize")
	if err != nil {
		return CompileResult{}, err
	}

	timer.Begin("Print")
	result := c.generateChunks()
	timer.End("Print")
	return result, nil
}

func (c *linkerContext) generateChunks() CompileResult {
	moduleCode := make([]string, len(c.graph.Modules))
	result := CompileResult{ModuleCode: make(map[string]string, len(c.graph.ReachableModules))}
	for _, sourceIndex := range c.graph.ReachableModules {
		module := &c.graph.Modules[sourceIndex]
		js := js_printer.Print(module.AST.Directives, module.AST.Stmts, js_printer.Options{}).JS
		moduleCode[sourceIndex] = string(js)
		result.ModuleCode[module.Source.PrettyPath] = string(js)
	}

	for chunkIndex, chunk := range c.graph.Chunks.Chunks {
		j := helpers.Joiner{}
		for _, sourceIndex := range chunk.Modules {
			code := moduleCode[sourceIndex]
			if sourceIndex == c.graph.RuntimeSourceIndex {
				code = c.runtimeCodeForChunk(chunkIndex)
			}
			if code == "" {
				continue
			}
			if sourceIndex != c.graph.RuntimeSourceIndex {
				if j.Length() > 0 {
					j.AddString("\n")
				}
				j.AddString(fmt.Sprintf("// %s\n", c.graph.Modules[sourceIndex].Source.PrettyPath))
			}
			j.AddString(code)
		}
		c.addEntryPointFooter(&j, chunk.EntryPoint)
		j.EnsureNewlineAtEnd()

		absPath := chunk.FileName
		if c.options.AbsOutputDir != "" {
			absPath = fs.Join(c.options.AbsOutputDir, chunk.FileName)
		}
		result.OutputFiles = append(result.OutputFiles, OutputFile{AbsPath: absPath, Contents: j.Done()})
	}
	return result
}

// Prints the runtime statements that declare the helpers used by the modules
// in this chunk
func (c *linkerContext) runtimeCodeForChunk(chunkIndex int) string {
	stmts := c.graph.Modules[c.graph.RuntimeSourceIndex].AST.Stmts
	if len(stmts) != len(c.runtimeStmtOrder) {
		panic(fmt.Sprintf("Internal error: the finalized runtime has %d statements instead of %d", len(stmts), len(c.runtimeStmtOrder)))
	}
	included := c.chunkRuntimeStmts[chunkIndex]
	kept := make([]js_ast.Stmt, 0, len(stmts))
	for i, stmt := range stmts {
		if included[c.runtimeStmtOrder[i]] {
			kept = append(kept, stmt)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return string(js_printer.Print(nil, kept, js_printer.Options{}).JS)
}

// A wrapped entry point only runs once something calls its wrapper. The
// target of "import()" also has to export its bindings, since the promise
// resolves to the namespace of the chunk file:
//
//	export default require_lazy();
//
//	init_lazy();
//	export { lazy_default as default, value };
func (c *linkerContext) addEntryPointFooter(j *helpers.Joiner, entryPoint uint32) {
	entry := &c.graph.Modules[entryPoint]
	isDynamic := entry.EntryPointKind == graph.EntryPointDynamicImport

	if entry.Link.Wrap != graph.WrapNone {
		call := fmt.Sprintf("%s()", c.renamer.NameForSymbol(entry.Link.WrapperRef))
		if isDynamic && entry.Link.Wrap == graph.WrapCJS {
			j.AddString(fmt.Sprintf("\nexport default %s;\n", call))
			return
		}
		j.AddString(fmt.Sprintf("\n%s;\n", call))
	}
	if !isDynamic || entry.ExportsKind != graph.ExportsESM {
		return
	}

	var items []string
	for _, export := range entry.Link.SortedExports {
		ref, symbol := c.graph.Canonical(export.Ref)
		if symbol.NamespaceAlias != nil {
			// Bindings that only exist as a property of another namespace
			// can't be named in an export clause
			continue
		}
		name := c.renamer.NameForSymbol(ref)
		switch {
		case name == export.Alias:
			items = append(items, name)
		case js_lexer.IsIdentifier(export.Alias):
			items = append(items, fmt.Sprintf("%s as %s", name, export.Alias))
		default:
			items = append(items, fmt.Sprintf("%s as %s", name, helpers.QuoteForJSON(export.Alias, false)))
		}
	}
	if entry.Link.HasDynamicExports {
		c.zlog.Debug("exports copied at run time are not visible on the chunk",
			zap.String("module", entry.Source.PrettyPath))
	}
	if len(items) == 0 {
		return
	}
	if entry.Link.Wrap == graph.WrapNone {
		j.AddString("\n")
	}
	j.AddString(fmt.Sprintf("export { %s };\n", strings.Join(items, ", ")))
}
