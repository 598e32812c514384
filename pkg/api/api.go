package api

import (
	"context"

	"github.com/bundlekit/finalizer/internal/fs"
	"go.uber.org/zap"
)

type Location struct {
	File     string
	Line     int // 1-based
	Column   int // 0-based, in bytes
	Length   int // in bytes
	LineText string
}

type Message struct {
	Text     string
	Location *Location

	// Set for faults inside the tool itself rather than problems with the
	// input files
	Internal bool
}

type StderrColor uint8

const (
	ColorIfTerminal StderrColor = iota
	ColorNever
	ColorAlways
)

type LogLevel uint8

const (
	LogLevelSilent LogLevel = iota
	LogLevelWarning
	LogLevelError
)

////////////////////////////////////////////////////////////////////////////////
// Build API

type BuildOptions struct {
	Color    StderrColor
	LogLevel LogLevel

	// Operational logging of the build phases. Nil means no logging.
	Logger *zap.Logger

	// Nil means "context.Background()"
	Context context.Context

	// The contents of every input file keyed by its path. Relative paths are
	// relative to the root of a virtual file system, so "src/a.js" and
	// "/src/a.js" are the same file.
	Files       map[string]string
	EntryPoints []string

	// If set, input files are read from here and "Files" is ignored
	FS fs.FS

	// Indices of top-level statements to leave out, keyed like "Files"
	Exclude map[string][]uint32

	Workers  int
	Validate bool

	// If set, the paths of output files are inside this directory. Nothing is
	// written to disk either way.
	Outdir string
}

type BuildResult struct {
	Errors []Message

	OutputFiles []OutputFile

	// The finalized code of every module, keyed by its path. The runtime
	// helpers are under "<runtime>".
	ModuleCode map[string]string
}

type OutputFile struct {
	Path     string
	Contents []byte
}

func Build(options BuildOptions) BuildResult {
	return buildImpl(options)
}
