package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/bundlekit/finalizer/internal/bundler"
	"github.com/bundlekit/finalizer/internal/config"
	"github.com/bundlekit/finalizer/internal/finalizer"
	"github.com/bundlekit/finalizer/internal/fs"
	"github.com/bundlekit/finalizer/internal/logger"
	"github.com/bundlekit/finalizer/internal/resolver"
	"go.uber.org/multierr"
)

func validateColor(value StderrColor) logger.StderrColor {
	switch value {
	case ColorIfTerminal:
		return logger.ColorIfTerminal
	case ColorNever:
		return logger.ColorNever
	case ColorAlways:
		return logger.ColorAlways
	default:
		panic("Invalid color")
	}
}

func validateLogLevel(value LogLevel) logger.LogLevel {
	switch value {
	case LogLevelWarning:
		return logger.LevelWarning
	case LogLevelError:
		return logger.LevelError
	default:
		panic("Invalid log level")
	}
}

func convertMessages(msgs []logger.Msg) []Message {
	var converted []Message
	for _, msg := range msgs {
		if msg.Kind != logger.Error {
			continue
		}
		var location *Location
		if loc := msg.Location; loc != nil {
			location = &Location{
				File:     loc.File,
				Line:     loc.Line,
				Column:   loc.Column,
				Length:   loc.Length,
				LineText: loc.LineText,
			}
		}
		converted = append(converted, Message{Text: msg.Text, Location: location})
	}
	return converted
}

////////////////////////////////////////////////////////////////////////////////
// Build API

func buildImpl(options BuildOptions) BuildResult {
	var log logger.Log
	if options.LogLevel == LogLevelSilent {
		log = logger.NewDeferLog()
	} else {
		log = logger.NewStderrLog(logger.OutputOptions{
			IncludeSource: true,
			Color:         validateColor(options.Color),
			LogLevel:      validateLogLevel(options.LogLevel),
		})
	}

	ctx := options.Context
	if ctx == nil {
		ctx = context.Background()
	}

	inputFS := options.FS
	if inputFS == nil {
		inputFS = fs.MockFS(options.Files, "/")
	}
	bundleOptions := config.DefaultOptions()
	bundleOptions.Workers = options.Workers
	bundleOptions.Validate = options.Validate
	if options.Outdir != "" {
		bundleOptions.AbsOutputDir = inputFS.Abs(options.Outdir)
	}
	if len(options.Exclude) > 0 {
		bundleOptions.ExcludedStmts = make(map[string][]uint32, len(options.Exclude))
		for path, indices := range options.Exclude {
			absPath := inputFS.Abs(path)
			if !inputFS.IsFile(absPath) {
				log.AddError(nil, logger.Loc{}, fmt.Sprintf("Cannot exclude statements from missing file %q", path))
				continue
			}
			bundleOptions.ExcludedStmts[absPath] = indices
		}
	}
	if len(options.EntryPoints) == 0 {
		log.AddError(nil, logger.Loc{}, "No entry points were specified")
	}
	if log.HasErrors() {
		return BuildResult{Errors: convertMessages(log.Done())}
	}

	bundle := bundler.ScanBundle(log, inputFS, resolver.NewResolver(inputFS), options.EntryPoints, bundleOptions)
	if log.HasErrors() {
		return BuildResult{Errors: convertMessages(log.Done())}
	}

	result, err := bundle.Compile(ctx, log, bundleOptions, options.Logger)
	errs := convertMessages(log.Done())
	for _, err := range multierr.Errors(err) {
		errs = append(errs, errorToMessage(err))
	}
	if len(errs) > 0 {
		return BuildResult{Errors: errs}
	}

	outputFiles := make([]OutputFile, len(result.OutputFiles))
	for i, file := range result.OutputFiles {
		outputFiles[i] = OutputFile{Path: file.AbsPath, Contents: file.Contents}
	}
	return BuildResult{
		OutputFiles: outputFiles,
		ModuleCode:  result.ModuleCode,
	}
}

func errorToMessage(err error) Message {
	var internal *finalizer.InternalError
	if errors.As(err, &internal) {
		return Message{Text: internal.Error(), Location: &Location{File: internal.Module}, Internal: true}
	}
	return Message{Text: err.Error()}
}
