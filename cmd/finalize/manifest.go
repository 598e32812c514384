package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bundlekit/finalizer/internal/config"
	"github.com/bundlekit/finalizer/internal/exitcode"
	"github.com/bundlekit/finalizer/pkg/api"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Reads the manifest and everything it points to, then applies the command
// line flags on top of it
func loadManifest(cmd *cobra.Command, f *flags, path string) (*config.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	manifest, err := config.ParseManifest(data)
	if err != nil {
		return nil, exitcode.Set(err, exitcode.Usage)
	}

	dir := filepath.Dir(path)
	if err := manifest.LoadFiles(dir, os.ReadFile); err != nil {
		return nil, err
	}

	// An "outdir" in the manifest is relative to the manifest
	if manifest.OutDir != "" && !filepath.IsAbs(manifest.OutDir) {
		manifest.OutDir = filepath.Join(dir, manifest.OutDir)
	}

	f.apply(cmd, manifest)
	if manifest.OutDir != "" {
		if manifest.OutDir, err = filepath.Abs(manifest.OutDir); err != nil {
			return nil, err
		}
	}
	if _, err := config.ParseLogLevel(manifest.LogLevel); err != nil {
		return nil, exitcode.Set(err, exitcode.Usage)
	}
	if manifest.Workers < 0 {
		return nil, exitcode.Set(fmt.Errorf("invalid worker count %d", manifest.Workers), exitcode.Usage)
	}
	return manifest, nil
}

func buildOptions(manifest *config.Manifest, logger *zap.Logger) api.BuildOptions {
	options := api.BuildOptions{
		LogLevel:    api.LogLevelWarning,
		Logger:      logger,
		Files:       make(map[string]string, len(manifest.Files)),
		EntryPoints: append([]string{}, manifest.EntryPoints...),
		Workers:     manifest.Workers,
		Validate:    manifest.Validate,
		Outdir:      manifest.OutDir,
	}
	for _, name := range manifest.SortedFileNames() {
		spec := manifest.Files[name]
		options.Files[name] = spec.Contents
		if len(spec.Exclude) > 0 {
			if options.Exclude == nil {
				options.Exclude = make(map[string][]uint32)
			}
			options.Exclude[name] = spec.Exclude
		}
	}
	return options
}

// Runs the build described by the manifest. Diagnostics have already been
// printed to stderr by the time this returns an error.
func runBuild(cmd *cobra.Command, f *flags, manifestPath string) (api.BuildResult, error) {
	manifest, err := loadManifest(cmd, f, manifestPath)
	if err != nil {
		return api.BuildResult{}, err
	}

	level, _ := config.ParseLogLevel(manifest.LogLevel)
	logger, err := newLogger(level)
	if err != nil {
		return api.BuildResult{}, err
	}
	defer func() { _ = logger.Sync() }()

	options := buildOptions(manifest, logger)
	options.Context = cmd.Context()
	result := api.Build(options)

	if len(result.Errors) > 0 {
		code := exitcode.Diagnostics
		for _, msg := range result.Errors {
			if msg.Internal {
				// Internal faults aren't printed by the diagnostic log
				fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", msg.Text)
				code = exitcode.Internal
			}
		}
		return result, exitcode.Set(fmt.Errorf("build failed with %d error(s)", len(result.Errors)), code)
	}
	return result, nil
}
