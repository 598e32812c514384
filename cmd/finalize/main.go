package main

import (
	"fmt"
	"os"

	"github.com/bundlekit/finalizer/internal/config"
	"github.com/bundlekit/finalizer/internal/exitcode"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type flags struct {
	workers  int
	validate bool
	logLevel string
	outdir   string
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   "finalize",
		Short: "Bundle JavaScript modules and print the finalized output",
		Long: `finalize links the modules listed in a YAML manifest, rewrites every module
so that no import or export syntax remains, and prints one output file per
chunk.

Example manifest:

  entryPoints: [entry.js]
  files:
    entry.js: |
      import {a} from './a'
      console.log(a)
    a.js:
      path: src/a.js
      exclude: [1]`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	persistent := root.PersistentFlags()
	persistent.IntVar(&f.workers, "workers", 0, "maximum number of modules finalized at once (0 means one per CPU)")
	persistent.BoolVar(&f.validate, "validate", false, "check every finalized module for identifiers that were not rewritten")
	persistent.StringVar(&f.logLevel, "log-level", "", "operational log level: debug, info, warn, or error")

	root.AddCommand(newBuildCmd(f), newInspectCmd(f))
	return root
}

// Flags that were set on the command line override the manifest
func (f *flags) apply(cmd *cobra.Command, manifest *config.Manifest) {
	if cmd.Flags().Changed("workers") {
		manifest.Workers = f.workers
	}
	if cmd.Flags().Changed("validate") {
		manifest.Validate = f.validate
	}
	if cmd.Flags().Changed("log-level") {
		manifest.LogLevel = f.logLevel
	}
	if cmd.Flags().Changed("outdir") {
		manifest.OutDir = f.outdir
	}
}

func newLogger(level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "finalize: %v\n", err)
		exitcode.Exit(err)
	}
}
