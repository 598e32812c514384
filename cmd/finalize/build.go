package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bundlekit/finalizer/pkg/api"
	"github.com/spf13/cobra"
)

func newBuildCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build MANIFEST",
		Short: "Bundle the manifest's entry points",
		Long: `Bundles the manifest's entry points and finalizes every module. Each chunk
starts with the runtime helpers it needs followed by every module in the
chunk, each preceded by a comment with its path.

Without --outdir the chunks are printed to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := runBuild(cmd, f, args[0])
			if err != nil {
				return err
			}

			if !hasOutdir(result.OutputFiles) {
				out := cmd.OutOrStdout()
				for i, file := range result.OutputFiles {
					if len(result.OutputFiles) > 1 {
						if i > 0 {
							fmt.Fprintln(out)
						}
						fmt.Fprintf(out, "//////// %s\n", file.Path)
					}
					if _, err := out.Write(file.Contents); err != nil {
						return err
					}
				}
				return nil
			}

			for _, file := range result.OutputFiles {
				if err := os.MkdirAll(filepath.Dir(file.Path), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(file.Path, file.Contents, 0o644); err != nil {
					return fmt.Errorf("failed to write %q: %w", file.Path, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.outdir, "outdir", "", "directory to write output files to")
	return cmd
}

// Output paths are only absolute when an output directory was configured
func hasOutdir(files []api.OutputFile) bool {
	for _, file := range files {
		if filepath.IsAbs(file.Path) {
			return true
		}
	}
	return false
}

func newInspectCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect MANIFEST PATH",
		Short: "Print the finalized code of one module",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := runBuild(cmd, f, args[0])
			if err != nil {
				return err
			}

			name := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(args[1])), "/")
			code, ok := result.ModuleCode[name]
			if !ok {
				names := make([]string, 0, len(result.ModuleCode))
				for name := range result.ModuleCode {
					names = append(names, name)
				}
				sort.Strings(names)
				return fmt.Errorf("no module named %q in the bundle (modules: %s)", args[1], strings.Join(names, ", "))
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), code)
			return err
		},
	}
}
