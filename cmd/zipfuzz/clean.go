package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"zipfuzz/internal/fuzzenv"
	"zipfuzz/internal/stamp"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the build directory and run stamp",
	Long:  "Remove the isolated library build directory and the run stamp under the work root. Final fuzzer artifacts under the output root are kept.",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func runClean(_ *cobra.Command, _ []string) error {
	env := fuzzenv.FromOS()
	buildDir := filepath.Join(env.WorkRoot, "build")
	info, err := os.Stat(buildDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		_, _ = fmt.Fprintln(os.Stdout, "build directory not found")
	case err != nil:
		return fmt.Errorf("failed to stat %q: %w", buildDir, err)
	case !info.IsDir():
		return fmt.Errorf("%q is not a directory", buildDir)
	default:
		if err := os.RemoveAll(buildDir); err != nil {
			return fmt.Errorf("failed to remove %q: %w", buildDir, err)
		}
		_, _ = fmt.Fprintf(os.Stdout, "removed %s\n", buildDir)
	}

	if err := stamp.Remove(env.WorkRoot); err != nil {
		return fmt.Errorf("failed to remove run stamp: %w", err)
	}
	return nil
}
