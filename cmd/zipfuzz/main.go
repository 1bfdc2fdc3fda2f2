// Package main implements the zipfuzz CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"zipfuzz/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "zipfuzz",
	Short: "Prepare the libzip fuzzing environment",
	Long:  "zipfuzz acquires the libzip source, builds the static library, compiles every fuzz harness, and assembles corpus and dictionary assets.",
	Args:  cobra.NoArgs,
	RunE:  runExecution,
}

// main registers subcommands and persistent flags, then executes the root
// command, which runs the whole pipeline in fixed order.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cleanCmd)

	rootCmd.Flags().String("ui", "auto", "progress display (auto|on|off)")
	rootCmd.Flags().Bool("print-commands", false, "echo external commands before running them")
	rootCmd.Flags().Int("jobs", 0, "parallelism for the native build and harness compiles (0 = all cores)")
	rootCmd.Flags().Bool("skip-deps", false, "skip the system dependency install")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether the file is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
