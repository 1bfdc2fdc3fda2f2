package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"zipfuzz/internal/fuzzenv"
	"zipfuzz/internal/pipeline"
)

func runExecution(cmd *cobra.Command, _ []string) error {
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	printCommands, err := cmd.Flags().GetBool("print-commands")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	skipDeps, err := cmd.Flags().GetBool("skip-deps")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}

	uiModeValue, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	acquireOpts, err := loadAcquireOptions(".")
	if err != nil {
		return err
	}
	acquireOpts.PrintCommands = printCommands

	req := &pipeline.Request{
		Env:           fuzzenv.FromOS(),
		Acquire:       acquireOpts,
		Jobs:          jobs,
		InstallDeps:   !skipDeps,
		PrintCommands: printCommands,
	}

	var result pipeline.Result
	if shouldUseTUI(uiModeValue) {
		result, err = runPipelineWithUI(cmd.Context(), "zipfuzz "+fuzzenv.ProjectName, req)
	} else {
		if !quiet {
			req.Progress = plainSink{}
		}
		result, err = pipeline.Run(cmd.Context(), req)
	}
	if err != nil {
		return err
	}

	if !quiet {
		printSummary(result)
	}
	return nil
}

func printSummary(result pipeline.Result) {
	built := 0
	for _, out := range result.Outcomes {
		if out.Err == nil {
			built++
		}
	}
	fmt.Fprintf(os.Stdout, "library: %s\n", result.Build.StaticLib)
	fmt.Fprintf(os.Stdout, "harnesses: %d/%d built\n", built, len(result.Specs))
	fmt.Fprintf(os.Stdout, "corpus: %d samples", result.Assets.CorpusFiles)
	if result.Assets.SeedSynthesized {
		fmt.Fprint(os.Stdout, " (synthesized)")
	}
	fmt.Fprintln(os.Stdout)
	if result.Assets.DictSynthesized {
		fmt.Fprintln(os.Stdout, "dictionary: synthesized fallback")
	} else {
		fmt.Fprintln(os.Stdout, "dictionary: copied from source tree")
	}
	if result.HarnessDrift {
		fmt.Fprintln(os.Stdout, "note: harness set changed since the previous run")
	}
}

// plainSink prints pipeline events line by line for non-TTY runs.
type plainSink struct{}

func (plainSink) OnEvent(ev pipeline.Event) {
	if ev.Status == pipeline.StatusQueued {
		return
	}
	unit := string(ev.Stage)
	if ev.Unit != "" {
		unit = fmt.Sprintf("%s %s", ev.Stage, ev.Unit)
	}
	switch ev.Status {
	case pipeline.StatusError:
		fmt.Fprintf(os.Stderr, "[%s] error: %v\n", unit, ev.Err)
	case pipeline.StatusDone:
		fmt.Fprintf(os.Stdout, "[%s] done\n", unit)
	case pipeline.StatusWorking:
		fmt.Fprintf(os.Stdout, "[%s] ...\n", unit)
	}
}
