// Package pipeline orchestrates the fuzzing-environment build: source
// acquisition, the configured native build, harness compilation, and
// best-effort asset assembly, in that fixed order.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"zipfuzz/internal/acquire"
	"zipfuzz/internal/assets"
	"zipfuzz/internal/buildcfg"
	"zipfuzz/internal/fuzzenv"
	"zipfuzz/internal/harness"
	"zipfuzz/internal/includes"
	"zipfuzz/internal/libbuild"
	"zipfuzz/internal/stamp"
)

// Request configures one full pipeline run.
type Request struct {
	Env     fuzzenv.Env
	Acquire acquire.Options
	// Jobs bounds build and harness parallelism; zero means all cores.
	Jobs int
	// InstallDeps runs the system package install before configuring.
	InstallDeps bool
	// PrintCommands echoes every external command.
	PrintCommands bool
	// Progress receives stage and per-harness events; may be nil.
	Progress ProgressSink
}

// Result captures the artifacts of a run.
type Result struct {
	SourceTree string
	Build      libbuild.Result
	Specs      []harness.Spec
	Outcomes   []harness.Outcome
	Assets     assets.Report
	Headers    []string
	// HarnessDrift is set when the produced executable set differs from
	// the previous run's stamp.
	HarnessDrift bool
	Timings      Timings
}

// Run executes every phase in fixed order. Acquisition and native build
// failures abort; harness failures are per-unit; asset and include
// degradations are reported through warnings only.
func Run(ctx context.Context, req *Request) (Result, error) {
	var result Result
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return result, fmt.Errorf("missing pipeline request")
	}

	// --- acquire ---
	start := time.Now()
	emitStage(req.Progress, StageAcquire, StatusWorking, nil, 0)
	tree, err := acquire.Acquire(ctx, req.Env.SrcRoot, req.Acquire)
	if err != nil {
		emitStage(req.Progress, StageAcquire, StatusError, err, 0)
		return result, fmt.Errorf("acquire: %w", err)
	}
	result.SourceTree = tree
	result.Timings.Set(StageAcquire, time.Since(start))
	emitStage(req.Progress, StageAcquire, StatusDone, nil, result.Timings.Duration(StageAcquire))

	// --- configure ---
	start = time.Now()
	emitStage(req.Progress, StageConfigure, StatusWorking, nil, 0)
	if req.InstallDeps {
		if err := buildcfg.EnsureDependencies(ctx, req.PrintCommands); err != nil {
			emitStage(req.Progress, StageConfigure, StatusError, err, 0)
			return result, fmt.Errorf("configure: %w", err)
		}
	}
	result.Timings.Set(StageConfigure, time.Since(start))
	emitStage(req.Progress, StageConfigure, StatusDone, nil, result.Timings.Duration(StageConfigure))

	// --- build ---
	start = time.Now()
	emitStage(req.Progress, StageBuild, StatusWorking, nil, 0)
	buildRes, err := libbuild.Build(ctx, &libbuild.Request{
		SourceTree:    tree,
		WorkRoot:      req.Env.WorkRoot,
		Jobs:          req.Jobs,
		PrintCommands: req.PrintCommands,
	})
	if err != nil {
		emitStage(req.Progress, StageBuild, StatusError, err, 0)
		return result, fmt.Errorf("build: %w", err)
	}
	result.Build = buildRes
	result.Timings.Set(StageBuild, time.Since(start))
	emitStage(req.Progress, StageBuild, StatusDone, nil, result.Timings.Duration(StageBuild))

	// --- harnesses ---
	start = time.Now()
	if err := os.MkdirAll(req.Env.OutRoot, 0o750); err != nil {
		return result, fmt.Errorf("harness: failed to create output root: %w", err)
	}
	specs, err := harness.Discover(fuzzenv.FuzzDir(tree))
	if err != nil {
		emitStage(req.Progress, StageHarness, StatusError, err, 0)
		return result, fmt.Errorf("harness: %w", err)
	}
	result.Specs = specs
	for _, spec := range specs {
		emitUnit(req.Progress, spec.Name, StageHarness, StatusQueued, nil, 0)
	}
	outcomes, err := harness.CompileAll(ctx, specs, &harness.CompileRequest{
		BuildDir:      buildRes.BuildDir,
		HeaderDir:     fuzzenv.HeaderDir(tree),
		StaticLib:     buildRes.StaticLib,
		OutDir:        req.Env.OutRoot,
		Env:           req.Env,
		Jobs:          req.Jobs,
		PrintCommands: req.PrintCommands,
		OnOutcome: func(out harness.Outcome) {
			status := StatusDone
			if out.Err != nil {
				status = StatusError
			}
			emitUnit(req.Progress, out.Spec.Name, StageHarness, status, out.Err, out.Elapsed)
		},
	})
	if err != nil {
		return result, fmt.Errorf("harness: %w", err)
	}
	result.Outcomes = outcomes
	result.Timings.Set(StageHarness, time.Since(start))

	var built []string
	for _, out := range outcomes {
		if out.Err == nil {
			built = append(built, out.Spec.Name)
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "zipfuzz: harness %s failed: %v\n", out.Spec.Name, out.Err)
		}
	}

	// --- assets (best-effort) ---
	start = time.Now()
	emitStage(req.Progress, StageAssets, StatusWorking, nil, 0)
	assetReport, err := assets.Assemble(ctx, tree, req.Env.OutRoot)
	if err != nil {
		emitStage(req.Progress, StageAssets, StatusError, err, 0)
		_, _ = fmt.Fprintf(os.Stderr, "zipfuzz: asset assembly degraded: %v\n", err)
	} else {
		emitStage(req.Progress, StageAssets, StatusDone, nil, time.Since(start))
	}
	result.Assets = assetReport
	for _, warn := range assetReport.Warnings {
		_, _ = fmt.Fprintf(os.Stderr, "zipfuzz: %s\n", warn)
	}
	result.Timings.Set(StageAssets, time.Since(start))

	// --- includes (best-effort) ---
	start = time.Now()
	emitStage(req.Progress, StageInclude, StatusWorking, nil, 0)
	headers, err := includes.Export(tree, buildRes.BuildDir, req.Env.OutRoot)
	if err != nil {
		emitStage(req.Progress, StageInclude, StatusError, err, 0)
		_, _ = fmt.Fprintf(os.Stderr, "zipfuzz: header export degraded: %v\n", err)
	} else {
		emitStage(req.Progress, StageInclude, StatusDone, nil, time.Since(start))
	}
	result.Headers = headers
	result.Timings.Set(StageInclude, time.Since(start))

	// --- stamp ---
	result.HarnessDrift = recordStamp(req.Env.WorkRoot, buildRes.ConfigureFlags, built, result.Timings.Duration(StageBuild))

	if len(specs) > 0 && len(built) == 0 {
		return result, fmt.Errorf("harness: no fuzz harness could be built")
	}
	return result, nil
}

// recordStamp compares the produced harness set against the previous run
// and persists the new stamp. Never fatal.
func recordStamp(workRoot string, flags, built []string, buildTime time.Duration) bool {
	drift := false
	if prev, ok, err := stamp.Load(workRoot); err == nil && ok {
		drift = !prev.SameHarnessSet(built)
	}
	s := stamp.New(buildcfg.Digest(flags), built, buildTime)
	if err := stamp.Write(workRoot, s); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "zipfuzz: failed to write run stamp: %v\n", err)
	}
	return drift
}

func emitStage(sink ProgressSink, stage Stage, status Status, err error, elapsed time.Duration) {
	emitUnit(sink, "", stage, status, err, elapsed)
}

func emitUnit(sink ProgressSink, unit string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{
		Unit:    unit,
		Stage:   stage,
		Status:  status,
		Err:     err,
		Elapsed: elapsed,
	})
}
