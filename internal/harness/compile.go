package harness

import (
	"context"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"zipfuzz/internal/fuzzenv"
	"zipfuzz/internal/toolchain"
)

// systemLibs are the fixed link dependencies of the static library, taken
// from the standard system library path.
var systemLibs = []string{"-lbz2", "-llzma", "-lz", "-lzstd", "-lssl", "-lcrypto"}

// CompileRequest configures the harness batch.
type CompileRequest struct {
	// BuildDir is the library build directory (include path + static lib).
	BuildDir string
	// HeaderDir is the library's public header directory in the tree.
	HeaderDir string
	// StaticLib is the static archive every harness links against.
	StaticLib string
	// OutDir receives one executable per spec.
	OutDir string
	// Env supplies the compiler driver, flags, and fuzzing-engine runtime.
	Env fuzzenv.Env
	// Jobs bounds batch parallelism; zero means all processor cores.
	Jobs int
	// PrintCommands echoes external commands.
	PrintCommands bool
	// OnOutcome, when set, receives each outcome as it completes.
	OnOutcome func(Outcome)
}

// Outcome is the attributable result of one harness compilation.
type Outcome struct {
	Spec    Spec
	Output  string
	Err     error
	Elapsed time.Duration
}

// CompileAll compiles every spec independently, bounded by Jobs. The
// returned slice is ordered like specs; a failing compile is recorded in
// its outcome and does not abort the batch. The only error returned is
// context cancellation.
func CompileAll(ctx context.Context, specs []Spec, req *CompileRequest) ([]Outcome, error) {
	outcomes := make([]Outcome, len(specs))

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, max(len(specs), 1)))

	for i, spec := range specs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			start := time.Now()
			out, err := compileOne(gctx, spec, req)
			outcomes[i] = Outcome{
				Spec:    spec,
				Output:  out,
				Err:     err,
				Elapsed: time.Since(start),
			}
			if req.OnOutcome != nil {
				req.OnOutcome(outcomes[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func compileOne(ctx context.Context, spec Spec, req *CompileRequest) (string, error) {
	output := outputPath(req.OutDir, spec)
	args := compileArgs(spec, req)
	if err := toolchain.Run(ctx, "", req.PrintCommands, req.Env.CXX, args...); err != nil {
		return "", err
	}
	return output, nil
}

func outputPath(outDir string, spec Spec) string {
	return filepath.Join(outDir, spec.Name)
}

func compileArgs(spec Spec, req *CompileRequest) []string {
	args := append([]string{}, req.Env.CXXFlags...)
	args = append(args,
		"-I"+req.BuildDir,
		"-I"+req.HeaderDir,
		spec.Path,
		"-o", outputPath(req.OutDir, spec),
		req.Env.FuzzingEngine,
		req.StaticLib,
	)
	args = append(args, systemLibs...)
	return args
}
