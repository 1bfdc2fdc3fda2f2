// Package libbuild drives the native out-of-tree build of the library and
// publishes its artifacts at well-known locations in the build directory.
package libbuild

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"zipfuzz/internal/buildcfg"
	"zipfuzz/internal/toolchain"
)

// Request configures one library build.
type Request struct {
	// SourceTree is the canonical source tree path.
	SourceTree string
	// WorkRoot holds the isolated build directory.
	WorkRoot string
	// Jobs bounds build parallelism; zero means all processor cores.
	Jobs int
	// PrintCommands echoes external commands.
	PrintCommands bool
}

// Result names the produced artifacts.
type Result struct {
	// BuildDir is the isolated out-of-tree build directory.
	BuildDir string
	// StaticLib is the static archive at its well-known location.
	StaticLib string
	// SharedLib is the dynamic library, or empty when none was produced.
	// Its absence is expected under the static-only configuration.
	SharedLib string
	// ConfigureFlags are the exact flags passed to the native build.
	ConfigureFlags []string
}

const (
	staticLibName = "libzip.a"
	sharedLibName = "libzip.so"
)

// Build configures and builds the library. The build directory is removed
// and recreated first so stale output from a prior run cannot leak into
// this one. Any native build failure is fatal.
func Build(ctx context.Context, req *Request) (Result, error) {
	var result Result
	if req == nil {
		return result, fmt.Errorf("missing build request")
	}
	if req.SourceTree == "" {
		return result, fmt.Errorf("missing source tree")
	}

	buildDir := filepath.Join(req.WorkRoot, "build")
	if err := os.RemoveAll(buildDir); err != nil {
		return result, fmt.Errorf("failed to clear build dir: %w", err)
	}
	if err := os.MkdirAll(buildDir, 0o750); err != nil {
		return result, fmt.Errorf("failed to create build dir: %w", err)
	}
	result.BuildDir = buildDir

	srcAbs, err := filepath.Abs(req.SourceTree)
	if err != nil {
		return result, fmt.Errorf("failed to resolve source tree: %w", err)
	}

	flags := buildcfg.RenderFlags(buildcfg.Fixed())
	result.ConfigureFlags = flags
	configureArgs := append(append([]string{}, flags...), srcAbs)
	if err := toolchain.Run(ctx, buildDir, req.PrintCommands, "cmake", configureArgs...); err != nil {
		return result, fmt.Errorf("configure failed: %w", err)
	}

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if err := toolchain.Run(ctx, buildDir, req.PrintCommands, "make", "-j"+strconv.Itoa(jobs)); err != nil {
		return result, fmt.Errorf("native build failed: %w", err)
	}

	builtStatic := filepath.Join(buildDir, "lib", staticLibName)
	staticOut := filepath.Join(buildDir, staticLibName)
	if err := copyFile(builtStatic, staticOut); err != nil {
		return result, fmt.Errorf("static archive missing after build: %w", err)
	}
	result.StaticLib = staticOut

	// Динамическая библиотека опциональна при static-only конфигурации.
	builtShared := filepath.Join(buildDir, "lib", sharedLibName)
	sharedOut := filepath.Join(buildDir, sharedLibName)
	switch err := copyFile(builtShared, sharedOut); {
	case err == nil:
		result.SharedLib = sharedOut
	case errors.Is(err, os.ErrNotExist):
		// expected
	default:
		return result, fmt.Errorf("failed to copy shared library: %w", err)
	}

	return result, nil
}

func copyFile(src, dst string) error {
	// #nosec G304 -- paths are derived from the pipeline's own directories
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := in.Close(); closeErr != nil {
			_ = closeErr
		}
	}()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	// #nosec G304 -- see above
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
