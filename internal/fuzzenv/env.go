// Package fuzzenv models the execution environment of the fuzzing build:
// the source/work/output roots, the compiler toolchain variables, and the
// layout of the acquired source tree.
package fuzzenv

import (
	"os"
	"path/filepath"
	"strings"
)

// Env carries the environment-provided roots and toolchain settings.
// Values are resolved once at startup; components treat Env as read-only.
type Env struct {
	// SrcRoot is where the source tree is acquired (env SRC).
	SrcRoot string
	// WorkRoot holds intermediate build output (env WORK).
	WorkRoot string
	// OutRoot receives the final fuzzing artifacts (env OUT).
	OutRoot string

	// CXX is the C++ compiler driver used for harness links (env CXX).
	CXX string
	// CXXFlags are extra compiler flags (env CXXFLAGS, whitespace-split).
	CXXFlags []string
	// FuzzingEngine is the fuzzing-engine runtime to link against
	// (env LIB_FUZZING_ENGINE).
	FuzzingEngine string
}

// FromOS resolves an Env from the process environment, applying defaults
// for anything unset. Relative roots are kept as-is; callers that need
// absolute paths resolve them at use sites.
func FromOS() Env {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	env := Env{
		SrcRoot:       envOr("SRC", filepath.Join(cwd, "src")),
		WorkRoot:      envOr("WORK", filepath.Join(cwd, "work")),
		OutRoot:       envOr("OUT", filepath.Join(cwd, "out")),
		CXX:           envOr("CXX", "clang++"),
		FuzzingEngine: envOr("LIB_FUZZING_ENGINE", "-fsanitize=fuzzer"),
	}
	if flags := strings.Fields(os.Getenv("CXXFLAGS")); len(flags) > 0 {
		env.CXXFlags = flags
	}
	return env
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// SourceTree returns the canonical source tree path under SrcRoot.
func (e Env) SourceTree() string {
	return filepath.Join(e.SrcRoot, ProjectName)
}
