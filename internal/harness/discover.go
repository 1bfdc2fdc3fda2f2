// Package harness discovers fuzz-entry sources in the acquired tree and
// compiles each one into a standalone executable linked against the static
// library. Harnesses are an unordered batch of independent jobs: one
// failing compile never blocks the rest.
package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReservedEntryPoint is the composite non-fuzzing entry point shipped next
// to the harness sources. It defines a conflicting main symbol and must
// never be compiled as a standalone target.
const ReservedEntryPoint = "fuzz_main.c"

// Spec is one discovered fuzz-entry source: its file stem and path.
type Spec struct {
	Name string
	Path string
}

// Discover scans fuzzDir for harness sources, applying the exclusion
// filter, and returns specs sorted by name.
func Discover(fuzzDir string) ([]Spec, error) {
	entries, err := os.ReadDir(fuzzDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list fuzz-entry dir: %w", err)
	}
	var specs []Spec
	for _, entry := range entries {
		if entry.IsDir() || !isHarnessCandidate(entry.Name()) {
			continue
		}
		name := entry.Name()
		specs = append(specs, Spec{
			Name: strings.TrimSuffix(name, filepath.Ext(name)),
			Path: filepath.Join(fuzzDir, name),
		})
	}
	// Сортируем для детерминированного порядка.
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs, nil
}

func isHarnessCandidate(name string) bool {
	if name == ReservedEntryPoint {
		return false
	}
	switch filepath.Ext(name) {
	case ".c", ".cc":
		return true
	}
	return false
}
