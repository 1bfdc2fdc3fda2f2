// Package acquire obtains the library source tree, preferring an
// object-store snapshot when the client tool is present and falling back to
// a shallow clone of the public upstream. Whatever path succeeds, the
// resulting directory is renamed to the canonical project name so nothing
// downstream needs to know how the tree arrived.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"zipfuzz/internal/fuzzenv"
	"zipfuzz/internal/toolchain"
)

// Options configures acquisition endpoints and the fallback policy.
type Options struct {
	// MirrorURL is the object-store location of the source snapshot.
	MirrorURL string
	// UpstreamURL is the public version-control remote.
	UpstreamURL string
	// FallbackOnError selects what happens when the object-store tool is
	// present but the fetch itself fails: true falls back to the clone
	// path, false aborts the run.
	FallbackOnError bool
	// PrintCommands echoes every external command before running it.
	PrintCommands bool
}

const (
	// DefaultMirrorURL is the internal snapshot location probed by default.
	DefaultMirrorURL = "gs://zipfuzz-mirror/libzip-snapshot.tar.gz"
	// DefaultUpstreamURL is the public upstream repository.
	DefaultUpstreamURL = "https://github.com/nih-at/libzip.git"

	objectStoreTool = "gsutil"
)

// Strategy fetches the source into srcRoot. Implementations are symmetric:
// neither is responsible for the canonical rename, which runs afterwards.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, srcRoot string) error
}

// SelectStrategy probes for the object-store client and picks the fast path
// when it is available, the clone path otherwise.
func SelectStrategy(opts Options) Strategy {
	if toolchain.Available(objectStoreTool) {
		return &objectStoreStrategy{mirrorURL: opts.MirrorURL, print: opts.PrintCommands}
	}
	return &cloneStrategy{upstreamURL: opts.UpstreamURL, print: opts.PrintCommands}
}

// Acquire produces the source tree at the canonical path under srcRoot and
// returns that path. Total acquisition failure is fatal to the pipeline.
func Acquire(ctx context.Context, srcRoot string, opts Options) (string, error) {
	if opts.MirrorURL == "" {
		opts.MirrorURL = DefaultMirrorURL
	}
	if opts.UpstreamURL == "" {
		opts.UpstreamURL = DefaultUpstreamURL
	}
	if err := os.MkdirAll(srcRoot, 0o750); err != nil {
		return "", fmt.Errorf("failed to create source root: %w", err)
	}

	strat := SelectStrategy(opts)
	err := strat.Fetch(ctx, srcRoot)
	if err != nil && strat.Name() != "clone" && opts.FallbackOnError {
		_, _ = fmt.Fprintf(os.Stderr, "zipfuzz: %s acquisition failed (%v); falling back to clone\n", strat.Name(), err)
		fallback := &cloneStrategy{upstreamURL: opts.UpstreamURL, print: opts.PrintCommands}
		err = fallback.Fetch(ctx, srcRoot)
	}
	if err != nil {
		return "", fmt.Errorf("source acquisition failed: %w", err)
	}

	tree, err := Normalize(srcRoot)
	if err != nil {
		return "", err
	}
	return tree, nil
}

// Normalize renames the acquired top-level directory to the canonical
// project name. It runs unconditionally after either strategy, so the
// strategies stay symmetric and the rename logic stays in one place.
func Normalize(srcRoot string) (string, error) {
	canonical := filepath.Join(srcRoot, fuzzenv.ProjectName)
	if info, err := os.Stat(canonical); err == nil && info.IsDir() {
		return canonical, nil
	}

	entries, err := os.ReadDir(srcRoot)
	if err != nil {
		return "", fmt.Errorf("failed to list source root: %w", err)
	}
	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), fuzzenv.ProjectName) {
			candidates = append(candidates, entry.Name())
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no %s source tree found under %q", fuzzenv.ProjectName, srcRoot)
	}
	// Сортируем для детерминированного выбора при нескольких кандидатах.
	sort.Strings(candidates)
	if err := os.Rename(filepath.Join(srcRoot, candidates[0]), canonical); err != nil {
		return "", fmt.Errorf("failed to rename %q to canonical name: %w", candidates[0], err)
	}
	return canonical, nil
}

type objectStoreStrategy struct {
	mirrorURL string
	print     bool
}

func (s *objectStoreStrategy) Name() string { return "object-store" }

// Fetch copies the snapshot archive out of the object store, unpacks it
// into srcRoot, and removes the transport artifact.
func (s *objectStoreStrategy) Fetch(ctx context.Context, srcRoot string) error {
	archivePath := filepath.Join(srcRoot, filepath.Base(s.mirrorURL))
	if err := toolchain.Run(ctx, srcRoot, s.print, objectStoreTool, "cp", s.mirrorURL, archivePath); err != nil {
		return fmt.Errorf("snapshot fetch failed: %w", err)
	}
	if err := extractArchive(ctx, archivePath, srcRoot); err != nil {
		return fmt.Errorf("snapshot unpack failed: %w", err)
	}
	if err := os.Remove(archivePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove snapshot archive: %w", err)
	}
	return nil
}

type cloneStrategy struct {
	upstreamURL string
	print       bool
}

func (s *cloneStrategy) Name() string { return "clone" }

// Fetch performs a shallow clone of the upstream repository into srcRoot.
func (s *cloneStrategy) Fetch(ctx context.Context, srcRoot string) error {
	if err := toolchain.Run(ctx, srcRoot, s.print, "git", "clone", "--depth", "1", s.upstreamURL); err != nil {
		return fmt.Errorf("shallow clone failed: %w", err)
	}
	return nil
}
