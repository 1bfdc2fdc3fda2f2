package acquire_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"zipfuzz/internal/acquire"
	"zipfuzz/internal/testkit"
)

func TestSelectStrategy_ToolAbsence(t *testing.T) {
	testkit.EmptyPath(t)
	strat := acquire.SelectStrategy(acquire.Options{})
	if strat.Name() != "clone" {
		t.Fatalf("strategy = %q, want clone when gsutil is absent", strat.Name())
	}
}

func TestSelectStrategy_ToolPresent(t *testing.T) {
	bin := t.TempDir()
	testkit.InstallTool(t, bin, "gsutil", "exit 0\n")
	testkit.PrependPath(t, bin)
	strat := acquire.SelectStrategy(acquire.Options{})
	if strat.Name() != "object-store" {
		t.Fatalf("strategy = %q, want object-store when gsutil is present", strat.Name())
	}
}

func TestAcquire_ClonePathProducesCanonicalTree(t *testing.T) {
	bin := t.TempDir()
	testkit.InstallTool(t, bin, "git", "mkdir -p libzip && touch libzip/README\n")
	testkit.IsolatePath(t, bin)

	srcRoot := t.TempDir()
	tree, err := acquire.Acquire(context.Background(), srcRoot, acquire.Options{FallbackOnError: true})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	want := filepath.Join(srcRoot, "libzip")
	if tree != want {
		t.Fatalf("tree = %q, want %q", tree, want)
	}
	if _, err := os.Stat(filepath.Join(tree, "README")); err != nil {
		t.Fatalf("cloned tree content missing: %v", err)
	}
}

func TestAcquire_FallsBackWhenFetchFails(t *testing.T) {
	bin := t.TempDir()
	testkit.InstallTool(t, bin, "gsutil", "echo 'no such object' >&2\nexit 1\n")
	testkit.InstallTool(t, bin, "git", "mkdir -p libzip && touch libzip/CMakeLists.txt\n")
	testkit.PrependPath(t, bin)

	srcRoot := t.TempDir()
	tree, err := acquire.Acquire(context.Background(), srcRoot, acquire.Options{FallbackOnError: true})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if filepath.Base(tree) != "libzip" {
		t.Fatalf("tree = %q, want canonical name", tree)
	}
}

func TestAcquire_AbortsWhenPolicyForbidsFallback(t *testing.T) {
	bin := t.TempDir()
	testkit.InstallTool(t, bin, "gsutil", "exit 1\n")
	testkit.InstallTool(t, bin, "git", "mkdir -p libzip\n")
	testkit.PrependPath(t, bin)

	if _, err := acquire.Acquire(context.Background(), t.TempDir(), acquire.Options{FallbackOnError: false}); err == nil {
		t.Fatal("expected error when fallback is disabled and the fetch fails")
	}
}

func TestAcquire_BothPathsFail(t *testing.T) {
	bin := t.TempDir()
	testkit.InstallTool(t, bin, "gsutil", "exit 1\n")
	testkit.InstallTool(t, bin, "git", "exit 128\n")
	testkit.PrependPath(t, bin)

	if _, err := acquire.Acquire(context.Background(), t.TempDir(), acquire.Options{FallbackOnError: true}); err == nil {
		t.Fatal("expected error when both acquisition paths fail")
	}
}

func TestNormalize_RenamesVersionedDir(t *testing.T) {
	srcRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(srcRoot, "libzip-1.11.2", "lib"), 0o750); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	tree, err := acquire.Normalize(srcRoot)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if tree != filepath.Join(srcRoot, "libzip") {
		t.Fatalf("tree = %q, want canonical name", tree)
	}
	// Повторный вызов ничего не меняет.
	again, err := acquire.Normalize(srcRoot)
	if err != nil {
		t.Fatalf("Normalize (second): %v", err)
	}
	if again != tree {
		t.Fatalf("second Normalize = %q, want %q", again, tree)
	}
}

func TestNormalize_NoCandidates(t *testing.T) {
	if _, err := acquire.Normalize(t.TempDir()); err == nil {
		t.Fatal("expected error for empty source root")
	}
}
