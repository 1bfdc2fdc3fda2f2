package includes_test

import (
	"os"
	"path/filepath"
	"testing"

	"zipfuzz/internal/includes"
)

func TestExport_CopiesHeaders(t *testing.T) {
	tree := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tree, "lib"), 0o750); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tree, "lib", "zip.h"), []byte("/* zip.h */\n"), 0o640); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	buildDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(buildDir, "zipconf.h"), []byte("/* zipconf.h */\n"), 0o640); err != nil {
		t.Fatalf("fixture: %v", err)
	}

	out := t.TempDir()
	exported, err := includes.Export(tree, buildDir, out)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(exported) != 2 {
		t.Fatalf("exported %d headers, want 2: %v", len(exported), exported)
	}
	for _, name := range []string{"zip.h", "zipconf.h"} {
		if _, err := os.Stat(filepath.Join(out, "include", name)); err != nil {
			t.Fatalf("exported header %s missing: %v", name, err)
		}
	}
}

func TestExport_GeneratedHeaderOptional(t *testing.T) {
	tree := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tree, "lib"), 0o750); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tree, "lib", "zip.h"), []byte("/* zip.h */\n"), 0o640); err != nil {
		t.Fatalf("fixture: %v", err)
	}

	exported, err := includes.Export(tree, t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(exported) != 1 {
		t.Fatalf("exported %d headers, want 1: %v", len(exported), exported)
	}
}

func TestExport_MissingPublicHeader(t *testing.T) {
	if _, err := includes.Export(t.TempDir(), t.TempDir(), t.TempDir()); err == nil {
		t.Fatal("expected error when the public header is missing")
	}
}
