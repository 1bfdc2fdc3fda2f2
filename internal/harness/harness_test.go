package harness_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"zipfuzz/internal/fuzzenv"
	"zipfuzz/internal/harness"
	"zipfuzz/internal/testkit"
)

func writeSources(t *testing.T, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("// "+name+"\n"), 0o640); err != nil {
			t.Fatalf("fixture: %v", err)
		}
	}
}

func TestDiscover_ExcludesReservedEntryPoint(t *testing.T) {
	dir := t.TempDir()
	writeSources(t, dir,
		"zip_read_fuzzer.cc",
		"zip_write_fuzzer.c",
		"fuzz_main.c",
		"README.md",
	)

	specs, err := harness.Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("got %d specs, want 2: %+v", len(specs), specs)
	}
	if specs[0].Name != "zip_read_fuzzer" || specs[1].Name != "zip_write_fuzzer" {
		t.Fatalf("unexpected specs: %+v", specs)
	}
	for _, spec := range specs {
		if filepath.Base(spec.Path) == harness.ReservedEntryPoint {
			t.Fatalf("reserved entry point leaked into specs: %+v", spec)
		}
	}
}

func TestDiscover_MissingDir(t *testing.T) {
	if _, err := harness.Discover(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing fuzz-entry dir")
	}
}

// fakeCompiler creates the -o target, records its argv, and fails for any
// source whose name contains "broken".
func fakeCompiler(t *testing.T, argsLog string) string {
	t.Helper()
	script := `out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
echo "$@" >> ` + argsLog + `
case "$@" in
  *broken*) echo "error: expected ';'" >&2; exit 1;;
esac
: > "$out"
`
	return testkit.InstallTool(t, t.TempDir(), "c++", script)
}

func TestCompileAll_IndependentFailures(t *testing.T) {
	fuzzDir := t.TempDir()
	writeSources(t, fuzzDir,
		"zip_read_fuzzer.cc",
		"zip_broken_fuzzer.cc",
		"zip_write_fuzzer.cc",
	)
	specs, err := harness.Discover(fuzzDir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("got %d specs, want 3", len(specs))
	}

	argsLog := filepath.Join(t.TempDir(), "args.log")
	outDir := t.TempDir()
	outcomes, err := harness.CompileAll(context.Background(), specs, &harness.CompileRequest{
		BuildDir:  "/work/build",
		HeaderDir: "/src/libzip/lib",
		StaticLib: "/work/build/libzip.a",
		OutDir:    outDir,
		Env:       fuzzenv.Env{CXX: fakeCompiler(t, argsLog), FuzzingEngine: "-fsanitize=fuzzer"},
		Jobs:      2,
	})
	if err != nil {
		t.Fatalf("CompileAll: %v", err)
	}

	byName := make(map[string]harness.Outcome, len(outcomes))
	for _, out := range outcomes {
		byName[out.Spec.Name] = out
	}
	if byName["zip_broken_fuzzer"].Err == nil {
		t.Fatal("expected failure for broken harness")
	}
	for _, name := range []string{"zip_read_fuzzer", "zip_write_fuzzer"} {
		if byName[name].Err != nil {
			t.Fatalf("harness %s failed: %v", name, byName[name].Err)
		}
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("executable %s missing: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "zip_broken_fuzzer")); !os.IsNotExist(err) {
		t.Fatalf("broken harness produced an executable (err = %v)", err)
	}
}

func TestCompileAll_LinkLine(t *testing.T) {
	fuzzDir := t.TempDir()
	writeSources(t, fuzzDir, "zip_read_fuzzer.cc")
	specs, err := harness.Discover(fuzzDir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	argsLog := filepath.Join(t.TempDir(), "args.log")
	outDir := t.TempDir()
	if _, err := harness.CompileAll(context.Background(), specs, &harness.CompileRequest{
		BuildDir:  "/work/build",
		HeaderDir: "/src/libzip/lib",
		StaticLib: "/work/build/libzip.a",
		OutDir:    outDir,
		Env: fuzzenv.Env{
			CXX:           fakeCompiler(t, argsLog),
			CXXFlags:      []string{"-O1", "-g"},
			FuzzingEngine: "-fsanitize=fuzzer",
		},
	}); err != nil {
		t.Fatalf("CompileAll: %v", err)
	}

	data, err := os.ReadFile(argsLog)
	if err != nil {
		t.Fatalf("read args log: %v", err)
	}
	line := string(data)
	for _, want := range []string{
		"-O1", "-g",
		"-I/work/build", "-I/src/libzip/lib",
		"-fsanitize=fuzzer",
		"/work/build/libzip.a",
		"-lbz2", "-llzma", "-lz", "-lzstd", "-lssl", "-lcrypto",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("link line missing %q: %s", want, line)
		}
	}
}

func TestCompileAll_OutcomeCallback(t *testing.T) {
	fuzzDir := t.TempDir()
	writeSources(t, fuzzDir, "a_fuzzer.cc", "b_fuzzer.cc")
	specs, err := harness.Discover(fuzzDir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	argsLog := filepath.Join(t.TempDir(), "args.log")
	seen := make(chan harness.Outcome, len(specs))
	if _, err := harness.CompileAll(context.Background(), specs, &harness.CompileRequest{
		OutDir:    t.TempDir(),
		Env:       fuzzenv.Env{CXX: fakeCompiler(t, argsLog), FuzzingEngine: "-fsanitize=fuzzer"},
		OnOutcome: func(out harness.Outcome) { seen <- out },
	}); err != nil {
		t.Fatalf("CompileAll: %v", err)
	}
	close(seen)
	count := 0
	for range seen {
		count++
	}
	if count != len(specs) {
		t.Fatalf("callback fired %d times, want %d", count, len(specs))
	}
}
