package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"zipfuzz/internal/acquire"
	"zipfuzz/internal/fuzzenv"
	"zipfuzz/internal/pipeline"
	"zipfuzz/internal/stamp"
	"zipfuzz/internal/testkit"
)

// plantTree lays out a minimal source tree at the canonical path so the
// no-op clone fake leaves something for normalization to find.
func plantTree(t *testing.T, srcRoot string) {
	t.Helper()
	tree := filepath.Join(srcRoot, "libzip")
	files := map[string]string{
		"lib/zip.h":                  "/* public header */\n",
		"ossfuzz/zip_read_fuzzer.cc": "// harness\n",
		"ossfuzz/zip_write_fuzzer.c": "// harness\n",
		"ossfuzz/fuzz_main.c":        "int main(void) { return 0; }\n",
		"regress/simple.zip":         "PK\x05\x06",
	}
	for rel, content := range files {
		path := filepath.Join(tree, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("fixture: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
			t.Fatalf("fixture: %v", err)
		}
	}
}

func installPipelineFakes(t *testing.T) string {
	t.Helper()
	bin := t.TempDir()
	testkit.InstallTool(t, bin, "git", "exit 0\n")
	testkit.InstallTool(t, bin, "cmake", "exit 0\n")
	testkit.InstallTool(t, bin, "make", "mkdir -p lib && : > lib/libzip.a && : > zipconf.h\n")
	testkit.IsolatePath(t, bin)
	return bin
}

func fakeCXX(t *testing.T) string {
	t.Helper()
	script := `out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
: > "$out"
`
	return testkit.InstallTool(t, t.TempDir(), "c++", script)
}

func testRequest(t *testing.T, srcRoot, workRoot, outRoot string) *pipeline.Request {
	t.Helper()
	return &pipeline.Request{
		Acquire: acquire.Options{FallbackOnError: true},
		Env: fuzzenv.Env{
			SrcRoot:       srcRoot,
			WorkRoot:      workRoot,
			OutRoot:       outRoot,
			CXX:           fakeCXX(t),
			FuzzingEngine: "-fsanitize=fuzzer",
		},
		Jobs: 2,
	}
}

func builtNames(result pipeline.Result) []string {
	var names []string
	for _, out := range result.Outcomes {
		if out.Err == nil {
			names = append(names, out.Spec.Name)
		}
	}
	sort.Strings(names)
	return names
}

func TestRun_FullPipeline(t *testing.T) {
	installPipelineFakes(t)
	srcRoot := t.TempDir()
	plantTree(t, srcRoot)
	workRoot := t.TempDir()
	outRoot := filepath.Join(t.TempDir(), "out")

	result, err := pipeline.Run(context.Background(), testRequest(t, srcRoot, workRoot, outRoot))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := builtNames(result); !sort.StringsAreSorted(got) || len(got) != 2 ||
		got[0] != "zip_read_fuzzer" || got[1] != "zip_write_fuzzer" {
		t.Fatalf("built harnesses = %v", got)
	}
	for _, name := range []string{"zip_read_fuzzer", "zip_write_fuzzer"} {
		if _, err := os.Stat(filepath.Join(outRoot, name)); err != nil {
			t.Fatalf("harness executable %s missing: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(outRoot, "fuzz_main")); !os.IsNotExist(err) {
		t.Fatalf("reserved entry point was compiled (err = %v)", err)
	}
	if _, err := os.Stat(filepath.Join(outRoot, "zip.dict")); err != nil {
		t.Fatalf("dictionary missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outRoot, "include", "zip.h")); err != nil {
		t.Fatalf("exported header missing: %v", err)
	}
	if result.Assets.CorpusFiles != 1 {
		t.Fatalf("CorpusFiles = %d, want 1", result.Assets.CorpusFiles)
	}
	if _, ok, err := stamp.Load(workRoot); err != nil || !ok {
		t.Fatalf("run stamp missing (ok=%v, err=%v)", ok, err)
	}
}

func TestRun_RerunSameHarnessSet(t *testing.T) {
	installPipelineFakes(t)
	srcRoot := t.TempDir()
	plantTree(t, srcRoot)
	workRoot := t.TempDir()
	outRoot := filepath.Join(t.TempDir(), "out")

	first, err := pipeline.Run(context.Background(), testRequest(t, srcRoot, workRoot, outRoot))
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := pipeline.Run(context.Background(), testRequest(t, srcRoot, workRoot, outRoot))
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if got, want := builtNames(second), builtNames(first); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("harness set changed across runs: %v vs %v", got, want)
	}
	if second.HarnessDrift {
		t.Fatal("unexpected drift for identical runs")
	}
}

func TestRun_AcquireFailureAborts(t *testing.T) {
	bin := t.TempDir()
	testkit.InstallTool(t, bin, "git", "echo 'fatal: unable to access' >&2\nexit 128\n")
	testkit.IsolatePath(t, bin)

	req := testRequest(t, t.TempDir(), t.TempDir(), t.TempDir())
	_, err := pipeline.Run(context.Background(), req)
	if err == nil || !strings.Contains(err.Error(), "acquire") {
		t.Fatalf("err = %v, want acquire failure", err)
	}
}

func TestRun_BuildFailureAborts(t *testing.T) {
	bin := t.TempDir()
	testkit.InstallTool(t, bin, "git", "exit 0\n")
	testkit.InstallTool(t, bin, "cmake", "exit 0\n")
	testkit.InstallTool(t, bin, "make", "echo 'Error 2' >&2\nexit 2\n")
	testkit.IsolatePath(t, bin)

	srcRoot := t.TempDir()
	plantTree(t, srcRoot)
	req := testRequest(t, srcRoot, t.TempDir(), t.TempDir())
	_, err := pipeline.Run(context.Background(), req)
	if err == nil || !strings.Contains(err.Error(), "build") {
		t.Fatalf("err = %v, want build failure", err)
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []pipeline.Event
}

func (s *recordingSink) OnEvent(ev pipeline.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func TestRun_EmitsStageEvents(t *testing.T) {
	installPipelineFakes(t)
	srcRoot := t.TempDir()
	plantTree(t, srcRoot)

	sink := &recordingSink{}
	req := testRequest(t, srcRoot, t.TempDir(), filepath.Join(t.TempDir(), "out"))
	req.Progress = sink
	if _, err := pipeline.Run(context.Background(), req); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) == 0 {
		t.Fatal("no events emitted")
	}
	if sink.events[0].Stage != pipeline.StageAcquire {
		t.Fatalf("first event stage = %s, want acquire", sink.events[0].Stage)
	}
	sawHarnessUnit := false
	for _, ev := range sink.events {
		if ev.Stage == pipeline.StageHarness && ev.Unit != "" {
			sawHarnessUnit = true
		}
	}
	if !sawHarnessUnit {
		t.Fatal("no per-harness events emitted")
	}
}
