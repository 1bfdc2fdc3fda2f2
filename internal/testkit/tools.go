// Package testkit provides helpers for tests that drive external tools:
// fake executables installed into a directory that is then prepended to
// PATH, so capability probes and command runs resolve to the fakes.
package testkit

import (
	"os"
	"path/filepath"
	"testing"
)

// InstallTool writes an executable shell script named name into dir and
// returns its path.
func InstallTool(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil { // #nosec G306 -- test fake must be executable
		t.Fatalf("install fake %s: %v", name, err)
	}
	return path
}

// PrependPath puts dir at the front of PATH for the duration of the test.
func PrependPath(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// IsolatePath replaces PATH with dir plus the standard system directories,
// so tools absent from dir resolve only to /usr/bin and /bin.
func IsolatePath(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("PATH", dir+":/usr/bin:/bin")
}

// EmptyPath points PATH at an empty directory, simulating absence of every
// external tool.
func EmptyPath(t *testing.T) {
	t.Helper()
	t.Setenv("PATH", t.TempDir())
}
