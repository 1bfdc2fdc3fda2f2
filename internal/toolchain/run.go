// Package toolchain runs external build tools (cmake, make, git, compilers)
// with uniform stderr capture and optional command echoing.
package toolchain

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Available reports whether a tool can be found on the execution path.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Run executes name with args in dir (empty dir keeps the working directory).
// Stdout passes through; stderr is captured and folded into the returned
// error so a failing tool names itself in diagnostics.
func Run(ctx context.Context, dir string, printCommands bool, name string, args ...string) error {
	if printCommands {
		_, printErr := fmt.Fprintf(os.Stdout, "%s %s\n", name, strings.Join(args, " "))
		if printErr != nil {
			return fmt.Errorf("failed to print command: %w", printErr)
		}
	}
	// #nosec G204 -- tool names and arguments come from the fixed pipeline configuration
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("%s: %w", name, err)
		}
		return fmt.Errorf("%s: %s", name, msg)
	}
	return nil
}
