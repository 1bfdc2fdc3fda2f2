// Package buildcfg declares the fixed build configuration of the library:
// static-only output, exactly one crypto backend, no tools, and the system
// packages that must be present before the native build runs.
package buildcfg

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"zipfuzz/internal/toolchain"
)

// Option is one build-system cache entry.
type Option struct {
	Key   string
	Value string
}

// Fixed returns the declared build configuration. The set is intentionally
// hardcoded: harness binaries must link one static archive with one crypto
// backend, so there is nothing for a user to vary here.
func Fixed() []Option {
	return []Option{
		{Key: "BUILD_SHARED_LIBS", Value: "OFF"},
		{Key: "ENABLE_GNUTLS", Value: "OFF"},
		{Key: "ENABLE_MBEDTLS", Value: "OFF"},
		{Key: "ENABLE_OPENSSL", Value: "ON"},
		{Key: "ENABLE_CRYPTO", Value: "ON"},
		{Key: "BUILD_TOOLS", Value: "OFF"},
		{Key: "BUILD_REGRESS", Value: "OFF"},
		{Key: "BUILD_EXAMPLES", Value: "OFF"},
		{Key: "BUILD_DOC", Value: "OFF"},
	}
}

// RenderFlags turns options into -DKEY=VALUE arguments in declaration
// order. Two calls over the same options produce identical output.
func RenderFlags(opts []Option) []string {
	flags := make([]string, 0, len(opts))
	for _, opt := range opts {
		flags = append(flags, fmt.Sprintf("-D%s=%s", opt.Key, opt.Value))
	}
	return flags
}

// Digest returns a stable fingerprint of the rendered flags, used by the
// run stamp to detect configuration drift between runs.
func Digest(flags []string) [sha256.Size]byte {
	return sha256.Sum256([]byte(strings.Join(flags, "\x00")))
}

// debianPackages are the development dependencies of the native build.
var debianPackages = []string{
	"cmake",
	"libbz2-dev",
	"liblzma-dev",
	"zlib1g-dev",
	"libzstd-dev",
	"libssl-dev",
}

// EnsureDependencies installs the required system packages. The install is
// idempotent; re-running it on a provisioned host is a no-op for the
// package manager. Hosts without apt-get are assumed provisioned.
func EnsureDependencies(ctx context.Context, printCommands bool) error {
	if !toolchain.Available("apt-get") {
		return nil
	}
	args := append([]string{"install", "-y"}, debianPackages...)
	if err := toolchain.Run(ctx, "", printCommands, "apt-get", args...); err != nil {
		return fmt.Errorf("dependency install failed: %w", err)
	}
	return nil
}
