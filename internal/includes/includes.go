// Package includes exports the library's public headers into a shared
// include directory for downstream consumers.
package includes

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"zipfuzz/internal/fuzzenv"
)

// generatedConfigHeader is produced by the configure step in the build
// directory; the public header is unusable without it.
const generatedConfigHeader = "zipconf.h"

// Export copies the public header (and the generated config header, when
// the build produced one) into <outRoot>/include, creating it if absent.
// It returns the exported paths.
func Export(tree, buildDir, outRoot string) ([]string, error) {
	includeDir := filepath.Join(outRoot, "include")
	if err := os.MkdirAll(includeDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create include dir: %w", err)
	}

	var exported []string
	header := fuzzenv.PublicHeader(tree)
	dst := filepath.Join(includeDir, filepath.Base(header))
	if err := copyFile(header, dst); err != nil {
		return nil, fmt.Errorf("failed to export public header: %w", err)
	}
	exported = append(exported, dst)

	generated := filepath.Join(buildDir, generatedConfigHeader)
	dst = filepath.Join(includeDir, generatedConfigHeader)
	switch err := copyFile(generated, dst); {
	case err == nil:
		exported = append(exported, dst)
	case errors.Is(err, os.ErrNotExist):
		// older trees generate it elsewhere; the public header alone still exports
	default:
		return exported, fmt.Errorf("failed to export generated header: %w", err)
	}

	return exported, nil
}

func copyFile(src, dst string) error {
	// #nosec G304 -- paths are derived from the pipeline's own directories
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := in.Close(); closeErr != nil {
			_ = closeErr
		}
	}()
	// #nosec G304 -- see above
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
