package acquire

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver/v4"
)

// extractArchive unpacks the snapshot archive at archivePath into destRoot.
// The format is identified from the filename and stream, so the mirror may
// serve .tar.gz, .tar.zst, or plain .zip snapshots interchangeably.
func extractArchive(ctx context.Context, archivePath, destRoot string) error {
	// #nosec G304 -- archivePath is derived from the configured mirror URL
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	format, _, err := archiver.Identify(filepath.Base(archivePath), f)
	if err != nil {
		return fmt.Errorf("failed to identify archive format: %w", err)
	}
	extractor, ok := format.(archiver.Extractor)
	if !ok {
		return fmt.Errorf("archive format %q is not extractable", format.Name())
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind archive: %w", err)
	}

	return extractor.Extract(ctx, f, nil, func(ctx context.Context, file archiver.File) error {
		rel, err := sanitizeArchivePath(file.NameInArchive)
		if err != nil {
			return err
		}
		dst := filepath.Join(destRoot, rel)
		if file.IsDir() {
			return os.MkdirAll(dst, 0o750)
		}
		if file.LinkTarget != "" {
			// Символические ссылки в снапшоте не нужны для сборки.
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
			return err
		}
		src, err := file.Open()
		if err != nil {
			return fmt.Errorf("failed to open %q in archive: %w", file.NameInArchive, err)
		}
		defer func() {
			if closeErr := src.Close(); closeErr != nil {
				_ = closeErr
			}
		}()
		// #nosec G304 -- dst stays under destRoot per sanitizeArchivePath
		out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, file.Mode().Perm())
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, src); err != nil {
			_ = out.Close()
			return fmt.Errorf("failed to write %q: %w", dst, err)
		}
		return out.Close()
	})
}

// sanitizeArchivePath rejects entries that would escape the destination.
func sanitizeArchivePath(name string) (string, error) {
	rel := filepath.FromSlash(name)
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	clean := filepath.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return clean, nil
}
