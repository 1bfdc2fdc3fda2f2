package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mholt/archiver/v4"
)

// synthesizeSeed writes one minimal valid archive into corpusDir so the
// fuzzing engine never starts from an empty corpus.
func synthesizeSeed(ctx context.Context, corpusDir string) error {
	stage, err := os.MkdirTemp("", "zipfuzz-seed-*")
	if err != nil {
		return fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(stage); rmErr != nil {
			_ = rmErr
		}
	}()

	member := filepath.Join(stage, "hello.txt")
	if err := os.WriteFile(member, []byte("zipfuzz seed\n"), 0o640); err != nil {
		return fmt.Errorf("failed to write seed member: %w", err)
	}
	files, err := archiver.FilesFromDisk(nil, map[string]string{member: "hello.txt"})
	if err != nil {
		return fmt.Errorf("failed to stage seed member: %w", err)
	}

	out, err := os.OpenFile(filepath.Join(corpusDir, "seed_minimal.zip"), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("failed to create seed archive: %w", err)
	}
	if err := (archiver.Zip{}).Archive(ctx, out, files); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write seed archive: %w", err)
	}
	return out.Close()
}
