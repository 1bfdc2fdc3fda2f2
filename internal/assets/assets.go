// Package assets assembles the auxiliary fuzzing inputs: a seed corpus
// collected from the tree's regression assets and a token dictionary that
// is copied when present and synthesized otherwise. Every asset here is
// best-effort; a missing original degrades to a fallback, never an error.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"zipfuzz/internal/fuzzenv"
)

const (
	// CorpusDirName is the seed corpus directory created under the output root.
	CorpusDirName = "zip_seed_corpus"
	// DictName is the dictionary file created under the output root.
	DictName = "zip.dict"
	// SeedBundleName is the pre-packaged corpus bundle for the encrypted
	// read harness; copied as-is when the tree ships one.
	SeedBundleName = "zip_read_encrypted_fuzzer_seed_corpus.zip"

	corpusExt = ".zip"

	// maxSeedBytes bounds individual corpus samples; oversized regression
	// fixtures only slow the fuzzing engine down.
	maxSeedBytes = 1 << 20
)

// Report describes what the assembler produced and how.
type Report struct {
	CorpusFiles     int
	BundleCopied    bool
	DictSynthesized bool
	SeedSynthesized bool
	// Warnings carries per-asset degradations worth printing.
	Warnings []string
}

// Assemble populates the corpus directory and dictionary under outRoot
// from the source tree. Re-running overwrites prior output.
func Assemble(ctx context.Context, tree, outRoot string) (Report, error) {
	var report Report

	corpusDir := filepath.Join(outRoot, CorpusDirName)
	if err := os.MkdirAll(corpusDir, 0o750); err != nil {
		return report, fmt.Errorf("failed to create corpus dir: %w", err)
	}

	count, warnings := collectCorpus(fuzzenv.RegressDir(tree), corpusDir)
	report.CorpusFiles = count
	report.Warnings = append(report.Warnings, warnings...)

	copied, err := copySeedBundle(tree, corpusDir)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("seed bundle: %v", err))
	}
	report.BundleCopied = copied

	synthesizedDict, err := writeDictionary(tree, outRoot)
	if err != nil {
		return report, fmt.Errorf("failed to write dictionary: %w", err)
	}
	report.DictSynthesized = synthesizedDict

	if report.CorpusFiles == 0 && !report.BundleCopied {
		if err := synthesizeSeed(ctx, corpusDir); err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("seed synthesis: %v", err))
		} else {
			report.SeedSynthesized = true
		}
	}

	return report, nil
}

// collectCorpus copies every corpus-extension file under regressDir into
// corpusDir, flat. A missing regression directory is a degradation, not an
// error: the corpus contract is "zero or more" samples.
func collectCorpus(regressDir, corpusDir string) (int, []string) {
	var warnings []string
	count := 0
	err := filepath.WalkDir(regressDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), corpusExt) {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxSeedBytes {
			return nil
		}
		if err := copyFile(path, filepath.Join(corpusDir, d.Name())); err != nil {
			warnings = append(warnings, fmt.Sprintf("corpus sample %s: %v", d.Name(), err))
			return nil
		}
		count++
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		warnings = append(warnings, fmt.Sprintf("corpus walk: %v", err))
	}
	return count, warnings
}

// copySeedBundle copies the pre-packaged encrypted-harness bundle into the
// corpus directory as-is when the tree ships one.
func copySeedBundle(tree, corpusDir string) (bool, error) {
	src := filepath.Join(fuzzenv.FuzzDir(tree), SeedBundleName)
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := copyFile(src, filepath.Join(corpusDir, SeedBundleName)); err != nil {
		return false, err
	}
	return true, nil
}

func copyFile(src, dst string) error {
	// #nosec G304 -- paths stay inside the pipeline's own directories
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
