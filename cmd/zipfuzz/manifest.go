package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"zipfuzz/internal/acquire"
)

// zipfuzz.toml is optional: it only carries acquisition endpoints and the
// fetch-failure policy. Build options are fixed and never configurable.
type manifestConfig struct {
	Acquire acquireConfig `toml:"acquire"`
}

type acquireConfig struct {
	Mirror          string `toml:"mirror"`
	Upstream        string `toml:"upstream"`
	FallbackOnError *bool  `toml:"fallback_on_error"`
}

func findZipfuzzToml(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "zipfuzz.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// loadAcquireOptions resolves acquisition options from the manifest when
// one exists; defaults apply otherwise. The fallback policy defaults to
// true: a broken mirror should not stop a fuzzing run the clone path can
// still serve.
func loadAcquireOptions(startDir string) (acquire.Options, error) {
	opts := acquire.Options{
		MirrorURL:       acquire.DefaultMirrorURL,
		UpstreamURL:     acquire.DefaultUpstreamURL,
		FallbackOnError: true,
	}
	path, ok, err := findZipfuzzToml(startDir)
	if err != nil || !ok {
		return opts, err
	}
	var cfg manifestConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return opts, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if cfg.Acquire.Mirror != "" {
		opts.MirrorURL = cfg.Acquire.Mirror
	}
	if cfg.Acquire.Upstream != "" {
		opts.UpstreamURL = cfg.Acquire.Upstream
	}
	if cfg.Acquire.FallbackOnError != nil {
		opts.FallbackOnError = *cfg.Acquire.FallbackOnError
	}
	return opts, nil
}
