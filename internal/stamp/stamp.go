// Package stamp persists a small record of each successful run: the
// configuration fingerprint and the set of harness names produced. The next
// run loads it to report drift in the executable set, which is the
// artifact-naming determinism the pipeline promises.
package stamp

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when the Stamp format changes.
const schemaVersion uint16 = 1

const stampName = "zipfuzz.stamp"

// Digest is a SHA-256 fingerprint.
type Digest = [sha256.Size]byte

// Stamp records one completed run.
type Stamp struct {
	Schema       uint16
	ConfigDigest Digest
	Harnesses    []string
	BuildMillis  uint32
	CreatedAt    time.Time
}

// New builds a stamp from the rendered configure flags and the produced
// harness names. Names are stored sorted.
func New(configDigest Digest, harnesses []string, buildTime time.Duration) *Stamp {
	names := append([]string{}, harnesses...)
	sort.Strings(names)
	ms, err := safecast.Conv[uint32](buildTime.Milliseconds())
	if err != nil {
		ms = math.MaxUint32
	}
	return &Stamp{
		Schema:       schemaVersion,
		ConfigDigest: configDigest,
		Harnesses:    names,
		BuildMillis:  ms,
		CreatedAt:    time.Now().UTC(),
	}
}

// SameHarnessSet reports whether names matches the recorded set,
// irrespective of order.
func (s *Stamp) SameHarnessSet(names []string) bool {
	if s == nil || len(names) != len(s.Harnesses) {
		return false
	}
	sorted := append([]string{}, names...)
	sort.Strings(sorted)
	for i, name := range sorted {
		if name != s.Harnesses[i] {
			return false
		}
	}
	return true
}

func pathFor(workRoot string) string {
	return filepath.Join(workRoot, stampName)
}

// Write serializes the stamp into workRoot atomically.
func Write(workRoot string, s *Stamp) error {
	if s == nil {
		return fmt.Errorf("missing stamp")
	}
	p := pathFor(workRoot)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			_, _ = fmt.Fprintf(os.Stderr, "zipfuzz: failed to remove temp file: %v\n", rmErr)
		}
	}()

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(s); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), p)
}

// Remove deletes the stamp under workRoot; a missing stamp is fine.
func Remove(workRoot string) error {
	if err := os.Remove(pathFor(workRoot)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Load reads the stamp from workRoot. A missing or schema-mismatched stamp
// reports ok=false without error.
func Load(workRoot string) (*Stamp, bool, error) {
	f, err := os.Open(pathFor(workRoot))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			_ = closeErr
		}
	}()
	var s Stamp
	dec := msgpack.NewDecoder(f)
	if err := dec.Decode(&s); err != nil {
		return nil, false, err
	}
	if s.Schema != schemaVersion {
		return nil, false, nil
	}
	return &s, true, nil
}
