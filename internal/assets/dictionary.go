package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"zipfuzz/internal/fuzzenv"
)

// fallbackTokens are format-characteristic tokens used when the tree ships
// no dictionary: the magic-number marker, record signatures, format names,
// and structural section names. One quoted token per line keeps the output
// readable by the fuzzing engine's dictionary parser.
var fallbackTokens = []string{
	"PK",
	"PK\x03\x04",
	"PK\x01\x02",
	"PK\x05\x06",
	"PK\x06\x06",
	"PK\x06\x07",
	"PK\x07\x08",
	"zip",
	"zip64",
	"local file header",
	"central directory",
	"end of central directory",
	"data descriptor",
	"extra field",
}

// writeDictionary copies the tree's dictionary verbatim when present and
// synthesizes the fallback otherwise. The output file always exists
// afterwards. Returns whether synthesis was used.
func writeDictionary(tree, outRoot string) (bool, error) {
	dst := filepath.Join(outRoot, DictName)
	src := filepath.Join(fuzzenv.FuzzDir(tree), DictName)
	switch _, err := os.Stat(src); {
	case err == nil:
		return false, copyFile(src, dst)
	case errors.Is(err, os.ErrNotExist):
		// fall through to synthesis
	default:
		return false, err
	}

	var b strings.Builder
	for _, token := range fallbackTokens {
		fmt.Fprintf(&b, "%q\n", token)
	}
	if err := os.WriteFile(dst, []byte(b.String()), 0o640); err != nil {
		return false, err
	}
	return true, nil
}
