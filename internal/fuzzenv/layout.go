package fuzzenv

import "path/filepath"

// ProjectName is the canonical directory name of the acquired source tree.
// Both acquisition strategies normalize to it, so nothing downstream ever
// depends on which path produced the tree.
const ProjectName = "libzip"

const (
	fuzzDirName    = "ossfuzz"
	regressDirName = "regress"
	headerDirName  = "lib"
	publicHeader   = "zip.h"
)

// FuzzDir returns the directory inside the tree holding fuzz-entry sources.
func FuzzDir(tree string) string {
	return filepath.Join(tree, fuzzDirName)
}

// RegressDir returns the regression/test-asset directory inside the tree.
func RegressDir(tree string) string {
	return filepath.Join(tree, regressDirName)
}

// HeaderDir returns the directory holding the library's public headers.
func HeaderDir(tree string) string {
	return filepath.Join(tree, headerDirName)
}

// PublicHeader returns the path of the single public header of the library.
func PublicHeader(tree string) string {
	return filepath.Join(tree, headerDirName, publicHeader)
}
