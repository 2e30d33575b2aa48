package build

import (
	"os"
	"path/filepath"
)

// TempDir joins a root dir and a per-test name into a path suitable for a
// scratch directory, mirroring the helper the persist/modules test suites
// use to get a unique, non-colliding directory per test.
func TempDir(root, name string) string {
	return filepath.Join(os.TempDir(), "tradeloop-engine", root, name)
}
