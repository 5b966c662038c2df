package platform

import (
	"io/fs"
	"os"
	"runtime"
)

// Modes for generated provider files and the directories holding them.
const (
	DirPerm  fs.FileMode = 0o755
	FilePerm fs.FileMode = 0o644
)

// setMode applies mode to path. Windows has no Unix permission bits, so
// there it does nothing.
func setMode(path string, mode fs.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return os.Chmod(path, mode)
}
