//go:build windows

package libmain

import "os"

const stagedMode = 0o775

func chmod(path string, mode uint32) error {
	return os.Chmod(path, os.FileMode(mode))
}
