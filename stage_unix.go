//go:build !windows

package libmain

import "golang.org/x/sys/unix"

// stagedMode is rwxrwxr-x: shared storage is usually mounted noexec, so the
// candidate is copied into the private sandbox and made executable there.
const stagedMode = unix.S_IRUSR | unix.S_IWUSR | unix.S_IXUSR |
	unix.S_IRGRP | unix.S_IWGRP | unix.S_IXGRP |
	unix.S_IROTH | unix.S_IXOTH

func chmod(path string, mode uint32) error {
	return unix.Chmod(path, mode)
}
