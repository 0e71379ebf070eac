package branchio

import (
	"os"
	"syscall"
)

// isCircularSymlinkError reports whether err is the ELOOP a symlink cycle
// produces, grounded on backend/local/symlink.go's isCircularSymlinkError.
func isCircularSymlinkError(err error) bool {
	perr, ok := err.(*os.PathError)
	if !ok {
		return false
	}
	errno, ok := perr.Err.(syscall.Errno)
	if !ok {
		return false
	}
	return errno == syscall.ELOOP
}

// ReadLink returns the target of a symlink at path, or a Loop-kinded error
// if the kernel reports a cycle.
func ReadLink(path string) (string, error) {
	target, err := os.Readlink(path)
	if err != nil {
		if isCircularSymlinkError(err) {
			return "", wrapLoop(path, err)
		}
		return "", wrapClassify(path, err)
	}
	return target, nil
}

// Symlink creates a symlink at path pointing at target.
func Symlink(target, path string) error {
	if err := os.Symlink(target, path); err != nil {
		return wrapClassify(path, err)
	}
	return nil
}
