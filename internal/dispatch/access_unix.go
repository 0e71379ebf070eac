//go:build linux || darwin || freebsd || dragonfly

package dispatch

import (
	"golang.org/x/sys/unix"

	"github.com/branchfs/branchfs/internal/errtype"
)

// checkAccess performs the POSIX access(2) permission check against path,
// delegating the actual uid/gid/mode arithmetic to the kernel rather than
// reimplementing it, matching how a real union filesystem (no single
// owning process identity) must defer this decision to the host.
func checkAccess(path string, mode uint32) error {
	if err := unix.Access(path, mode); err != nil {
		return errtype.New(errtype.Classify(err), path, err)
	}
	return nil
}
