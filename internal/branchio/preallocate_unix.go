//go:build linux || darwin || freebsd

package branchio

import (
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/branchfs/branchfs/internal/bflog"
	"github.com/branchfs/branchfs/internal/errtype"
)

// fallocFlags is the fallback ladder of fallocate flag combinations tried
// in order, grounded directly on backend/local/preallocate_unix.go: the
// first attempt preserves the reported file size, the second additionally
// punches a hole so a shrinking preallocate doesn't leave stale data
// readable. A process-wide atomic index remembers how far down the ladder
// this host needs to go, so repeated calls don't re-probe flags already
// known to fail with ENOTSUP.
var fallocFlags = []uint32{
	unix.FALLOC_FL_KEEP_SIZE,
	unix.FALLOC_FL_KEEP_SIZE | unix.FALLOC_FL_PUNCH_HOLE,
}

var fallocFlagIndex atomic.Int32

// Preallocate reserves size bytes for out without changing its apparent
// length, used ahead of a large write or a move-on-ENOSPC migration so the
// destination branch's free-space check and the actual write agree.
func Preallocate(size int64, out *os.File) error {
	if size <= 0 {
		return nil
	}
	idx := fallocFlagIndex.Load()
	for int(idx) < len(fallocFlags) {
		err := unix.Fallocate(int(out.Fd()), fallocFlags[idx], 0, size)
		if err == nil {
			return nil
		}
		if err == unix.ENOTSUP || err == unix.EOPNOTSUPP {
			idx++
			fallocFlagIndex.Store(idx)
			bflog.Debugf(out.Name(), "fallocate flags %#x not supported, falling back", fallocFlags[idx-1])
			continue
		}
		if err == unix.ENOSPC {
			return errtype.New(errtype.KindNoSpace, out.Name(), err)
		}
		// Any other failure (e.g. filesystem doesn't implement fallocate at
		// all) is advisory only: preallocation failing must never fail the
		// write it was meant to speed up.
		return nil
	}
	return nil
}
