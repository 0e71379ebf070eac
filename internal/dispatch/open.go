package dispatch

import (
	"os"

	"github.com/branchfs/branchfs/internal/branchio"
	"github.com/branchfs/branchfs/internal/config"
	"github.com/branchfs/branchfs/internal/errtype"
	"github.com/branchfs/branchfs/internal/handle"
	"github.com/branchfs/branchfs/internal/pathutil"
)

// Open implements the open operation of §4.6: resolve virtualPath via the
// search policy, open a descriptor on the chosen branch, and configure
// direct-I/O per the configured cache.files mode.
func (d *Dispatcher) Open(virtualPath string, flags int) (handle.ID, error) {
	s := d.snapshot()
	candidates, err := s.resolveSearch("open", virtualPath)
	if err != nil {
		return 0, err
	}
	b, _, err := firstExisting(candidates, virtualPath)
	if err != nil {
		return 0, err
	}
	path := pathutil.Join(b.BasePath(), virtualPath)
	breakLinkIfNeeded(path, flags)
	f, err := branchio.OpenFile(path, flags, 0)
	if err != nil {
		return 0, err
	}
	cacheFlags := config.ResolveCacheFiles(s.cfg.CacheFiles, 0, nil)
	id := d.Handles.OpenFile(f, branchIndex(s.branches.Branches(), b), b.BasePath(), virtualPath, flags, cacheFlags.DirectIO)
	return id, nil
}

// Release closes a file handle.
func (d *Dispatcher) Release(id handle.ID) error {
	return d.Handles.ReleaseFile(id)
}

// OpenDir implements opendir: no eager enumeration, just a handle
// carrying the virtual path for a subsequent Readdir call.
func (d *Dispatcher) OpenDir(virtualPath string) handle.ID {
	return d.Handles.OpenDir(virtualPath)
}

// ReleaseDir closes a directory handle.
func (d *Dispatcher) ReleaseDir(id handle.ID) error {
	return d.Handles.ReleaseDir(id)
}

// Fsyncdir is a deliberate no-op per §4.6's table ("no-op, reports
// unsupported"): a union of directories spread across branches has no
// single fd to fsync, and no branch-local directory fsync would capture
// the aggregate's consistency any more meaningfully than doing nothing.
func (d *Dispatcher) Fsyncdir(id handle.ID) error {
	if _, err := d.Handles.GetDir(id); err != nil {
		return err
	}
	return errtype.New(errtype.KindNotSupported, "", os.ErrInvalid)
}
