package dispatch

import (
	"os"

	"github.com/branchfs/branchfs/internal/branch"
	"github.com/branchfs/branchfs/internal/branchio"
	"github.com/branchfs/branchfs/internal/handle"
	"github.com/branchfs/branchfs/internal/pathutil"
)

// chooseCreateBranch runs the create policy for op over virtualPath and
// returns the first admissible branch (policies already order candidates
// by preference; §4.6 selects the first).
func (s snapshot) chooseCreateBranch(op, virtualPath string) (*branch.Branch, error) {
	candidates, err := s.resolveCreate(op, virtualPath)
	if err != nil {
		return nil, err
	}
	return candidates[0], nil
}

// ensureParentSkeleton clones the virtual parent directory onto target if
// it isn't already present there, sourcing attributes from whichever
// branch the search policy finds it on first (§4.6 "Path cloning").
func (d *Dispatcher) ensureParentSkeleton(s snapshot, target *branch.Branch, virtualPath string) error {
	parent := pathutil.Parent(virtualPath)
	if parent == "" || pathutil.ExistsOn(target.BasePath(), parent) {
		return nil
	}
	donors, err := s.resolveSearch("create", parent)
	if err != nil || len(donors) == 0 {
		return err
	}
	for _, donor := range donors {
		if pathutil.ExistsOn(donor.BasePath(), parent) {
			return pathutil.CloneSkeleton(donor.BasePath(), target.BasePath(), parent)
		}
	}
	return nil
}

// Create implements the create operation: search(parent) is folded into
// the create policy's own ep-restriction when path-preserving; this
// dispatcher method performs the skeleton clone and the actual creat().
func (d *Dispatcher) Create(virtualPath string, flags int, mode os.FileMode) (handle.ID, *Attr, error) {
	s := d.snapshot()
	target, err := s.chooseCreateBranch("create", virtualPath)
	if err != nil {
		return 0, nil, err
	}
	if err := d.ensureParentSkeleton(s, target, virtualPath); err != nil {
		return 0, nil, err
	}
	path := pathutil.Join(target.BasePath(), virtualPath)
	f, err := branchio.OpenFile(path, flags|os.O_CREATE, mode)
	if err != nil {
		return 0, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return 0, nil, err
	}
	id := d.Handles.OpenFile(f, branchIndex(s.branches.Branches(), target), target.BasePath(), virtualPath, flags, false)
	e := d.intern(s.branches.Branches(), virtualPath, target, info)
	return id, &Attr{VInode: e.VInode, Info: info}, nil
}

// Mkdir implements mkdir: clone the parent skeleton, then mkdir.
func (d *Dispatcher) Mkdir(virtualPath string, mode os.FileMode) (*Attr, error) {
	s := d.snapshot()
	target, err := s.chooseCreateBranch("mkdir", virtualPath)
	if err != nil {
		return nil, err
	}
	if err := d.ensureParentSkeleton(s, target, virtualPath); err != nil {
		return nil, err
	}
	path := pathutil.Join(target.BasePath(), virtualPath)
	if err := branchio.Mkdir(path, mode); err != nil {
		return nil, err
	}
	info, err := branchio.Lstat(path)
	if err != nil {
		return nil, err
	}
	e := d.intern(s.branches.Branches(), virtualPath, target, info)
	return &Attr{VInode: e.VInode, Info: info}, nil
}

// Symlink implements mknod/symlink: clone the parent, then create the
// symlink pointing at target.
func (d *Dispatcher) Symlink(linkTarget, virtualPath string) (*Attr, error) {
	s := d.snapshot()
	target, err := s.chooseCreateBranch("symlink", virtualPath)
	if err != nil {
		return nil, err
	}
	if err := d.ensureParentSkeleton(s, target, virtualPath); err != nil {
		return nil, err
	}
	path := pathutil.Join(target.BasePath(), virtualPath)
	if err := branchio.Symlink(linkTarget, path); err != nil {
		return nil, err
	}
	info, err := branchio.Lstat(path)
	if err != nil {
		return nil, err
	}
	e := d.intern(s.branches.Branches(), virtualPath, target, info)
	return &Attr{VInode: e.VInode, Info: info}, nil
}

// Readlink returns a symlink's target (search, §4.6's general "search"
// rule for path-reading ops not named in the explicit table).
func (d *Dispatcher) Readlink(virtualPath string) (string, error) {
	s := d.snapshot()
	candidates, err := s.resolveSearch("readlink", virtualPath)
	if err != nil {
		return "", err
	}
	b, _, err := firstExisting(candidates, virtualPath)
	if err != nil {
		return "", err
	}
	return branchio.ReadLink(pathutil.Join(b.BasePath(), virtualPath))
}
