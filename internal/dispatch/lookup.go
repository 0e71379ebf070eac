package dispatch

import (
	"os"

	"github.com/branchfs/branchfs/internal/branch"
	"github.com/branchfs/branchfs/internal/branchio"
	"github.com/branchfs/branchfs/internal/inode"
	"github.com/branchfs/branchfs/internal/pathutil"
)

// Attr is the attribute record an attribute-returning operation hands
// back to the transport, carrying the assigned VirtualInode per §4.6
// ("every returned attribute record carries a VirtualInode computed via
// the interning contract").
type Attr struct {
	VInode inode.VirtualInode
	Info   os.FileInfo
}

// intern builds the inode.Underlying for b/info and interns it, applying
// the hard-link equivalence guarantee of §4.4.
func (d *Dispatcher) intern(all []*branch.Branch, virtualPath string, b *branch.Branch, info os.FileInfo) *inode.Entry {
	idx := branchIndex(all, b)
	u := inode.Underlying{
		BranchIndex: idx,
		BranchBase:  b.BasePath(),
		IsDir:       info.IsDir(),
		Info:        info,
	}
	if li, ok := branchio.GetLinkInfo(pathutil.Join(b.BasePath(), virtualPath), info); ok {
		u.Ino = li.Ino
	}
	return d.Inodes.Intern(virtualPath, u)
}

// Lookup implements the lookup/getattr operation of §4.6: stat the first
// branch the search policy finds the path on, intern its VirtualInode.
func (d *Dispatcher) Lookup(virtualPath string) (*Attr, error) {
	s := d.snapshot()
	candidates, err := s.resolveSearch("lookup", virtualPath)
	if err != nil {
		return nil, err
	}
	b, info, err := firstExisting(candidates, virtualPath)
	if err != nil {
		return nil, err
	}
	e := d.intern(s.branches.Branches(), virtualPath, b, info)
	return &Attr{VInode: e.VInode, Info: info}, nil
}

// Getattr re-stats an already-known virtual inode's current path.
func (d *Dispatcher) Getattr(vi inode.VirtualInode) (*Attr, error) {
	e, err := d.Inodes.Lookup(vi)
	if err != nil {
		return nil, err
	}
	return d.Lookup(e.VirtualPath)
}

// Access implements the access operation: a permission check against the
// first branch the search policy resolves the path to.
func (d *Dispatcher) Access(virtualPath string, mode uint32) error {
	s := d.snapshot()
	candidates, err := s.resolveSearch("access", virtualPath)
	if err != nil {
		return err
	}
	b, _, err := firstExisting(candidates, virtualPath)
	if err != nil {
		return err
	}
	return checkAccess(pathutil.Join(b.BasePath(), virtualPath), mode)
}
