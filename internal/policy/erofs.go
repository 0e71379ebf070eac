package policy

import (
	"fmt"

	"github.com/branchfs/branchfs/internal/branch"
	"github.com/branchfs/branchfs/internal/errtype"
)

func init() {
	register("erofs", &ErOFS{})
}

// ErOFS is an Action-category-only policy that always fails with
// read-only-filesystem, for branch configurations that want to force
// "the union is read-only" without changing every branch's own mode.
// Its Create/Search methods fall back to EpAll so that assigning erofs to
// the wrong slot by mistake degrades to a sane default rather than
// breaking lookup/create entirely.
type ErOFS struct{ EpAll }

func (p *ErOFS) PathPreserving() bool { return true }

func (p *ErOFS) Action(snap *branch.Collection, virtualPath string) ([]*branch.Branch, error) {
	return nil, errtype.New(errtype.KindReadOnly, "", fmt.Errorf("erofs policy: filesystem is read-only"))
}
