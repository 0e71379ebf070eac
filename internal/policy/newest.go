package policy

import (
	"fmt"
	"os"

	"github.com/branchfs/branchfs/internal/branch"
	"github.com/branchfs/branchfs/internal/errtype"
	"github.com/branchfs/branchfs/internal/pathutil"
)

func init() {
	register("newest", &Newest{})
}

// Newest picks the branch whose instance of the relevant path has the
// greatest modification time. Search looks at virtualPath itself; Create
// looks at the virtual parent (the instance that would receive the new
// entry). Action is not part of spec's table for newest; it falls back to
// the EpAll behavior so an accidental assignment degrades safely.
type Newest struct{ EpAll }

func (p *Newest) PathPreserving() bool { return false }

func mtimeOf(b *branch.Branch, virtualPath string) (os.FileInfo, bool) {
	info, err := os.Lstat(pathutil.Join(b.BasePath(), virtualPath))
	if err != nil {
		return nil, false
	}
	return info, true
}

func pickNewest(candidates []*branch.Branch, virtualPath string) *branch.Branch {
	var best *branch.Branch
	var bestInfo os.FileInfo
	for _, b := range candidates {
		info, ok := mtimeOf(b, virtualPath)
		if !ok {
			continue
		}
		if best == nil || info.ModTime().After(bestInfo.ModTime()) {
			best, bestInfo = b, info
		}
	}
	return best
}

func (p *Newest) Search(snap *branch.Collection, virtualPath string) ([]*branch.Branch, error) {
	candidates := existingPathCandidates(snap.Branches(), virtualPath)
	best := pickNewest(candidates, virtualPath)
	if best == nil {
		return nil, errtype.New(errtype.KindNotFound, "", fmt.Errorf("%s not found on any branch", virtualPath))
	}
	return []*branch.Branch{best}, nil
}

func (p *Newest) Create(snap *branch.Collection, virtualPath string, sharedMinFree int64) ([]*branch.Branch, error) {
	parent := parentOf(virtualPath)
	candidates := existingParentCandidates(snap.Branches(), virtualPath)
	ok, errs := filterCreateAdmissible(candidates, sharedMinFree)
	if len(ok) == 0 {
		return nil, reduceOrNotFound(errs)
	}
	best := pickNewest(ok, parent)
	if best == nil {
		best = ok[0]
	}
	return []*branch.Branch{best}, nil
}
