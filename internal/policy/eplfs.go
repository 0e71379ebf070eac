package policy

import (
	"github.com/branchfs/branchfs/internal/branch"
)

func leastFreeSpace(candidates []*branch.Branch, sharedMinFree int64) (*branch.Branch, []error) {
	ok, infos, errs := filterCreateAdmissibleWithInfo(candidates, sharedMinFree)
	if len(ok) == 0 {
		return nil, errs
	}
	best, bestInfo := ok[0], infos[0]
	for i, b := range ok[1:] {
		if info := infos[i+1]; info.UserAvailableBytes < bestInfo.UserAvailableBytes {
			best, bestInfo = b, info
		}
	}
	return best, errs
}

func init() {
	register("eplfs", &EpLfs{})
}

// EpLfs restricts Create to branches where the parent already exists, then
// picks the one with the least free space (but still above the
// min-free-space threshold, enforced by filterCreateAdmissible).
type EpLfs struct{ EpFF }

func (p *EpLfs) PathPreserving() bool { return true }

func (p *EpLfs) Create(snap *branch.Collection, virtualPath string, sharedMinFree int64) ([]*branch.Branch, error) {
	candidates := existingParentCandidates(snap.Branches(), virtualPath)
	best, errs := leastFreeSpace(candidates, sharedMinFree)
	if best == nil {
		return nil, reduceOrNotFound(errs)
	}
	return []*branch.Branch{best}, nil
}

func init() {
	register("lfs", &Lfs{})
}

// Lfs stands for least free space: useful to fill up nearly-full branches
// before rotating to an empty one, without the ep restriction.
type Lfs struct{ EpLfs }

func (p *Lfs) PathPreserving() bool { return false }

func (p *Lfs) Create(snap *branch.Collection, virtualPath string, sharedMinFree int64) ([]*branch.Branch, error) {
	best, errs := leastFreeSpace(snap.Branches(), sharedMinFree)
	if best == nil {
		return nil, reduceOrNotFound(errs)
	}
	return []*branch.Branch{best}, nil
}
