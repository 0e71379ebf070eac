package policy

import (
	"github.com/branchfs/branchfs/internal/branch"
)

func mostFreeSpace(candidates []*branch.Branch, sharedMinFree int64) (*branch.Branch, []error) {
	ok, infos, errs := filterCreateAdmissibleWithInfo(candidates, sharedMinFree)
	if len(ok) == 0 {
		return nil, errs
	}
	best, bestInfo := ok[0], infos[0]
	for i, b := range ok[1:] {
		if info := infos[i+1]; info.UserAvailableBytes > bestInfo.UserAvailableBytes {
			best, bestInfo = b, info
		}
	}
	return best, errs
}

func init() {
	register("epmfs", &EpMfs{})
}

// EpMfs restricts Create to branches where the parent already exists, then
// picks the one with the most free space. Search/Action are the shared
// EpAll/EpFF-style behavior: epmfs documents itself (per the teacher) as
// "same as epff" for Search/Action.
type EpMfs struct{ EpFF }

func (p *EpMfs) PathPreserving() bool { return true }

func (p *EpMfs) Create(snap *branch.Collection, virtualPath string, sharedMinFree int64) ([]*branch.Branch, error) {
	candidates := existingParentCandidates(snap.Branches(), virtualPath)
	best, errs := mostFreeSpace(candidates, sharedMinFree)
	if best == nil {
		return nil, reduceOrNotFound(errs)
	}
	return []*branch.Branch{best}, nil
}

func init() {
	register("mfs", &Mfs{})
}

// Mfs stands for most free space: pick the single admissible branch
// maximizing user-available bytes, without the ep restriction.
type Mfs struct{ EpMfs }

func (p *Mfs) PathPreserving() bool { return false }

func (p *Mfs) Create(snap *branch.Collection, virtualPath string, sharedMinFree int64) ([]*branch.Branch, error) {
	best, errs := mostFreeSpace(snap.Branches(), sharedMinFree)
	if best == nil {
		return nil, reduceOrNotFound(errs)
	}
	return []*branch.Branch{best}, nil
}
