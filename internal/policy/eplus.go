package policy

import (
	"github.com/branchfs/branchfs/internal/branch"
)

func leastUsedSpace(candidates []*branch.Branch, sharedMinFree int64) (*branch.Branch, []error) {
	ok, infos, errs := filterCreateAdmissibleWithInfo(candidates, sharedMinFree)
	if len(ok) == 0 {
		return nil, errs
	}
	best, bestInfo := ok[0], infos[0]
	for i, b := range ok[1:] {
		if info := infos[i+1]; info.UsedBytes < bestInfo.UsedBytes {
			best, bestInfo = b, info
		}
	}
	return best, errs
}

func init() {
	register("eplus", &EpLus{})
}

// EpLus restricts Create to branches where the parent already exists, then
// picks the one with the least used bytes.
type EpLus struct{ EpFF }

func (p *EpLus) PathPreserving() bool { return true }

func (p *EpLus) Create(snap *branch.Collection, virtualPath string, sharedMinFree int64) ([]*branch.Branch, error) {
	candidates := existingParentCandidates(snap.Branches(), virtualPath)
	best, errs := leastUsedSpace(candidates, sharedMinFree)
	if best == nil {
		return nil, reduceOrNotFound(errs)
	}
	return []*branch.Branch{best}, nil
}

func init() {
	register("lus", &Lus{})
}

// Lus stands for least used space: minimizes used bytes rather than
// maximizing/minimizing free bytes, without the ep restriction.
type Lus struct{ EpLus }

func (p *Lus) PathPreserving() bool { return false }

func (p *Lus) Create(snap *branch.Collection, virtualPath string, sharedMinFree int64) ([]*branch.Branch, error) {
	best, errs := leastUsedSpace(snap.Branches(), sharedMinFree)
	if best == nil {
		return nil, reduceOrNotFound(errs)
	}
	return []*branch.Branch{best}, nil
}
