package policy

import (
	"github.com/branchfs/branchfs/internal/branch"
)

func admissibleWithInfo(candidates []*branch.Branch, sharedMinFree int64) ([]*branch.Branch, []branch.FilesystemInfo, []error) {
	return filterCreateAdmissibleWithInfo(candidates, sharedMinFree)
}

func init() {
	register("eppfrd", &EpPfrd{})
}

// EpPfrd restricts Create to branches where the parent already exists,
// then picks one at random weighted by user-available bytes.
type EpPfrd struct{ EpFF }

func (p *EpPfrd) PathPreserving() bool { return true }

func (p *EpPfrd) Create(snap *branch.Collection, virtualPath string, sharedMinFree int64) ([]*branch.Branch, error) {
	candidates := existingParentCandidates(snap.Branches(), virtualPath)
	ok, infos, errs := admissibleWithInfo(candidates, sharedMinFree)
	if len(ok) == 0 {
		return nil, reduceOrNotFound(errs)
	}
	return []*branch.Branch{weightedPick(ok, infos)}, nil
}

func init() {
	register("pfrd", &Pfrd{})
}

// Pfrd is the default create policy (§4.6): weighted-random pick among all
// admissible branches, without the ep restriction.
type Pfrd struct{ EpPfrd }

func (p *Pfrd) PathPreserving() bool { return false }

func (p *Pfrd) Create(snap *branch.Collection, virtualPath string, sharedMinFree int64) ([]*branch.Branch, error) {
	ok, infos, errs := admissibleWithInfo(snap.Branches(), sharedMinFree)
	if len(ok) == 0 {
		return nil, reduceOrNotFound(errs)
	}
	return []*branch.Branch{weightedPick(ok, infos)}, nil
}
