package policy

import (
	"fmt"

	"github.com/branchfs/branchfs/internal/branch"
	"github.com/branchfs/branchfs/internal/errtype"
)

func init() {
	register("epff", &EpFF{})
}

// EpFF is "existing path, first found": given the collection order, act
// on the first branch where the relevant path already exists.
type EpFF struct{}

func (p *EpFF) PathPreserving() bool { return true }

func (p *EpFF) Search(snap *branch.Collection, virtualPath string) ([]*branch.Branch, error) {
	for _, b := range snap.Branches() {
		if existsOn(b, virtualPath) {
			return []*branch.Branch{b}, nil
		}
	}
	return nil, errtype.New(errtype.KindNotFound, "", fmt.Errorf("%s not found on any branch", virtualPath))
}

func (p *EpFF) Action(snap *branch.Collection, virtualPath string) ([]*branch.Branch, error) {
	candidates := existingPathCandidates(snap.Branches(), virtualPath)
	ok, errs := filterActionAdmissible(candidates)
	if len(ok) == 0 {
		return nil, reduceOrNotFound(errs)
	}
	return ok[:1], nil
}

func (p *EpFF) Create(snap *branch.Collection, virtualPath string, sharedMinFree int64) ([]*branch.Branch, error) {
	candidates := existingParentCandidates(snap.Branches(), virtualPath)
	ok, errs := filterCreateAdmissible(candidates, sharedMinFree)
	if len(ok) == 0 {
		return nil, reduceOrNotFound(errs)
	}
	return ok[:1], nil
}

func init() {
	register("ff", &FF{})
}

// FF stands for first found: same as EpFF for Search/Action; for Create it
// acts on the first admissible branch in collection order without
// restricting to branches where the parent already exists.
type FF struct{ EpFF }

func (p *FF) PathPreserving() bool { return false }

func (p *FF) Create(snap *branch.Collection, virtualPath string, sharedMinFree int64) ([]*branch.Branch, error) {
	ok, errs := filterCreateAdmissible(snap.Branches(), sharedMinFree)
	if len(ok) == 0 {
		return nil, reduceOrNotFound(errs)
	}
	return ok[:1], nil
}
