package policy

import (
	"fmt"

	"github.com/branchfs/branchfs/internal/branch"
	"github.com/branchfs/branchfs/internal/errtype"
)

func init() {
	register("epall", &EpAll{})
}

// EpAll restricts to branches where the relevant path already exists, then
// acts on every one of them. This is the default action policy (§4.6).
type EpAll struct{}

func (p *EpAll) PathPreserving() bool { return true }

func (p *EpAll) Search(snap *branch.Collection, virtualPath string) ([]*branch.Branch, error) {
	out := existingPathCandidates(snap.Branches(), virtualPath)
	if len(out) == 0 {
		return nil, errtype.New(errtype.KindNotFound, "", fmt.Errorf("%s not found on any branch", virtualPath))
	}
	return out, nil
}

func (p *EpAll) Action(snap *branch.Collection, virtualPath string) ([]*branch.Branch, error) {
	candidates := existingPathCandidates(snap.Branches(), virtualPath)
	ok, errs := filterActionAdmissible(candidates)
	if len(ok) == 0 {
		return nil, reduceOrNotFound(errs)
	}
	return ok, nil
}

func (p *EpAll) Create(snap *branch.Collection, virtualPath string, sharedMinFree int64) ([]*branch.Branch, error) {
	candidates := existingParentCandidates(snap.Branches(), virtualPath)
	ok, errs := filterCreateAdmissible(candidates, sharedMinFree)
	if len(ok) == 0 {
		return nil, reduceOrNotFound(errs)
	}
	return ok, nil
}

func init() {
	register("all", &All{})
}

// All behaves as EpAll for Search/Action; for Create it applies to every
// admissible branch regardless of whether the parent already exists there.
type All struct{ EpAll }

func (p *All) PathPreserving() bool { return false }

func (p *All) Create(snap *branch.Collection, virtualPath string, sharedMinFree int64) ([]*branch.Branch, error) {
	ok, errs := filterCreateAdmissible(snap.Branches(), sharedMinFree)
	if len(ok) == 0 {
		return nil, reduceOrNotFound(errs)
	}
	return ok, nil
}
