package policy

import (
	"math/rand"
	"sync"

	"github.com/branchfs/branchfs/internal/branch"
)

// rng is the shared thread-safe PRNG used by rand/pfrd/eprand/eppfrd, per
// spec §4.2 ("rand/pfrd use a thread-safe PRNG").
var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(1))
)

func randIntn(n int) int {
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Intn(n)
}

func randPick(candidates []*branch.Branch) *branch.Branch {
	if len(candidates) == 0 {
		return nil
	}
	return candidates[randIntn(len(candidates))]
}

// weightedPick chooses a candidate with probability proportional to its
// user-available bytes ("pfrd": probability-free random distribution),
// using the FilesystemInfo already gathered for admissibility filtering so
// no extra statvfs calls are made beyond those, per §4.2.
func weightedPick(candidates []*branch.Branch, infos []branch.FilesystemInfo) *branch.Branch {
	if len(candidates) == 0 {
		return nil
	}
	var total uint64
	for _, info := range infos {
		total += info.UserAvailableBytes
	}
	if total == 0 {
		return randPick(candidates)
	}
	rngMu.Lock()
	target := uint64(rng.Int63n(int64(total)))
	rngMu.Unlock()
	var cum uint64
	for i, info := range infos {
		cum += info.UserAvailableBytes
		if target < cum {
			return candidates[i]
		}
	}
	return candidates[len(candidates)-1]
}

func init() {
	register("eprand", &EpRand{})
}

// EpRand restricts Create to branches where the parent already exists,
// then picks uniformly at random among the admissible ones.
type EpRand struct{ EpFF }

func (p *EpRand) PathPreserving() bool { return true }

func (p *EpRand) Create(snap *branch.Collection, virtualPath string, sharedMinFree int64) ([]*branch.Branch, error) {
	candidates := existingParentCandidates(snap.Branches(), virtualPath)
	ok, errs := filterCreateAdmissible(candidates, sharedMinFree)
	if len(ok) == 0 {
		return nil, reduceOrNotFound(errs)
	}
	return []*branch.Branch{randPick(ok)}, nil
}

func init() {
	register("rand", &Rand{})
}

// Rand picks uniformly at random among all admissible branches, without
// the ep restriction.
type Rand struct{ EpRand }

func (p *Rand) PathPreserving() bool { return false }

func (p *Rand) Create(snap *branch.Collection, virtualPath string, sharedMinFree int64) ([]*branch.Branch, error) {
	ok, errs := filterCreateAdmissible(snap.Branches(), sharedMinFree)
	if len(ok) == 0 {
		return nil, reduceOrNotFound(errs)
	}
	return []*branch.Branch{randPick(ok)}, nil
}
