// Package policy implements the branch-selection algorithms of spec §4.2:
// Create, Search, and Action policies, each taking a branch snapshot and a
// virtual path and producing an ordered, non-empty set of branches or a
// typed error.
//
// Grounded directly on backend/union/policy (policy.go, ff.go, epff.go,
// mfs.go, epmfs.go, all.go, epall.go, lfs.go, eplfs.go, lus.go, eplus.go,
// rand.go, eprand.go, newest.go, lno.go, eplno.go): same registry-by-name
// pattern, same ep-variant structure (an ep* type implements the shared
// algorithm; the non-ep type embeds it and overrides only Create), same
// filterRO/filterNC-style admissibility filters. upstream.Fs's remote
// listing and goroutine-per-candidate existence fan-out (seen again in
// backend/raid3's per-upstream goroutine dispatch) is kept in spirit but
// retargeted: the existence probe itself is a single local lstat
// (pathutil.ExistsOn, not worth a goroutine), but each admissible
// candidate's QueryInfo call is a real statvfs syscall on a miss, so
// filterCreateAdmissible/filterActionAdmissible fan those out with
// errgroup rather than querying branches one at a time.
package policy

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/branchfs/branchfs/internal/branch"
	"github.com/branchfs/branchfs/internal/errtype"
)

// Policy is the capability interface of spec §4.2: one of Create, Search,
// or Action, selected per operation by the configuration's policy slots.
type Policy interface {
	// Create selects branch(es) admissible to receive a new entry.
	Create(snap *branch.Collection, virtualPath string, sharedMinFree int64) ([]*branch.Branch, error)
	// Search selects branch(es) that already hold virtualPath.
	Search(snap *branch.Collection, virtualPath string) ([]*branch.Branch, error)
	// Action selects branch(es) admissible to modify an existing entry.
	Action(snap *branch.Collection, virtualPath string) ([]*branch.Branch, error)
	// PathPreserving reports whether this is an ep*-style policy: Create
	// restricts candidates to branches where the parent already exists.
	PathPreserving() bool
}

var registry = make(map[string]Policy)

func register(name string, p Policy) {
	registry[strings.ToLower(name)] = p
}

// Get looks up a registered policy by name (case-insensitive).
func Get(name string) (Policy, error) {
	p, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, errtype.New(errtype.KindInvalidArgument, "", fmt.Errorf("no such policy %q", name))
	}
	return p, nil
}

// queryInfoFanOut runs QueryInfo on every candidate concurrently via
// errgroup, returning results aligned 1:1 with candidates so callers can
// apply branch-order-preserving filters afterward. A QueryInfo failure is
// recorded per-slot rather than aborting the group, since one branch's
// statvfs error must not discard the others' results.
func queryInfoFanOut(candidates []*branch.Branch) ([]branch.FilesystemInfo, []error) {
	infos := make([]branch.FilesystemInfo, len(candidates))
	errs := make([]error, len(candidates))
	g, _ := errgroup.WithContext(context.Background())
	for i, b := range candidates {
		i, b := i, b
		g.Go(func() error {
			info, err := b.QueryInfo()
			infos[i] = info
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()
	return infos, errs
}

func filterCreateAdmissible(branches []*branch.Branch, sharedMinFree int64) ([]*branch.Branch, []error) {
	ok, _, errs := filterCreateAdmissibleWithInfo(branches, sharedMinFree)
	return ok, errs
}

// filterCreateAdmissibleWithInfo is filterCreateAdmissible's core: it also
// returns the FilesystemInfo already fetched for each surviving branch, so
// callers like pfrd/eppfrd's weighted pick don't re-query branches that the
// fan-out in queryInfoFanOut already probed.
func filterCreateAdmissibleWithInfo(branches []*branch.Branch, sharedMinFree int64) ([]*branch.Branch, []branch.FilesystemInfo, []error) {
	var candidates []*branch.Branch
	for _, b := range branches {
		if b.AdmitsCreate() {
			candidates = append(candidates, b)
		}
	}
	infos, queryErrs := queryInfoFanOut(candidates)

	var ok []*branch.Branch
	var okInfos []branch.FilesystemInfo
	var errs []error
	for i, b := range candidates {
		if err := queryErrs[i]; err != nil {
			errs = append(errs, err)
			continue
		}
		info := infos[i]
		if info.ReadOnly {
			errs = append(errs, errtype.New(errtype.KindReadOnly, b.BasePath(), fmt.Errorf("read-only filesystem")))
			continue
		}
		if info.UserAvailableBytes <= uint64(b.EffectiveMinFree(sharedMinFree)) {
			errs = append(errs, errtype.New(errtype.KindNoSpace, b.BasePath(), fmt.Errorf("below minimum free space")))
			continue
		}
		ok = append(ok, b)
		okInfos = append(okInfos, info)
	}
	return ok, okInfos, errs
}

func filterActionAdmissible(branches []*branch.Branch) ([]*branch.Branch, []error) {
	var candidates []*branch.Branch
	var errs []error
	for _, b := range branches {
		if b.AdmitsModify() {
			candidates = append(candidates, b)
		} else {
			errs = append(errs, errtype.New(errtype.KindPermissionDenied, b.BasePath(), fmt.Errorf("branch does not admit modification")))
		}
	}
	infos, queryErrs := queryInfoFanOut(candidates)

	var ok []*branch.Branch
	for i, b := range candidates {
		if err := queryErrs[i]; err != nil {
			errs = append(errs, err)
			continue
		}
		if infos[i].ReadOnly {
			errs = append(errs, errtype.New(errtype.KindReadOnly, b.BasePath(), fmt.Errorf("read-only filesystem")))
			continue
		}
		ok = append(ok, b)
	}
	return ok, errs
}

func reduceOrNotFound(errs []error) error {
	if err := errtype.Reduce(errs); err != nil {
		return err
	}
	return errtype.New(errtype.KindNotFound, "", fmt.Errorf("no admissible branch"))
}

// existingParentCandidates restricts branches to those where the virtual
// parent directory of path is present (the "ep" restriction for Create).
func existingParentCandidates(branches []*branch.Branch, virtualPath string) []*branch.Branch {
	parent := parentOf(virtualPath)
	var out []*branch.Branch
	for _, b := range branches {
		if parent == "" || existsOn(b, parent) {
			out = append(out, b)
		}
	}
	return out
}

// existingPathCandidates restricts branches to those where virtualPath
// itself is present (the "ep" restriction for Search/Action).
func existingPathCandidates(branches []*branch.Branch, virtualPath string) []*branch.Branch {
	var out []*branch.Branch
	for _, b := range branches {
		if existsOn(b, virtualPath) {
			out = append(out, b)
		}
	}
	return out
}
