package dispatch

import (
	"os"

	"github.com/branchfs/branchfs/internal/branch"
	"github.com/branchfs/branchfs/internal/branchio"
	"github.com/branchfs/branchfs/internal/errtype"
	"github.com/branchfs/branchfs/internal/pathutil"
)

// Rename implements the rename special-case handler of §4.7: which of the
// two strategies applies is decided by whether the configured create
// policy is path-preserving (ep*) and not overridden.
func (d *Dispatcher) Rename(oldPath, newPath string) error {
	s := d.snapshot()
	createPolicy, err := s.policyFor("create")
	if err != nil {
		return err
	}

	var renameErr error
	if createPolicy.PathPreserving() {
		renameErr = d.preservePathRename(s, oldPath, newPath)
	} else {
		renameErr = d.createPathRename(s, oldPath, newPath)
	}
	if renameErr == nil {
		d.Inodes.Rename(oldPath, newPath)
	}
	return renameErr
}

// preservePathRename: select source branches via action policy; for
// every branch in the collection, if it holds the source, attempt rename
// there; otherwise schedule the destination path on that branch for
// removal (cleanup of overlay remnants). If every rename attempt fails,
// surface cross-device.
func (d *Dispatcher) preservePathRename(s snapshot, oldPath, newPath string) error {
	sourceBranches, err := s.resolveAction("rename", oldPath)
	if err != nil {
		return err
	}
	sourceSet := make(map[*branch.Branch]bool, len(sourceBranches))
	for _, b := range sourceBranches {
		sourceSet[b] = true
	}

	anySucceeded := false
	for _, b := range s.branches.Branches() {
		oldOnBranch := pathutil.Join(b.BasePath(), oldPath)
		if sourceSet[b] {
			if err := branchio.Rename(oldOnBranch, pathutil.Join(b.BasePath(), newPath)); err != nil {
				continue
			}
			anySucceeded = true
			continue
		}
		// Overlay cleanup: a stale destination on a branch that didn't
		// hold the source would otherwise shadow the moved file.
		_ = branchio.Remove(pathutil.Join(b.BasePath(), newPath))
	}
	if anySucceeded {
		return nil
	}
	return errtype.New(errtype.KindCrossDevice, "", os.ErrInvalid)
}

// createPathRename additionally selects destination branches via search
// policy over the new parent; on rename failure with not-found, clones
// the parent skeleton from a destination-branch donor and retries once.
func (d *Dispatcher) createPathRename(s snapshot, oldPath, newPath string) error {
	sourceBranches, err := s.resolveAction("rename", oldPath)
	if err != nil {
		return err
	}
	newParent := pathutil.Parent(newPath)
	destBranches, err := s.resolveSearch("rename", newParent)
	if err != nil {
		destBranches = nil
	}
	destSet := make(map[*branch.Branch]bool, len(destBranches))
	for _, b := range destBranches {
		destSet[b] = true
	}
	sourceSet := make(map[*branch.Branch]bool, len(sourceBranches))
	for _, b := range sourceBranches {
		sourceSet[b] = true
	}

	var errs []error
	anySucceeded := false
	for _, b := range s.branches.Branches() {
		if !sourceSet[b] {
			if !pathutil.ExistsOn(b.BasePath(), oldPath) {
				continue
			}
		}
		oldOnBranch := pathutil.Join(b.BasePath(), oldPath)
		newOnBranch := pathutil.Join(b.BasePath(), newPath)
		err := branchio.Rename(oldOnBranch, newOnBranch)
		if err != nil && errtype.Classify(err) == errtype.KindNotFound && len(destBranches) > 0 {
			if cloneErr := pathutil.CloneSkeleton(destBranches[0].BasePath(), b.BasePath(), newParent); cloneErr == nil {
				err = branchio.Rename(oldOnBranch, newOnBranch)
			}
		}
		if err != nil {
			errs = append(errs, err)
			if !sourceSet[b] {
				// Stray, non-authoritative copy of oldPath on a branch the
				// action policy didn't select: clear it rather than leave
				// a half-renamed remnant behind.
				_ = branchio.Remove(oldOnBranch)
			}
			continue
		}
		anySucceeded = true
	}
	for _, b := range destBranches {
		if sourceSet[b] {
			continue
		}
		if !pathutil.ExistsOn(b.BasePath(), oldPath) {
			_ = branchio.Remove(pathutil.Join(b.BasePath(), newPath))
		}
	}
	if anySucceeded {
		return nil
	}
	if err := errtype.Reduce(errs); err != nil {
		return err
	}
	return errtype.New(errtype.KindCrossDevice, "", os.ErrInvalid)
}

