package dispatch

import (
	"os"

	"github.com/branchfs/branchfs/internal/branch"
	"github.com/branchfs/branchfs/internal/branchio"
	"github.com/branchfs/branchfs/internal/config"
	"github.com/branchfs/branchfs/internal/handle"
	"github.com/branchfs/branchfs/internal/pathutil"
	"github.com/branchfs/branchfs/internal/policy"
)

// moveOnEnospc implements the move-on-ENOSPC handler of §4.7. The caller
// (Write) already holds f.Lock(). Any failure here must leave f's
// descriptor/branch fields untouched, so the caller's surfaced error is
// the original out-of-space failure, never a half-applied migration.
func (d *Dispatcher) moveOnEnospc(f *handle.File, cfg *config.Configuration) error {
	movePolicyName := cfg.MoveOnEnospcPolicy
	if movePolicyName == "" {
		movePolicyName = "pfrd"
	}
	movePolicy, err := policy.Get(movePolicyName)
	if err != nil {
		return err
	}
	candidates, err := movePolicy.Create(cfg.Branches, f.VirtualPath, cfg.MinFreeSpace)
	if err != nil {
		return err
	}
	var target *branch.Branch
	for _, b := range candidates {
		if b.BasePath() == f.BranchBase {
			continue // same branch has no more room than it just reported
		}
		target = b
		break
	}
	if target == nil {
		return errNoAlternateBranch{}
	}

	parent := pathutil.Parent(f.VirtualPath)
	if parent != "" && !pathutil.ExistsOn(target.BasePath(), parent) {
		if err := pathutil.CloneSkeleton(f.BranchBase, target.BasePath(), parent); err != nil {
			return err
		}
	}

	destPath := pathutil.Join(target.BasePath(), f.VirtualPath)
	tmpPath := destPath + ".branchfs-move-tmp"
	dst, err := branchio.OpenFile(tmpPath, os.O_CREATE|os.O_RDWR|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if err := branchio.CopyFileData(f.Descriptor, dst); err != nil {
		_ = dst.Close()
		_ = branchio.Remove(tmpPath)
		return err
	}
	sourcePath := pathutil.Join(f.BranchBase, f.VirtualPath)
	if err := branchio.CopyMetadata(sourcePath, tmpPath); err != nil {
		_ = dst.Close()
		_ = branchio.Remove(tmpPath)
		return err
	}
	if err := branchio.Rename(tmpPath, destPath); err != nil {
		_ = dst.Close()
		_ = branchio.Remove(tmpPath)
		return err
	}
	_ = dst.Close()

	reopenFlags := clearCreateFlags(f.Flags)
	newDescriptor, err := branchio.OpenFile(destPath, reopenFlags, 0)
	if err != nil {
		return err
	}

	oldDescriptor := f.SwapDescriptor(newDescriptor, branchIndex(cfg.Branches.Branches(), target), target.BasePath())
	if oldDescriptor != nil {
		_ = oldDescriptor.Close()
	}
	_ = branchio.Remove(sourcePath)
	return nil
}

func clearCreateFlags(flags int) int {
	return flags &^ (os.O_CREATE | os.O_EXCL | os.O_TRUNC)
}

type errNoAlternateBranch struct{}

func (errNoAlternateBranch) Error() string { return "no alternate branch admissible for move-on-enospc" }
