package dispatch

import (
	"github.com/branchfs/branchfs/internal/branch"
	"github.com/branchfs/branchfs/internal/config"
	"github.com/branchfs/branchfs/internal/errtype"
)

// Statfs implements statfs: aggregate free/available/total across
// branches, honoring statfs_ignore (§6) to exclude RO or NC branches from
// the aggregate, and statfs={base,full} to choose between a fast
// first-branch-only estimate and the full per-branch aggregation.
func (d *Dispatcher) Statfs() (branch.FilesystemInfo, error) {
	s := d.snapshot()
	branches := s.branches.Branches()
	if len(branches) == 0 {
		return branch.FilesystemInfo{}, errtype.New(errtype.KindIO, "", errNoBranches{})
	}
	if s.cfg.Statfs == config.StatfsBase {
		return branches[0].QueryInfo()
	}

	var agg branch.FilesystemInfo
	var firstErr error
	counted := 0
	for _, b := range branches {
		if statfsIgnored(s.cfg.StatfsIgnore, b.Mode()) {
			continue
		}
		info, err := b.QueryInfo()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		agg.TotalBytes += info.TotalBytes
		agg.FreeBytes += info.FreeBytes
		agg.UserAvailableBytes += info.UserAvailableBytes
		agg.UsedBytes += info.UsedBytes
		counted++
	}
	if counted == 0 {
		if firstErr != nil {
			return branch.FilesystemInfo{}, firstErr
		}
		return branch.FilesystemInfo{}, errtype.New(errtype.KindIO, "", errNoBranches{})
	}
	return agg, nil
}

func statfsIgnored(ignore config.StatfsIgnoreMode, mode branch.Mode) bool {
	switch ignore {
	case config.StatfsIgnoreRO:
		return mode == branch.RO
	case config.StatfsIgnoreNC:
		return mode == branch.NC
	default:
		return false
	}
}

type errNoBranches struct{}

func (errNoBranches) Error() string { return "no branches configured" }
