package dispatch

import (
	"os"

	"github.com/branchfs/branchfs/internal/errtype"
	"github.com/branchfs/branchfs/internal/handle"
	"github.com/branchfs/branchfs/internal/pathutil"
	"github.com/branchfs/branchfs/internal/policy"
)

// DirEntry is one deduplicated readdir result.
type DirEntry struct {
	Name  string
	IsDir bool
}

// controlEntryName is the fixed reserved control-file name of §6,
// synthesized at the root regardless of branch contents (§4.9).
const controlEntryName = ".branchfs_control"

// Readdir implements the union readdir merger of §4.9: enumerate every
// branch containing the virtual directory in configured order, emit
// names not previously seen, first occurrence wins.
func (d *Dispatcher) Readdir(id handle.ID) ([]DirEntry, error) {
	dh, err := d.Handles.GetDir(id)
	if err != nil {
		return nil, err
	}
	s := d.snapshot()
	// §4.6's table fixes readdir's policy slot to "all" regardless of any
	// configured func.readdir override: every branch holding the
	// directory must contribute its listing for the merge to be correct.
	all, err := policy.Get("all")
	if err != nil {
		return nil, err
	}
	candidates, err := all.Search(s.branches, dh.VirtualPath)
	if err != nil && len(candidates) == 0 {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []DirEntry
	anyBranchHadDir := false
	for _, b := range candidates {
		dirPath := pathutil.Join(b.BasePath(), dh.VirtualPath)
		entries, rerr := os.ReadDir(dirPath)
		if rerr != nil {
			continue
		}
		anyBranchHadDir = true
		for _, e := range entries {
			if seen[e.Name()] {
				continue
			}
			seen[e.Name()] = true
			out = append(out, DirEntry{Name: e.Name(), IsDir: e.IsDir()})
		}
	}
	if !anyBranchHadDir {
		return nil, errtype.New(errtype.KindNotFound, "", os.ErrNotExist)
	}
	if dh.VirtualPath == "" || dh.VirtualPath == "/" {
		if !seen[controlEntryName] {
			out = append(out, DirEntry{Name: controlEntryName})
		}
	}
	return out, nil
}
