package dispatch

import (
	"strings"

	"github.com/branchfs/branchfs/internal/branchio"
	"github.com/branchfs/branchfs/internal/config"
	"github.com/branchfs/branchfs/internal/errtype"
	"github.com/branchfs/branchfs/internal/pathutil"
)

// Link implements the link special-case handler of §4.7: hard links are
// attempted within each source-bearing branch; if none can provide one,
// the result depends on link_exdev.
func (d *Dispatcher) Link(oldPath, newPath string) (*Attr, error) {
	s := d.snapshot()
	sourceBranches, err := s.resolveAction("link", oldPath)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, b := range sourceBranches {
		if !pathutil.ExistsOn(b.BasePath(), oldPath) {
			continue
		}
		oldOnBranch := pathutil.Join(b.BasePath(), oldPath)
		newOnBranch := pathutil.Join(b.BasePath(), newPath)
		if err := d.ensureParentSkeleton(s, b, newPath); err != nil {
			lastErr = err
			continue
		}
		if err := branchio.Link(oldOnBranch, newOnBranch); err != nil {
			lastErr = err
			continue
		}
		info, serr := branchio.Lstat(newOnBranch)
		if serr != nil {
			return nil, serr
		}
		e := d.intern(s.branches.Branches(), newPath, b, info)
		return &Attr{VInode: e.VInode, Info: info}, nil
	}

	return d.linkExdevFallback(s, oldPath, newPath, lastErr)
}

// linkExdevFallback handles the case where no branch could provide a
// hard link, dispatching on the configured link_exdev policy.
func (d *Dispatcher) linkExdevFallback(s snapshot, oldPath, newPath string, cause error) (*Attr, error) {
	switch s.cfg.LinkExdev {
	case config.ExdevPassthrough:
		if cause != nil {
			return nil, errtype.New(errtype.KindCrossDevice, "", cause)
		}
		return nil, errtype.New(errtype.KindCrossDevice, "", errNoSourceBranch{})
	case config.ExdevRelSymlink:
		rel, rerr := relativeVirtualSymlink(oldPath, newPath)
		if rerr != nil {
			return nil, rerr
		}
		return d.Symlink(rel, newPath)
	case config.ExdevAbsBaseSymlink:
		target, err := d.resolveAbsBaseTarget(s, oldPath)
		if err != nil {
			return nil, err
		}
		return d.Symlink(target, newPath)
	case config.ExdevAbsPoolSymlink:
		return d.Symlink(oldPath, newPath)
	default:
		return nil, errtype.New(errtype.KindCrossDevice, "", errNoSourceBranch{})
	}
}

// relativeVirtualSymlink computes the relative path, in "../"-form, from
// newPath's directory to oldPath within the "/"-separated virtual
// namespace — the virtual tree is always "/"-separated regardless of
// host OS, so this is plain component arithmetic rather than an
// OS-specific filepath.Rel call.
func relativeVirtualSymlink(oldPath, newPath string) (string, error) {
	fromComponents := splitComponents(pathutil.Parent(newPath))
	toComponents := splitComponents(oldPath)

	common := 0
	for common < len(fromComponents) && common < len(toComponents) && fromComponents[common] == toComponents[common] {
		common++
	}
	var parts []string
	for i := common; i < len(fromComponents); i++ {
		parts = append(parts, "..")
	}
	parts = append(parts, toComponents[common:]...)
	if len(parts) == 0 {
		return ".", nil
	}
	return strings.Join(parts, "/"), nil
}

func splitComponents(virtualPath string) []string {
	virtualPath = strings.Trim(virtualPath, "/")
	if virtualPath == "" {
		return nil
	}
	return strings.Split(virtualPath, "/")
}

func (d *Dispatcher) resolveAbsBaseTarget(s snapshot, oldPath string) (string, error) {
	candidates, err := s.resolveSearch("link", oldPath)
	if err != nil {
		return "", err
	}
	b, _, err := firstExisting(candidates, oldPath)
	if err != nil {
		return "", err
	}
	return pathutil.Join(b.BasePath(), oldPath), nil
}

type errNoSourceBranch struct{}

func (errNoSourceBranch) Error() string { return "no branch holds the link source" }
