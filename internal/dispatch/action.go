package dispatch

import (
	"os"
	"time"

	"github.com/branchfs/branchfs/internal/branch"
	"github.com/branchfs/branchfs/internal/branchio"
	"github.com/branchfs/branchfs/internal/errtype"
	"github.com/branchfs/branchfs/internal/pathutil"
)

// applyToAll runs fn against every branch in candidates, reducing the
// per-branch outcomes with the §4.2 precedence rule: "if any branch
// succeeds, the operation succeeds; among failures, apply precedence."
func applyToAll(candidates []*branch.Branch, fn func(*branch.Branch) error) error {
	var errs []error
	succeeded := false
	for _, b := range candidates {
		if err := fn(b); err != nil {
			errs = append(errs, err)
			continue
		}
		succeeded = true
	}
	if succeeded {
		return nil
	}
	return errtype.Reduce(errs)
}

// TruncatePath implements the path-addressed truncate variant (no open
// handle): action policy, applied on all selected branches.
func (d *Dispatcher) TruncatePath(virtualPath string, size int64) error {
	s := d.snapshot()
	candidates, err := s.resolveAction("truncate", virtualPath)
	if err != nil {
		return err
	}
	return applyToAll(candidates, func(b *branch.Branch) error {
		return branchio.Truncate(pathutil.Join(b.BasePath(), virtualPath), size)
	})
}

// Unlink implements unlink: action policy, applied on all selected
// branches, errors reduced.
func (d *Dispatcher) Unlink(virtualPath string) error {
	s := d.snapshot()
	candidates, err := s.resolveAction("unlink", virtualPath)
	if err != nil {
		return err
	}
	return applyToAll(candidates, func(b *branch.Branch) error {
		return branchio.Remove(pathutil.Join(b.BasePath(), virtualPath))
	})
}

// Rmdir implements rmdir: action policy, applied on all selected
// branches.
func (d *Dispatcher) Rmdir(virtualPath string) error {
	s := d.snapshot()
	candidates, err := s.resolveAction("rmdir", virtualPath)
	if err != nil {
		return err
	}
	return applyToAll(candidates, func(b *branch.Branch) error {
		return branchio.Remove(pathutil.Join(b.BasePath(), virtualPath))
	})
}

// Chmod implements chmod: action policy, applied on all selected
// branches.
func (d *Dispatcher) Chmod(virtualPath string, mode os.FileMode) error {
	s := d.snapshot()
	candidates, err := s.resolveAction("chmod", virtualPath)
	if err != nil {
		return err
	}
	return applyToAll(candidates, func(b *branch.Branch) error {
		if err := os.Chmod(pathutil.Join(b.BasePath(), virtualPath), mode); err != nil {
			return errtype.New(errtype.Classify(err), b.BasePath(), err)
		}
		return nil
	})
}

// Chown implements chown: action policy, applied on all selected
// branches.
func (d *Dispatcher) Chown(virtualPath string, uid, gid int) error {
	s := d.snapshot()
	candidates, err := s.resolveAction("chown", virtualPath)
	if err != nil {
		return err
	}
	return applyToAll(candidates, func(b *branch.Branch) error {
		if err := os.Chown(pathutil.Join(b.BasePath(), virtualPath), uid, gid); err != nil {
			return errtype.New(errtype.Classify(err), b.BasePath(), err)
		}
		return nil
	})
}

// Utimens implements utimens: action policy, applied on all selected
// branches.
func (d *Dispatcher) Utimens(virtualPath string, atime, mtime time.Time) error {
	s := d.snapshot()
	candidates, err := s.resolveAction("utimens", virtualPath)
	if err != nil {
		return err
	}
	return applyToAll(candidates, func(b *branch.Branch) error {
		if err := os.Chtimes(pathutil.Join(b.BasePath(), virtualPath), atime, mtime); err != nil {
			return errtype.New(errtype.Classify(err), b.BasePath(), err)
		}
		return nil
	})
}
