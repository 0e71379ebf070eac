// Package dispatch implements the operation dispatcher of spec §4.6: for
// every externally visible filesystem operation, snapshot configuration
// and branches, select the configured policy(ies), perform branch-local
// I/O through internal/branchio and internal/pathutil, reduce per-branch
// outcomes via internal/errtype, and update internal/inode / internal/handle
// state.
//
// Grounded on backend/union.Fs's per-operation method shape (one method per
// fs.Fs operation, each starting with a policy lookup and ending with a
// multi-upstream fan-out through Errors.Err()), adapted from rclone's
// generic fs.Fs/fs.Object remote abstraction to this system's local-path
// branch model.
package dispatch

import (
	"os"

	"github.com/branchfs/branchfs/internal/branch"
	"github.com/branchfs/branchfs/internal/config"
	"github.com/branchfs/branchfs/internal/errtype"
	"github.com/branchfs/branchfs/internal/handle"
	"github.com/branchfs/branchfs/internal/inode"
	"github.com/branchfs/branchfs/internal/pathutil"
	"github.com/branchfs/branchfs/internal/policy"
)

// Dispatcher holds the shared state every operation method closes over:
// the live configuration store, the inode registry, and the handle
// tables. One Dispatcher backs one mount.
type Dispatcher struct {
	Store   *config.Store
	Inodes  *inode.Registry
	Handles *handle.Table
}

// New builds a Dispatcher. calcMode must match the Configuration's
// inodecalc, since mount-time-only keys (§6) prevent it from changing
// out from under a resident registry.
func New(store *config.Store, calcMode inode.CalcMode) *Dispatcher {
	return &Dispatcher{
		Store:   store,
		Inodes:  inode.New(calcMode),
		Handles: handle.New(),
	}
}

// snapshot is the per-operation read-only view step 1 of §4.6 calls for.
type snapshot struct {
	cfg      *config.Configuration
	branches *branch.Collection
}

func (d *Dispatcher) snapshot() snapshot {
	cfg := d.Store.Snapshot()
	return snapshot{cfg: cfg, branches: cfg.Branches}
}

func (s snapshot) policyFor(op string) (policy.Policy, error) {
	return policy.Get(s.cfg.PolicyFor(op))
}

// resolveSearch runs the search policy configured for op over virtualPath.
func (s snapshot) resolveSearch(op, virtualPath string) ([]*branch.Branch, error) {
	p, err := s.policyFor(op)
	if err != nil {
		return nil, err
	}
	return p.Search(s.branches, virtualPath)
}

// resolveAction runs the action policy configured for op over virtualPath.
func (s snapshot) resolveAction(op, virtualPath string) ([]*branch.Branch, error) {
	p, err := s.policyFor(op)
	if err != nil {
		return nil, err
	}
	return p.Action(s.branches, virtualPath)
}

// resolveCreate runs the create policy configured for op over virtualPath.
func (s snapshot) resolveCreate(op, virtualPath string) ([]*branch.Branch, error) {
	p, err := s.policyFor(op)
	if err != nil {
		return nil, err
	}
	return p.Create(s.branches, virtualPath, s.cfg.MinFreeSpace)
}

// firstExisting returns, among branches (assumed already ordered by
// policy preference), the first one on which virtualPath exists, along
// with its os.FileInfo — used by lookup/getattr/access/open/getxattr per
// the §4.6 table's "stat first successful branch" contract.
func firstExisting(branches []*branch.Branch, virtualPath string) (*branch.Branch, os.FileInfo, error) {
	var last error
	for _, b := range branches {
		info, err := os.Lstat(pathutil.Join(b.BasePath(), virtualPath))
		if err != nil {
			last = errtype.New(errtype.Classify(err), b.BasePath(), err)
			continue
		}
		return b, info, nil
	}
	if last == nil {
		last = errtype.New(errtype.KindNotFound, "", os.ErrNotExist)
	}
	return nil, nil, last
}

// branchIndex returns the position of b within the full collection, used
// to populate inode.Underlying.BranchIndex (stable across a single
// operation since snapshot pins one collection throughout, per §5).
func branchIndex(all []*branch.Branch, b *branch.Branch) int {
	for i, c := range all {
		if c == b {
			return i
		}
	}
	return -1
}
