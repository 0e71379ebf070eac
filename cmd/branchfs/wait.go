package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/branchfs/branchfs/internal/branch"
	"github.com/branchfs/branchfs/internal/bflog"
)

// WaitForBranches implements the branch-mount wait-with-timeout of
// SPEC_FULL §5 "Cancellation and timeouts": it polls each branch's base
// path for existence, returning once every branch is present, ctx is
// cancelled, or timeout elapses. The caller (runMount) decides whether
// an elapsed wait fails the mount or lets it proceed, per §6 exit codes.
func WaitForBranches(ctx context.Context, branches *branch.Collection, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	const pollInterval = 200 * time.Millisecond

	for {
		missing := missingBranches(branches)
		if len(missing) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("branch(es) not present after %s: %v", timeout, missing)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
			bflog.Debugf(nil, "waiting for branches: %v", missing)
		}
	}
}

func missingBranches(branches *branch.Collection) []string {
	var missing []string
	for _, b := range branches.Branches() {
		if _, err := os.Stat(b.BasePath()); err != nil {
			missing = append(missing, b.BasePath())
		}
	}
	return missing
}
