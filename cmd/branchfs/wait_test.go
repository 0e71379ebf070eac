package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/branchfs/branchfs/internal/branch"
)

func TestWaitForBranchesReturnsImmediatelyWhenAllPresent(t *testing.T) {
	dir := t.TempDir()
	b := branch.New(dir, branch.RW, -1, nil, 0)
	col := branch.NewCollection([]*branch.Branch{b})

	err := WaitForBranches(context.Background(), col, time.Second)
	assert.NoError(t, err)
}

func TestWaitForBranchesTimesOutWhenMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "never-created")
	b := branch.New(missing, branch.RW, -1, nil, 0)
	col := branch.NewCollection([]*branch.Branch{b})

	err := WaitForBranches(context.Background(), col, 50*time.Millisecond)
	assert.Error(t, err)
}

func TestWaitForBranchesSucceedsOncePathAppears(t *testing.T) {
	parent := t.TempDir()
	late := filepath.Join(parent, "late")
	b := branch.New(late, branch.RW, -1, nil, 0)
	col := branch.NewCollection([]*branch.Branch{b})

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.Mkdir(late, 0o755)
	}()

	err := WaitForBranches(context.Background(), col, 500*time.Millisecond)
	assert.NoError(t, err)
}

func TestWaitForBranchesRespectsContextCancellation(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "never-created")
	b := branch.New(missing, branch.RW, -1, nil, 0)
	col := branch.NewCollection([]*branch.Branch{b})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := WaitForBranches(ctx, col, 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
