package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/branchfs/branchfs/internal/config"
	"github.com/branchfs/branchfs/internal/inode"
)

func TestBuildConfigurationDefaults(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	f := &flags{
		inodeCalc:    "passthrough",
		cacheFiles:   "libfuse",
		statfsMode:   "base",
		statfsIgnore: "none",
		xattrMode:    "passthrough",
		moveOnEnospc: "false",
		linkExdev:    "passthrough",
		renameExdev:  "passthrough",
	}
	cfg, calcMode, err := buildConfiguration(f, dirA+"="+"RW:"+dirB+"=RO")
	require.NoError(t, err)
	assert.Equal(t, inode.Passthrough, calcMode)
	assert.Equal(t, 2, cfg.Branches.Len())
	assert.False(t, cfg.MoveOnEnospc)
	assert.Equal(t, config.StatfsBase, cfg.Statfs)
}

func TestBuildConfigurationAppliesOverrides(t *testing.T) {
	dirA := t.TempDir()
	f := &flags{
		inodeCalc:    "path-hash",
		cacheFiles:   "full",
		statfsMode:   "full",
		statfsIgnore: "ro",
		xattrMode:    "noattr",
		moveOnEnospc: "mfs",
		linkExdev:    "rel-symlink",
		renameExdev:  "abs-base-symlink",
		funcPolicy:   map[string]string{"create": "mfs"},
		category:     map[string]string{"search": "ff"},
	}
	cfg, calcMode, err := buildConfiguration(f, dirA)
	require.NoError(t, err)
	assert.Equal(t, inode.PathHash64, calcMode)
	assert.Equal(t, config.StatfsFull, cfg.Statfs)
	assert.Equal(t, config.StatfsIgnoreRO, cfg.StatfsIgnore)
	assert.Equal(t, config.XattrNoAttr, cfg.Xattr)
	assert.True(t, cfg.MoveOnEnospc)
	assert.Equal(t, "mfs", cfg.MoveOnEnospcPolicy)
	assert.Equal(t, config.ExdevRelSymlink, cfg.LinkExdev)
	assert.Equal(t, config.ExdevAbsBaseSymlink, cfg.RenameExdev)
	assert.Equal(t, "mfs", cfg.FuncPolicy["create"])
	assert.Equal(t, "ff", cfg.FuncPolicy["lookup"])
}

func TestBuildConfigurationRejectsBadInodeCalc(t *testing.T) {
	f := &flags{inodeCalc: "bogus"}
	_, _, err := buildConfiguration(f, t.TempDir())
	assert.Error(t, err)
}

func TestBuildConfigurationRejectsEmptyBranchSpec(t *testing.T) {
	f := &flags{inodeCalc: "passthrough"}
	_, _, err := buildConfiguration(f, "")
	assert.Error(t, err)
}
