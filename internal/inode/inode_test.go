package inode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevinoModeGivesHardLinksEqualInode(t *testing.T) {
	r := New(DevinoHash64)

	u := Underlying{BranchBase: "/b1", Ino: 42, IsDir: false}
	e1 := r.Intern("/f", u)
	e2 := r.Intern("/g", u) // same underlying branch+ino: a hard link

	assert.Equal(t, e1.VInode, e2.VInode)

	looked, err := r.Lookup(e2.VInode)
	require.NoError(t, err)
	assert.Equal(t, "/g", looked.VirtualPath, "intern must refresh the cached path on merge")
}

func TestPathHashModeIsDeterministicPerPath(t *testing.T) {
	r := New(PathHash64)
	u1 := Underlying{BranchBase: "/b1", Ino: 1}
	u2 := Underlying{BranchBase: "/b2", Ino: 2}

	e1 := r.Intern("/same", u1)
	e2 := r.Intern("/same", u2)
	assert.Equal(t, e1.VInode, e2.VInode, "path-hash mode yields the same VirtualInode regardless of branch")
}

func TestForgetEvictsAtZeroRefcount(t *testing.T) {
	r := New(Passthrough)
	e := r.Intern("/f", Underlying{Ino: 7})
	r.Ref(e.VInode, 2)

	r.Forget(e.VInode, 1)
	_, err := r.Lookup(e.VInode)
	require.NoError(t, err, "entry must survive partial forget")

	r.Forget(e.VInode, 1)
	_, err = r.Lookup(e.VInode)
	assert.Error(t, err, "entry must be evicted once refcount reaches zero")
}

func TestRenameUpdatesCachedPath(t *testing.T) {
	r := New(Passthrough)
	e := r.Intern("/old", Underlying{Ino: 1})
	r.Rename("/old", "/new")
	looked, err := r.Lookup(e.VInode)
	require.NoError(t, err)
	assert.Equal(t, "/new", looked.VirtualPath)
}
