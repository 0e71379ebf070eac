package policy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/branchfs/branchfs/internal/branch"
)

// makeTestBranches creates n real temp directories and wraps them as RW
// Branches, mirroring union_internal_test.go's MakeTestDirs.
func makeTestBranches(t *testing.T, n int) []*branch.Branch {
	var branches []*branch.Branch
	for i := 0; i < n; i++ {
		dir := t.TempDir()
		branches = append(branches, branch.New(dir, branch.RW, -1, branch.StatOS, 0))
	}
	return branches
}

func TestFFCreatePicksFirstAdmissible(t *testing.T) {
	branches := makeTestBranches(t, 3)
	snap := branch.NewCollection(branches)
	p, err := Get("ff")
	require.NoError(t, err)

	got, err := p.Create(snap, "/x", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, branches[0].BasePath(), got[0].BasePath())
}

func TestEpFFSearchFindsExistingPath(t *testing.T) {
	branches := makeTestBranches(t, 3)
	require.NoError(t, os.WriteFile(filepath.Join(branches[2].BasePath(), "f"), []byte("hi"), 0644))
	snap := branch.NewCollection(branches)
	p, err := Get("epff")
	require.NoError(t, err)

	got, err := p.Search(snap, "/f")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, branches[2].BasePath(), got[0].BasePath())
}

func TestEpFFSearchNotFound(t *testing.T) {
	branches := makeTestBranches(t, 2)
	snap := branch.NewCollection(branches)
	p, err := Get("epff")
	require.NoError(t, err)

	_, err = p.Search(snap, "/missing")
	assert.Error(t, err)
}

func TestAllActionCoversEveryBranchHoldingPath(t *testing.T) {
	branches := makeTestBranches(t, 3)
	for _, b := range branches[:2] {
		require.NoError(t, os.Mkdir(filepath.Join(b.BasePath(), "d"), 0755))
	}
	snap := branch.NewCollection(branches)
	p, err := Get("all")
	require.NoError(t, err)

	got, err := p.Action(snap, "/d")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCreatePolicyRejectsReadOnlyBranch(t *testing.T) {
	dir := t.TempDir()
	ro := branch.New(dir, branch.RO, -1, branch.StatOS, 0)
	snap := branch.NewCollection([]*branch.Branch{ro})
	p, err := Get("ff")
	require.NoError(t, err)

	_, err = p.Create(snap, "/x", 0)
	assert.Error(t, err, "an RO branch must never be selected for create")
}

func TestMinFreeSpaceExactlyEqualIsInsufficient(t *testing.T) {
	dir := t.TempDir()
	info, err := branch.StatOS(dir)
	require.NoError(t, err)
	b := branch.New(dir, branch.RW, int64(info.UserAvailableBytes), branch.StatOS, 0)
	snap := branch.NewCollection([]*branch.Branch{b})
	p, err := Get("ff")
	require.NoError(t, err)

	_, err = p.Create(snap, "/x", 0)
	assert.Error(t, err, "min-free-space exactly equal to available must be treated as insufficient")
}

func TestMfsPicksBranchWithMostFreeSpace(t *testing.T) {
	branches := makeTestBranches(t, 2)
	// Fake differing free space via per-branch StatFunc overrides.
	branches[0] = branch.New(branches[0].BasePath(), branch.RW, -1, func(string) (branch.FilesystemInfo, error) {
		return branch.FilesystemInfo{TotalBytes: 2 << 30, UserAvailableBytes: 1 << 30}, nil
	}, 0)
	branches[1] = branch.New(branches[1].BasePath(), branch.RW, -1, func(string) (branch.FilesystemInfo, error) {
		return branch.FilesystemInfo{TotalBytes: 2 << 30, UserAvailableBytes: 2 << 30}, nil
	}, 0)
	snap := branch.NewCollection(branches)
	p, err := Get("mfs")
	require.NoError(t, err)

	got, err := p.Create(snap, "/x", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, branches[1].BasePath(), got[0].BasePath())
}

func TestNewestSearchPicksGreatestModTime(t *testing.T) {
	branches := makeTestBranches(t, 2)
	older := filepath.Join(branches[0].BasePath(), "f")
	newer := filepath.Join(branches[1].BasePath(), "f")
	require.NoError(t, os.WriteFile(older, []byte("a"), 0644))
	require.NoError(t, os.WriteFile(newer, []byte("a"), 0644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	snap := branch.NewCollection(branches)
	p, err := Get("newest")
	require.NoError(t, err)

	got, err := p.Search(snap, "/f")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, branches[1].BasePath(), got[0].BasePath())
}

func TestEmptyBranchListFailsNotFound(t *testing.T) {
	snap := branch.NewCollection(nil)
	p, err := Get("ff")
	require.NoError(t, err)
	_, err = p.Search(snap, "/x")
	assert.Error(t, err)
}

func TestFilterCreateAdmissibleFansOutAcrossManyBranches(t *testing.T) {
	branches := makeTestBranches(t, 8)
	ok, errs := filterCreateAdmissible(branches, 0)
	assert.Len(t, ok, 8)
	assert.Empty(t, errs)
}

func TestFilterActionAdmissibleExcludesReadOnlyBranches(t *testing.T) {
	branches := makeTestBranches(t, 3)
	branches[1] = branch.New(branches[1].BasePath(), branch.RO, -1, branch.StatOS, 0)
	ok, errs := filterActionAdmissible(branches)
	require.Len(t, ok, 2)
	assert.NotEmpty(t, errs)
	for _, b := range ok {
		assert.NotEqual(t, branches[1].BasePath(), b.BasePath())
	}
}

func TestErofsAlwaysFailsReadOnly(t *testing.T) {
	branches := makeTestBranches(t, 1)
	snap := branch.NewCollection(branches)
	p, err := Get("erofs")
	require.NoError(t, err)
	_, err = p.Action(snap, "/x")
	assert.Error(t, err)
}
