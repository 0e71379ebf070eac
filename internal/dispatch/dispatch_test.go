package dispatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/branchfs/branchfs/internal/branch"
	"github.com/branchfs/branchfs/internal/branchio"
	"github.com/branchfs/branchfs/internal/config"
	"github.com/branchfs/branchfs/internal/inode"
)

func newTestDispatcher(t *testing.T, dirs ...string) *Dispatcher {
	t.Helper()
	var branches []*branch.Branch
	for _, d := range dirs {
		branches = append(branches, branch.New(d, branch.RW, -1, nil, 0))
	}
	cfg := config.Default(branch.NewCollection(branches))
	return New(config.NewStore(cfg), inode.Passthrough)
}

func TestCreateThenReadWrite(t *testing.T) {
	dir := t.TempDir()
	d := newTestDispatcher(t, dir)

	id, attr, err := d.Create("/f", os.O_RDWR, 0644)
	require.NoError(t, err)
	assert.NotZero(t, attr.VInode)

	n, err := d.Write(id, []byte("hello"), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = d.Read(id, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	require.NoError(t, d.Release(id))
}

func TestMkdirAndLookup(t *testing.T) {
	dir := t.TempDir()
	d := newTestDispatcher(t, dir)

	_, err := d.Mkdir("/sub", 0755)
	require.NoError(t, err)

	attr, err := d.Lookup("/sub")
	require.NoError(t, err)
	assert.True(t, attr.Info.IsDir())
}

func TestUnlinkRemovesFromAllBranches(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dirA, "f"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dirB, "f"), []byte("b"), 0644))
	d := newTestDispatcher(t, dirA, dirB)

	require.NoError(t, d.Unlink("/f"))
	assert.NoFileExists(t, filepath.Join(dirA, "f"))
	assert.NoFileExists(t, filepath.Join(dirB, "f"))
}

func TestReaddirMergesAcrossBranchesDeduplicated(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dirA, "shared"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dirB, "shared"), []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dirB, "onlyb"), []byte("b"), 0644))
	d := newTestDispatcher(t, dirA, dirB)

	id := d.OpenDir("/")
	entries, err := d.Readdir(id)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = true
	}
	assert.True(t, names["shared"])
	assert.True(t, names["onlyb"])
	assert.True(t, names[controlEntryName])
	assert.Len(t, entries, 3)
}

func TestSetxattrRejectsReservedNamespace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0644))
	d := newTestDispatcher(t, dir)

	err := d.Setxattr("/f", branchio.ReservedNamespace+".basepath", []byte("nope"), 0)
	require.Error(t, err)
}

func TestGetxattrSynthesizesFullpath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0644))
	d := newTestDispatcher(t, dir)

	got, err := d.Getxattr("/f", branchio.ReservedNamespace+".fullpath")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "f"), string(got))
}

func TestRenameCreatePathKeepsFileOnSourceBranch(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dirA, "src"), []byte("x"), 0644))
	d := newTestDispatcher(t, dirA, dirB)

	require.NoError(t, d.Rename("/src", "/dst"))
	assert.NoFileExists(t, filepath.Join(dirA, "src"))
	assert.FileExists(t, filepath.Join(dirA, "dst"))
}

func TestLinkCreatesHardLinkOnSourceBranch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src"), []byte("x"), 0644))
	d := newTestDispatcher(t, dir)

	attr, err := d.Link("/src", "/dst")
	require.NoError(t, err)
	assert.NotNil(t, attr)
	assert.FileExists(t, filepath.Join(dir, "dst"))
}

func TestStatfsAggregatesAcrossBranches(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	d := newTestDispatcher(t, dirA, dirB)
	require.NoError(t, d.Store.Update(func(cfg *config.Configuration) error {
		cfg.Statfs = config.StatfsFull
		return nil
	}))

	info, err := d.Statfs()
	require.NoError(t, err)
	assert.Positive(t, info.TotalBytes)
}
