package branchio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetXattrRejectsReservedNamespace(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0644))

	err := SetXattr(p, ReservedNamespace+".basepath", []byte("nope"), 0)
	require.Error(t, err)
}

func TestRemoveXattrRejectsReservedNamespace(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0644))

	err := RemoveXattr(p, ReservedNamespace+".relpath")
	require.Error(t, err)
}

func TestIsSynthesizedKey(t *testing.T) {
	assert.True(t, IsSynthesizedKey(ReservedNamespace+".fullpath"))
	assert.False(t, IsSynthesizedKey("user.comment"))
}

func TestCopyFileDataCopiesContent(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src")
	dstPath := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(srcPath, []byte("hello world"), 0644))

	src, err := os.Open(srcPath)
	require.NoError(t, err)
	defer src.Close()
	dst, err := os.Create(dstPath)
	require.NoError(t, err)
	defer dst.Close()

	require.NoError(t, CopyFileData(src, dst))

	got, err := os.ReadFile(dstPath)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestCopyMetadataCopiesModeAndTimes(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src")
	dstPath := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(srcPath, []byte("x"), 0640))
	require.NoError(t, os.WriteFile(dstPath, []byte("x"), 0644))

	require.NoError(t, CopyMetadata(srcPath, dstPath))

	srcInfo, err := os.Lstat(srcPath)
	require.NoError(t, err)
	dstInfo, err := os.Lstat(dstPath)
	require.NoError(t, err)
	assert.Equal(t, srcInfo.Mode().Perm(), dstInfo.Mode().Perm())
	assert.True(t, srcInfo.ModTime().Equal(dstInfo.ModTime()))
}

func TestReadLinkDetectsCircularSymlink(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.Symlink(b, a))
	require.NoError(t, os.Symlink(a, b))

	_, err := ReadLink(filepath.Join(a, "trailing"))
	require.Error(t, err)
}

func TestNumLinksReflectsHardLinks(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f")
	link := filepath.Join(dir, "link")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0644))

	info, err := os.Lstat(p)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), NumLinks(info))

	require.NoError(t, Link(p, link))
	info, err = os.Lstat(p)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), NumLinks(info))
}
