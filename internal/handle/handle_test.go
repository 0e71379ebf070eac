package handle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenGetReleaseFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(p, []byte("hi"), 0644))
	f, err := os.Open(p)
	require.NoError(t, err)

	table := New()
	id := table.OpenFile(f, 0, dir, "/f", os.O_RDONLY, false)

	got, err := table.GetFile(id)
	require.NoError(t, err)
	assert.Equal(t, "/f", got.VirtualPath)

	require.NoError(t, table.ReleaseFile(id))
	_, err = table.GetFile(id)
	assert.Error(t, err)
}

func TestReleaseUnknownHandleErrors(t *testing.T) {
	table := New()
	assert.Error(t, table.ReleaseFile(999))
	assert.Error(t, table.ReleaseDir(999))
}

func TestDirHandleLifecycle(t *testing.T) {
	table := New()
	id := table.OpenDir("/d")
	got, err := table.GetDir(id)
	require.NoError(t, err)
	assert.Equal(t, "/d", got.VirtualPath)
	require.NoError(t, table.ReleaseDir(id))
}
