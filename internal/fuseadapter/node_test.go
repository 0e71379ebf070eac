package fuseadapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/branchfs/branchfs/internal/branch"
	"github.com/branchfs/branchfs/internal/config"
	"github.com/branchfs/branchfs/internal/dispatch"
	"github.com/branchfs/branchfs/internal/inode"
)

func newTestDispatcher(t *testing.T, dirs ...string) *dispatch.Dispatcher {
	t.Helper()
	var branches []*branch.Branch
	for _, d := range dirs {
		branches = append(branches, branch.New(d, branch.RW, -1, nil, 0))
	}
	cfg := config.Default(branch.NewCollection(branches))
	return dispatch.New(config.NewStore(cfg), inode.Passthrough)
}

// newTestRoot wires a Node tree through fs.NewNodeFS, the same bridge a
// real mount uses, without going through fuse.Mount/the kernel — go-fuse
// documents its rawBridge ServerCallbacks as "stubbed so filesystems can
// be unittested without mounting them", and NewNodeFS is the entry point
// that builds that bridge.
func newTestRoot(t *testing.T, dirs ...string) *Node {
	t.Helper()
	d := newTestDispatcher(t, dirs...)
	root := Root(d)
	fs.NewNodeFS(root, &fs.Options{})
	return root
}

func TestChildVirtualPath(t *testing.T) {
	assert.Equal(t, "/foo", childVirtualPath("/", "foo"))
	assert.Equal(t, "/foo/bar", childVirtualPath("/foo", "bar"))
}

func TestNodeCreateLookupGetattr(t *testing.T) {
	dir := t.TempDir()
	root := newTestRoot(t, dir)
	ctx := context.Background()

	var createOut fuse.EntryOut
	_, fh, _, errno := root.Create(ctx, "file.txt", os.O_RDWR|os.O_CREATE, 0o644, &createOut)
	require.Equal(t, 0, int(errno))
	require.NotNil(t, fh)
	assert.NotZero(t, createOut.Attr.Ino)
	assert.Equal(t, uint32(0o644), createOut.Attr.Mode&0o777)

	var lookupOut fuse.EntryOut
	_, errno = root.Lookup(ctx, "file.txt", &lookupOut)
	assert.Equal(t, 0, int(errno))
	assert.Equal(t, createOut.Attr.Ino, lookupOut.Attr.Ino)

	var attrOut fuse.AttrOut
	errno = root.Getattr(ctx, nil, &attrOut)
	assert.Equal(t, 0, int(errno))
}

func TestNodeMkdirAndReaddir(t *testing.T) {
	dir := t.TempDir()
	root := newTestRoot(t, dir)
	ctx := context.Background()

	var out fuse.EntryOut
	_, errno := root.Mkdir(ctx, "sub", 0o755, &out)
	require.Equal(t, 0, int(errno))

	stream, errno := root.Readdir(ctx)
	require.Equal(t, 0, int(errno))
	var names []string
	for stream.HasNext() {
		e, dirErrno := stream.Next()
		require.Equal(t, 0, int(dirErrno))
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "sub")
}

func TestNodeUnlinkAndRmdir(t *testing.T) {
	dir := t.TempDir()
	root := newTestRoot(t, dir)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d"), 0o755))

	assert.Equal(t, 0, int(root.Unlink(ctx, "f")))
	assert.Equal(t, 0, int(root.Rmdir(ctx, "d")))

	var out fuse.EntryOut
	_, errno := root.Lookup(ctx, "f", &out)
	assert.NotEqual(t, 0, int(errno))
}

func TestNodeSetattrTruncatesSize(t *testing.T) {
	dir := t.TempDir()
	root := newTestRoot(t, dir)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("hello world"), 0o644))

	in := &fuse.SetAttrIn{}
	in.Valid = fuse.FATTR_SIZE
	in.Size = 5
	var out fuse.AttrOut
	errno := root.Setattr(ctx, nil, in, &out)
	require.Equal(t, 0, int(errno))
	assert.Equal(t, uint64(5), out.Attr.Size)
}

func TestNodeSymlinkAndReadlink(t *testing.T) {
	dir := t.TempDir()
	root := newTestRoot(t, dir)
	ctx := context.Background()

	var out fuse.EntryOut
	child, errno := root.Symlink(ctx, "target", "link", &out)
	require.Equal(t, 0, int(errno))
	require.NotNil(t, child)

	linkNode := child.Operations().(*Node)
	target, errno := linkNode.Readlink(ctx)
	require.Equal(t, 0, int(errno))
	assert.Equal(t, "target", string(target))
}
