package fuseadapter

import (
	"context"
	"os"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/branchfs/branchfs/internal/errtype"
)

var _ fs.NodeOpener = (*Node)(nil)
var _ fs.NodeCreater = (*Node)(nil)
var _ fs.NodeMkdirer = (*Node)(nil)
var _ fs.NodeUnlinker = (*Node)(nil)
var _ fs.NodeRmdirer = (*Node)(nil)
var _ fs.NodeRenamer = (*Node)(nil)
var _ fs.NodeSymlinker = (*Node)(nil)
var _ fs.NodeLinker = (*Node)(nil)

// Open opens the node's current virtual path for reading/writing.
func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	id, err := n.d.Open(n.virtualPath, int(flags))
	if err != nil {
		return nil, 0, errtype.ToErrno(err)
	}
	return &fileHandle{d: n.d, id: id}, 0, 0
}

// Create implements create+open in one round trip.
func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	childPath := childVirtualPath(n.virtualPath, name)
	id, attr, err := n.d.Create(childPath, int(flags), os.FileMode(mode))
	if err != nil {
		return nil, nil, 0, errtype.ToErrno(err)
	}
	child := n.newChildNode(ctx, name, attr, out)
	return child, &fileHandle{d: n.d, id: id}, 0, 0
}

// Mkdir implements directory creation.
func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childPath := childVirtualPath(n.virtualPath, name)
	attr, err := n.d.Mkdir(childPath, os.FileMode(mode))
	if err != nil {
		return nil, errtype.ToErrno(err)
	}
	return n.newChildNode(ctx, name, attr, out), 0
}

// Symlink implements symbolic link creation.
func (n *Node) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childPath := childVirtualPath(n.virtualPath, name)
	attr, err := n.d.Symlink(target, childPath)
	if err != nil {
		return nil, errtype.ToErrno(err)
	}
	return n.newChildNode(ctx, name, attr, out), 0
}

// Link implements hard-link creation: target is the existing node being
// linked to, name is the new entry created under n.
func (n *Node) Link(ctx context.Context, target fs.InodeEmbedder, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	src, ok := target.(*Node)
	if !ok {
		return nil, syscall.EINVAL
	}
	childPath := childVirtualPath(n.virtualPath, name)
	attr, err := n.d.Link(src.virtualPath, childPath)
	if err != nil {
		return nil, errtype.ToErrno(err)
	}
	return n.newChildNode(ctx, name, attr, out), 0
}

// Unlink implements file removal.
func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	childPath := childVirtualPath(n.virtualPath, name)
	if err := n.d.Unlink(childPath); err != nil {
		return errtype.ToErrno(err)
	}
	return 0
}

// Rmdir implements directory removal.
func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	childPath := childVirtualPath(n.virtualPath, name)
	if err := n.d.Rmdir(childPath); err != nil {
		return errtype.ToErrno(err)
	}
	return 0
}

// Rename implements rename/move, including across directories within the
// tree (newParent may differ from n).
func (n *Node) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	dest, ok := newParent.(*Node)
	if !ok {
		return syscall.EINVAL
	}
	oldPath := childVirtualPath(n.virtualPath, name)
	newPath := childVirtualPath(dest.virtualPath, newName)
	if err := n.d.Rename(oldPath, newPath); err != nil {
		return errtype.ToErrno(err)
	}
	return 0
}
