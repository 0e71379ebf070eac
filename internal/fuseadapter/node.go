// Package fuseadapter translates between github.com/hanwen/go-fuse/v2's
// InodeEmbedder tree API and the dispatcher's virtual-path operations: one
// Node per currently-resident kernel dentry, all of them sharing the same
// *dispatch.Dispatcher and reconstructing their virtual path from the
// tree position go-fuse already maintains.
//
// Grounded on the go-fuse v2 fs package's documented InodeEmbedder pattern
// (NewInode per Lookup, syscall.Errno returns) and on jra3-linear-fuse's
// BaseNode/RootNode shape (a thin struct embedding fs.Inode, Getattr
// filling fuse.AttrOut.Attr directly, Readdir via fs.NewListDirStream).
package fuseadapter

import (
	"context"
	"os"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/branchfs/branchfs/internal/dispatch"
	"github.com/branchfs/branchfs/internal/errtype"
)

// Node is one tree entry. virtualPath is reconstructed once at Lookup time
// and never mutated afterward — renames are handled by the kernel dropping
// and re-looking-up the affected dentries, not by patching this field in
// place, since go-fuse's Inode tree (not this struct) is the source of
// truth for parent/child relationships.
type Node struct {
	fs.Inode

	d           *dispatch.Dispatcher
	virtualPath string
}

var _ fs.InodeEmbedder = (*Node)(nil)
var _ fs.NodeLookuper = (*Node)(nil)
var _ fs.NodeGetattrer = (*Node)(nil)
var _ fs.NodeSetattrer = (*Node)(nil)
var _ fs.NodeAccesser = (*Node)(nil)
var _ fs.NodeReaddirer = (*Node)(nil)
var _ fs.NodeStatfser = (*Node)(nil)
var _ fs.NodeReadlinker = (*Node)(nil)

// Root builds the root Node of the tree backed by d.
func Root(d *dispatch.Dispatcher) *Node {
	return &Node{d: d, virtualPath: "/"}
}

func childVirtualPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

func fileType(info os.FileInfo) uint32 {
	switch {
	case info.Mode()&os.ModeDir != 0:
		return syscall.S_IFDIR
	case info.Mode()&os.ModeSymlink != 0:
		return syscall.S_IFLNK
	default:
		return syscall.S_IFREG
	}
}

func fillAttr(a *fuse.Attr, attr *dispatch.Attr) {
	info := attr.Info
	a.Ino = uint64(attr.VInode)
	a.Mode = fileType(info) | uint32(info.Mode().Perm())
	a.Size = uint64(info.Size())
	if st, ok := sysStat(info); ok {
		a.Uid = st.uid
		a.Gid = st.gid
		a.Nlink = uint32(st.nlink)
	} else {
		a.Nlink = 1
	}
	mtime := info.ModTime()
	a.SetTimes(nil, &mtime, nil)
}

// newChildNode interns attr into the inode registry and returns the
// *fs.Inode the kernel should associate with name, filling out per §4.6's
// "every returned attribute record carries a VirtualInode" contract.
func (n *Node) newChildNode(ctx context.Context, name string, attr *dispatch.Attr, out *fuse.EntryOut) *fs.Inode {
	fillAttr(&out.Attr, attr)
	out.NodeId = uint64(attr.VInode)
	out.Attr.Ino = uint64(attr.VInode)
	mode := fileType(attr.Info)
	child := &Node{d: n.d, virtualPath: childVirtualPath(n.virtualPath, name)}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: mode, Ino: uint64(attr.VInode)})
}

// Lookup implements fs.NodeLookuper over the dispatcher.
func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childPath := childVirtualPath(n.virtualPath, name)
	attr, err := n.d.Lookup(childPath)
	if err != nil {
		return nil, errtype.ToErrno(err)
	}
	return n.newChildNode(ctx, name, attr, out), 0
}

// Getattr implements fs.NodeGetattrer: re-stat this node's virtual path.
func (n *Node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := n.d.Lookup(n.virtualPath)
	if err != nil {
		return errtype.ToErrno(err)
	}
	fillAttr(&out.Attr, attr)
	return 0
}

// Setattr implements chmod/chown/truncate/utimens, dispatched per the
// fuse.SetAttrIn.Valid bitmask — each bit independently applied, matching
// how the underlying syscalls are independently invoked (§4.6's table
// lists chmod/chown/utimens/truncate as four distinct operations; a single
// SETATTR request can carry any subset of them).
func (n *Node) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if mode, ok := in.GetMode(); ok {
		if err := n.d.Chmod(n.virtualPath, os.FileMode(mode)); err != nil {
			return errtype.ToErrno(err)
		}
	}
	uid, uok := in.GetUID()
	gid, gok := in.GetGID()
	if uok || gok {
		chownUID, chownGID := -1, -1
		if uok {
			chownUID = int(uid)
		}
		if gok {
			chownGID = int(gid)
		}
		if err := n.d.Chown(n.virtualPath, chownUID, chownGID); err != nil {
			return errtype.ToErrno(err)
		}
	}
	if size, ok := in.GetSize(); ok {
		if err := n.d.TruncatePath(n.virtualPath, int64(size)); err != nil {
			return errtype.ToErrno(err)
		}
	}
	mtime, mok := in.GetMTime()
	atime, aok := in.GetATime()
	if mok || aok {
		if !mok || !aok {
			if current, err := n.d.Lookup(n.virtualPath); err == nil {
				if !mok {
					mtime = current.Info.ModTime()
				}
				if !aok {
					atime = current.Info.ModTime()
				}
			}
		}
		if err := n.d.Utimens(n.virtualPath, atime, mtime); err != nil {
			return errtype.ToErrno(err)
		}
	}
	attr, err := n.d.Lookup(n.virtualPath)
	if err != nil {
		return errtype.ToErrno(err)
	}
	fillAttr(&out.Attr, attr)
	return 0
}

// Access implements the access/permission-check operation.
func (n *Node) Access(ctx context.Context, mask uint32) syscall.Errno {
	if err := n.d.Access(n.virtualPath, mask); err != nil {
		return errtype.ToErrno(err)
	}
	return 0
}

// Readdir implements the union readdir merger via dispatch.Readdir.
func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	id := n.d.OpenDir(n.virtualPath)
	defer n.d.ReleaseDir(id)
	entries, err := n.d.Readdir(id)
	if err != nil {
		return nil, errtype.ToErrno(err)
	}
	out := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		mode := uint32(syscall.S_IFREG)
		if e.IsDir {
			mode = syscall.S_IFDIR
		}
		out = append(out, fuse.DirEntry{Name: e.Name, Mode: mode})
	}
	return fs.NewListDirStream(out), 0
}

// Statfs implements the aggregate/base statfs view.
func (n *Node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	info, err := n.d.Statfs()
	if err != nil {
		return errtype.ToErrno(err)
	}
	const blockSize = 4096
	out.Bsize = blockSize
	out.Frsize = blockSize
	out.Blocks = info.TotalBytes / blockSize
	out.Bfree = info.FreeBytes / blockSize
	out.Bavail = info.UserAvailableBytes / blockSize
	out.NameLen = 255
	return 0
}

// Readlink implements symlink target retrieval.
func (n *Node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	target, err := n.d.Readlink(n.virtualPath)
	if err != nil {
		return nil, errtype.ToErrno(err)
	}
	return []byte(target), 0
}
