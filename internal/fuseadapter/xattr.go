package fuseadapter

import (
	"context"
	"strings"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"

	"github.com/branchfs/branchfs/internal/errtype"
)

var _ fs.NodeGetxattrer = (*Node)(nil)
var _ fs.NodeSetxattrer = (*Node)(nil)
var _ fs.NodeRemovexattrer = (*Node)(nil)
var _ fs.NodeListxattrer = (*Node)(nil)

func (n *Node) Getxattr(ctx context.Context, attr string, dest []byte) (uint32, syscall.Errno) {
	val, err := n.d.Getxattr(n.virtualPath, attr)
	if err != nil {
		return 0, errtype.ToErrno(err)
	}
	if len(dest) < len(val) {
		return uint32(len(val)), syscall.ERANGE
	}
	return uint32(copy(dest, val)), 0
}

func (n *Node) Setxattr(ctx context.Context, attr string, data []byte, flags uint32) syscall.Errno {
	if err := n.d.Setxattr(n.virtualPath, attr, data, int(flags)); err != nil {
		return errtype.ToErrno(err)
	}
	return 0
}

func (n *Node) Removexattr(ctx context.Context, attr string) syscall.Errno {
	if err := n.d.Removexattr(n.virtualPath, attr); err != nil {
		return errtype.ToErrno(err)
	}
	return 0
}

func (n *Node) Listxattr(ctx context.Context, dest []byte) (uint32, syscall.Errno) {
	names, err := n.d.Listxattr(n.virtualPath)
	if err != nil {
		return 0, errtype.ToErrno(err)
	}
	joined := strings.Join(names, "\x00")
	if len(joined) > 0 {
		joined += "\x00"
	}
	if len(dest) < len(joined) {
		return uint32(len(joined)), syscall.ERANGE
	}
	return uint32(copy(dest, joined)), 0
}
