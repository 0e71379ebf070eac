package fuseadapter

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/branchfs/branchfs/internal/dispatch"
	"github.com/branchfs/branchfs/internal/errtype"
	"github.com/branchfs/branchfs/internal/handle"
)

// fileHandle adapts a dispatch.handle.ID into the FileXxxx interfaces,
// grounded on go-fuse's own recommendation ("Second, it is useful for
// implementing files whose contents are not tied to an inode") — here it
// is the reverse: the handle *is* tied to one inode, but the dispatcher
// (not this struct) owns the descriptor, so fileHandle is a thin lookup
// key rather than an I/O object in its own right.
type fileHandle struct {
	d  *dispatch.Dispatcher
	id handle.ID
}

var _ fs.FileHandle = (*fileHandle)(nil)
var _ fs.FileReader = (*fileHandle)(nil)
var _ fs.FileWriter = (*fileHandle)(nil)
var _ fs.FileFlusher = (*fileHandle)(nil)
var _ fs.FileReleaser = (*fileHandle)(nil)
var _ fs.FileFsyncer = (*fileHandle)(nil)
var _ fs.FileAllocater = (*fileHandle)(nil)
var _ fs.FileSetattrer = (*fileHandle)(nil)

func (fh *fileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n, err := fh.d.Read(fh.id, dest, off)
	if err != nil {
		return nil, errtype.ToErrno(err)
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (fh *fileHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	n, err := fh.d.Write(fh.id, data, off)
	if err != nil {
		return uint32(n), errtype.ToErrno(err)
	}
	return uint32(n), 0
}

func (fh *fileHandle) Flush(ctx context.Context) syscall.Errno {
	return 0
}

func (fh *fileHandle) Release(ctx context.Context) syscall.Errno {
	if err := fh.d.Release(fh.id); err != nil {
		return errtype.ToErrno(err)
	}
	return 0
}

func (fh *fileHandle) Fsync(ctx context.Context, flags uint32) syscall.Errno {
	return 0
}

func (fh *fileHandle) Allocate(ctx context.Context, off uint64, size uint64, mode uint32) syscall.Errno {
	if err := fh.d.Fallocate(fh.id, int64(off+size)); err != nil {
		return errtype.ToErrno(err)
	}
	return 0
}

func (fh *fileHandle) Setattr(ctx context.Context, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok {
		if err := fh.d.Truncate(fh.id, int64(size)); err != nil {
			return errtype.ToErrno(err)
		}
	}
	return 0
}
