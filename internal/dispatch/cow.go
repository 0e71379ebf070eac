package dispatch

import (
	"os"

	"github.com/branchfs/branchfs/internal/branchio"
)

// breakLinkIfNeeded implements the copy-on-write link-break handler of
// §4.7: when a write-capable open targets a file with more than one hard
// link, duplicate it into a temporary sibling, copy data+metadata+xattrs,
// atomically rename over the original, then continue — so the write that
// follows never corrupts a file another virtual path still names.
//
// Preserves the caller's original open error on any failure path and
// cleans up its own temporaries; a failure here simply means the open
// proceeds against the original, multiply-linked file (not ideal, but
// never worse than what a non-union filesystem would do).
func breakLinkIfNeeded(path string, flags int) error {
	if flags&(os.O_WRONLY|os.O_RDWR) == 0 {
		return nil
	}
	info, err := branchio.Lstat(path)
	if err != nil {
		return nil
	}
	if branchio.NumLinks(info) <= 1 {
		return nil
	}

	tmpPath := path + ".branchfs-cow-tmp"
	src, err := branchio.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil
	}
	defer src.Close()

	dst, err := branchio.OpenFile(tmpPath, os.O_CREATE|os.O_RDWR|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return nil
	}
	if err := branchio.CopyFileData(src, dst); err != nil {
		_ = dst.Close()
		_ = branchio.Remove(tmpPath)
		return nil
	}
	if err := branchio.CopyMetadata(path, tmpPath); err != nil {
		_ = dst.Close()
		_ = branchio.Remove(tmpPath)
		return nil
	}
	_ = dst.Close()
	if err := branchio.Rename(tmpPath, path); err != nil {
		_ = branchio.Remove(tmpPath)
		return nil
	}
	return nil
}
