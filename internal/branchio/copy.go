package branchio

import (
	"io"
	"os"

	"github.com/branchfs/branchfs/internal/errtype"
)

// CopyFileData streams the full contents of src into dst, preallocating
// dst's size ahead of the copy so the destination branch's free-space
// check (already performed by the caller before opening dst) and the
// eventual write agree. Shared by CoW link-break (spec §4.7, duplicate a
// multiply-linked file before a write truncates/rewrites it) and
// move-on-ENOSPC migration (relocate a file to a branch with more room).
func CopyFileData(src, dst *os.File) error {
	info, err := src.Stat()
	if err != nil {
		return wrapClassify(src.Name(), err)
	}
	if err := Preallocate(info.Size(), dst); err != nil {
		return err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return wrapClassify(src.Name(), err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return wrapClassify(dst.Name(), err)
	}
	if err := dst.Sync(); err != nil {
		return wrapClassify(dst.Name(), err)
	}
	return nil
}

// CopyMetadata copies permissions, ownership, modification time, and
// extended attributes from sourcePath to targetPath. Best-effort on
// ownership and xattrs (both are routinely unavailable to an unprivileged
// process or unsupported filesystem); failing to copy mode or mtime is
// reported, since both are always expected to succeed for a file this
// process just created.
func CopyMetadata(sourcePath, targetPath string) error {
	info, err := os.Lstat(sourcePath)
	if err != nil {
		return wrapClassify(sourcePath, err)
	}
	if err := os.Chmod(targetPath, info.Mode().Perm()); err != nil {
		return errtype.New(errtype.Classify(err), targetPath, err)
	}
	if st, ok := sysStat(info); ok {
		_ = os.Chown(targetPath, int(st.uid), int(st.gid)) // best-effort: needs privilege cross-uid
	}
	if err := os.Chtimes(targetPath, info.ModTime(), info.ModTime()); err != nil {
		return errtype.New(errtype.Classify(err), targetPath, err)
	}
	CopyXattrs(sourcePath, targetPath)
	return nil
}
