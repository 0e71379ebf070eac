//go:build linux || darwin || freebsd || dragonfly

package branchio

import (
	"os"
	"syscall"

	"github.com/branchfs/branchfs/internal/bflog"
)

// LinkInfo carries the device/inode pair needed to detect hard links and
// to feed inode.Underlying in devino/hybrid inode-calculation modes.
// Grounded on backend/local/linkinfo_unix.go's UnixHLinkInfo/getHLinkInfo.
type LinkInfo struct {
	Dev uint64
	Ino uint64
}

// GetLinkInfo extracts dev/ino from a stat result, logging (not failing)
// when the host's os.FileInfo doesn't carry a *syscall.Stat_t.
func GetLinkInfo(path string, info os.FileInfo) (LinkInfo, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		bflog.Debugf(path, "stat did not return *syscall.Stat_t as expected")
		return LinkInfo{}, false
	}
	return LinkInfo{Dev: uint64(st.Dev), Ino: st.Ino}, true
}

// SameFile reports whether a and b are the identical underlying file
// (used to detect whether a would-be hard-link target already denotes the
// source, which the kernel rejects with EEXIST/EINVAL depending on
// platform).
func SameFile(a, b os.FileInfo) bool {
	la, ok1 := GetLinkInfo("", a)
	lb, ok2 := GetLinkInfo("", b)
	return ok1 && ok2 && la.Dev == lb.Dev && la.Ino == lb.Ino
}

// NumLinks returns the hard-link count reported by the kernel, used to
// decide whether a file needs CoW link-break treatment before an
// in-place write (spec §4.7: only multiply-linked files need it).
func NumLinks(info os.FileInfo) uint64 {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 1
	}
	return uint64(st.Nlink)
}
