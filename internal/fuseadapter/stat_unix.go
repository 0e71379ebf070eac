//go:build linux || darwin || freebsd || dragonfly

package fuseadapter

import (
	"os"
	"syscall"
)

type ownership struct {
	uid, gid uint32
	nlink    uint64
}

func sysStat(info os.FileInfo) (ownership, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return ownership{}, false
	}
	return ownership{uid: st.Uid, gid: st.Gid, nlink: uint64(st.Nlink)}, true
}
