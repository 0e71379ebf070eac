//go:build linux || darwin || freebsd || dragonfly

package branch

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// StatOS is the default StatFunc, grounded on backend/local's About
// (statfs-based quota/usage query), using golang.org/x/sys/unix for a
// struct layout that is consistent across the unix-like platforms.
func StatOS(basePath string) (FilesystemInfo, error) {
	var s unix.Statfs_t
	if err := unix.Statfs(basePath, &s); err != nil {
		return FilesystemInfo{}, fmt.Errorf("statfs %s: %w", basePath, err)
	}
	bs := uint64(s.Bsize)
	total := bs * uint64(s.Blocks)
	avail := bs * uint64(s.Bavail)
	free := bs * uint64(s.Bfree)
	used := total - avail
	ro := uint64(s.Flags)&uint64(unix.ST_RDONLY) != 0
	return FilesystemInfo{
		TotalBytes:         total,
		FreeBytes:          free,
		UserAvailableBytes: avail,
		UsedBytes:          used,
		ReadOnly:           ro,
	}, nil
}
