package main

import (
	"context"
	"fmt"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/branchfs/branchfs/internal/bflog"
	"github.com/branchfs/branchfs/internal/config"
	"github.com/branchfs/branchfs/internal/dispatch"
	"github.com/branchfs/branchfs/internal/fuseadapter"
	"github.com/branchfs/branchfs/internal/inode"
)

// Mount builds the dispatcher, mounts it at mountPoint, and blocks until
// ctx is cancelled or the kernel unmounts it. Grounded on the
// Mount(ctx)-blocks-on-ctx.Done()-then-Unmount shape of the sandbox-rls
// FUSE example (the closest available grounding for a non-rclone
// fs.Mount call site, since no literal source survived retrieval for
// rclone's own cmd/mount).
func Mount(ctx context.Context, store *config.Store, calcMode inode.CalcMode, mountPoint string, debug bool) error {
	d := dispatch.New(store, calcMode)
	root := fuseadapter.Root(d)

	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			FsName: "branchfs",
			Name:   "branchfs",
			Debug:  debug,
		},
	}

	server, err := fs.Mount(mountPoint, root, opts)
	if err != nil {
		return fmt.Errorf("mounting at %s: %w", mountPoint, err)
	}
	bflog.Infof(nil, "mounted at %s", mountPoint)

	done := make(chan struct{})
	go func() {
		server.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		if err := server.Unmount(); err != nil {
			return fmt.Errorf("unmounting %s: %w", mountPoint, err)
		}
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}
