// Command branchfs mounts a union of branch directories at a mount point,
// presenting the merged tree over FUSE.
//
// Grounded on rclone's cmd/ convention of a thin main() deferring to a
// single root cobra.Command (no literal source survived retrieval for
// rclone's own cmd/mount*; this package follows the shape implied by its
// go.mod dependency on github.com/spf13/cobra and by cmd/mountlib's
// retained rc_test.go, which exercises a "mount"/"unmount" RC surface
// built on top of exactly this kind of entrypoint).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "branchfs:", err)
		os.Exit(exitFromError(err))
	}
}
