// Package pathutil implements the path utilities of spec §4.3: joining a
// virtual path onto a branch base path, computing a virtual parent,
// existence probes, and directory-skeleton cloning.
//
// Grounded on backend/union/policy.parentDir/clean (path.Dir/path.Clean
// over the "/"-separated virtual namespace) and on backend/local's
// metadata/xattr/symlink helpers for the skeleton-clone attribute copy.
package pathutil

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/pkg/xattr"

	"github.com/branchfs/branchfs/internal/errtype"
)

// Clean normalizes a virtual path: "." becomes "", trailing slashes are
// trimmed, and it is run through path.Clean.
func Clean(virtualPath string) string {
	c := path.Clean(virtualPath)
	if c == "." {
		return ""
	}
	return strings.TrimSuffix(c, "/")
}

// Parent returns the virtual parent directory of virtualPath.
func Parent(virtualPath string) string {
	p := path.Dir(strings.TrimRight(virtualPath, "/"))
	if p == "." {
		return ""
	}
	return p
}

// Join composes a branch base path and a virtual path without introducing
// double separators.
func Join(basePath, virtualPath string) string {
	if virtualPath == "" || virtualPath == "/" {
		return basePath
	}
	return basePath + "/" + strings.TrimLeft(virtualPath, "/")
}

// ExistsOn is a non-following existence probe: lstat, not stat, so a
// dangling symlink still "exists" for policy purposes.
func ExistsOn(basePath, virtualPath string) bool {
	_, err := os.Lstat(Join(basePath, virtualPath))
	return err == nil
}

// CloneSkeleton recursively recreates virtualDir under targetBase, sourcing
// mode, ownership, timestamps, and extended attributes from the first
// branch (sourceBase) that already has each path component. It is
// idempotent: components that already exist under targetBase are left
// alone. It returns the typed error of the first failing component and
// leaves any partially created directories in place, per §4.3.
func CloneSkeleton(sourceBase, targetBase, virtualDir string) error {
	virtualDir = Clean(virtualDir)
	if virtualDir == "" {
		return nil
	}
	var components []string
	for p := virtualDir; p != ""; p = Parent(p) {
		components = append([]string{p}, components...)
	}
	for _, comp := range components {
		target := Join(targetBase, comp)
		if _, err := os.Lstat(target); err == nil {
			continue
		}
		source := Join(sourceBase, comp)
		info, err := os.Lstat(source)
		if err != nil {
			return errtype.New(errtype.KindNotFound, sourceBase, fmt.Errorf("clone skeleton: source component %s missing: %w", comp, err))
		}
		if err := os.Mkdir(target, info.Mode().Perm()); err != nil && !os.IsExist(err) {
			return errtype.New(errtype.Classify(err), targetBase, fmt.Errorf("clone skeleton: mkdir %s: %w", comp, err))
		}
		if err := copyAttrs(source, target, info); err != nil {
			return err
		}
	}
	return nil
}

func copyAttrs(source, target string, info os.FileInfo) error {
	// os.Mkdir's mode is filtered by the umask; set the source's bits exactly.
	if err := os.Chmod(target, info.Mode().Perm()); err != nil {
		return errtype.New(errtype.Classify(err), target, fmt.Errorf("clone skeleton: chmod: %w", err))
	}
	if st, ok := sysStat(info); ok {
		if err := os.Chown(target, int(st.Uid), int(st.Gid)); err != nil && !os.IsPermission(err) {
			return errtype.New(errtype.Classify(err), target, fmt.Errorf("clone skeleton: chown: %w", err))
		}
	}
	if err := os.Chtimes(target, info.ModTime(), info.ModTime()); err != nil {
		return errtype.New(errtype.Classify(err), target, fmt.Errorf("clone skeleton: chtimes: %w", err))
	}
	names, err := xattr.List(source)
	if err != nil {
		// xattrs unsupported on this filesystem: not fatal to skeleton cloning
		return nil
	}
	for _, name := range names {
		val, err := xattr.Get(source, name)
		if err != nil {
			continue
		}
		_ = xattr.Set(target, name, val)
	}
	return nil
}
