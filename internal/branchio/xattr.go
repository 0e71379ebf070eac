// Package branchio implements the low-level POSIX operations the
// dispatcher performs against a chosen branch: extended attributes (with
// the reserved per-file namespace of spec §6 synthesized and protected),
// symlink/hardlink helpers, metadata copy for skeleton cloning and
// CoW/link-break, and preallocation.
//
// Grounded on backend/local's xattr.go (github.com/pkg/xattr,
// "user."-prefixed keys, ENOTSUP/EINVAL disable detection),
// linkinfo_unix.go (syscall.Stat_t dev/ino), symlink.go (ELOOP
// detection), and preallocate_unix.go (unix.Fallocate with a
// flag-combination fallback ladder).
package branchio

import (
	"fmt"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/pkg/xattr"

	"github.com/branchfs/branchfs/internal/bflog"
	"github.com/branchfs/branchfs/internal/errtype"
)

// ReservedNamespace is the prefix under which per-file synthesized keys
// (basepath/relpath/fullpath/allpaths) live, and under which writes are
// always rejected with EPERM (spec §6, §7).
const ReservedNamespace = "branchfs"

var xattrSupported atomic.Int32 // 1 = supported, 0 = disabled after a probe failure

func init() { xattrSupported.Store(1) }

func isNotSupported(err error) bool {
	xerr, ok := err.(*xattr.Error)
	if !ok {
		return false
	}
	// A missing attribute (ENOATTR) or a missing/inaccessible file is not
	// "xattrs unsupported"; only ENOTSUP and EINVAL are.
	return xerr.Err == syscall.ENOTSUP || xerr.Err == syscall.EINVAL
}

// GetXattr reads one attribute from a branch-local path (non-following).
func GetXattr(path, key string) ([]byte, error) {
	if xattrSupported.Load() == 0 {
		return nil, errtype.New(errtype.KindNotSupported, path, fmt.Errorf("xattrs disabled"))
	}
	v, err := xattr.LGet(path, key)
	if err != nil {
		if isNotSupported(err) {
			if xattrSupported.CompareAndSwap(1, 0) {
				bflog.Errorf(path, "xattrs not supported - disabling: %v", err)
			}
			return nil, errtype.New(errtype.KindNotSupported, path, err)
		}
		return nil, errtype.New(errtype.Classify(err), path, err)
	}
	return v, nil
}

// ListXattr lists attribute names on a branch-local path.
func ListXattr(path string) ([]string, error) {
	if xattrSupported.Load() == 0 {
		return nil, nil
	}
	names, err := xattr.LList(path)
	if err != nil {
		if isNotSupported(err) {
			return nil, nil
		}
		return nil, errtype.New(errtype.Classify(err), path, err)
	}
	return names, nil
}

// SetXattr writes one attribute, rejecting writes under ReservedNamespace
// per spec §6/§7 (EPERM).
func SetXattr(path, key string, value []byte, flags int) error {
	if strings.HasPrefix(key, ReservedNamespace+".") {
		return errtype.New(errtype.KindPermissionDenied, path, fmt.Errorf("%s: synthesized keys are read-only: %w", key, syscall.EPERM))
	}
	if err := xattr.LSet(path, key, value); err != nil {
		if isNotSupported(err) {
			return errtype.New(errtype.KindNotSupported, path, err)
		}
		return errtype.New(errtype.Classify(err), path, err)
	}
	return nil
}

// RemoveXattr removes one attribute, rejecting removal under
// ReservedNamespace.
func RemoveXattr(path, key string) error {
	if strings.HasPrefix(key, ReservedNamespace+".") {
		return errtype.New(errtype.KindPermissionDenied, path, fmt.Errorf("%s: synthesized keys are read-only: %w", key, syscall.EPERM))
	}
	if err := xattr.LRemove(path, key); err != nil {
		return errtype.New(errtype.Classify(err), path, err)
	}
	return nil
}

// CopyXattrs best-effort copies every attribute from source to target,
// skipping (not failing) when the underlying filesystem lacks xattr
// support — matching backend/local's treatment of xattr copy as
// advisory, never fatal to the containing operation.
func CopyXattrs(source, target string) {
	names, err := xattr.LList(source)
	if err != nil {
		return
	}
	for _, name := range names {
		val, err := xattr.LGet(source, name)
		if err != nil {
			continue
		}
		_ = xattr.LSet(target, name, val)
	}
}

// SynthesizedKeys are the reserved-namespace keys spec §6 requires on
// every file.
var SynthesizedKeys = []string{
	ReservedNamespace + ".basepath",
	ReservedNamespace + ".relpath",
	ReservedNamespace + ".fullpath",
	ReservedNamespace + ".allpaths",
}

// IsSynthesizedKey reports whether key is one of the reserved,
// dispatcher-computed keys (as opposed to a real on-disk xattr under the
// reserved namespace, which cannot exist because writes to it are
// rejected).
func IsSynthesizedKey(key string) bool {
	for _, k := range SynthesizedKeys {
		if k == key {
			return true
		}
	}
	return false
}
