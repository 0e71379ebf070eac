// Package config implements the configuration store of spec §4.8: a
// read-mostly structured value accessed by atomic snapshot, with live
// reconfiguration surfaced through the control entry (§6) by dotted key.
//
// Grounded on backend/union/common.Options (a plain struct with
// `config:"..."` tags decoded from a key/value map) generalized from a
// single flat struct to the full per-operation policy table and cache
// mode set §6 requires, and on upstream.Fs's cacheExpiry atomic.Int64 /
// "replace the shared value atomically" pattern for the snapshot store.
package config

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/branchfs/branchfs/internal/branch"
)

// StatfsCacheTTL is the default per-branch statvfs cache TTL of spec §5
// ("a short-TTL map (default 1 s)").
const StatfsCacheTTL = time.Second

// Ops is the fixed set of operations spec §4.6 dispatches, each with its
// own configurable policy selector (func.<op>=<policy-name>, §6).
var Ops = []string{
	"create", "mkdir", "mknod", "symlink",
	"lookup", "getattr", "access", "readlink",
	"unlink", "rmdir", "rename", "link",
	"chmod", "chown", "utimens", "truncate",
	"open", "read", "write", "flush", "fsync", "fallocate", "copy_file_range",
	"setxattr", "getxattr", "listxattr", "removexattr",
	"readdir", "statfs", "fsyncdir",
}

// categoryOps groups operations by the §6 category.{action,create,search}
// shorthand. "search" covers lookup-like reads, "create" covers
// path-allocating writes, "action" covers everything else that mutates or
// acts on an existing path.
var categoryOps = map[string][]string{
	"search": {"lookup", "getattr", "access", "readlink", "open", "read", "readdir", "statfs", "getxattr", "listxattr"},
	"create": {"create", "mkdir", "mknod", "symlink"},
	"action": {"unlink", "rmdir", "rename", "link", "chmod", "chown", "utimens", "truncate", "write", "flush", "fsync", "fsyncdir", "fallocate", "copy_file_range", "setxattr", "removexattr"},
}

// ExdevPolicy is the §6 link_exdev/rename_exdev fallback strategy.
type ExdevPolicy int

const (
	ExdevPassthrough ExdevPolicy = iota
	ExdevRelSymlink
	ExdevAbsBaseSymlink
	ExdevAbsPoolSymlink
)

func parseExdevPolicy(s string) (ExdevPolicy, error) {
	switch s {
	case "passthrough", "":
		return ExdevPassthrough, nil
	case "rel-symlink":
		return ExdevRelSymlink, nil
	case "abs-base-symlink":
		return ExdevAbsBaseSymlink, nil
	case "abs-pool-symlink":
		return ExdevAbsPoolSymlink, nil
	default:
		return 0, fmt.Errorf("invalid exdev policy %q", s)
	}
}

func (p ExdevPolicy) String() string {
	switch p {
	case ExdevRelSymlink:
		return "rel-symlink"
	case ExdevAbsBaseSymlink:
		return "abs-base-symlink"
	case ExdevAbsPoolSymlink:
		return "abs-pool-symlink"
	default:
		return "passthrough"
	}
}

// StatfsMode is the §6 statfs={base,full} setting.
type StatfsMode int

const (
	StatfsBase StatfsMode = iota
	StatfsFull
)

// StatfsIgnoreMode is the §6 statfs_ignore={none,ro,nc} setting: which
// branch modes are excluded from the aggregate statfs computation.
type StatfsIgnoreMode int

const (
	StatfsIgnoreNone StatfsIgnoreMode = iota
	StatfsIgnoreRO
	StatfsIgnoreNC
)

// XattrMode is the §6 xattr={passthrough,noattr,nosys} setting.
type XattrMode int

const (
	XattrPassthrough XattrMode = iota
	XattrNoAttr
	XattrNoSys
)

// Configuration is the full decoded control surface of spec §3/§4.8/§6.
type Configuration struct {
	// InstanceID tags this mount for the lifetime of the process, read
	// through the control entry's instance_id key so a management script
	// watching several mounts can tell which one answered a given query.
	InstanceID string

	Branches *branch.Collection

	FuncPolicy map[string]string // func.<op> -> policy name, one entry per Ops

	MinFreeSpace int64

	MoveOnEnospc       bool
	MoveOnEnospcPolicy string // policy name used to pick the destination branch

	LinkExdev   ExdevPolicy
	RenameExdev ExdevPolicy

	InodeCalc string // matches inode.CalcMode names; parsed by the caller wiring inode.New

	CacheFiles         string // libfuse|off|partial|full|auto-full|per-process
	CacheStatfs        time.Duration
	CacheAttr          time.Duration
	CacheEntry         time.Duration
	CacheNegativeEntry time.Duration
	CacheReaddir       time.Duration
	CacheSymlinks      time.Duration

	Statfs       StatfsMode
	StatfsIgnore StatfsIgnoreMode
	Xattr        XattrMode
}

// mountTimeOnlyKeys are keys the control entry rejects once mounted
// (EROFS per §6), because they select structures built once at mount
// time (the inode calculation mode determines the registry's hashing,
// which cannot be changed out from under resident entries).
var mountTimeOnlyKeys = map[string]bool{
	"inodecalc":   true,
	"instance_id": true,
}

// IsMountTimeOnly reports whether key may only be set before mount.
func IsMountTimeOnly(key string) bool {
	return mountTimeOnlyKeys[key]
}

// Default returns the baseline configuration: pfrd for creates, epall for
// actions, ff (via epff) for search (spec §4.6's stated defaults),
// passthrough inode calc, libfuse cache mode, no move-on-ENOSPC, and
// passthrough EXDEV handling.
func Default(branches *branch.Collection) *Configuration {
	funcPolicy := make(map[string]string, len(Ops))
	for _, op := range Ops {
		funcPolicy[op] = "epff"
	}
	for _, op := range categoryOps["create"] {
		funcPolicy[op] = "pfrd"
	}
	for _, op := range categoryOps["action"] {
		funcPolicy[op] = "epall"
	}
	return &Configuration{
		InstanceID:    uuid.NewString(),
		Branches:      branches,
		FuncPolicy:    funcPolicy,
		MinFreeSpace:  0,
		LinkExdev:     ExdevPassthrough,
		RenameExdev:   ExdevPassthrough,
		InodeCalc:     "passthrough",
		CacheFiles:    "libfuse",
		CacheStatfs:   StatfsCacheTTL,
		Statfs:        StatfsBase,
		StatfsIgnore:  StatfsIgnoreNone,
		Xattr:         XattrPassthrough,
	}
}

// clone returns a shallow copy suitable for copy-on-write mutation: every
// field is either a value type or (for FuncPolicy) independently copied,
// and Branches is replaced wholesale rather than mutated, since
// branch.Collection is itself immutable once built.
func (c *Configuration) clone() *Configuration {
	cp := *c
	cp.FuncPolicy = make(map[string]string, len(c.FuncPolicy))
	for k, v := range c.FuncPolicy {
		cp.FuncPolicy[k] = v
	}
	return &cp
}

// PolicyFor returns the configured policy name for op, defaulting to
// epff if unset (should not happen once Default has run).
func (c *Configuration) PolicyFor(op string) string {
	if p, ok := c.FuncPolicy[op]; ok && p != "" {
		return p
	}
	return "epff"
}
