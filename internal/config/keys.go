package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/branchfs/branchfs/internal/branch"
)

// keyError distinguishes the three control-entry failure modes of §6 so
// the dispatcher can map them onto ENOATTR/EINVAL/EROFS without
// string-matching.
type keyError struct {
	kind keyErrorKind
	key  string
	err  error
}

type keyErrorKind int

const (
	keyUnknown keyErrorKind = iota
	keyInvalidValue
	keyMountTimeOnly
)

func (e *keyError) Error() string {
	switch e.kind {
	case keyUnknown:
		return fmt.Sprintf("%s: no such attribute", e.key)
	case keyMountTimeOnly:
		return fmt.Sprintf("%s: read-only after mount", e.key)
	default:
		return fmt.Sprintf("%s: invalid value: %v", e.key, e.err)
	}
}

// IsUnknownKey, IsInvalidValue, IsMountTimeOnlyError classify an error
// returned by Get/Set so the control-entry handler can pick ENOATTR,
// EINVAL, or EROFS per spec §6/§7.
func IsUnknownKey(err error) bool         { return classify(err) == keyUnknown }
func IsInvalidValue(err error) bool       { return classify(err) == keyInvalidValue }
func IsMountTimeOnlyError(err error) bool { return classify(err) == keyMountTimeOnly }

func classify(err error) keyErrorKind {
	if ke, ok := err.(*keyError); ok {
		return ke.kind
	}
	return keyInvalidValue
}

// Get reads one dotted key's current string value out of cfg.
func Get(cfg *Configuration, key string) (string, error) {
	if op, ok := strings.CutPrefix(key, "func."); ok {
		if !isOp(op) {
			return "", &keyError{kind: keyUnknown, key: key}
		}
		return cfg.PolicyFor(op), nil
	}
	switch key {
	case "instance_id":
		return cfg.InstanceID, nil
	case "branches":
		return branchesToSpec(cfg.Branches), nil
	case "minfreespace":
		return strconv.FormatInt(cfg.MinFreeSpace, 10), nil
	case "moveonenospc":
		if !cfg.MoveOnEnospc {
			return "false", nil
		}
		if cfg.MoveOnEnospcPolicy != "" {
			return cfg.MoveOnEnospcPolicy, nil
		}
		return "true", nil
	case "link_exdev":
		return cfg.LinkExdev.String(), nil
	case "rename_exdev":
		return cfg.RenameExdev.String(), nil
	case "inodecalc":
		return cfg.InodeCalc, nil
	case "cache.files":
		return cfg.CacheFiles, nil
	case "cache.statfs":
		return cfg.CacheStatfs.String(), nil
	case "cache.attr":
		return cfg.CacheAttr.String(), nil
	case "cache.entry":
		return cfg.CacheEntry.String(), nil
	case "cache.negative_entry":
		return cfg.CacheNegativeEntry.String(), nil
	case "cache.readdir":
		return cfg.CacheReaddir.String(), nil
	case "cache.symlinks":
		return cfg.CacheSymlinks.String(), nil
	case "statfs":
		if cfg.Statfs == StatfsFull {
			return "full", nil
		}
		return "base", nil
	case "statfs_ignore":
		switch cfg.StatfsIgnore {
		case StatfsIgnoreRO:
			return "ro", nil
		case StatfsIgnoreNC:
			return "nc", nil
		default:
			return "none", nil
		}
	case "xattr":
		switch cfg.Xattr {
		case XattrNoAttr:
			return "noattr", nil
		case XattrNoSys:
			return "nosys", nil
		default:
			return "passthrough", nil
		}
	}
	return "", &keyError{kind: keyUnknown, key: key}
}

// Set parses and applies one "key=value" control-entry write (§6). It
// validates before mutating so an invalid write never corrupts cfg.
func Set(cfg *Configuration, key, value string) error {
	if IsMountTimeOnly(key) {
		return &keyError{kind: keyMountTimeOnly, key: key}
	}
	if op, ok := strings.CutPrefix(key, "func."); ok {
		if !isOp(op) {
			return &keyError{kind: keyUnknown, key: key}
		}
		cfg.FuncPolicy[op] = value
		return nil
	}
	if category, ok := strings.CutPrefix(key, "category."); ok {
		ops, ok := categoryOps[category]
		if !ok {
			return &keyError{kind: keyUnknown, key: key}
		}
		for _, op := range ops {
			cfg.FuncPolicy[op] = value
		}
		return nil
	}
	switch key {
	case "minfreespace":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return &keyError{kind: keyInvalidValue, key: key, err: err}
		}
		cfg.MinFreeSpace = n
	case "moveonenospc":
		switch value {
		case "false", "":
			cfg.MoveOnEnospc = false
			cfg.MoveOnEnospcPolicy = ""
		case "true":
			cfg.MoveOnEnospc = true
			cfg.MoveOnEnospcPolicy = ""
		default:
			cfg.MoveOnEnospc = true
			cfg.MoveOnEnospcPolicy = value
		}
	case "link_exdev":
		p, err := parseExdevPolicy(value)
		if err != nil {
			return &keyError{kind: keyInvalidValue, key: key, err: err}
		}
		cfg.LinkExdev = p
	case "rename_exdev":
		p, err := parseExdevPolicy(value)
		if err != nil {
			return &keyError{kind: keyInvalidValue, key: key, err: err}
		}
		cfg.RenameExdev = p
	case "cache.files":
		if _, ok := cacheFilesTable[value]; !ok {
			return &keyError{kind: keyInvalidValue, key: key, err: fmt.Errorf("unknown cache.files mode %q", value)}
		}
		cfg.CacheFiles = value
	case "cache.statfs", "cache.attr", "cache.entry", "cache.negative_entry", "cache.readdir", "cache.symlinks":
		d, err := time.ParseDuration(value)
		if err != nil {
			return &keyError{kind: keyInvalidValue, key: key, err: err}
		}
		switch key {
		case "cache.statfs":
			cfg.CacheStatfs = d
		case "cache.attr":
			cfg.CacheAttr = d
		case "cache.entry":
			cfg.CacheEntry = d
		case "cache.negative_entry":
			cfg.CacheNegativeEntry = d
		case "cache.readdir":
			cfg.CacheReaddir = d
		case "cache.symlinks":
			cfg.CacheSymlinks = d
		}
	case "statfs":
		switch value {
		case "base":
			cfg.Statfs = StatfsBase
		case "full":
			cfg.Statfs = StatfsFull
		default:
			return &keyError{kind: keyInvalidValue, key: key, err: fmt.Errorf("unknown statfs mode %q", value)}
		}
	case "statfs_ignore":
		switch value {
		case "none", "":
			cfg.StatfsIgnore = StatfsIgnoreNone
		case "ro":
			cfg.StatfsIgnore = StatfsIgnoreRO
		case "nc":
			cfg.StatfsIgnore = StatfsIgnoreNC
		default:
			return &keyError{kind: keyInvalidValue, key: key, err: fmt.Errorf("unknown statfs_ignore mode %q", value)}
		}
	case "xattr":
		switch value {
		case "passthrough", "":
			cfg.Xattr = XattrPassthrough
		case "noattr":
			cfg.Xattr = XattrNoAttr
		case "nosys":
			cfg.Xattr = XattrNoSys
		default:
			return &keyError{kind: keyInvalidValue, key: key, err: fmt.Errorf("unknown xattr mode %q", value)}
		}
	case "branches":
		spec, err := branch.ParseSpec(value, branch.RW, cfg.MinFreeSpace, StatfsCacheTTL, branch.StatOS)
		if err != nil {
			return &keyError{kind: keyInvalidValue, key: key, err: err}
		}
		cfg.Branches = spec
	default:
		return &keyError{kind: keyUnknown, key: key}
	}
	return nil
}

func isOp(op string) bool {
	for _, o := range Ops {
		if o == op {
			return true
		}
	}
	return false
}

func branchesToSpec(c *branch.Collection) string {
	if c == nil {
		return ""
	}
	parts := make([]string, 0, c.Len())
	for _, b := range c.Branches() {
		parts = append(parts, b.SpecString())
	}
	return strings.Join(parts, ":")
}
