// Package branch implements the branch model and branch collection of
// spec §3/§4.1: an ordered, lock-free-readable sequence of underlying
// directory trees, each with a mode and a minimum-free-space threshold.
//
// Grounded on backend/union/upstream.Fs (writable/creatable flags, a
// cached Usage with a TTL guarded by an atomic expiry stamp) and
// backend/local/about_unix.go (statfs-derived FilesystemInfo).
package branch

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/branchfs/branchfs/internal/errtype"
)

// Mode is a branch's admissibility mode.
type Mode int

const (
	RW Mode = iota // admits creation and modification
	RO             // admits neither
	NC             // admits modification of pre-existing files, no creation
)

func (m Mode) String() string {
	switch m {
	case RW:
		return "RW"
	case RO:
		return "RO"
	case NC:
		return "NC"
	default:
		return "?"
	}
}

// ParseMode parses the mode suffix from a branch spec entry.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(s) {
	case "", "RW":
		return RW, nil
	case "RO":
		return RO, nil
	case "NC":
		return NC, nil
	default:
		return RW, errtype.New(errtype.KindInvalidArgument, "", fmt.Errorf("unknown branch mode %q", s))
	}
}

// FilesystemInfo is the derived per-branch disk-usage view of spec §3.
type FilesystemInfo struct {
	TotalBytes         uint64
	FreeBytes          uint64
	UserAvailableBytes uint64
	UsedBytes          uint64 // Total - UserAvailable, matches the df-visible view
	ReadOnly           bool
}

// StatFunc queries a branch's FilesystemInfo. Swappable in tests.
type StatFunc func(basePath string) (FilesystemInfo, error)

// Branch is one element of a BranchCollection.
type Branch struct {
	basePath     string
	mode         Mode
	minFreeSpace int64 // -1 means "inherit shared default"

	statFunc    StatFunc
	cacheTTL    time.Duration
	cacheMu     sync.Mutex
	cached      FilesystemInfo
	cacheExpiry atomic.Int64 // unix nanos; 0 means never queried
}

// New builds a Branch. minFreeSpace < 0 means "inherit the shared default".
func New(basePath string, mode Mode, minFreeSpace int64, statFunc StatFunc, cacheTTL time.Duration) *Branch {
	if statFunc == nil {
		statFunc = StatOS
	}
	return &Branch{
		basePath:     strings.TrimRight(basePath, "/"),
		mode:         mode,
		minFreeSpace: minFreeSpace,
		statFunc:     statFunc,
		cacheTTL:     cacheTTL,
	}
}

// BasePath is the branch's immutable absolute base path.
func (b *Branch) BasePath() string { return b.basePath }

// SpecString renders the branch back into `<path>[=MODE[,bytes]]` form,
// the inverse of ParseSpecEntry, used to answer a control-entry read of
// the "branches" key (§6) with the live collection.
func (b *Branch) SpecString() string {
	if b.mode == RW && b.minFreeSpace < 0 {
		return b.basePath
	}
	if b.minFreeSpace < 0 {
		return fmt.Sprintf("%s=%s", b.basePath, b.mode)
	}
	return fmt.Sprintf("%s=%s,%d", b.basePath, b.mode, b.minFreeSpace)
}

// Mode returns the branch's mode.
func (b *Branch) Mode() Mode { return b.mode }

// AdmitsCreate reports whether this branch may hold newly created entries.
func (b *Branch) AdmitsCreate() bool { return b.mode == RW }

// AdmitsModify reports whether this branch may have existing entries
// modified in place.
func (b *Branch) AdmitsModify() bool { return b.mode != RO }

// EffectiveMinFree returns the branch's own threshold, or the shared
// default if the branch didn't set one.
func (b *Branch) EffectiveMinFree(sharedDefault int64) int64 {
	if b.minFreeSpace < 0 {
		return sharedDefault
	}
	return b.minFreeSpace
}

// QueryInfo returns the branch's FilesystemInfo, using the short-TTL cache
// when fresh. A query failure is always reported as an error, never as
// stale-but-successful data (per §4.1).
func (b *Branch) QueryInfo() (FilesystemInfo, error) {
	if b.cacheTTL > 0 {
		if time.Now().UnixNano() < b.cacheExpiry.Load() {
			b.cacheMu.Lock()
			info := b.cached
			b.cacheMu.Unlock()
			return info, nil
		}
	}
	info, err := b.statFunc(b.basePath)
	if err != nil {
		return FilesystemInfo{}, errtype.New(errtype.KindIO, b.basePath, err)
	}
	if b.cacheTTL > 0 {
		b.cacheMu.Lock()
		b.cached = info
		b.cacheMu.Unlock()
		b.cacheExpiry.Store(time.Now().Add(b.cacheTTL).UnixNano())
	}
	return info, nil
}

// InvalidateCache forces the next QueryInfo to re-stat.
func (b *Branch) InvalidateCache() {
	b.cacheExpiry.Store(0)
}

// Collection is an ordered, immutable snapshot of branches. Readers treat
// it as a value and never mutate it; updates publish a whole new
// Collection via Store's atomic pointer swap (see config.Store).
type Collection struct {
	branches []*Branch
}

// NewCollection builds a Collection from an ordered branch slice.
func NewCollection(branches []*Branch) *Collection {
	cp := make([]*Branch, len(branches))
	copy(cp, branches)
	return &Collection{branches: cp}
}

// Branches returns the ordered branch slice. Callers must not mutate it.
func (c *Collection) Branches() []*Branch {
	if c == nil {
		return nil
	}
	return c.branches
}

// Len returns the number of branches.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.branches)
}

// ParseSpecEntry parses one `<path>[=MODE[,bytes]]` branch spec entry
// (spec §6 "Branch specification syntax").
func ParseSpecEntry(entry string, sharedCacheTTL time.Duration) (path string, mode Mode, minFree int64, err error) {
	minFree = -1
	eq := strings.IndexByte(entry, '=')
	if eq < 0 {
		return entry, RW, minFree, nil
	}
	path = entry[:eq]
	rest := entry[eq+1:]
	comma := strings.IndexByte(rest, ',')
	modeStr := rest
	if comma >= 0 {
		modeStr = rest[:comma]
		bytesStr := rest[comma+1:]
		n, perr := strconv.ParseInt(bytesStr, 10, 64)
		if perr != nil {
			return "", RW, -1, errtype.New(errtype.KindInvalidArgument, "", fmt.Errorf("invalid min-free-space %q: %w", bytesStr, perr))
		}
		minFree = n
	}
	mode, err = ParseMode(modeStr)
	return path, mode, minFree, err
}

// ParseSpec parses a separator-joined branch list into a Collection.
// The separator is ':' (matching PATH-style lists); an entry may be
// escaped with a leading '\' for a literal colon in a path, mirroring
// mergerfs's own branch-list convention.
func ParseSpec(spec string, defaultMode Mode, sharedMinFree int64, sharedCacheTTL time.Duration, statFunc StatFunc) (*Collection, error) {
	var branches []*Branch
	for _, entry := range splitUnescaped(spec, ':') {
		if entry == "" {
			continue
		}
		p, mode, minFree, err := ParseSpecEntry(entry, sharedCacheTTL)
		if err != nil {
			return nil, err
		}
		_ = defaultMode
		branches = append(branches, New(p, mode, minFree, statFunc, sharedCacheTTL))
	}
	if len(branches) == 0 {
		return nil, errtype.New(errtype.KindInvalidArgument, "", fmt.Errorf("empty branch list"))
	}
	return NewCollection(branches), nil
}

func splitUnescaped(s string, sep byte) []string {
	var out []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			cur.WriteByte(s[i+1])
			i++
			continue
		}
		if s[i] == sep {
			out = append(out, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(s[i])
	}
	out = append(out, cur.String())
	return out
}
