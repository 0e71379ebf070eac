// Package inode implements the virtual-inode registry of spec §3/§4.4: the
// mapping from virtual inodes the system presents outward to the
// underlying branch + file that backs them, including the hard-link
// equivalence guarantee for devino/hybrid inode-calculation modes.
//
// Grounded on spec §9's DESIGN NOTES ("avoid a general cyclic graph...
// represent as two maps: VirtualInode->InodeEntry and
// (branch,underlying_ino)->VirtualInode") and on the registry/handle-table
// locking discipline of §5 (brief critical sections, no I/O under the map
// lock) — the same discipline backend/union's upstream.Fs cache uses
// (sync.RWMutex guarding a cached value, sync.Once/atomic guarding
// refresh), applied here to a map instead of a single cached struct.
package inode

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"os"
	"sync"

	"github.com/branchfs/branchfs/internal/errtype"
)

// VirtualInode is the 64-bit identifier the filesystem presents outward.
type VirtualInode uint64

// Root is the fixed root inode constant (matches the conventional FUSE
// root inode number).
const Root VirtualInode = 1

// CalcMode selects how VirtualInode values are derived (§3, §6 "inodecalc").
type CalcMode int

const (
	Passthrough CalcMode = iota // use the underlying inode directly
	PathHash64
	PathHash32
	DevinoHash64
	DevinoHash32
	HybridHash64
	HybridHash32
)

// ParseCalcMode parses the control-entry/CLI name for an inodecalc value.
func ParseCalcMode(s string) (CalcMode, error) {
	switch s {
	case "", "passthrough":
		return Passthrough, nil
	case "path-hash":
		return PathHash64, nil
	case "path-hash32":
		return PathHash32, nil
	case "devino-hash":
		return DevinoHash64, nil
	case "devino-hash32":
		return DevinoHash32, nil
	case "hybrid-hash":
		return HybridHash64, nil
	case "hybrid-hash32":
		return HybridHash32, nil
	default:
		return Passthrough, errtype.New(errtype.KindInvalidArgument, "", fmt.Errorf("unknown inodecalc mode %q", s))
	}
}

// String renders the mode back to its control-entry name, the inverse of
// ParseCalcMode.
func (m CalcMode) String() string {
	switch m {
	case PathHash64:
		return "path-hash"
	case PathHash32:
		return "path-hash32"
	case DevinoHash64:
		return "devino-hash"
	case DevinoHash32:
		return "devino-hash32"
	case HybridHash64:
		return "hybrid-hash"
	case HybridHash32:
		return "hybrid-hash32"
	default:
		return "passthrough"
	}
}

// Underlying carries the host attributes needed to compute or refresh a
// VirtualInode and its cached attributes.
type Underlying struct {
	BranchIndex int // meaningful only for non-directory entries
	BranchBase  string
	Ino         uint64
	IsDir       bool
	Info        os.FileInfo
}

// Entry is the registry record of spec §4.4.
type Entry struct {
	VInode      VirtualInode
	VirtualPath string
	BranchIndex int // owning branch, for non-directory entries
	Underlying  Underlying

	mu sync.Mutex // per-entry advisory content lock (§3 InodeEntry)
}

// Lock acquires the entry's advisory content lock. Invalidate takes it
// while clearing the cached attributes; CoW link-break and move-on-ENOSPC
// do not take it.
func (e *Entry) Lock()   { e.mu.Lock() }
func (e *Entry) Unlock() { e.mu.Unlock() }

// Registry is the shared mutable inode table. All access is guarded by a
// single RWMutex with brief, I/O-free critical sections, per §5's
// lock-ordering discipline (registry/handle maps < per-entry locks).
type Registry struct {
	mode CalcMode

	mu        sync.RWMutex
	byVInode  map[VirtualInode]*Entry
	byDevino  map[devinoKey]VirtualInode // only populated in devino/hybrid modes
	forgetRef map[VirtualInode]uint64    // kernel reference count, best-effort
}

type devinoKey struct {
	branchBase string
	ino        uint64
}

// New builds an empty Registry for the given inode-calculation mode.
func New(mode CalcMode) *Registry {
	return &Registry{
		mode:      mode,
		byVInode:  make(map[VirtualInode]*Entry),
		byDevino:  make(map[devinoKey]VirtualInode),
		forgetRef: make(map[VirtualInode]uint64),
	}
}

func hash64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func hash32(s string) uint64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return uint64(h.Sum32())
}

func devinoHash(branchBase string, ino uint64, bits32 bool) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], ino)
	s := branchBase + "\x00" + string(buf[:])
	if bits32 {
		return hash32(s)
	}
	return hash64(s)
}

func (r *Registry) computeVInode(virtualPath string, u Underlying) VirtualInode {
	switch r.mode {
	case Passthrough:
		return VirtualInode(u.Ino)
	case PathHash64:
		return VirtualInode(hash64(virtualPath))
	case PathHash32:
		return VirtualInode(hash32(virtualPath))
	case DevinoHash64:
		return VirtualInode(devinoHash(u.BranchBase, u.Ino, false))
	case DevinoHash32:
		return VirtualInode(devinoHash(u.BranchBase, u.Ino, true))
	case HybridHash64:
		if u.IsDir {
			return VirtualInode(hash64(virtualPath))
		}
		return VirtualInode(devinoHash(u.BranchBase, u.Ino, false))
	case HybridHash32:
		if u.IsDir {
			return VirtualInode(hash32(virtualPath))
		}
		return VirtualInode(devinoHash(u.BranchBase, u.Ino, true))
	default:
		return VirtualInode(u.Ino)
	}
}

// usesDevinoEquivalence reports whether this mode maintains the
// (branch,ino)->VirtualInode derived map, needed for hard-link
// equivalence lookups independent of virtual path.
func (r *Registry) usesDevinoEquivalence() bool {
	switch r.mode {
	case DevinoHash64, DevinoHash32, HybridHash64, HybridHash32:
		return true
	default:
		return false
	}
}

// Intern allocates or refreshes the VirtualInode for virtualPath backed by
// u. If intern produces a VirtualInode already resident, it merges: the
// existing Entry is kept and its cached attributes are refreshed — this is
// the hard-link equivalence guarantee of §4.4.
func (r *Registry) Intern(virtualPath string, u Underlying) *Entry {
	vi := r.computeVInode(virtualPath, u)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !u.IsDir && r.usesDevinoEquivalence() {
		key := devinoKey{branchBase: u.BranchBase, ino: u.Ino}
		if existing, ok := r.byDevino[key]; ok {
			vi = existing
		} else {
			r.byDevino[key] = vi
		}
	}

	if e, ok := r.byVInode[vi]; ok {
		e.VirtualPath = virtualPath
		e.Underlying = u
		if !u.IsDir {
			e.BranchIndex = u.BranchIndex
		}
		return e
	}
	e := &Entry{
		VInode:      vi,
		VirtualPath: virtualPath,
		BranchIndex: u.BranchIndex,
		Underlying:  u,
	}
	r.byVInode[vi] = e
	return e
}

// Lookup returns the Entry for a VirtualInode, or an error if it is not
// (or no longer) resident.
func (r *Registry) Lookup(vi VirtualInode) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byVInode[vi]
	if !ok {
		return nil, errtype.New(errtype.KindNotFound, "", errNotResident(vi))
	}
	return e, nil
}

// Rename updates the cached virtual path of the entry currently known
// under oldPath, if resident. Best-effort: a miss is not an error, since
// the registry is populated lazily by lookup/create.
func (r *Registry) Rename(oldPath, newPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.byVInode {
		if e.VirtualPath == oldPath {
			e.VirtualPath = newPath
		}
	}
}

// Forget decrements the kernel reference count for vi by count and evicts
// the entry once it reaches zero, per the FORGET callback contract.
func (r *Registry) Forget(vi VirtualInode, count uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref := r.forgetRef[vi]
	if count >= ref {
		delete(r.forgetRef, vi)
		if e, ok := r.byVInode[vi]; ok {
			if !e.Underlying.IsDir && r.usesDevinoEquivalence() {
				delete(r.byDevino, devinoKey{branchBase: e.Underlying.BranchBase, ino: e.Underlying.Ino})
			}
			delete(r.byVInode, vi)
		}
		return
	}
	r.forgetRef[vi] = ref - count
}

// Invalidate drops the cached attributes for vi without removing the
// entry, forcing the next access to re-stat.
func (r *Registry) Invalidate(vi VirtualInode) {
	r.mu.RLock()
	e, ok := r.byVInode[vi]
	r.mu.RUnlock()
	if ok {
		e.Lock()
		e.Underlying.Info = nil
		e.Unlock()
	}
}

// Ref increments the kernel reference count, called whenever a lookup
// hands the kernel a new reference to vi.
func (r *Registry) Ref(vi VirtualInode, count uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forgetRef[vi] += count
}

type notResidentError struct{ vi VirtualInode }

func (e notResidentError) Error() string { return "inode not resident" }

func errNotResident(vi VirtualInode) error { return notResidentError{vi: vi} }
