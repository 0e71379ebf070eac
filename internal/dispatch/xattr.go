package dispatch

import (
	"strings"
	"syscall"

	"github.com/branchfs/branchfs/internal/branch"
	"github.com/branchfs/branchfs/internal/branchio"
	"github.com/branchfs/branchfs/internal/errtype"
	"github.com/branchfs/branchfs/internal/pathutil"
)

// Getxattr implements getxattr: read from the first branch the search
// policy resolves the path to, synthesizing the reserved-namespace keys
// of §6 instead of hitting the filesystem for them.
func (d *Dispatcher) Getxattr(virtualPath, key string) ([]byte, error) {
	s := d.snapshot()
	candidates, err := s.resolveSearch("getxattr", virtualPath)
	if err != nil {
		return nil, err
	}
	if branchio.IsSynthesizedKey(key) {
		b, _, err := firstExisting(candidates, virtualPath)
		if err != nil {
			return nil, err
		}
		return d.synthesizeXattr(s, b, virtualPath, key)
	}
	b, _, err := firstExisting(candidates, virtualPath)
	if err != nil {
		return nil, err
	}
	return branchio.GetXattr(pathutil.Join(b.BasePath(), virtualPath), key)
}

// Listxattr implements listxattr: names from the first selected branch,
// plus the synthesized reserved-namespace keys appended.
func (d *Dispatcher) Listxattr(virtualPath string) ([]string, error) {
	s := d.snapshot()
	candidates, err := s.resolveSearch("listxattr", virtualPath)
	if err != nil {
		return nil, err
	}
	b, _, err := firstExisting(candidates, virtualPath)
	if err != nil {
		return nil, err
	}
	names, err := branchio.ListXattr(pathutil.Join(b.BasePath(), virtualPath))
	if err != nil {
		return nil, err
	}
	return append(names, branchio.SynthesizedKeys...), nil
}

// Setxattr implements setxattr: action policy, applied to all selected
// branches; writes under the reserved namespace are rejected upstream by
// branchio.SetXattr itself (EPERM), but checking the reserved prefix here
// lets us fail before touching any branch.
func (d *Dispatcher) Setxattr(virtualPath, key string, value []byte, flags int) error {
	if strings.HasPrefix(key, branchio.ReservedNamespace+".") {
		return errtype.New(errtype.KindPermissionDenied, "", errSynthesizedKeyReadOnly(key))
	}
	s := d.snapshot()
	candidates, err := s.resolveAction("setxattr", virtualPath)
	if err != nil {
		return err
	}
	return d.reduceXattrOutcome(s, "setxattr", virtualPath, candidates, func(b *branch.Branch) error {
		return branchio.SetXattr(pathutil.Join(b.BasePath(), virtualPath), key, value, flags)
	})
}

// Removexattr implements removexattr analogously to Setxattr.
func (d *Dispatcher) Removexattr(virtualPath, key string) error {
	if strings.HasPrefix(key, branchio.ReservedNamespace+".") {
		return errtype.New(errtype.KindPermissionDenied, "", errSynthesizedKeyReadOnly(key))
	}
	s := d.snapshot()
	candidates, err := s.resolveAction("removexattr", virtualPath)
	if err != nil {
		return err
	}
	return d.reduceXattrOutcome(s, "removexattr", virtualPath, candidates, func(b *branch.Branch) error {
		return branchio.RemoveXattr(pathutil.Join(b.BasePath(), virtualPath), key)
	})
}

// reduceXattrOutcome implements §4.6's mixed-outcome rule for xattr
// writes specifically: if outcomes are mixed, consult the deterministic
// "primary" branch selected by the configured getxattr/search policy — if
// the primary failed, surface its error; otherwise report success.
func (d *Dispatcher) reduceXattrOutcome(s snapshot, op, virtualPath string, candidates []*branch.Branch, fn func(*branch.Branch) error) error {
	results := make(map[*branch.Branch]error, len(candidates))
	anySucceeded := false
	for _, b := range candidates {
		err := fn(b)
		results[b] = err
		if err == nil {
			anySucceeded = true
		}
	}
	if !anySucceeded {
		var errs []error
		for _, err := range results {
			errs = append(errs, err)
		}
		return errtype.Reduce(errs)
	}
	primaryCandidates, err := s.resolveSearch("getxattr", virtualPath)
	if err == nil && len(primaryCandidates) > 0 {
		if primaryErr, ok := results[primaryCandidates[0]]; ok {
			return primaryErr
		}
	}
	return nil
}

func (d *Dispatcher) synthesizeXattr(s snapshot, primary *branch.Branch, virtualPath, key string) ([]byte, error) {
	switch key {
	case branchio.ReservedNamespace + ".basepath":
		return []byte(primary.BasePath()), nil
	case branchio.ReservedNamespace + ".relpath":
		return []byte(virtualPath), nil
	case branchio.ReservedNamespace + ".fullpath":
		return []byte(pathutil.Join(primary.BasePath(), virtualPath)), nil
	case branchio.ReservedNamespace + ".allpaths":
		var all []string
		for _, b := range s.branches.Branches() {
			if pathutil.ExistsOn(b.BasePath(), virtualPath) {
				all = append(all, pathutil.Join(b.BasePath(), virtualPath))
			}
		}
		return []byte(strings.Join(all, "\x00")), nil
	default:
		return nil, errtype.New(errtype.KindNotSupported, "", errUnknownSynthesizedKey(key))
	}
}

type synthesizedKeyError struct{ key string }

func (e synthesizedKeyError) Error() string { return e.key + ": operation not permitted" }

func (e synthesizedKeyError) Unwrap() error { return syscall.EPERM }

func errSynthesizedKeyReadOnly(key string) error { return synthesizedKeyError{key: key} }

type unknownSynthesizedKeyError struct{ key string }

func (e unknownSynthesizedKeyError) Error() string { return e.key + ": no such attribute" }

func errUnknownSynthesizedKey(key string) error { return unknownSynthesizedKeyError{key: key} }
