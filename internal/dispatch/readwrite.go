package dispatch

import (
	"io"

	"github.com/branchfs/branchfs/internal/branchio"
	"github.com/branchfs/branchfs/internal/errtype"
	"github.com/branchfs/branchfs/internal/handle"
)

// Read implements the read operation: a positioned read on the handle's
// descriptor. No policy slot (§4.6 table: "—"), since the handle already
// pins the branch a prior Open resolved.
func (d *Dispatcher) Read(id handle.ID, buf []byte, offset int64) (int, error) {
	f, err := d.Handles.GetFile(id)
	if err != nil {
		return 0, err
	}
	f.Lock()
	defer f.Unlock()
	n, err := f.Descriptor.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return n, errtype.New(errtype.Classify(err), f.VirtualPath, err)
	}
	return n, nil
}

// Write implements the write operation: a positioned write on the
// handle's descriptor, engaging move-on-ENOSPC (§4.7) on out-of-space.
func (d *Dispatcher) Write(id handle.ID, buf []byte, offset int64) (int, error) {
	f, err := d.Handles.GetFile(id)
	if err != nil {
		return 0, err
	}
	f.Lock()
	defer f.Unlock()

	n, werr := f.Descriptor.WriteAt(buf, offset)
	if werr == nil {
		return n, nil
	}
	kind := errtype.Classify(werr)
	if kind != errtype.KindNoSpace && kind != errtype.KindQuotaExceeded {
		return n, errtype.New(kind, f.VirtualPath, werr)
	}

	cfg := d.Store.Snapshot()
	if !cfg.MoveOnEnospc {
		return n, errtype.New(kind, f.VirtualPath, werr)
	}
	if moveErr := d.moveOnEnospc(f, cfg); moveErr != nil {
		// §4.7: any failure inside the move surfaces the original
		// out-of-space error, not the move's own failure.
		return n, errtype.New(kind, f.VirtualPath, werr)
	}
	n, werr = f.Descriptor.WriteAt(buf, offset)
	if werr != nil {
		return n, errtype.New(errtype.Classify(werr), f.VirtualPath, werr)
	}
	return n, nil
}

// Truncate implements ftruncate on a handle.
func (d *Dispatcher) Truncate(id handle.ID, size int64) error {
	f, err := d.Handles.GetFile(id)
	if err != nil {
		return err
	}
	f.Lock()
	defer f.Unlock()
	return branchio.FTruncate(f.Descriptor, size)
}

// Fallocate invokes preallocation on a handle's descriptor.
func (d *Dispatcher) Fallocate(id handle.ID, size int64) error {
	f, err := d.Handles.GetFile(id)
	if err != nil {
		return err
	}
	f.Lock()
	defer f.Unlock()
	return branchio.Preallocate(size, f.Descriptor)
}

// CopyFileRange copies up to length bytes between two open handles with
// one positioned read from in and one positioned write to out. It does not
// use the kernel's copy_file_range primitive, and a short read yields a
// short copy.
func (d *Dispatcher) CopyFileRange(inID, outID handle.ID, inOffset, outOffset int64, length int) (int, error) {
	in, err := d.Handles.GetFile(inID)
	if err != nil {
		return 0, err
	}
	out, err := d.Handles.GetFile(outID)
	if err != nil {
		return 0, err
	}
	// Lock in a total order derived from handle.ID (spec §5), not call-argument
	// order, so a concurrent copy_file_range with in/out swapped can't deadlock.
	first, second := in, out
	if outID < inID {
		first, second = out, in
	}
	first.Lock()
	defer first.Unlock()
	if first != second {
		second.Lock()
		defer second.Unlock()
	}

	buf := make([]byte, length)
	n, rerr := in.Descriptor.ReadAt(buf, inOffset)
	if rerr != nil && rerr != io.EOF {
		return 0, errtype.New(errtype.Classify(rerr), in.VirtualPath, rerr)
	}
	if n == 0 {
		return 0, nil
	}
	w, werr := out.Descriptor.WriteAt(buf[:n], outOffset)
	if werr != nil {
		return w, errtype.New(errtype.Classify(werr), out.VirtualPath, werr)
	}
	return w, nil
}
