package branchio

import "os"

// OpenFile opens path with the given flags/mode, classifying any failure
// into the shared error taxonomy. Flags are passed to os.OpenFile
// unchanged; no O_DIRECT is added here or by the dispatcher for direct I/O
// (cache.files=off, spec §6), which is only recorded on the file handle.
func OpenFile(path string, flags int, mode os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, flags, mode)
	if err != nil {
		return nil, wrapClassify(path, err)
	}
	return f, nil
}

// Truncate sets path's size.
func Truncate(path string, size int64) error {
	if err := os.Truncate(path, size); err != nil {
		return wrapClassify(path, err)
	}
	return nil
}

// FTruncate sets an open file's size.
func FTruncate(f *os.File, size int64) error {
	if err := f.Truncate(size); err != nil {
		return wrapClassify(f.Name(), err)
	}
	return nil
}
