package branchio

import (
	"os"

	"github.com/branchfs/branchfs/internal/errtype"
)

func wrapClassify(path string, err error) error {
	if err == nil {
		return nil
	}
	return errtype.New(errtype.Classify(err), path, err)
}

func wrapLoop(path string, err error) error {
	return errtype.New(errtype.KindLoop, path, err)
}

// Link creates a hard link at newPath pointing at oldPath, both on the
// same branch (cross-branch hard links are never attempted — that is the
// definition of a branch boundary, and the dispatcher's EXDEV fallback
// substitutes a symlink instead; see spec §4.7).
func Link(oldPath, newPath string) error {
	if err := os.Link(oldPath, newPath); err != nil {
		return wrapClassify(newPath, err)
	}
	return nil
}

// Rename renames oldPath to newPath on the same branch.
func Rename(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return wrapClassify(newPath, err)
	}
	return nil
}

// Remove unlinks path.
func Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return wrapClassify(path, err)
	}
	return nil
}

// Mkdir creates a directory at path with the given mode.
func Mkdir(path string, mode os.FileMode) error {
	if err := os.Mkdir(path, mode); err != nil {
		return wrapClassify(path, err)
	}
	return nil
}

// Lstat stats path without following a trailing symlink.
func Lstat(path string) (os.FileInfo, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, wrapClassify(path, err)
	}
	return info, nil
}
