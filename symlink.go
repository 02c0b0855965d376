package convfs

import (
	"os"

	"github.com/spf13/afero"
)

var _ afero.Symlinker = (*OverlayFs)(nil)

// LstatIfPossible returns file info without following symlinks when the
// wrapped filesystem supports it. Derived targets are reported as
// regular files.
func (ofs *OverlayFs) LstatIfPossible(name string) (os.FileInfo, bool, error) {
	ov, err := ofs.Resolve(name)
	if err != nil {
		return nil, false, &os.PathError{Op: "lstat", Path: name, Err: err}
	}
	if ov != nil {
		return ofs.statOverlay(name, ov), true, nil
	}

	if lstater, ok := ofs.base.(afero.Lstater); ok {
		return lstater.LstatIfPossible(name)
	}
	info, err := ofs.base.Stat(name)
	return info, false, err
}

// Lstat is LstatIfPossible without the indication of whether lstat was
// used
func (ofs *OverlayFs) Lstat(name string) (os.FileInfo, error) {
	info, _, err := ofs.LstatIfPossible(name)
	return info, err
}

// SymlinkIfPossible creates a symlink in the wrapped filesystem
func (ofs *OverlayFs) SymlinkIfPossible(oldname, newname string) error {
	if linker, ok := ofs.base.(afero.Linker); ok {
		return linker.SymlinkIfPossible(oldname, newname)
	}
	return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: afero.ErrNoSymlink}
}

// ReadlinkIfPossible returns the destination of a symlink in the wrapped
// filesystem
func (ofs *OverlayFs) ReadlinkIfPossible(name string) (string, error) {
	if reader, ok := ofs.base.(afero.LinkReader); ok {
		return reader.ReadlinkIfPossible(name)
	}
	return "", &os.PathError{Op: "readlink", Path: name, Err: afero.ErrNoReadlink}
}

// Lchown changes the ownership of a symlink itself in the wrapped
// filesystem
func (ofs *OverlayFs) Lchown(name string, uid, gid int) error {
	if l, ok := ofs.base.(lchowner); ok {
		return l.Lchown(name, uid, gid)
	}
	return &os.PathError{Op: "lchown", Path: name, Err: afero.ErrNoSymlink}
}

type lchowner interface {
	Lchown(name string, uid, gid int) error
}
