package convfs

import (
	"io/fs"
	"os"
	"time"

	"github.com/spf13/afero"
)

var _ afero.Fs = (*OverlayFs)(nil)

// writeFlags are the open flags that bypass interception
const writeFlags = os.O_WRONLY | os.O_RDWR | os.O_APPEND | os.O_CREATE | os.O_TRUNC

// Stat returns file info for name. A target with an existing source
// reports the byte length of the derived content as its size, whatever
// the target holds on disk.
func (ofs *OverlayFs) Stat(name string) (os.FileInfo, error) {
	ov, err := ofs.Resolve(name)
	if err != nil {
		return nil, &os.PathError{Op: "stat", Path: name, Err: err}
	}
	if ov == nil {
		return ofs.base.Stat(name)
	}
	return ofs.statOverlay(name, ov), nil
}

// Open opens a file for reading
func (ofs *OverlayFs) Open(name string) (afero.File, error) {
	return ofs.OpenFile(name, os.O_RDONLY, 0)
}

// OpenFile opens a file with the specified flags and permissions. Any
// write flag sends the call to the wrapped filesystem, even for mapped
// targets; such writes stay invisible while the source exists.
func (ofs *OverlayFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&writeFlags != 0 {
		return ofs.base.OpenFile(name, flag, perm)
	}

	ov, err := ofs.Resolve(name)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	if ov == nil {
		return ofs.base.OpenFile(name, flag, perm)
	}
	return newDerivedFile(name, ofs.statOverlay(name, ov), ov.Content.Bytes), nil
}

// ReadFile reads the named file and returns its contents
func (ofs *OverlayFs) ReadFile(name string) ([]byte, error) {
	ov, err := ofs.Resolve(name)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	if ov == nil {
		return afero.ReadFile(ofs.base, name)
	}
	return ov.Content.Bytes, nil
}

// Exists reports whether name exists, derived targets included
func (ofs *OverlayFs) Exists(name string) (bool, error) {
	return afero.Exists(ofs, name)
}

// ReadDir reads the named directory from the wrapped filesystem. Listings
// are not intercepted: a target only shows up if it exists on disk.
func (ofs *OverlayFs) ReadDir(name string) ([]fs.DirEntry, error) {
	infos, err := afero.ReadDir(ofs.base, name)
	if err != nil {
		return nil, err
	}

	entries := make([]fs.DirEntry, len(infos))
	for i, info := range infos {
		entries[i] = fs.FileInfoToDirEntry(info)
	}
	return entries, nil
}

// Create creates a file in the wrapped filesystem
func (ofs *OverlayFs) Create(name string) (afero.File, error) {
	return ofs.base.Create(name)
}

// Mkdir creates a directory in the wrapped filesystem
func (ofs *OverlayFs) Mkdir(name string, perm os.FileMode) error {
	return ofs.base.Mkdir(name, perm)
}

// MkdirAll creates a directory and all parent directories
func (ofs *OverlayFs) MkdirAll(name string, perm os.FileMode) error {
	return ofs.base.MkdirAll(name, perm)
}

// Remove removes a file or empty directory from the wrapped filesystem
func (ofs *OverlayFs) Remove(name string) error {
	return ofs.base.Remove(name)
}

// RemoveAll removes a path and all children
func (ofs *OverlayFs) RemoveAll(name string) error {
	return ofs.base.RemoveAll(name)
}

// Rename renames a file or directory
func (ofs *OverlayFs) Rename(oldname, newname string) error {
	return ofs.base.Rename(oldname, newname)
}

// truncater is implemented by filesystems with a native truncate, such as
// the adapter returned by FromAbsFS
type truncater interface {
	Truncate(name string, size int64) error
}

// Truncate changes the size of the named file in the wrapped filesystem.
// Like every write it is not intercepted, also for mapped targets.
func (ofs *OverlayFs) Truncate(name string, size int64) error {
	if t, ok := ofs.base.(truncater); ok {
		return t.Truncate(name, size)
	}

	f, err := ofs.base.OpenFile(name, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Chmod changes file permissions
func (ofs *OverlayFs) Chmod(name string, mode os.FileMode) error {
	return ofs.base.Chmod(name, mode)
}

// Chown changes file ownership
func (ofs *OverlayFs) Chown(name string, uid, gid int) error {
	return ofs.base.Chown(name, uid, gid)
}

// Chtimes changes file access and modification times
func (ofs *OverlayFs) Chtimes(name string, atime, mtime time.Time) error {
	return ofs.base.Chtimes(name, atime, mtime)
}
