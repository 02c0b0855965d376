package convfs

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/absfs/absfs"
	"github.com/spf13/afero"
)

// absFSAdapter wraps OverlayFs to implement absfs.Filer with correct types
type absFSAdapter struct {
	ofs *OverlayFs
}

// Ensure absFSAdapter implements absfs.Filer interface at compile time
var _ absfs.Filer = (*absFSAdapter)(nil)

// FileSystem returns an absfs.FileSystem view of this OverlayFs.
// The returned FileSystem maintains its own working directory state, so
// relative names are joined with it before they are matched against the
// registered targets.
//
// Example:
//
//	ofs, _ := convfs.New(afero.NewMemMapFs(),
//	    convfs.WithMapping("/app/package.json", "/app/package.yaml"),
//	)
//
//	fs := ofs.FileSystem()
//	fs.Chdir("/app")
//	file, err := fs.Open("package.json") // derived from package.yaml
func (ofs *OverlayFs) FileSystem() absfs.FileSystem {
	adapter := &absFSAdapter{ofs: ofs}
	return absfs.ExtendFiler(adapter)
}

// OpenFile implements absfs.Filer
func (a *absFSAdapter) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	f, err := a.ofs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &absFile{File: f}, nil
}

// Mkdir implements absfs.Filer
func (a *absFSAdapter) Mkdir(name string, perm os.FileMode) error {
	return a.ofs.Mkdir(name, perm)
}

// Remove implements absfs.Filer
func (a *absFSAdapter) Remove(name string) error {
	return a.ofs.Remove(name)
}

// Rename implements absfs.Filer
func (a *absFSAdapter) Rename(oldpath, newpath string) error {
	return a.ofs.Rename(oldpath, newpath)
}

// Stat implements absfs.Filer
func (a *absFSAdapter) Stat(name string) (os.FileInfo, error) {
	return a.ofs.Stat(name)
}

// Chmod implements absfs.Filer
func (a *absFSAdapter) Chmod(name string, mode os.FileMode) error {
	return a.ofs.Chmod(name, mode)
}

// Chtimes implements absfs.Filer
func (a *absFSAdapter) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return a.ofs.Chtimes(name, atime, mtime)
}

// Chown implements absfs.Filer
func (a *absFSAdapter) Chown(name string, uid, gid int) error {
	return a.ofs.Chown(name, uid, gid)
}

// Truncate changes the size of the named file in the wrapped filesystem
func (a *absFSAdapter) Truncate(name string, size int64) error {
	return a.ofs.Truncate(name, size)
}

// ReadFile reads the named file through the overlay
func (a *absFSAdapter) ReadFile(name string) ([]byte, error) {
	return a.ofs.ReadFile(name)
}

// ReadDir reads the named directory from the wrapped filesystem
func (a *absFSAdapter) ReadDir(name string) ([]fs.DirEntry, error) {
	return a.ofs.ReadDir(name)
}

// Separator returns the path separator of the host
func (a *absFSAdapter) Separator() uint8 {
	return filepath.Separator
}

// ListSeparator returns the path list separator of the host
func (a *absFSAdapter) ListSeparator() uint8 {
	return filepath.ListSeparator
}

// symlinkFS adds the absfs symlink methods to the FileSystem view. Names
// that are not absolute are taken relative to the view's working
// directory.
type symlinkFS struct {
	absfs.FileSystem
	ofs *OverlayFs
}

var _ absfs.SymlinkFileSystem = (*symlinkFS)(nil)

// SymlinkFileSystem returns an absfs.SymlinkFileSystem view of this
// OverlayFs. Lstat reports derived targets like Stat does; the other
// symlink operations pass through to the wrapped filesystem and fail when
// it has no symlink support.
func (ofs *OverlayFs) SymlinkFileSystem() absfs.SymlinkFileSystem {
	return &symlinkFS{FileSystem: ofs.FileSystem(), ofs: ofs}
}

func (s *symlinkFS) abs(name string) string {
	name = filepath.ToSlash(name)
	if path.IsAbs(name) {
		return name
	}
	cwd, err := s.Getwd()
	if err != nil {
		return name
	}
	return path.Join(cwd, name)
}

// Lstat implements absfs.SymLinker
func (s *symlinkFS) Lstat(name string) (os.FileInfo, error) {
	return s.ofs.Lstat(s.abs(name))
}

// Lchown implements absfs.SymLinker
func (s *symlinkFS) Lchown(name string, uid, gid int) error {
	return s.ofs.Lchown(s.abs(name), uid, gid)
}

// Readlink implements absfs.SymLinker
func (s *symlinkFS) Readlink(name string) (string, error) {
	return s.ofs.ReadlinkIfPossible(s.abs(name))
}

// Symlink implements absfs.SymLinker. oldname is stored as given.
func (s *symlinkFS) Symlink(oldname, newname string) error {
	return s.ofs.SymlinkIfPossible(oldname, s.abs(newname))
}

// absFile adds the directory reading method absfs expects to an afero.File
type absFile struct {
	afero.File
}

// ReadDir reads up to n directory entries
func (f *absFile) ReadDir(n int) ([]fs.DirEntry, error) {
	infos, err := f.Readdir(n)
	entries := make([]fs.DirEntry, len(infos))
	for i, info := range infos {
		entries[i] = fs.FileInfoToDirEntry(info)
	}
	return entries, err
}

// aferoAdapter exposes an absfs.FileSystem as an afero.Fs
type aferoAdapter struct {
	fs absfs.FileSystem
}

var _ afero.Symlinker = (*aferoAdapter)(nil)

// FromAbsFS adapts an absfs.FileSystem, such as an absfs/memfs instance,
// into the afero.Fs an OverlayFs wraps.
func FromAbsFS(fsys absfs.FileSystem) afero.Fs {
	return &aferoAdapter{fs: fsys}
}

// Create implements afero.Fs
func (a *aferoAdapter) Create(name string) (afero.File, error) {
	f, err := a.fs.Create(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Mkdir implements afero.Fs
func (a *aferoAdapter) Mkdir(name string, perm os.FileMode) error {
	return a.fs.Mkdir(name, perm)
}

// MkdirAll implements afero.Fs
func (a *aferoAdapter) MkdirAll(name string, perm os.FileMode) error {
	return a.fs.MkdirAll(name, perm)
}

// Open implements afero.Fs
func (a *aferoAdapter) Open(name string) (afero.File, error) {
	f, err := a.fs.Open(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// OpenFile implements afero.Fs
func (a *aferoAdapter) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	f, err := a.fs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Remove implements afero.Fs
func (a *aferoAdapter) Remove(name string) error {
	return a.fs.Remove(name)
}

// RemoveAll implements afero.Fs
func (a *aferoAdapter) RemoveAll(name string) error {
	return a.fs.RemoveAll(name)
}

// Rename implements afero.Fs
func (a *aferoAdapter) Rename(oldname, newname string) error {
	return a.fs.Rename(oldname, newname)
}

// Stat implements afero.Fs
func (a *aferoAdapter) Stat(name string) (os.FileInfo, error) {
	return a.fs.Stat(name)
}

// Name implements afero.Fs
func (a *aferoAdapter) Name() string {
	return "absfs"
}

// Chmod implements afero.Fs
func (a *aferoAdapter) Chmod(name string, mode os.FileMode) error {
	return a.fs.Chmod(name, mode)
}

// Chown implements afero.Fs
func (a *aferoAdapter) Chown(name string, uid, gid int) error {
	return a.fs.Chown(name, uid, gid)
}

// Chtimes implements afero.Fs
func (a *aferoAdapter) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return a.fs.Chtimes(name, atime, mtime)
}

// Truncate changes the size of the named file
func (a *aferoAdapter) Truncate(name string, size int64) error {
	return a.fs.Truncate(name, size)
}

// LstatIfPossible implements afero.Lstater. The bool reports whether the
// wrapped filesystem could lstat.
func (a *aferoAdapter) LstatIfPossible(name string) (os.FileInfo, bool, error) {
	if l, ok := a.fs.(absfs.SymLinker); ok {
		info, err := l.Lstat(name)
		return info, true, err
	}
	info, err := a.fs.Stat(name)
	return info, false, err
}

// SymlinkIfPossible implements afero.Linker
func (a *aferoAdapter) SymlinkIfPossible(oldname, newname string) error {
	if l, ok := a.fs.(absfs.SymLinker); ok {
		return l.Symlink(oldname, newname)
	}
	return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: afero.ErrNoSymlink}
}

// ReadlinkIfPossible implements afero.LinkReader
func (a *aferoAdapter) ReadlinkIfPossible(name string) (string, error) {
	if l, ok := a.fs.(absfs.SymLinker); ok {
		return l.Readlink(name)
	}
	return "", &os.PathError{Op: "readlink", Path: name, Err: afero.ErrNoReadlink}
}

// Lchown changes the ownership of a symlink itself
func (a *aferoAdapter) Lchown(name string, uid, gid int) error {
	if l, ok := a.fs.(absfs.SymLinker); ok {
		return l.Lchown(name, uid, gid)
	}
	return &os.PathError{Op: "lchown", Path: name, Err: afero.ErrNoSymlink}
}
