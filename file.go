package convfs

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// derivedInfo describes a target served from derived content
type derivedInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
}

var _ os.FileInfo = (*derivedInfo)(nil)

func (fi *derivedInfo) Name() string       { return fi.name }
func (fi *derivedInfo) Size() int64        { return fi.size }
func (fi *derivedInfo) Mode() os.FileMode  { return fi.mode }
func (fi *derivedInfo) ModTime() time.Time { return fi.modTime }
func (fi *derivedInfo) IsDir() bool        { return false }
func (fi *derivedInfo) Sys() any           { return nil }

// statOverlay builds the metadata of name under ov. Permissions and
// modification time come from the real target when it is a regular
// file, otherwise from the source.
func (ofs *OverlayFs) statOverlay(name string, ov *Overlay) *derivedInfo {
	meta := ov.SourceInfo
	if target, err := ofs.base.Stat(name); err == nil && target.Mode().IsRegular() {
		meta = target
	}

	return &derivedInfo{
		name:    filepath.Base(name),
		size:    ov.Content.Len(),
		mode:    meta.Mode().Perm(),
		modTime: meta.ModTime(),
	}
}

// derivedFile implements afero.File over derived content. It is read-only.
type derivedFile struct {
	name   string
	info   os.FileInfo
	r      *bytes.Reader
	mu     sync.Mutex
	closed bool
}

var _ afero.File = (*derivedFile)(nil)

func newDerivedFile(name string, info os.FileInfo, content []byte) *derivedFile {
	return &derivedFile{
		name: name,
		info: info,
		r:    bytes.NewReader(content),
	}
}

// Close closes the file
func (f *derivedFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return &os.PathError{Op: "close", Path: f.name, Err: os.ErrClosed}
	}
	f.closed = true
	return nil
}

// Read reads derived content from the current offset
func (f *derivedFile) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, &os.PathError{Op: "read", Path: f.name, Err: os.ErrClosed}
	}
	return f.r.Read(p)
}

// ReadAt reads derived content at an absolute offset
func (f *derivedFile) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, &os.PathError{Op: "read", Path: f.name, Err: os.ErrClosed}
	}
	return f.r.ReadAt(p, off)
}

// Seek sets the offset for the next Read
func (f *derivedFile) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, &os.PathError{Op: "seek", Path: f.name, Err: os.ErrClosed}
	}
	return f.r.Seek(offset, whence)
}

// Write is not supported, derived files are read-only
func (f *derivedFile) Write(p []byte) (int, error) {
	return 0, &os.PathError{Op: "write", Path: f.name, Err: os.ErrPermission}
}

// WriteAt is not supported, derived files are read-only
func (f *derivedFile) WriteAt(p []byte, off int64) (int, error) {
	return 0, &os.PathError{Op: "write", Path: f.name, Err: os.ErrPermission}
}

// WriteString is not supported, derived files are read-only
func (f *derivedFile) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

// Truncate is not supported, derived files are read-only
func (f *derivedFile) Truncate(size int64) error {
	return &os.PathError{Op: "truncate", Path: f.name, Err: os.ErrPermission}
}

// Name returns the name the file was opened with
func (f *derivedFile) Name() string {
	return f.name
}

// Readdir is not supported on regular files
func (f *derivedFile) Readdir(count int) ([]os.FileInfo, error) {
	return nil, &os.PathError{Op: "readdir", Path: f.name, Err: os.ErrInvalid}
}

// Readdirnames is not supported on regular files
func (f *derivedFile) Readdirnames(n int) ([]string, error) {
	return nil, &os.PathError{Op: "readdir", Path: f.name, Err: os.ErrInvalid}
}

// Stat returns the metadata captured when the file was opened
func (f *derivedFile) Stat() (os.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, &os.PathError{Op: "stat", Path: f.name, Err: os.ErrClosed}
	}
	return f.info, nil
}

// Sync is a no-op
func (f *derivedFile) Sync() error {
	return nil
}

// WriteTo implements io.WriterTo
func (f *derivedFile) WriteTo(w io.Writer) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, &os.PathError{Op: "read", Path: f.name, Err: os.ErrClosed}
	}
	return f.r.WriteTo(w)
}
