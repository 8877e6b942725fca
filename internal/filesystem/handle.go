package filesystem

import (
	"sync"
	"sync/atomic"

	"github.com/blokfs/blokfs/pkg/errors"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"
)

// InvalidHandle is the numeric handle reported when open, create or opendir fails.
const InvalidHandle = ^uint64(0)

// HandleKind tags what a Handle refers to.
type HandleKind uint8

const (
	HandleInvalid HandleKind = iota
	HandleFile
	HandleDir
)

func (k HandleKind) String() string {
	switch k {
	case HandleFile:
		return "file"
	case HandleDir:
		return "dir"
	default:
		return "invalid"
	}
}

// File is an open host file descriptor.
type File struct {
	fd     int
	path   string
	closed atomic.Bool
}

// Path returns the mount-relative path the file was opened with.
func (f *File) Path() string {
	return f.path
}

// Fd returns the host descriptor.
func (f *File) Fd() int {
	return f.fd
}

func (f *File) usable(op string) error {
	if f == nil || f.closed.Load() {
		return errors.FromErrno(op, "", unix.EBADF)
	}
	return nil
}

// DirEntry is one directory stream entry. Mode holds only the file type bits.
type DirEntry struct {
	Name string
	Ino  uint64
	Mode uint32
}

// Dir is an open host directory stream. An entry the collector refused is held in pending and offered
// again on the next Readdir.
type Dir struct {
	mu      sync.Mutex
	stream  fs.DirStream
	path    string
	pending *fuse.DirEntry
	closed  bool
}

// Path returns the mount-relative path the directory was opened with.
func (d *Dir) Path() string {
	return d.path
}

// Handle is either a *File or a *Dir, never both.
type Handle struct {
	kind HandleKind
	file *File
	dir  *Dir
}

// FileHandle wraps f.
func FileHandle(f *File) Handle {
	if f == nil {
		return Handle{}
	}
	return Handle{kind: HandleFile, file: f}
}

// DirHandle wraps d.
func DirHandle(d *Dir) Handle {
	if d == nil {
		return Handle{}
	}
	return Handle{kind: HandleDir, dir: d}
}

func (h Handle) Kind() HandleKind {
	return h.kind
}

// File returns the file when h is a file handle.
func (h Handle) File() (*File, bool) {
	return h.file, h.kind == HandleFile
}

// Dir returns the directory stream when h is a directory handle.
func (h Handle) Dir() (*Dir, bool) {
	return h.dir, h.kind == HandleDir
}

// HandleTable maps numeric handle ids to open handles for bindings that pass a uint64 through the kernel.
type HandleTable struct {
	mu      sync.Mutex
	handles map[uint64]Handle
	next    uint64
}

// NewHandleTable creates an empty table. Ids start at 1.
func NewHandleTable() *HandleTable {
	return &HandleTable{
		handles: make(map[uint64]Handle),
		next:    1,
	}
}

// Insert stores h and returns its id. An invalid handle is not stored and yields InvalidHandle.
func (t *HandleTable) Insert(h Handle) uint64 {
	if h.kind == HandleInvalid {
		return InvalidHandle
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.next
	t.next++
	if t.next == InvalidHandle {
		t.next = 1
	}
	t.handles[id] = h
	return id
}

// Get returns the handle stored under id.
func (t *HandleTable) Get(id uint64) (Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.handles[id]
	return h, ok
}

// File returns the file stored under id, or EBADF when id is unknown or names a directory.
func (t *HandleTable) File(id uint64) (*File, error) {
	h, ok := t.Get(id)
	if !ok {
		return nil, errors.FromErrno("handle", "", unix.EBADF)
	}
	f, ok := h.File()
	if !ok {
		return nil, errors.FromErrno("handle", "", unix.EBADF).WithDetail("kind", h.kind.String())
	}
	return f, nil
}

// Dir returns the directory stream stored under id, or EBADF when id is unknown or names a file.
func (t *HandleTable) Dir(id uint64) (*Dir, error) {
	h, ok := t.Get(id)
	if !ok {
		return nil, errors.FromErrno("handle", "", unix.EBADF)
	}
	d, ok := h.Dir()
	if !ok {
		return nil, errors.FromErrno("handle", "", unix.EBADF).WithDetail("kind", h.kind.String())
	}
	return d, nil
}

// Remove deletes id from the table and returns what it held.
func (t *HandleTable) Remove(id uint64) (Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.handles[id]
	if ok {
		delete(t.handles, id)
	}
	return h, ok
}

// Len returns the number of open handles.
func (t *HandleTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handles)
}
