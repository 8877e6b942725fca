package filesystem

import (
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"
)

// FillFunc receives directory entries in host order. Returning false stops enumeration.
type FillFunc func(entry DirEntry) bool

// Opendir opens a host directory stream on path. The returned stream must be passed to Releasedir
// exactly once.
func (d *Dispatcher) Opendir(path string) (*Dir, error) {
	start := time.Now()
	full, err := d.mount.Resolve(path)
	if err != nil {
		return nil, d.done("opendir", path, start, 0, err)
	}

	stream, errno := fs.NewLoopbackDirStream(full)
	if errno != 0 {
		return nil, d.done("opendir", path, start, 0, errno)
	}
	d.openHandles.Add(1)
	return &Dir{stream: stream, path: path}, d.done("opendir", path, start, 0, nil)
}

// Readdir passes entries of dir to fill until the stream is exhausted or fill refuses one. A refused
// entry yields ENOMEM and is offered first on the next call. Once the stream is exhausted Readdir
// returns nil without calling fill.
func (d *Dispatcher) Readdir(dir *Dir, fill FillFunc) error {
	start := time.Now()
	if dir == nil {
		return d.done("readdir", "", start, 0, unix.EBADF)
	}

	dir.mu.Lock()
	defer dir.mu.Unlock()

	if dir.closed {
		return d.done("readdir", dir.path, start, 0, unix.EBADF)
	}

	var count int64
	for {
		var entry fuse.DirEntry
		if dir.pending != nil {
			entry = *dir.pending
			dir.pending = nil
		} else {
			if !dir.stream.HasNext() {
				return d.done("readdir", dir.path, start, count, nil)
			}
			next, errno := dir.stream.Next()
			if errno != 0 {
				return d.done("readdir", dir.path, start, count, errno)
			}
			entry = next
		}

		if !fill(DirEntry{Name: entry.Name, Ino: entry.Ino, Mode: entry.Mode & unix.S_IFMT}) {
			dir.pending = &entry
			return d.done("readdir", dir.path, start, count, unix.ENOMEM)
		}
		count++
	}
}

// Releasedir closes dir. The host close result is not reported.
func (d *Dispatcher) Releasedir(dir *Dir) error {
	start := time.Now()
	if dir == nil {
		return d.done("releasedir", "", start, 0, unix.EBADF)
	}

	dir.mu.Lock()
	defer dir.mu.Unlock()

	if dir.closed {
		return d.done("releasedir", dir.path, start, 0, unix.EBADF)
	}
	dir.closed = true
	dir.pending = nil
	dir.stream.Close()
	d.openHandles.Add(-1)
	return d.done("releasedir", dir.path, start, 0, nil)
}

// Fsyncdir succeeds without a host call while dir is open.
func (d *Dispatcher) Fsyncdir(dir *Dir, datasync bool) error {
	start := time.Now()
	if dir == nil {
		return d.done("fsyncdir", "", start, 0, unix.EBADF)
	}

	dir.mu.Lock()
	closed := dir.closed
	dir.mu.Unlock()

	if closed {
		return d.done("fsyncdir", dir.path, start, 0, unix.EBADF)
	}
	return d.done("fsyncdir", dir.path, start, 0, nil)
}
