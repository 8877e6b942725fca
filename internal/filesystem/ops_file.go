package filesystem

import (
	"time"

	"github.com/blokfs/blokfs/pkg/utils"
	"golang.org/x/sys/unix"
)

// Open opens path with the caller's flags. The returned file must be passed to Release exactly once.
func (d *Dispatcher) Open(path string, flags int) (*File, error) {
	start := time.Now()
	full, err := d.mount.Resolve(path)
	if err != nil {
		return nil, d.done("open", path, start, 0, err)
	}

	fd, err := unix.Open(full, flags|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, d.done("open", path, start, 0, err)
	}
	d.openHandles.Add(1)
	return &File{fd: fd, path: path}, d.done("open", path, start, 0, nil)
}

// Create opens path with O_CREAT added to flags, using mode for a new file.
func (d *Dispatcher) Create(path string, flags int, mode uint32) (*File, error) {
	start := time.Now()
	full, err := d.mount.Resolve(path)
	if err != nil {
		return nil, d.done("create", path, start, 0, err)
	}

	fd, err := unix.Open(full, flags|unix.O_CREAT|unix.O_CLOEXEC, mode&07777)
	if err != nil {
		return nil, d.done("create", path, start, 0, err)
	}
	d.openHandles.Add(1)
	return &File{fd: fd, path: path}, d.done("create", path, start, 0, nil)
}

// Read fills buf from offset off of f and returns the byte count; 0 means end of file. Each call is
// traced to the diagnostic log.
func (d *Dispatcher) Read(f *File, buf []byte, off int64) (int, error) {
	start := time.Now()
	if err := f.usable("read"); err != nil {
		return 0, d.done("read", "", start, 0, err)
	}

	d.diag().Trace("read", utils.Fields{
		"filename": f.path,
		"offset":   off,
		"size":     len(buf),
	})

	n, err := unix.Pread(f.fd, buf, off)
	if err != nil {
		return 0, d.done("read", f.path, start, 0, err)
	}
	d.reads.Add(1)
	d.bytesRead.Add(uint64(n))
	return n, d.done("read", f.path, start, int64(n), nil)
}

// Write stores buf at offset off of f and returns the byte count.
func (d *Dispatcher) Write(f *File, buf []byte, off int64) (int, error) {
	start := time.Now()
	if err := f.usable("write"); err != nil {
		return 0, d.done("write", "", start, 0, err)
	}

	n, err := unix.Pwrite(f.fd, buf, off)
	if err != nil {
		return 0, d.done("write", f.path, start, 0, err)
	}
	d.writes.Add(1)
	d.bytesWritten.Add(uint64(n))
	return n, d.done("write", f.path, start, int64(n), nil)
}

// Flush succeeds without a host call; data reaches the host on every Write.
func (d *Dispatcher) Flush(f *File) error {
	start := time.Now()
	if err := f.usable("flush"); err != nil {
		return d.done("flush", "", start, 0, err)
	}
	return d.done("flush", f.path, start, 0, nil)
}

// Release closes f. A second release of the same file reports EBADF.
func (d *Dispatcher) Release(f *File) error {
	start := time.Now()
	if f == nil || !f.closed.CompareAndSwap(false, true) {
		return d.done("release", "", start, 0, unix.EBADF)
	}
	d.openHandles.Add(-1)
	return d.done("release", f.path, start, 0, unix.Close(f.fd))
}

// Fsync flushes f to stable storage. With datasync only the data and the metadata needed to read it back
// are flushed.
func (d *Dispatcher) Fsync(f *File, datasync bool) error {
	start := time.Now()
	if err := f.usable("fsync"); err != nil {
		return d.done("fsync", "", start, 0, err)
	}

	var err error
	if datasync {
		err = fdatasync(f.fd)
	} else {
		err = unix.Fsync(f.fd)
	}
	return d.done("fsync", f.path, start, 0, err)
}

// Ftruncate sets the size of the open file f.
func (d *Dispatcher) Ftruncate(f *File, size int64) error {
	start := time.Now()
	if err := f.usable("ftruncate"); err != nil {
		return d.done("ftruncate", "", start, 0, err)
	}
	return d.done("ftruncate", f.path, start, 0, unix.Ftruncate(f.fd, size))
}

// Fgetattr reports the attributes of the open file f. The mount root is always answered by Getattr.
func (d *Dispatcher) Fgetattr(path string, f *File, st *unix.Stat_t) error {
	if path == "/" {
		return d.Getattr(path, st)
	}

	start := time.Now()
	if err := f.usable("fgetattr"); err != nil {
		return d.done("fgetattr", path, start, 0, err)
	}
	d.lookups.Add(1)
	return d.done("fgetattr", path, start, 0, unix.Fstat(f.fd, st))
}
