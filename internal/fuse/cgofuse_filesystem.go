//go:build cgofuse
// +build cgofuse

package fuse

import (
	"sync"

	cgofuse "github.com/winfsp/cgofuse/fuse"
	"golang.org/x/sys/unix"

	"github.com/blokfs/blokfs/internal/filesystem"
	"github.com/blokfs/blokfs/pkg/errors"
	"github.com/blokfs/blokfs/pkg/types"
)

// CgoFuseFS serves a Dispatcher through the cgofuse path-based interface. Open files and directories are
// tracked in a handle table and the numeric id is handed to the kernel.
type CgoFuseFS struct {
	cgofuse.FileSystemBase

	d       *filesystem.Dispatcher
	handles *filesystem.HandleTable

	readyOnce sync.Once
	ready     chan struct{}
}

// NewCgoFuseFS creates a new cgofuse-based filesystem
func NewCgoFuseFS(d *filesystem.Dispatcher) *CgoFuseFS {
	return &CgoFuseFS{
		d:       d,
		handles: filesystem.NewHandleTable(),
		ready:   make(chan struct{}),
	}
}

// GetStats returns current filesystem statistics
func (fs *CgoFuseFS) GetStats() types.OperationStats {
	return fs.d.Stats()
}

// Init is called once the mount is established
func (fs *CgoFuseFS) Init() {
	fs.d.Init()
	fs.readyOnce.Do(func() { close(fs.ready) })
}

// Destroy is called once the mount is torn down
func (fs *CgoFuseFS) Destroy() {
	fs.d.Destroy()
}

func (fs *CgoFuseFS) Getattr(path string, stat *cgofuse.Stat_t, fh uint64) int {
	var st unix.Stat_t
	var err error
	if fh != filesystem.InvalidHandle {
		if f, ferr := fs.handles.File(fh); ferr == nil {
			err = fs.d.Fgetattr(path, f, &st)
		} else {
			err = fs.d.Getattr(path, &st)
		}
	} else {
		err = fs.d.Getattr(path, &st)
	}
	if err != nil {
		return errors.Status(err)
	}
	fillStat(stat, &st)
	return 0
}

func (fs *CgoFuseFS) Readlink(path string) (int, string) {
	target, err := fs.d.Readlink(path)
	if err != nil {
		return errors.Status(err), ""
	}
	return 0, target
}

func (fs *CgoFuseFS) Mknod(path string, mode uint32, dev uint64) int {
	return errors.Status(fs.d.Mknod(path, mode, dev))
}

func (fs *CgoFuseFS) Mkdir(path string, mode uint32) int {
	return errors.Status(fs.d.Mkdir(path, mode))
}

func (fs *CgoFuseFS) Unlink(path string) int {
	return errors.Status(fs.d.Unlink(path))
}

func (fs *CgoFuseFS) Rmdir(path string) int {
	return errors.Status(fs.d.Rmdir(path))
}

func (fs *CgoFuseFS) Symlink(target string, newpath string) int {
	return errors.Status(fs.d.Symlink(target, newpath))
}

func (fs *CgoFuseFS) Rename(oldpath string, newpath string) int {
	return errors.Status(fs.d.Rename(oldpath, newpath))
}

func (fs *CgoFuseFS) Link(oldpath string, newpath string) int {
	return errors.Status(fs.d.Link(oldpath, newpath))
}

func (fs *CgoFuseFS) Chmod(path string, mode uint32) int {
	return errors.Status(fs.d.Chmod(path, mode))
}

func (fs *CgoFuseFS) Chown(path string, uid uint32, gid uint32) int {
	return errors.Status(fs.d.Chown(path, uid, gid))
}

func (fs *CgoFuseFS) Truncate(path string, size int64, fh uint64) int {
	if fh != filesystem.InvalidHandle {
		if f, err := fs.handles.File(fh); err == nil {
			return errors.Status(fs.d.Ftruncate(f, size))
		}
	}
	return errors.Status(fs.d.Truncate(path, size))
}

func (fs *CgoFuseFS) Utimens(path string, tmsp []cgofuse.Timespec) int {
	ts := make([]unix.Timespec, len(tmsp))
	for i, t := range tmsp {
		ts[i] = unix.Timespec{Sec: t.Sec, Nsec: t.Nsec}
	}
	return errors.Status(fs.d.Utimens(path, ts))
}

func (fs *CgoFuseFS) Access(path string, mask uint32) int {
	return errors.Status(fs.d.Access(path, mask))
}

func (fs *CgoFuseFS) Statfs(path string, stat *cgofuse.Statfs_t) int {
	var st unix.Statfs_t
	if err := fs.d.Statfs(path, &st); err != nil {
		return errors.Status(err)
	}
	info := statfsFromHost(&st)
	stat.Bsize = info.Bsize
	stat.Frsize = info.Frsize
	stat.Blocks = info.Blocks
	stat.Bfree = info.Bfree
	stat.Bavail = info.Bavail
	stat.Files = info.Files
	stat.Ffree = info.Ffree
	stat.Favail = info.Ffree
	stat.Namemax = info.Namemax
	return 0
}

func (fs *CgoFuseFS) Open(path string, flags int) (int, uint64) {
	f, err := fs.d.Open(path, flags)
	if err != nil {
		return errors.Status(err), filesystem.InvalidHandle
	}
	return 0, fs.handles.Insert(filesystem.FileHandle(f))
}

func (fs *CgoFuseFS) Create(path string, flags int, mode uint32) (int, uint64) {
	f, err := fs.d.Create(path, flags, mode)
	if err != nil {
		return errors.Status(err), filesystem.InvalidHandle
	}
	return 0, fs.handles.Insert(filesystem.FileHandle(f))
}

func (fs *CgoFuseFS) Read(path string, buff []byte, ofst int64, fh uint64) int {
	f, err := fs.handles.File(fh)
	if err != nil {
		return errors.Status(err)
	}
	n, err := fs.d.Read(f, buff, ofst)
	if err != nil {
		return errors.Status(err)
	}
	return n
}

func (fs *CgoFuseFS) Write(path string, buff []byte, ofst int64, fh uint64) int {
	f, err := fs.handles.File(fh)
	if err != nil {
		return errors.Status(err)
	}
	n, err := fs.d.Write(f, buff, ofst)
	if err != nil {
		return errors.Status(err)
	}
	return n
}

func (fs *CgoFuseFS) Flush(path string, fh uint64) int {
	f, err := fs.handles.File(fh)
	if err != nil {
		return errors.Status(err)
	}
	return errors.Status(fs.d.Flush(f))
}

func (fs *CgoFuseFS) Release(path string, fh uint64) int {
	f, err := fs.handles.File(fh)
	if err != nil {
		return errors.Status(err)
	}
	fs.handles.Remove(fh)
	return errors.Status(fs.d.Release(f))
}

func (fs *CgoFuseFS) Fsync(path string, datasync bool, fh uint64) int {
	f, err := fs.handles.File(fh)
	if err != nil {
		return errors.Status(err)
	}
	return errors.Status(fs.d.Fsync(f, datasync))
}

func (fs *CgoFuseFS) Opendir(path string) (int, uint64) {
	dir, err := fs.d.Opendir(path)
	if err != nil {
		return errors.Status(err), filesystem.InvalidHandle
	}
	return 0, fs.handles.Insert(filesystem.DirHandle(dir))
}

// Readdir fills without offsets, so the whole stream is consumed in one call.
func (fs *CgoFuseFS) Readdir(path string,
	fill func(name string, stat *cgofuse.Stat_t, ofst int64) bool,
	ofst int64,
	fh uint64) int {

	dir, err := fs.handles.Dir(fh)
	if err != nil {
		return errors.Status(err)
	}

	err = fs.d.Readdir(dir, func(entry filesystem.DirEntry) bool {
		stat := &cgofuse.Stat_t{Ino: entry.Ino, Mode: entry.Mode}
		return fill(entry.Name, stat, 0)
	})
	return errors.Status(err)
}

func (fs *CgoFuseFS) Releasedir(path string, fh uint64) int {
	dir, err := fs.handles.Dir(fh)
	if err != nil {
		return errors.Status(err)
	}
	fs.handles.Remove(fh)
	return errors.Status(fs.d.Releasedir(dir))
}

func (fs *CgoFuseFS) Fsyncdir(path string, datasync bool, fh uint64) int {
	dir, err := fs.handles.Dir(fh)
	if err != nil {
		return errors.Status(err)
	}
	return errors.Status(fs.d.Fsyncdir(dir, datasync))
}

func (fs *CgoFuseFS) Setxattr(path string, name string, value []byte, flags int) int {
	return errors.Status(fs.d.Setxattr(path, name, value, flags))
}

func (fs *CgoFuseFS) Getxattr(path string, name string) (int, []byte) {
	value, err := fs.d.Getxattr(path, name)
	if err != nil {
		return errors.Status(err), nil
	}
	return 0, value
}

func (fs *CgoFuseFS) Removexattr(path string, name string) int {
	return errors.Status(fs.d.Removexattr(path, name))
}

func (fs *CgoFuseFS) Listxattr(path string, fill func(name string) bool) int {
	names, err := fs.d.Listxattr(path)
	if err != nil {
		return errors.Status(err)
	}
	for _, name := range names {
		if !fill(name) {
			return -int(unix.ERANGE)
		}
	}
	return 0
}

// fillStat copies host attributes into the cgofuse stat
func fillStat(stat *cgofuse.Stat_t, st *unix.Stat_t) {
	atime, mtime, ctime := statTimes(st)

	stat.Dev = uint64(st.Dev)
	stat.Ino = st.Ino
	stat.Mode = uint32(st.Mode)
	stat.Nlink = uint32(st.Nlink)
	stat.Uid = st.Uid
	stat.Gid = st.Gid
	stat.Rdev = uint64(st.Rdev)
	stat.Size = st.Size
	stat.Atim = cgofuse.Timespec{Sec: int64(atime.Sec), Nsec: int64(atime.Nsec)}
	stat.Mtim = cgofuse.Timespec{Sec: int64(mtime.Sec), Nsec: int64(mtime.Nsec)}
	stat.Ctim = cgofuse.Timespec{Sec: int64(ctime.Sec), Nsec: int64(ctime.Nsec)}
	stat.Blksize = int64(st.Blksize)
	stat.Blocks = int64(st.Blocks)
}
