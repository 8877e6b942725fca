package filesystem

import (
	"time"

	"golang.org/x/sys/unix"
)

// Path operations resolve their argument and make exactly one host call.

// Getattr reports the attributes of path without following a final symlink.
func (d *Dispatcher) Getattr(path string, st *unix.Stat_t) error {
	start := time.Now()
	d.lookups.Add(1)
	full, err := d.mount.Resolve(path)
	if err == nil {
		err = unix.Lstat(full, st)
	}
	return d.done("getattr", path, start, 0, err)
}

// ReadlinkInto reads the target of the symlink at path into buf. At most len(buf)-1 bytes are read and
// buf[n] is set to NUL. buf must hold at least one byte.
func (d *Dispatcher) ReadlinkInto(path string, buf []byte) (int, error) {
	start := time.Now()
	if len(buf) == 0 {
		return 0, d.done("readlink", path, start, 0, unix.EINVAL)
	}

	full, err := d.mount.Resolve(path)
	if err != nil {
		return 0, d.done("readlink", path, start, 0, err)
	}

	n, err := unix.Readlink(full, buf[:len(buf)-1])
	if err != nil {
		return 0, d.done("readlink", path, start, 0, err)
	}
	buf[n] = 0
	return n, d.done("readlink", path, start, int64(n), nil)
}

// Readlink returns the target of the symlink at path.
func (d *Dispatcher) Readlink(path string) (string, error) {
	buf := make([]byte, pathMax)
	n, err := d.ReadlinkInto(path, buf)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

// Mknod creates a file system node. Regular files are created exclusively, so an existing file yields
// EEXIST and is not touched. FIFOs use mkfifo; every other type goes to mknod.
func (d *Dispatcher) Mknod(path string, mode uint32, dev uint64) error {
	start := time.Now()
	full, err := d.mount.Resolve(path)
	if err != nil {
		return d.done("mknod", path, start, 0, err)
	}

	switch mode & unix.S_IFMT {
	case unix.S_IFREG:
		var fd int
		fd, err = unix.Open(full, unix.O_CREAT|unix.O_EXCL|unix.O_WRONLY|unix.O_CLOEXEC, mode&07777)
		if err == nil {
			err = unix.Close(fd)
		}
	case unix.S_IFIFO:
		err = unix.Mkfifo(full, mode&07777)
	default:
		err = unix.Mknod(full, mode, int(dev))
	}
	return d.done("mknod", path, start, 0, err)
}

// Mkdir creates a directory.
func (d *Dispatcher) Mkdir(path string, mode uint32) error {
	start := time.Now()
	full, err := d.mount.Resolve(path)
	if err == nil {
		err = unix.Mkdir(full, mode)
	}
	return d.done("mkdir", path, start, 0, err)
}

// Unlink removes a non-directory entry.
func (d *Dispatcher) Unlink(path string) error {
	start := time.Now()
	full, err := d.mount.Resolve(path)
	if err == nil {
		err = unix.Unlink(full)
	}
	return d.done("unlink", path, start, 0, err)
}

// Rmdir removes an empty directory.
func (d *Dispatcher) Rmdir(path string) error {
	start := time.Now()
	full, err := d.mount.Resolve(path)
	if err == nil {
		err = unix.Rmdir(full)
	}
	return d.done("rmdir", path, start, 0, err)
}

// Symlink creates linkPath pointing at target. The target is stored as given, unresolved.
func (d *Dispatcher) Symlink(target, linkPath string) error {
	start := time.Now()
	full, err := d.mount.Resolve(linkPath)
	if err == nil {
		err = unix.Symlink(target, full)
	}
	return d.done("symlink", linkPath, start, 0, err)
}

// Rename moves oldPath to newPath.
func (d *Dispatcher) Rename(oldPath, newPath string) error {
	start := time.Now()
	return d.done("rename", oldPath, start, 0, d.twoPaths(oldPath, newPath, unix.Rename))
}

// Link creates newPath as a hard link to oldPath.
func (d *Dispatcher) Link(oldPath, newPath string) error {
	start := time.Now()
	return d.done("link", oldPath, start, 0, d.twoPaths(oldPath, newPath, unix.Link))
}

func (d *Dispatcher) twoPaths(oldPath, newPath string, call func(string, string) error) error {
	fullOld, err := d.mount.Resolve(oldPath)
	if err != nil {
		return err
	}
	fullNew, err := d.mount.Resolve(newPath)
	if err != nil {
		return err
	}
	return call(fullOld, fullNew)
}

// Chmod changes the permission bits of path.
func (d *Dispatcher) Chmod(path string, mode uint32) error {
	start := time.Now()
	full, err := d.mount.Resolve(path)
	if err == nil {
		err = unix.Chmod(full, mode)
	}
	return d.done("chmod", path, start, 0, err)
}

// Chown changes the owner of path. An id of ^uint32(0) leaves that id unchanged.
func (d *Dispatcher) Chown(path string, uid, gid uint32) error {
	start := time.Now()
	full, err := d.mount.Resolve(path)
	if err == nil {
		err = unix.Chown(full, hostID(uid), hostID(gid))
	}
	return d.done("chown", path, start, 0, err)
}

func hostID(id uint32) int {
	if id == ^uint32(0) {
		return -1
	}
	return int(id)
}

// Truncate sets the size of path.
func (d *Dispatcher) Truncate(path string, size int64) error {
	start := time.Now()
	full, err := d.mount.Resolve(path)
	if err == nil {
		err = unix.Truncate(full, size)
	}
	return d.done("truncate", path, start, 0, err)
}

// Utime sets the access and modification times of path, following symlinks.
func (d *Dispatcher) Utime(path string, atime, mtime time.Time) error {
	return d.Utimens(path, []unix.Timespec{
		unix.NsecToTimespec(atime.UnixNano()),
		unix.NsecToTimespec(mtime.UnixNano()),
	})
}

// Utimens sets times from a two element slice of access then modification time. UTIME_NOW and
// UTIME_OMIT are passed through to the host.
func (d *Dispatcher) Utimens(path string, ts []unix.Timespec) error {
	start := time.Now()
	full, err := d.mount.Resolve(path)
	if err == nil {
		if len(ts) != 2 {
			err = unix.EINVAL
		} else {
			err = unix.UtimesNano(full, ts)
		}
	}
	return d.done("utime", path, start, 0, err)
}

// Statfs reports statistics of the file system that holds path.
func (d *Dispatcher) Statfs(path string, st *unix.Statfs_t) error {
	start := time.Now()
	full, err := d.mount.Resolve(path)
	if err == nil {
		err = unix.Statfs(full, st)
	}
	return d.done("statfs", path, start, 0, err)
}

// Access checks path against mask with the real uid and gid.
func (d *Dispatcher) Access(path string, mask uint32) error {
	start := time.Now()
	full, err := d.mount.Resolve(path)
	if err == nil {
		err = unix.Access(full, mask)
	}
	return d.done("access", path, start, 0, err)
}
