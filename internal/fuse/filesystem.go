package fuse

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"

	"github.com/blokfs/blokfs/internal/filesystem"
	"github.com/blokfs/blokfs/pkg/errors"
	"github.com/blokfs/blokfs/pkg/types"
)

// safeInt64ToUint64 converts i, clamping negative values to zero
func safeInt64ToUint64(i int64) uint64 {
	if i < 0 {
		return 0
	}
	return uint64(i)
}

// safeIntToUint32 converts i, clamping to the uint32 range
func safeIntToUint32(i int) uint32 {
	if i < 0 {
		return 0
	}
	if i > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(i)
}

// FileSystem exposes a Dispatcher as a go-fuse node tree.
type FileSystem struct {
	dispatcher *filesystem.Dispatcher

	// device and inode of the backing root, for composing inode ids
	rootDev uint64
	rootIno uint64
}

// NewFileSystem creates the node tree for d
func NewFileSystem(d *filesystem.Dispatcher) *FileSystem {
	f := &FileSystem{dispatcher: d}

	var st unix.Stat_t
	if err := unix.Stat(d.Mount().Root(), &st); err == nil {
		f.rootDev = uint64(st.Dev)
		f.rootIno = st.Ino
	}
	return f
}

// idFromStat derives the inode identity of a backing file. The device number is mixed into the inode
// number so files on different devices under the root never share an id; files on the root's device
// keep their host inode number.
func (f *FileSystem) idFromStat(st *unix.Stat_t) fs.StableAttr {
	swapped := (uint64(st.Dev) << 32) | (uint64(st.Dev) >> 32)
	swappedRootDev := (f.rootDev << 32) | (f.rootDev >> 32)
	return fs.StableAttr{
		Mode: uint32(st.Mode) & unix.S_IFMT,
		Ino:  (swapped ^ swappedRootDev) ^ st.Ino,
		Gen:  1,
	}
}

// RootStableAttr returns the identity of the root inode
func (f *FileSystem) RootStableAttr() *fs.StableAttr {
	return &fs.StableAttr{Mode: unix.S_IFDIR, Ino: f.rootIno, Gen: 1}
}

// Root returns the root inode
func (f *FileSystem) Root() fs.InodeEmbedder {
	return &Node{fsys: f}
}

// Dispatcher returns the dispatcher the tree forwards to
func (f *FileSystem) Dispatcher() *filesystem.Dispatcher {
	return f.dispatcher
}

// GetStats returns current filesystem statistics
func (f *FileSystem) GetStats() types.OperationStats {
	return f.dispatcher.Stats()
}

// Node is one inode of the mounted tree. It holds no state besides its position; every call goes to the
// dispatcher with the node's mount-relative path.
type Node struct {
	fs.Inode
	fsys *FileSystem
}

var (
	_ fs.NodeOnAdder       = (*Node)(nil)
	_ fs.NodeGetattrer     = (*Node)(nil)
	_ fs.NodeSetattrer     = (*Node)(nil)
	_ fs.NodeLookuper      = (*Node)(nil)
	_ fs.NodeReadlinker    = (*Node)(nil)
	_ fs.NodeMknoder       = (*Node)(nil)
	_ fs.NodeMkdirer       = (*Node)(nil)
	_ fs.NodeUnlinker      = (*Node)(nil)
	_ fs.NodeRmdirer       = (*Node)(nil)
	_ fs.NodeSymlinker     = (*Node)(nil)
	_ fs.NodeRenamer       = (*Node)(nil)
	_ fs.NodeLinker        = (*Node)(nil)
	_ fs.NodeOpener        = (*Node)(nil)
	_ fs.NodeCreater       = (*Node)(nil)
	_ fs.NodeReaddirer     = (*Node)(nil)
	_ fs.NodeStatfser      = (*Node)(nil)
	_ fs.NodeAccesser      = (*Node)(nil)
	_ fs.NodeGetxattrer    = (*Node)(nil)
	_ fs.NodeSetxattrer    = (*Node)(nil)
	_ fs.NodeListxattrer   = (*Node)(nil)
	_ fs.NodeRemovexattrer = (*Node)(nil)
)

func (n *Node) d() *filesystem.Dispatcher {
	return n.fsys.dispatcher
}

// path returns the mount-relative path of n, "/" for the root.
func (n *Node) path() string {
	return "/" + n.Path(n.Root())
}

func (n *Node) child(name string) string {
	p := n.path()
	if p == "/" {
		return p + name
	}
	return p + "/" + name
}

func errno(err error) syscall.Errno {
	return errors.ToErrno(err)
}

// OnAdd runs once for the root when the tree is attached to the kernel connection.
func (n *Node) OnAdd(ctx context.Context) {
	if n.IsRoot() {
		n.d().Init()
	}
}

// newChild looks up the attributes of path and attaches a child inode for them
func (n *Node) newChild(ctx context.Context, path string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	var st unix.Stat_t
	if err := n.d().Getattr(path, &st); err != nil {
		return nil, errno(err)
	}
	fillAttr(&out.Attr, &st)

	child := &Node{fsys: n.fsys}
	return n.NewInode(ctx, child, n.fsys.idFromStat(&st)), 0
}

func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	return n.newChild(ctx, n.child(name), out)
}

func (n *Node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	if fh, ok := f.(*FileHandle); ok {
		return fh.Getattr(ctx, out)
	}

	var st unix.Stat_t
	if err := n.d().Getattr(n.path(), &st); err != nil {
		return errno(err)
	}
	fillAttr(&out.Attr, &st)
	return 0
}

// Setattr applies mode, owner, size and times in that order, then reports the resulting attributes.
func (n *Node) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	p := n.path()
	d := n.d()

	if mode, ok := in.GetMode(); ok {
		if err := d.Chmod(p, mode); err != nil {
			return errno(err)
		}
	}

	uid, uok := in.GetUID()
	gid, gok := in.GetGID()
	if uok || gok {
		if !uok {
			uid = ^uint32(0)
		}
		if !gok {
			gid = ^uint32(0)
		}
		if err := d.Chown(p, uid, gid); err != nil {
			return errno(err)
		}
	}

	if size, ok := in.GetSize(); ok {
		var err error
		if fh, isFile := f.(*FileHandle); isFile {
			err = d.Ftruncate(fh.file, int64(size))
		} else {
			err = d.Truncate(p, int64(size))
		}
		if err != nil {
			return errno(err)
		}
	}

	atime, aok := in.GetATime()
	mtime, mok := in.GetMTime()
	if aok || mok {
		ts := []unix.Timespec{omitTime(), omitTime()}
		if aok {
			ts[0] = unix.NsecToTimespec(atime.UnixNano())
		}
		if mok {
			ts[1] = unix.NsecToTimespec(mtime.UnixNano())
		}
		if err := d.Utimens(p, ts); err != nil {
			return errno(err)
		}
	}

	return n.Getattr(ctx, f, out)
}

func omitTime() unix.Timespec {
	return unix.Timespec{Nsec: unix.UTIME_OMIT}
}

func (n *Node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	target, err := n.d().Readlink(n.path())
	if err != nil {
		return nil, errno(err)
	}
	return []byte(target), 0
}

func (n *Node) Mknod(ctx context.Context, name string, mode, dev uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	p := n.child(name)
	if err := n.d().Mknod(p, mode, uint64(dev)); err != nil {
		return nil, errno(err)
	}
	return n.newChild(ctx, p, out)
}

func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	p := n.child(name)
	if err := n.d().Mkdir(p, mode); err != nil {
		return nil, errno(err)
	}
	return n.newChild(ctx, p, out)
}

func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	return errno(n.d().Unlink(n.child(name)))
}

func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return errno(n.d().Rmdir(n.child(name)))
}

func (n *Node) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	p := n.child(name)
	if err := n.d().Symlink(target, p); err != nil {
		return nil, errno(err)
	}
	return n.newChild(ctx, p, out)
}

// Rename supports plain renames only; RENAME_EXCHANGE and RENAME_NOREPLACE yield ENOTSUP.
func (n *Node) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	if flags != 0 {
		return syscall.ENOTSUP
	}

	parent, ok := newParent.(*Node)
	if !ok {
		return syscall.EXDEV
	}
	return errno(n.d().Rename(n.child(name), parent.child(newName)))
}

func (n *Node) Link(ctx context.Context, target fs.InodeEmbedder, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	source, ok := target.(*Node)
	if !ok {
		return nil, syscall.EXDEV
	}

	p := n.child(name)
	if err := n.d().Link(source.path(), p); err != nil {
		return nil, errno(err)
	}
	return n.newChild(ctx, p, out)
}

func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	file, err := n.d().Open(n.path(), int(flags))
	if err != nil {
		return nil, 0, errno(err)
	}
	return &FileHandle{d: n.d(), file: file}, 0, 0
}

func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	p := n.child(name)
	file, err := n.d().Create(p, int(flags), mode)
	if err != nil {
		return nil, nil, 0, errno(err)
	}

	fh := &FileHandle{d: n.d(), file: file}
	var st unix.Stat_t
	if err := n.d().Fgetattr(p, file, &st); err != nil {
		_ = n.d().Release(file)
		return nil, nil, 0, errno(err)
	}
	fillAttr(&out.Attr, &st)

	child := n.NewInode(ctx, &Node{fsys: n.fsys}, n.fsys.idFromStat(&st))
	return child, fh, 0, 0
}

// Readdir drains one host directory stream and hands the kernel the entries in host order.
func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	d := n.d()
	dir, err := d.Opendir(n.path())
	if err != nil {
		return nil, errno(err)
	}
	defer func() { _ = d.Releasedir(dir) }()

	var entries []fuse.DirEntry
	err = d.Readdir(dir, func(e filesystem.DirEntry) bool {
		entries = append(entries, fuse.DirEntry{Name: e.Name, Ino: e.Ino, Mode: e.Mode})
		return true
	})
	if err != nil {
		return nil, errno(err)
	}
	return fs.NewListDirStream(entries), 0
}

func (n *Node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	var st unix.Statfs_t
	if err := n.d().Statfs(n.path(), &st); err != nil {
		return errno(err)
	}

	info := statfsFromHost(&st)
	out.Blocks = info.Blocks
	out.Bfree = info.Bfree
	out.Bavail = info.Bavail
	out.Files = info.Files
	out.Ffree = info.Ffree
	out.Bsize = uint32(info.Bsize)
	out.Frsize = uint32(info.Frsize)
	out.NameLen = uint32(info.Namemax)
	return 0
}

func (n *Node) Access(ctx context.Context, mask uint32) syscall.Errno {
	return errno(n.d().Access(n.path(), mask))
}

func (n *Node) Getxattr(ctx context.Context, attr string, dest []byte) (uint32, syscall.Errno) {
	size, err := n.d().GetxattrInto(n.path(), attr, dest)
	if err != nil {
		return 0, errno(err)
	}
	return uint32(size), 0
}

func (n *Node) Setxattr(ctx context.Context, attr string, data []byte, flags uint32) syscall.Errno {
	return errno(n.d().Setxattr(n.path(), attr, data, int(flags)))
}

func (n *Node) Listxattr(ctx context.Context, dest []byte) (uint32, syscall.Errno) {
	size, err := n.d().ListxattrInto(n.path(), dest)
	if err != nil {
		return 0, errno(err)
	}
	return uint32(size), 0
}

func (n *Node) Removexattr(ctx context.Context, attr string) syscall.Errno {
	return errno(n.d().Removexattr(n.path(), attr))
}

// fillAttr copies host attributes into the kernel reply
func fillAttr(out *fuse.Attr, st *unix.Stat_t) {
	atime, mtime, ctime := statTimes(st)

	out.Ino = st.Ino
	out.Size = safeInt64ToUint64(st.Size)
	out.Blocks = safeInt64ToUint64(int64(st.Blocks))
	out.Atime = safeInt64ToUint64(int64(atime.Sec))
	out.Atimensec = uint32(atime.Nsec)
	out.Mtime = safeInt64ToUint64(int64(mtime.Sec))
	out.Mtimensec = uint32(mtime.Nsec)
	out.Ctime = safeInt64ToUint64(int64(ctime.Sec))
	out.Ctimensec = uint32(ctime.Nsec)
	out.Mode = uint32(st.Mode)
	out.Nlink = uint32(st.Nlink)
	out.Owner = fuse.Owner{Uid: st.Uid, Gid: st.Gid}
	out.Rdev = uint32(st.Rdev)
	out.Blksize = safeIntToUint32(int(st.Blksize))
}
