package fuse

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/blokfs/blokfs/internal/filesystem"
)

func newDispatcher(t *testing.T) (*filesystem.Dispatcher, string) {
	t.Helper()
	mount, err := filesystem.NewMountContext(t.TempDir(), nil)
	require.NoError(t, err)
	return filesystem.NewDispatcher(mount, nil), mount.Root()
}

func TestSafeConversions(t *testing.T) {
	assert.Equal(t, uint64(0), safeInt64ToUint64(-1))
	assert.Equal(t, uint64(42), safeInt64ToUint64(42))
	assert.Equal(t, uint32(0), safeIntToUint32(-5))
	assert.Equal(t, uint32(4096), safeIntToUint32(4096))
	assert.Equal(t, uint32(0xFFFFFFFF), safeIntToUint32(1<<40))
}

func TestFillAttr(t *testing.T) {
	d, root := newDispatcher(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "f"), []byte("hello"), 0640))

	var st unix.Stat_t
	require.NoError(t, d.Getattr("/f", &st))

	var attr fuse.Attr
	fillAttr(&attr, &st)

	assert.Equal(t, st.Ino, attr.Ino)
	assert.Equal(t, uint64(5), attr.Size)
	assert.Equal(t, uint32(unix.S_IFREG|0640), attr.Mode)
	assert.Equal(t, uint32(1), attr.Nlink)
	assert.Equal(t, st.Uid, attr.Uid)
	assert.Equal(t, st.Gid, attr.Gid)
	assert.NotZero(t, attr.Mtime)
}

func TestStatfsFromHost(t *testing.T) {
	d, _ := newDispatcher(t)

	var st unix.Statfs_t
	require.NoError(t, d.Statfs("/", &st))

	info := statfsFromHost(&st)
	assert.NotZero(t, info.Bsize)
	assert.NotZero(t, info.Blocks)
	assert.GreaterOrEqual(t, info.Blocks, info.Bfree)
	assert.NotZero(t, info.Namemax)
}

func TestFileHandle(t *testing.T) {
	ctx := context.Background()
	d, root := newDispatcher(t)

	file, err := d.Create("/data", os.O_RDWR, 0644)
	require.NoError(t, err)
	fh := &FileHandle{d: d, file: file}

	n, errno := fh.Write(ctx, []byte("blokfs"), 0)
	require.Equal(t, syscall.Errno(0), errno)
	assert.Equal(t, uint32(6), n)

	buf := make([]byte, 16)
	res, errno := fh.Read(ctx, buf, 2)
	require.Equal(t, syscall.Errno(0), errno)
	data, status := res.Bytes(nil)
	require.True(t, status.Ok())
	assert.Equal(t, "okfs", string(data))

	var out fuse.AttrOut
	require.Equal(t, syscall.Errno(0), fh.Getattr(ctx, &out))
	assert.Equal(t, uint64(6), out.Size)

	assert.Equal(t, syscall.Errno(0), fh.Flush(ctx))
	assert.Equal(t, syscall.Errno(0), fh.Fsync(ctx, 0))
	assert.Equal(t, syscall.Errno(0), fh.Fsync(ctx, fsyncDataOnly))
	assert.Equal(t, syscall.Errno(0), fh.Release(ctx))
	assert.Equal(t, syscall.EBADF, fh.Release(ctx))

	_, errno = fh.Read(ctx, buf, 0)
	assert.Equal(t, syscall.EBADF, errno)

	content, err := os.ReadFile(filepath.Join(root, "data"))
	require.NoError(t, err)
	assert.Equal(t, "blokfs", string(content))
}

func TestFileSystemStats(t *testing.T) {
	d, root := newDispatcher(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "f"), nil, 0644))

	fsys := NewFileSystem(d)
	assert.Same(t, d, fsys.Dispatcher())
	assert.NotNil(t, fsys.Root())

	var st unix.Stat_t
	require.NoError(t, d.Getattr("/f", &st))
	assert.Equal(t, uint64(1), fsys.GetStats().Lookups)
}

func TestErrnoConversion(t *testing.T) {
	d, _ := newDispatcher(t)

	var st unix.Stat_t
	err := d.Getattr("/missing", &st)
	assert.Equal(t, syscall.ENOENT, errno(err))
	assert.Equal(t, syscall.Errno(0), errno(nil))
}

func TestOmitTime(t *testing.T) {
	ts := omitTime()
	assert.Equal(t, int64(unix.UTIME_OMIT), int64(ts.Nsec))
}
