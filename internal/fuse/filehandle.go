package fuse

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"

	"github.com/blokfs/blokfs/internal/filesystem"
)

// FileHandle is an open file of the go-fuse tree
type FileHandle struct {
	d    *filesystem.Dispatcher
	file *filesystem.File
}

var (
	_ fs.FileReader    = (*FileHandle)(nil)
	_ fs.FileWriter    = (*FileHandle)(nil)
	_ fs.FileFlusher   = (*FileHandle)(nil)
	_ fs.FileReleaser  = (*FileHandle)(nil)
	_ fs.FileFsyncer   = (*FileHandle)(nil)
	_ fs.FileGetattrer = (*FileHandle)(nil)
)

// fsyncDataOnly is FUSE_FSYNC_FDATASYNC in the fsync request flags
const fsyncDataOnly = 1

func (fh *FileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n, err := fh.d.Read(fh.file, dest, off)
	if err != nil {
		return nil, errno(err)
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (fh *FileHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	n, err := fh.d.Write(fh.file, data, off)
	if err != nil {
		return 0, errno(err)
	}
	return uint32(n), 0
}

func (fh *FileHandle) Flush(ctx context.Context) syscall.Errno {
	return errno(fh.d.Flush(fh.file))
}

func (fh *FileHandle) Release(ctx context.Context) syscall.Errno {
	return errno(fh.d.Release(fh.file))
}

func (fh *FileHandle) Fsync(ctx context.Context, flags uint32) syscall.Errno {
	return errno(fh.d.Fsync(fh.file, flags&fsyncDataOnly != 0))
}

func (fh *FileHandle) Getattr(ctx context.Context, out *fuse.AttrOut) syscall.Errno {
	var st unix.Stat_t
	if err := fh.d.Fgetattr(fh.file.Path(), fh.file, &st); err != nil {
		return errno(err)
	}
	fillAttr(&out.Attr, &st)
	return 0
}
