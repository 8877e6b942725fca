/*
Package fuse binds the blokfs dispatcher to the kernel.

Two bindings are available through build constraints:

	┌─────────────────────────────────────────────┐
	│              User Applications              │
	└─────────────────────────────────────────────┘
	                      │
	┌─────────────────────────────────────────────┐
	│        Kernel VFS + FUSE driver             │
	└─────────────────────────────────────────────┘
	                      │
	┌─────────────────────────────────────────────┐
	│  go-fuse node tree   │  cgofuse path API    │  ← This Package
	│  (default)           │  (-tags cgofuse)     │
	└─────────────────────────────────────────────┘
	                      │
	┌─────────────────────────────────────────────┐
	│     filesystem.Dispatcher → backing root    │
	└─────────────────────────────────────────────┘

The go-fuse binding keeps one Node per kernel inode and forwards each call with the node's
mount-relative path. Open files are FileHandle values owned by go-fuse. The cgofuse binding is
path based and keeps open files and directories in a filesystem.HandleTable.

Both bindings mount with zero attribute and entry timeouts, so every lookup reaches the backing
directory. Failures cross the boundary as negated errno values.

# Usage

	d := filesystem.NewDispatcher(mountCtx, collector)
	mgr := fuse.CreatePlatformMountManager(d, &fuse.MountConfig{
		MountPoint: "/mnt/blokfs",
		Options:    fuse.DefaultMountOptions(),
	}, log)
	if err := mgr.Mount(ctx); err != nil {
		return err
	}
	mgr.Wait()
*/
package fuse
