/*
Package filesystem implements the blokfs passthrough core: a path resolver and an operation dispatcher that
maps every file system request onto the same request against a backing root directory.

# Mount context

A MountContext is built once at startup from the backing root and the diagnostic log. It never changes
afterwards and is handed to the Dispatcher explicitly:

	mount, err := filesystem.NewMountContext(rootDir, diagLog)
	if err != nil {
		return err
	}
	dispatcher := filesystem.NewDispatcher(mount, collector)

# Paths

Request paths are mount-relative and start with "/". Resolve concatenates them onto the root literally;
MountContext.Resolve does the same but rejects results that would not fit in the platform path limit with
ENAMETOOLONG.

# Handles

Open and Create return a *File and Opendir returns a *Dir. Each is released exactly once by Release or
Releasedir. Bindings that can only thread a uint64 through the kernel store them in a HandleTable, which
tags every entry with its HandleKind so a file is never used as a directory stream or the reverse.

# Errors

Every Dispatcher method returns nil or a *errors.Error that carries the host errno unchanged. The FUSE
bindings convert it with errors.Status or errors.ToErrno; nothing in this package produces wire codes.
*/
package filesystem
