//go:build !linux

package fuse

import "golang.org/x/sys/unix"

// isAlreadyMounted has no cheap mount table to consult here; the kernel rejects a double mount itself
func isAlreadyMounted(mountPoint string) bool {
	return false
}

func forceUnmount(mountPoint string) error {
	return unix.Unmount(mountPoint, unix.MNT_FORCE)
}
