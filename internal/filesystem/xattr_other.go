//go:build !linux

package filesystem

import (
	"time"

	"golang.org/x/sys/unix"
)

// Extended attributes are only passed through on Linux.

func (d *Dispatcher) Setxattr(path, name string, value []byte, flags int) error {
	return d.done("setxattr", path, time.Now(), 0, unix.ENOTSUP)
}

func (d *Dispatcher) GetxattrInto(path, name string, dest []byte) (int, error) {
	return 0, d.done("getxattr", path, time.Now(), 0, unix.ENOTSUP)
}

func (d *Dispatcher) Getxattr(path, name string) ([]byte, error) {
	return nil, d.done("getxattr", path, time.Now(), 0, unix.ENOTSUP)
}

func (d *Dispatcher) ListxattrInto(path string, dest []byte) (int, error) {
	return 0, d.done("listxattr", path, time.Now(), 0, unix.ENOTSUP)
}

func (d *Dispatcher) Listxattr(path string) ([]string, error) {
	return nil, d.done("listxattr", path, time.Now(), 0, unix.ENOTSUP)
}

func (d *Dispatcher) Removexattr(path, name string) error {
	return d.done("removexattr", path, time.Now(), 0, unix.ENOTSUP)
}
