package filesystem

import (
	"bytes"
	"time"

	"golang.org/x/sys/unix"
)

// Extended attribute calls never follow a final symlink.

// Setxattr sets attribute name on path. flags takes XATTR_CREATE or XATTR_REPLACE.
func (d *Dispatcher) Setxattr(path, name string, value []byte, flags int) error {
	start := time.Now()
	full, err := d.mount.Resolve(path)
	if err == nil {
		err = unix.Lsetxattr(full, name, value, flags)
	}
	return d.done("setxattr", path, start, int64(len(value)), err)
}

// GetxattrInto copies the value of attribute name into dest. An empty dest returns the value size;
// a dest too small yields ERANGE.
func (d *Dispatcher) GetxattrInto(path, name string, dest []byte) (int, error) {
	start := time.Now()
	full, err := d.mount.Resolve(path)
	if err != nil {
		return 0, d.done("getxattr", path, start, 0, err)
	}
	n, err := unix.Lgetxattr(full, name, dest)
	if err != nil {
		return 0, d.done("getxattr", path, start, 0, err)
	}
	return n, d.done("getxattr", path, start, int64(n), nil)
}

// Getxattr returns the value of attribute name.
func (d *Dispatcher) Getxattr(path, name string) ([]byte, error) {
	for {
		size, err := d.GetxattrInto(path, name, nil)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size)
		n, err := d.GetxattrInto(path, name, buf)
		if isERANGE(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return buf[:n], nil
	}
}

// ListxattrInto copies the NUL separated attribute names of path into dest, with the same size
// semantics as GetxattrInto.
func (d *Dispatcher) ListxattrInto(path string, dest []byte) (int, error) {
	start := time.Now()
	full, err := d.mount.Resolve(path)
	if err != nil {
		return 0, d.done("listxattr", path, start, 0, err)
	}
	n, err := unix.Llistxattr(full, dest)
	if err != nil {
		return 0, d.done("listxattr", path, start, 0, err)
	}
	return n, d.done("listxattr", path, start, int64(n), nil)
}

// Listxattr returns the attribute names of path.
func (d *Dispatcher) Listxattr(path string) ([]string, error) {
	for {
		size, err := d.ListxattrInto(path, nil)
		if err != nil {
			return nil, err
		}
		if size == 0 {
			return nil, nil
		}
		buf := make([]byte, size)
		n, err := d.ListxattrInto(path, buf)
		if isERANGE(err) {
			continue
		}
		if err != nil {
			return nil, err
		}

		var names []string
		for _, name := range bytes.Split(buf[:n], []byte{0}) {
			if len(name) > 0 {
				names = append(names, string(name))
			}
		}
		return names, nil
	}
}

// Removexattr removes attribute name from path.
func (d *Dispatcher) Removexattr(path, name string) error {
	start := time.Now()
	full, err := d.mount.Resolve(path)
	if err == nil {
		err = unix.Lremovexattr(full, name)
	}
	return d.done("removexattr", path, start, 0, err)
}
