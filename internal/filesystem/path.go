package filesystem

import (
	"github.com/blokfs/blokfs/pkg/errors"
	"golang.org/x/sys/unix"
)

// Resolve maps a mount-relative path onto root by literal concatenation. It does not clean the result or
// check that it exists.
func Resolve(root, relativePath string) string {
	return root + relativePath
}

// Resolve returns the backing path for relativePath. The result plus its terminating NUL must fit in
// pathMax bytes.
func (m *MountContext) Resolve(relativePath string) (string, error) {
	full := Resolve(m.root, relativePath)
	if len(full) >= pathMax {
		return "", errors.FromErrno("resolve", relativePath, unix.ENAMETOOLONG).
			WithDetail("length", len(full))
	}
	return full, nil
}
