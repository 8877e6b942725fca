package filesystem

import "golang.org/x/sys/unix"

const pathMax = unix.PathMax
