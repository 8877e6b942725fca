package fuse

import "golang.org/x/sys/unix"

func statTimes(st *unix.Stat_t) (atime, mtime, ctime unix.Timespec) {
	return st.Atimespec, st.Mtimespec, st.Ctimespec
}
