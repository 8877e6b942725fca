package fuse

import "golang.org/x/sys/unix"

// statfsInfo is the subset of statfs both bindings report
type statfsInfo struct {
	Bsize   uint64
	Frsize  uint64
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Files   uint64
	Ffree   uint64
	Namemax uint64
}

func statfsFromHost(st *unix.Statfs_t) statfsInfo {
	return statfsInfo{
		Bsize:   safeInt64ToUint64(int64(st.Bsize)),
		Frsize:  safeInt64ToUint64(int64(st.Frsize)),
		Blocks:  st.Blocks,
		Bfree:   st.Bfree,
		Bavail:  st.Bavail,
		Files:   st.Files,
		Ffree:   st.Ffree,
		Namemax: safeInt64ToUint64(int64(st.Namelen)),
	}
}
