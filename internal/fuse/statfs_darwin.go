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

// darwin has no fragment size or name length in statfs; the block size and the HFS+/APFS limit stand in.
func statfsFromHost(st *unix.Statfs_t) statfsInfo {
	return statfsInfo{
		Bsize:   uint64(st.Bsize),
		Frsize:  uint64(st.Bsize),
		Blocks:  st.Blocks,
		Bfree:   st.Bfree,
		Bavail:  st.Bavail,
		Files:   st.Files,
		Ffree:   st.Ffree,
		Namemax: 255,
	}
}
