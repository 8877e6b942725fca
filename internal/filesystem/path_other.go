//go:build !linux

package filesystem

// MAXPATHLEN on the BSDs and macOS.
const pathMax = 1024
