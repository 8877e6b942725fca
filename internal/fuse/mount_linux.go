package fuse

import (
	"bufio"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// isAlreadyMounted checks /proc/mounts for mountPoint
func isAlreadyMounted(mountPoint string) bool {
	file, err := os.Open("/proc/mounts")
	if err != nil {
		return false
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		if unescapeMountField(fields[1]) == mountPoint {
			return true
		}
	}
	return false
}

// unescapeMountField decodes the octal escapes the kernel writes for whitespace in /proc/mounts
func unescapeMountField(s string) string {
	return strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`).Replace(s)
}

// forceUnmount tries a lazy detach, then a forced unmount
func forceUnmount(mountPoint string) error {
	if err := unix.Unmount(mountPoint, unix.MNT_DETACH); err == nil {
		return nil
	}
	return unix.Unmount(mountPoint, unix.MNT_FORCE)
}
