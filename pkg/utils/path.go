package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RealPath returns the absolute, symlink-free form of path. The path must exist.
//
// Example usage:
//
//	root, err := RealPath(args[0])
//	if err != nil {
//		return fmt.Errorf("invalid root directory: %w", err)
//	}
func RealPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	return filepath.EvalSymlinks(abs)
}

// IsWithinBase reports whether path equals base or lies beneath it. Both are cleaned first; neither is
// required to exist.
//
// Example usage:
//
//	if IsWithinBase(rootDir, mountPoint) {
//		return fmt.Errorf("mount point %s is inside the root directory", mountPoint)
//	}
func IsWithinBase(base, path string) bool {
	if base == "" || path == "" {
		return false
	}

	cleanBase := filepath.Clean(base)
	cleanPath := filepath.Clean(path)

	if cleanPath == cleanBase {
		return true
	}
	if cleanBase == string(filepath.Separator) {
		return filepath.IsAbs(cleanPath)
	}
	return strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator))
}
