//go:build !cgofuse
// +build !cgofuse

package fuse

import (
	"github.com/blokfs/blokfs/internal/filesystem"
	"github.com/blokfs/blokfs/pkg/utils"
)

// CreatePlatformMountManager creates the appropriate mount manager for the platform
func CreatePlatformMountManager(d *filesystem.Dispatcher, config *MountConfig, log *utils.StructuredLogger) PlatformFileSystem {
	return NewMountManager(NewFileSystem(d), config, log)
}
