package fuse

import (
	"context"

	"github.com/blokfs/blokfs/pkg/types"
)

// PlatformFileSystem is a mounted binding of the dispatcher
type PlatformFileSystem interface {
	Mount(ctx context.Context) error
	Unmount() error
	IsMounted() bool
	Wait()
	GetStats() types.OperationStats
}

var _ PlatformFileSystem = (*MountManager)(nil)
