//go:build cgofuse
// +build cgofuse

package fuse

import (
	"context"
	"sync"

	cgofuse "github.com/winfsp/cgofuse/fuse"

	"github.com/blokfs/blokfs/internal/filesystem"
	"github.com/blokfs/blokfs/pkg/errors"
	"github.com/blokfs/blokfs/pkg/types"
	"github.com/blokfs/blokfs/pkg/utils"
)

// CgoFuseMountManager manages cgofuse-based mounts
type CgoFuseMountManager struct {
	mu         sync.Mutex
	filesystem *CgoFuseFS
	host       *cgofuse.FileSystemHost
	config     *MountConfig
	log        *utils.StructuredLogger
	mounted    bool
	done       chan struct{}
}

// NewCgoFuseMountManager creates a new cgofuse mount manager
func NewCgoFuseMountManager(d *filesystem.Dispatcher, config *MountConfig, log *utils.StructuredLogger) *CgoFuseMountManager {
	if config == nil {
		config = &MountConfig{}
	}
	if config.Options == nil {
		config.Options = DefaultMountOptions()
	}
	if log == nil {
		log = utils.Discard()
	}

	return &CgoFuseMountManager{
		filesystem: NewCgoFuseFS(d),
		config:     config,
		log:        log.WithComponent("mount"),
	}
}

// Mount starts the host loop and returns once Init has run. Cancelling ctx unmounts.
func (m *CgoFuseMountManager) Mount(ctx context.Context) error {
	m.mu.Lock()
	if m.mounted {
		m.mu.Unlock()
		return errors.NewError(errors.ErrCodeMountFailed, "filesystem is already mounted").
			WithContext("mount_point", m.config.MountPoint)
	}

	if err := validateMountPoint(m.config.MountPoint, m.log); err != nil {
		m.mu.Unlock()
		return errors.Wrap(errors.ErrCodeMountFailed, "invalid mount point", err).
			WithContext("mount_point", m.config.MountPoint)
	}

	host := cgofuse.NewFileSystemHost(m.filesystem)
	done := make(chan struct{})
	m.host = host
	m.done = done
	m.mu.Unlock()

	args := cgofuseArgs(m.config.Options)
	go func() {
		if !host.Mount(m.config.MountPoint, args) {
			m.log.Error("cgofuse mount returned failure", utils.Fields{"mount_point": m.config.MountPoint})
		}
		m.mu.Lock()
		m.mounted = false
		m.mu.Unlock()
		close(done)
	}()

	select {
	case <-m.filesystem.ready:
	case <-done:
		return errors.NewError(errors.ErrCodeMountFailed, "failed to mount filesystem").
			WithContext("mount_point", m.config.MountPoint)
	}

	m.mu.Lock()
	m.mounted = true
	m.mu.Unlock()

	m.log.Info("filesystem mounted", utils.Fields{
		"mount_point": m.config.MountPoint,
		"root":        m.filesystem.d.Mount().Root(),
		"binding":     "cgofuse",
	})

	go func() {
		select {
		case <-ctx.Done():
			if err := m.Unmount(); err != nil {
				m.log.Error("unmount on shutdown failed", utils.Fields{"error": err.Error()})
			}
		case <-done:
		}
	}()

	return nil
}

// Unmount unmounts the filesystem
func (m *CgoFuseMountManager) Unmount() error {
	m.mu.Lock()
	host := m.host
	mounted := m.mounted
	m.mu.Unlock()

	if !mounted || host == nil {
		return errors.NewError(errors.ErrCodeUnmountFailed, "filesystem is not mounted").
			WithContext("mount_point", m.config.MountPoint)
	}

	m.log.Info("unmounting filesystem", utils.Fields{"mount_point": m.config.MountPoint})
	if !host.Unmount() {
		if err := forceUnmount(m.config.MountPoint); err != nil {
			return errors.Wrap(errors.ErrCodeUnmountFailed, "unmount failed", err).
				WithContext("mount_point", m.config.MountPoint)
		}
	}
	return nil
}

// IsMounted returns whether the filesystem is mounted
func (m *CgoFuseMountManager) IsMounted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mounted
}

// Wait blocks until the host loop exits
func (m *CgoFuseMountManager) Wait() {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	if done != nil {
		<-done
	}
}

// GetStats returns filesystem statistics
func (m *CgoFuseMountManager) GetStats() types.OperationStats {
	return m.filesystem.GetStats()
}

// cgofuseArgs renders options as libfuse command line arguments
func cgofuseArgs(o *MountOptions) []string {
	args := []string{
		"-o", "fsname=" + o.FSName,
		"-o", "subtype=" + o.Subtype,
		"-o", "attr_timeout=0",
		"-o", "entry_timeout=0",
		"-o", "negative_timeout=0",
	}
	if o.AllowOther {
		args = append(args, "-o", "allow_other")
	}
	if o.Debug {
		args = append(args, "-d")
	}
	for _, opt := range mountOptionStrings(o) {
		args = append(args, "-o", opt)
	}
	return args
}
