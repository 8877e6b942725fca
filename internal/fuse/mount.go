package fuse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/blokfs/blokfs/pkg/errors"
	"github.com/blokfs/blokfs/pkg/types"
	"github.com/blokfs/blokfs/pkg/utils"
)

// MountConfig contains mount-specific configuration
type MountConfig struct {
	MountPoint string
	Options    *MountOptions
}

// MountOptions contains FUSE mount options
type MountOptions struct {
	// Basic options
	ReadOnly     bool
	AllowOther   bool
	AllowRoot    bool
	DefaultPerms bool

	MaxWrite uint32

	// Advanced options
	Debug        bool
	FSName       string
	Subtype      string
	AttrTimeout  time.Duration
	EntryTimeout time.Duration

	// Extra holds raw -o options passed through to the kernel
	Extra []string
}

// DefaultMountOptions returns options for an uncached passthrough mount
func DefaultMountOptions() *MountOptions {
	return &MountOptions{
		MaxWrite: 128 * 1024,
		FSName:   "blokfs",
		Subtype:  "blokfs",
	}
}

// MountManager manages FUSE mount operations
type MountManager struct {
	mu         sync.Mutex
	filesystem *FileSystem
	server     *fuse.Server
	config     *MountConfig
	log        *utils.StructuredLogger
	mounted    bool
	done       chan struct{}
}

// NewMountManager creates a new mount manager
func NewMountManager(filesystem *FileSystem, config *MountConfig, log *utils.StructuredLogger) *MountManager {
	if config == nil {
		config = &MountConfig{}
	}
	if config.Options == nil {
		config.Options = DefaultMountOptions()
	}
	if log == nil {
		log = utils.Discard()
	}

	return &MountManager{
		filesystem: filesystem,
		config:     config,
		log:        log.WithComponent("mount"),
	}
}

// Mount mounts the filesystem and returns once the kernel accepts requests. Cancelling ctx unmounts.
func (m *MountManager) Mount(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mounted {
		return errors.NewError(errors.ErrCodeMountFailed, "filesystem is already mounted").
			WithContext("mount_point", m.config.MountPoint)
	}

	if err := m.validateMountPoint(); err != nil {
		return errors.Wrap(errors.ErrCodeMountFailed, "invalid mount point", err).
			WithContext("mount_point", m.config.MountPoint)
	}

	server, err := fs.Mount(m.config.MountPoint, m.filesystem.Root(), m.buildFUSEOptions())
	if err != nil {
		return errors.Wrap(errors.ErrCodeMountFailed, "failed to mount filesystem", err).
			WithContext("mount_point", m.config.MountPoint)
	}

	done := make(chan struct{})
	m.server = server
	m.mounted = true
	m.done = done

	m.log.Info("filesystem mounted", utils.Fields{
		"mount_point": m.config.MountPoint,
		"root":        m.filesystem.Dispatcher().Mount().Root(),
	})

	go func() {
		server.Wait()
		m.filesystem.Dispatcher().Destroy()

		m.mu.Lock()
		m.mounted = false
		m.server = nil
		m.mu.Unlock()

		m.log.Info("FUSE server stopped", utils.Fields{"mount_point": m.config.MountPoint})
		close(done)
	}()

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

// Unmount unmounts the filesystem, falling back to a lazy then forced unmount when the mount is busy
func (m *MountManager) Unmount() error {
	m.mu.Lock()
	server := m.server
	mounted := m.mounted
	m.mu.Unlock()

	if !mounted || server == nil {
		return errors.NewError(errors.ErrCodeUnmountFailed, "filesystem is not mounted").
			WithContext("mount_point", m.config.MountPoint)
	}

	m.log.Info("unmounting filesystem", utils.Fields{"mount_point": m.config.MountPoint})

	if err := server.Unmount(); err != nil {
		m.log.Warn("normal unmount failed, trying forced unmount", utils.Fields{"error": err.Error()})
		if forceErr := forceUnmount(m.config.MountPoint); forceErr != nil {
			return errors.Wrap(errors.ErrCodeUnmountFailed,
				fmt.Sprintf("unmount failed: %v", err), forceErr).
				WithContext("mount_point", m.config.MountPoint)
		}
	}

	return nil
}

// IsMounted reports whether the filesystem is currently mounted
func (m *MountManager) IsMounted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mounted
}

// GetMountPoint returns the current mount point
func (m *MountManager) GetMountPoint() string {
	return m.config.MountPoint
}

// Wait blocks until the filesystem is unmounted
func (m *MountManager) Wait() {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	if done != nil {
		<-done
	}
}

// GetStats returns filesystem statistics
func (m *MountManager) GetStats() types.OperationStats {
	if m.filesystem == nil {
		return types.OperationStats{}
	}
	return m.filesystem.GetStats()
}

// Helper methods

func (m *MountManager) validateMountPoint() error {
	return validateMountPoint(m.config.MountPoint, m.log)
}

func validateMountPoint(mountPoint string, log *utils.StructuredLogger) error {
	if mountPoint == "" {
		return fmt.Errorf("mount point cannot be empty")
	}

	info, err := os.Stat(mountPoint)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("mount point does not exist: %s", mountPoint)
		}
		return fmt.Errorf("cannot access mount point: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("mount point is not a directory: %s", mountPoint)
	}

	entries, err := os.ReadDir(mountPoint)
	if err != nil {
		return fmt.Errorf("cannot read mount point directory: %w", err)
	}
	if len(entries) > 0 {
		log.Warn("mount point is not empty", utils.Fields{"mount_point": mountPoint})
	}

	if isAlreadyMounted(filepath.Clean(mountPoint)) {
		return fmt.Errorf("mount point %s is already mounted", mountPoint)
	}

	return nil
}

func (m *MountManager) buildFUSEOptions() *fs.Options {
	o := m.config.Options
	attrTimeout := o.AttrTimeout
	entryTimeout := o.EntryTimeout

	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			Name:        o.Subtype,
			FsName:      o.FSName,
			DirectMount: true,
			Debug:       o.Debug,
			AllowOther:  o.AllowOther,
			MaxWrite:    int(o.MaxWrite),
		},

		AttrTimeout:  &attrTimeout,
		EntryTimeout: &entryTimeout,

		NullPermissions: !o.DefaultPerms,
	}
	if m.filesystem != nil {
		opts.RootStableAttr = m.filesystem.RootStableAttr()
	}

	opts.Options = append(opts.Options, mountOptionStrings(o)...)
	return opts
}

// mountOptionStrings returns the -o options that fuse.MountOptions has no field for
func mountOptionStrings(o *MountOptions) []string {
	var options []string

	if o.ReadOnly {
		options = append(options, "ro")
	}
	if o.AllowRoot {
		options = append(options, "allow_root")
	}
	if o.DefaultPerms {
		options = append(options, "default_permissions")
	}
	options = append(options, o.Extra...)

	return options
}
