package filesystem

import (
	"sync/atomic"
	"time"

	"github.com/blokfs/blokfs/pkg/errors"
	"github.com/blokfs/blokfs/pkg/types"
	"github.com/blokfs/blokfs/pkg/utils"
	"golang.org/x/sys/unix"
)

// Dispatcher executes file system requests against the backing root. It keeps no per-path state and is
// safe for concurrent use.
type Dispatcher struct {
	mount   *MountContext
	metrics types.MetricsCollector

	lookups      atomic.Uint64
	reads        atomic.Uint64
	writes       atomic.Uint64
	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64
	openHandles  atomic.Int64
	errorCount   atomic.Uint64
	mountedAt    atomic.Int64
}

// NewDispatcher creates a dispatcher over mount. metrics may be nil.
func NewDispatcher(mount *MountContext, metrics types.MetricsCollector) *Dispatcher {
	return &Dispatcher{
		mount:   mount,
		metrics: metrics,
	}
}

// Mount returns the mount context the dispatcher serves.
func (d *Dispatcher) Mount() *MountContext {
	return d.mount
}

func (d *Dispatcher) diag() *utils.StructuredLogger {
	return d.mount.Log()
}

// Init is called once when the kernel connection is up.
func (d *Dispatcher) Init() *MountContext {
	d.mountedAt.Store(time.Now().UnixNano())
	d.diag().Info("init", utils.Fields{"root": d.mount.Root()})
	return d.mount
}

// Destroy is called once when the file system is unmounted.
func (d *Dispatcher) Destroy() {
	d.diag().Info("destroy", utils.Fields{
		"root":         d.mount.Root(),
		"open_handles": d.openHandles.Load(),
	})
}

// Stats returns a snapshot of the operation counters.
func (d *Dispatcher) Stats() types.OperationStats {
	stats := types.OperationStats{
		Lookups:      d.lookups.Load(),
		Reads:        d.reads.Load(),
		Writes:       d.writes.Load(),
		BytesRead:    d.bytesRead.Load(),
		BytesWritten: d.bytesWritten.Load(),
		OpenHandles:  d.openHandles.Load(),
		Errors:       d.errorCount.Load(),
	}
	if ns := d.mountedAt.Load(); ns != 0 {
		stats.MountedAt = time.Unix(0, ns)
	}
	return stats
}

// wrap turns a host failure into a structured error carrying op and path. Errors that are already
// structured pass through.
func wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*errors.Error); ok {
		return err
	}
	if errno, ok := errors.ErrnoOf(err); ok {
		return errors.FromErrno(op, path, errno)
	}
	e := errors.Wrap(errors.ErrCodeHostCall, err.Error(), err)
	e.Operation = op
	e.Path = path
	return e
}

// done applies wrap and records the call.
func (d *Dispatcher) done(op, path string, start time.Time, size int64, err error) error {
	err = wrap(op, path, err)
	if err != nil {
		d.errorCount.Add(1)
	}
	if d.metrics != nil {
		d.metrics.RecordOperation(op, time.Since(start), size, err == nil)
		if err != nil {
			d.metrics.RecordError(op, err)
		}
	}
	return err
}

func isERANGE(err error) bool {
	errno, ok := errors.ErrnoOf(err)
	return ok && errno == unix.ERANGE
}
