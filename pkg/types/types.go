package types

import (
	"time"
)

// OperationStats is a point-in-time copy of the dispatcher counters
type OperationStats struct {
	Lookups      uint64    `json:"lookups"`
	Reads        uint64    `json:"reads"`
	Writes       uint64    `json:"writes"`
	BytesRead    uint64    `json:"bytes_read"`
	BytesWritten uint64    `json:"bytes_written"`
	OpenHandles  int64     `json:"open_handles"`
	Errors       uint64    `json:"errors"`
	MountedAt    time.Time `json:"mounted_at"`
}

// Uptime returns how long the filesystem has been mounted as of now
func (s OperationStats) Uptime(now time.Time) time.Duration {
	if s.MountedAt.IsZero() {
		return 0
	}
	return now.Sub(s.MountedAt)
}
