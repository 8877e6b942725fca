package types

import (
	"time"
)

// MetricsCollector defines the metrics collection interface
type MetricsCollector interface {
	RecordOperation(operation string, duration time.Duration, size int64, success bool)
	RecordError(operation string, err error)
	GetMetrics() map[string]interface{}
}

// StatsProvider exposes the running operation counters of a mounted filesystem.
type StatsProvider interface {
	Stats() OperationStats
}
