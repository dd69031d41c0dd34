package applog

import (
	"sync/atomic"
	"time"
)

// State holds the runtime counters of a logger
type State struct {
	IsInitialized atomic.Bool
	StartTime     atomic.Value // stores time.Time of the first successful Init

	CurrentSize atomic.Int64 // Size of the active file after the last write

	TotalLogsWritten atomic.Uint64 // Records appended to a file
	DroppedLogs      atomic.Uint64 // Records at or above level that could not be persisted
	TotalRotations   atomic.Uint64 // Successful size rotations
	TotalDeletions   atomic.Uint64 // Files removed by retention cleanup
	InternalErrors   atomic.Uint64 // Diagnostics sent to the fallback sink
}

// Stats is a point-in-time snapshot of logger activity
type Stats struct {
	RecordsWritten uint64
	RecordsDropped uint64
	Rotations      uint64
	Deletions      uint64
	InternalErrors uint64
	CurrentSize    int64
	ActiveFile     string
	Uptime         time.Duration
}

// Stats returns the current counters
func (l *Logger) Stats() Stats {
	s := Stats{
		RecordsWritten: l.state.TotalLogsWritten.Load(),
		RecordsDropped: l.state.DroppedLogs.Load(),
		Rotations:      l.state.TotalRotations.Load(),
		Deletions:      l.state.TotalDeletions.Load(),
		InternalErrors: l.state.InternalErrors.Load(),
		CurrentSize:    l.state.CurrentSize.Load(),
	}
	if name, ok := l.activeName.Load().(string); ok {
		s.ActiveFile = name
	}
	if start, ok := l.state.StartTime.Load().(time.Time); ok && !start.IsZero() {
		s.Uptime = time.Since(start)
	}
	return s
}
