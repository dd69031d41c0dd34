package applog

// Log level constants
const (
	LevelDebug int64 = -4
	LevelInfo  int64 = 0
	LevelWarn  int64 = 4
	LevelError int64 = 8
	LevelFatal int64 = 12
)

// Storage
const (
	// Default rotation threshold, 5 MiB
	defaultMaxSizeBytes int64 = 5 * 1024 * 1024
	// Default number of log files kept in the directory, active file included
	defaultMaxFiles int64 = 5
	// Permission bits for created directories and files
	dirPerm  = 0755
	filePerm = 0644
)

// Naming
const (
	// Date layout of the active daily file
	dailyLayout = "2006-01-02"
	// Timestamp layout of rotated files, second granularity
	rotatedLayout = "2006-01-02_15-04-05"
	// ISO-8601 with milliseconds, matches JavaScript toISOString for UTC
	defaultTimestampFormat = "2006-01-02T15:04:05.000Z07:00"
	// Prefix for logger self-diagnostics and returned errors
	errorPrefix = "applog: "
)
