// Package constants provides shared constants used throughout retailsync.
// This includes pipeline defaults, limits, file permissions and formats that
// should be consistent across the library and the CLI.
package constants

import "time"

// Pipeline defaults
const (
	// DefaultSimilarityThreshold is the minimum similarity for a candidate link
	DefaultSimilarityThreshold = 0.85

	// DefaultDuplicatePolicy aggregates duplicate observations by summing them;
	// retail quantities are additive
	DefaultDuplicatePolicy = "sum"

	// DefaultGranularity is the default period bucket size
	DefaultGranularity = "month"

	// DefaultBlocking is the default blocking strategy for the matcher
	DefaultBlocking = "length"

	// DefaultResolvePolicy allows at most one member per source in an entity
	DefaultResolvePolicy = "one_to_one"

	// ImputedValue is the value written for periods with no observation
	ImputedValue = 0.0
)

// Limit constants
const (
	// MaxWorkers caps the worker pool size regardless of configuration
	MaxWorkers = 256

	// MaxLabelLength is the maximum accepted rune length of an entity label
	MaxLabelLength = 512

	// MaxSeriesPeriods bounds the gap-filled range of a single entity
	MaxSeriesPeriods = 100000

	// MemberSeparator joins a source name and a source id into a member id
	MemberSeparator = ":"
)

// Timeout constants
const (
	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 10 * time.Minute

	// ShutdownTimeout is how long the CLI waits for cleanup after an error
	ShutdownTimeout = 5 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Format constants
const (
	// DateLayout is the canonical layout for day periods
	DateLayout = "2006-01-02"

	// MonthLayout is the canonical layout for month periods
	MonthLayout = "2006-01"

	// CompactMonthLayout is the Census MARTS "YYYYMM" layout
	CompactMonthLayout = "200601"

	// TimeFormatFilename is the format used in generated filenames
	TimeFormatFilename = "20060102-150405"
)

// Environment and config file names
const (
	// EnvPrefix is the prefix for configuration environment variables
	EnvPrefix = "RETAILSYNC"

	// ConfigName is the config file base name searched in $HOME and "."
	ConfigName = ".retailsync"
)
