package config

import "time"

// UI Server Configuration
const (
	LogChannelBufferSize    = 100
	ResultChannelBufferSize = 1
	DefaultServerPort       = 3000
	SSEHeartbeatInterval    = 30 * time.Second
	ClientChannelBufferSize = 10
)

// Network Diagnostics Configuration
const (
	DefaultPingCount         = 10
	DefaultPingTimeout       = 2 * time.Second
	PingDelayBetweenTests    = 200 * time.Millisecond
	DefaultTracerouteMaxHops = 15
)

// WebDAV Configuration
const (
	DefaultChunkSize      = 25 * 1024 * 1024 // 25MiB
	DefaultChunkThreshold = 50 * 1024 * 1024 // 50MiB
	DefaultHTTPTimeout    = 30 * time.Second
	MOVEOperationTimeout  = 10 * time.Minute
	DefaultUserAgent      = "Mozilla/5.0 (Linux) mirall/3.15.3 (Nextcloud Stress Harness)"
)

// Stress Harness Configuration
const (
	DefaultStressFolder = "performance"
	DefaultStressFiles  = 100
	DefaultMaxUploads   = 8
	DefaultMaxDeletes   = 8
	DefaultFileSize     = 100 * 1024 // 100KiB
	DefaultWaveTimeout  = 5 * time.Minute

	DefaultSizesFolder = "selenium-system/TestWebDavPerformance_file_sizes"
	DefaultSizesFiles  = 1

	DefaultTrashFolder     = "trash"
	DefaultTrashMaxDeletes = 13
	DefaultCleanMaxDeletes = 8
)

// DefaultCleanExcludes are the root folders whose contents are emptied
// instead of the folder itself being removed.
var DefaultCleanExcludes = []string{"selenium-system/", "selenium-personal/", "projectbucket/"}

// DefaultFileSizes is the upload size matrix used by the sizes command.
var DefaultFileSizes = []string{"100MB", "200MB", "400MB"}

// System Monitoring
const (
	CPUMonitorInterval = 1 * time.Second
)

// Validation Limits
const (
	MaxUsernameLength = 255
	MaxPasswordLength = 1024
	MaxWaveSize       = 10000
)
