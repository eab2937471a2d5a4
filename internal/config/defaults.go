package config

import "time"

const (
	defaultCatalog     = "expected.yaml"
	defaultEnvironment = "test"
	defaultLogLevel    = "info"
	defaultLogFormat   = "text"
	defaultRegion      = "us-east-1"
	defaultJobName     = "manual"
)

// DefaultConfig returns a Config populated with all default values. It is the
// starting point for TOML decoding so unset fields keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			Catalog:     defaultCatalog,
			Environment: defaultEnvironment,
			JobName:     defaultJobName,
		},
		Stress: StressConfig{
			Folder:      DefaultStressFolder,
			Files:       DefaultStressFiles,
			MaxUploads:  DefaultMaxUploads,
			MaxDeletes:  DefaultMaxDeletes,
			FileSize:    "100KiB",
			WaveTimeout: DefaultWaveTimeout.String(),
		},
		Sizes: SizesConfig{
			Folder:    DefaultSizesFolder,
			Files:     DefaultSizesFiles,
			FileSizes: append([]string(nil), DefaultFileSizes...),
		},
		Trash: TrashConfig{
			Folder:     DefaultTrashFolder,
			MaxDeletes: DefaultTrashMaxDeletes,
		},
		Clean: CleanConfig{
			Exclude:    append([]string(nil), DefaultCleanExcludes...),
			MaxDeletes: DefaultCleanMaxDeletes,
		},
		WebDAV: WebDAVConfig{
			Timeout:        DefaultHTTPTimeout.String(),
			ChunkSize:      "25MiB",
			ChunkThreshold: "50MiB",
			UserAgent:      DefaultUserAgent,
		},
		Logging: LoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Publish: PublishConfig{
			Region: defaultRegion,
		},
		UI: UIConfig{
			Port: DefaultServerPort,
		},
	}
}

// fallbackDuration parses s, returning def when s is empty.
func fallbackDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}

	return time.ParseDuration(s)
}
