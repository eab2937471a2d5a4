// Package config implements TOML configuration loading and validation for
// nextcloud-stress. Values are resolved in four layers: defaults, config
// file, environment, CLI flags.
package config

import "time"

// Config is the top-level configuration parsed from a TOML file.
type Config struct {
	Target  TargetConfig  `toml:"target"`
	Stress  StressConfig  `toml:"stress"`
	Sizes   SizesConfig   `toml:"sizes"`
	Trash   TrashConfig   `toml:"trash"`
	Clean   CleanConfig   `toml:"clean"`
	WebDAV  WebDAVConfig  `toml:"webdav"`
	Logging LoggingConfig `toml:"logging"`
	History HistoryConfig `toml:"history"`
	Publish PublishConfig `toml:"publish"`
	UI      UIConfig      `toml:"ui"`
}

// TargetConfig selects the node catalog and the environment under test.
type TargetConfig struct {
	Catalog     string   `toml:"catalog"`
	Environment string   `toml:"environment"`
	Nodes       []string `toml:"nodes"`
	JobName     string   `toml:"job_name"`
}

// StressConfig controls the upload/delete wave harness.
type StressConfig struct {
	Folder      string  `toml:"folder"`
	Files       int     `toml:"files"`
	MaxUploads  int     `toml:"max_uploads"`
	MaxDeletes  int     `toml:"max_deletes"`
	FileSize    string  `toml:"file_size"`
	WaveTimeout string  `toml:"wave_timeout"`
	RateLimit   float64 `toml:"rate_limit"`
	TempDir     string  `toml:"temp_dir"`
}

// SizesConfig controls the file-size upload matrix.
type SizesConfig struct {
	Folder    string   `toml:"folder"`
	Files     int      `toml:"files"`
	FileSizes []string `toml:"file_sizes"`
}

// TrashConfig controls trash-bin emptying.
type TrashConfig struct {
	Folder     string `toml:"folder"`
	MaxDeletes int    `toml:"max_deletes"`
}

// CleanConfig controls whole-account cleanup.
type CleanConfig struct {
	Exclude    []string `toml:"exclude"`
	MaxDeletes int      `toml:"max_deletes"`
}

// WebDAVConfig controls the HTTP client used against the nodes.
type WebDAVConfig struct {
	Timeout            string `toml:"timeout"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
	ChunkSize          string `toml:"chunk_size"`
	ChunkThreshold     string `toml:"chunk_threshold"`
	UserAgent          string `toml:"user_agent"`
}

// LoggingConfig controls log level and output format.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// HistoryConfig locates the SQLite results database. An empty path disables it.
type HistoryConfig struct {
	Path string `toml:"path"`
}

// PublishConfig describes the S3-compatible bucket reports are copied to.
// An empty bucket disables publishing.
type PublishConfig struct {
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

// UIConfig controls the progress UI server.
type UIConfig struct {
	Port int `toml:"port"`
}

// CLIOverrides holds values from CLI flags. Empty values mean "not set".
type CLIOverrides struct {
	ConfigPath  string
	Environment string
	Nodes       []string
}

// Resolved is the fully parsed configuration with sizes and durations
// converted to their numeric forms.
type Resolved struct {
	Config

	FileSize       int64
	FileSizes      []int64
	WaveTimeout    time.Duration
	HTTPTimeout    time.Duration
	ChunkSize      int64
	ChunkThreshold int64
}
