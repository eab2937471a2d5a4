package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultConfigPath is the config file looked up when neither the
// environment nor a flag names one.
const DefaultConfigPath = "nextcloud-stress.toml"

// Load reads and parses a TOML config file and validates it. Unknown keys
// are fatal so that a typo does not silently fall back to a default.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)

		return nil, fmt.Errorf("config file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads path if it exists, otherwise returns the defaults.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve applies the override chain defaults -> file -> env -> CLI and
// converts sizes and durations.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	applyEnv(cfg, env)

	if cli.Environment != "" {
		cfg.Target.Environment = cli.Environment
	}

	if len(cli.Nodes) > 0 {
		cfg.Target.Nodes = cli.Nodes
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return resolve(cfg)
}

func applyEnv(cfg *Config, env EnvOverrides) {
	if env.Environment != "" {
		cfg.Target.Environment = env.Environment
	}

	if env.JobName != "" {
		cfg.Target.JobName = env.JobName
	}

	if env.AccessKeyID != "" {
		cfg.Publish.AccessKeyID = env.AccessKeyID
	}

	if env.SecretAccessKey != "" {
		cfg.Publish.SecretAccessKey = env.SecretAccessKey
	}
}

// resolve converts the string-typed fields of a validated Config.
func resolve(cfg *Config) (*Resolved, error) {
	r := &Resolved{Config: *cfg}

	var err error

	if r.FileSize, err = ParseSize(cfg.Stress.FileSize); err != nil {
		return nil, fmt.Errorf("stress.file_size: %w", err)
	}

	for _, s := range cfg.Sizes.FileSizes {
		n, err := ParseSize(s)
		if err != nil {
			return nil, fmt.Errorf("sizes.file_sizes: %w", err)
		}
		r.FileSizes = append(r.FileSizes, n)
	}

	if r.WaveTimeout, err = fallbackDuration(cfg.Stress.WaveTimeout, DefaultWaveTimeout); err != nil {
		return nil, fmt.Errorf("stress.wave_timeout: %w", err)
	}

	if r.HTTPTimeout, err = fallbackDuration(cfg.WebDAV.Timeout, DefaultHTTPTimeout); err != nil {
		return nil, fmt.Errorf("webdav.timeout: %w", err)
	}

	if r.ChunkSize, err = ParseSize(cfg.WebDAV.ChunkSize); err != nil {
		return nil, fmt.Errorf("webdav.chunk_size: %w", err)
	}

	if r.ChunkSize == 0 {
		r.ChunkSize = DefaultChunkSize
	}

	if r.ChunkThreshold, err = ParseSize(cfg.WebDAV.ChunkThreshold); err != nil {
		return nil, fmt.Errorf("webdav.chunk_threshold: %w", err)
	}

	return r, nil
}
