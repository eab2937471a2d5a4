package config

import (
	"errors"
	"fmt"
	"time"
)

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validLogFormats = map[string]bool{"text": true, "json": true}

// Validate checks all configuration values and returns every error found.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateTarget(&cfg.Target)...)
	errs = append(errs, validateStress(&cfg.Stress)...)
	errs = append(errs, validateSizes(&cfg.Sizes)...)
	errs = append(errs, validateWaveSize("trash.max_deletes", cfg.Trash.MaxDeletes)...)
	errs = append(errs, validateWaveSize("clean.max_deletes", cfg.Clean.MaxDeletes)...)
	errs = append(errs, validateWebDAV(&cfg.WebDAV)...)

	if !validLogLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Errorf("logging.level: must be one of debug, info, warn, error; got %q", cfg.Logging.Level))
	}

	if !validLogFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Errorf("logging.format: must be text or json; got %q", cfg.Logging.Format))
	}

	if cfg.UI.Port < 0 || cfg.UI.Port > 65535 {
		errs = append(errs, fmt.Errorf("ui.port: out of range: %d", cfg.UI.Port))
	}

	return errors.Join(errs...)
}

func validateTarget(t *TargetConfig) []error {
	var errs []error

	if t.Environment != "test" && t.Environment != "prod" {
		errs = append(errs, fmt.Errorf("target.environment: must be test or prod; got %q", t.Environment))
	}

	if t.Catalog == "" {
		errs = append(errs, errors.New("target.catalog: must not be empty"))
	}

	return errs
}

func validateStress(s *StressConfig) []error {
	var errs []error

	if s.Folder == "" {
		errs = append(errs, errors.New("stress.folder: must not be empty"))
	}

	if s.Files < 1 {
		errs = append(errs, fmt.Errorf("stress.files: must be at least 1; got %d", s.Files))
	}

	errs = append(errs, validateWaveSize("stress.max_uploads", s.MaxUploads)...)
	errs = append(errs, validateWaveSize("stress.max_deletes", s.MaxDeletes)...)

	if _, err := ParseSize(s.FileSize); err != nil {
		errs = append(errs, fmt.Errorf("stress.file_size: %w", err))
	}

	if s.WaveTimeout != "" {
		if d, err := time.ParseDuration(s.WaveTimeout); err != nil {
			errs = append(errs, fmt.Errorf("stress.wave_timeout: %w", err))
		} else if d < 0 {
			errs = append(errs, fmt.Errorf("stress.wave_timeout: must not be negative; got %s", d))
		}
	}

	if s.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("stress.rate_limit: must not be negative; got %g", s.RateLimit))
	}

	return errs
}

func validateSizes(s *SizesConfig) []error {
	var errs []error

	if s.Files < 1 {
		errs = append(errs, fmt.Errorf("sizes.files: must be at least 1; got %d", s.Files))
	}

	for _, v := range s.FileSizes {
		if n, err := ParseSize(v); err != nil {
			errs = append(errs, fmt.Errorf("sizes.file_sizes: %w", err))
		} else if n == 0 {
			errs = append(errs, fmt.Errorf("sizes.file_sizes: %q is zero", v))
		}
	}

	return errs
}

func validateWaveSize(key string, n int) []error {
	if n < 1 || n > MaxWaveSize {
		return []error{fmt.Errorf("%s: must be between 1 and %d; got %d", key, MaxWaveSize, n)}
	}

	return nil
}

func validateWebDAV(w *WebDAVConfig) []error {
	var errs []error

	if w.Timeout != "" {
		if _, err := time.ParseDuration(w.Timeout); err != nil {
			errs = append(errs, fmt.Errorf("webdav.timeout: %w", err))
		}
	}

	if _, err := ParseSize(w.ChunkSize); err != nil {
		errs = append(errs, fmt.Errorf("webdav.chunk_size: %w", err))
	}

	if _, err := ParseSize(w.ChunkThreshold); err != nil {
		errs = append(errs, fmt.Errorf("webdav.chunk_threshold: %w", err))
	}

	return errs
}
