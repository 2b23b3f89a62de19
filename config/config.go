package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"textfinder/search"
)

// LogFileConfig configures the optional rotating log file.
type LogFileConfig struct {
	Path       string `yaml:"path" toml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
	Compress   bool   `yaml:"compress" toml:"compress"`
}

// Config holds scan defaults that flags may override.
type Config struct {
	// Extensions restricts which formats are searched; empty means all supported.
	Extensions  []string `yaml:"extensions" toml:"extensions"`
	Granularity string   `yaml:"granularity" toml:"granularity"`
	// Exclusions are case-insensitive path fragments of directories never descended into.
	Exclusions []string `yaml:"exclusions" toml:"exclusions"`
	Workers    int      `yaml:"workers" toml:"workers"`
	// MaxFileSize in bytes; 0 means unlimited.
	MaxFileSize int64 `yaml:"max_file_size" toml:"max_file_size"`
	// FileTimeout is a Go duration string ("30s"); empty or "0" means no time budget.
	FileTimeout string        `yaml:"file_timeout" toml:"file_timeout"`
	LogLevel    string        `yaml:"log_level" toml:"log_level"`
	LogFile     LogFileConfig `yaml:"log_file" toml:"log_file"`
	// OutputSheet is the worksheet written in .xlsx reports.
	OutputSheet string `yaml:"output_sheet" toml:"output_sheet"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Extensions:  nil,
		Granularity: string(search.GranularityLine),
		Exclusions:  search.DefaultExclusions(),
		Workers:     runtime.NumCPU(),
		MaxFileSize: 0,
		FileTimeout: "",
		LogLevel:    "info",
		LogFile: LogFileConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 30,
			Compress:   true,
		},
		OutputSheet: "Sheet1",
	}
}

// Load reads a YAML (.yaml, .yml) or TOML (.toml) file over DefaultConfig.
// Keys absent from the file keep their defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config extension: %s", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Timeout parses FileTimeout.
func (c *Config) Timeout() (time.Duration, error) {
	s := strings.TrimSpace(c.FileTimeout)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("file_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("file_timeout must not be negative, got %s", s)
	}
	return d, nil
}

// Validate checks every field against the values the search engine accepts.
func (c *Config) Validate() error {
	var errs []error

	for _, ext := range c.Extensions {
		if !search.IsSupportedExtension(ext) {
			errs = append(errs, fmt.Errorf("extensions: %q is not one of %s", ext, strings.Join(search.SupportedExtensions(), ", ")))
		}
	}
	if _, err := search.ParseGranularity(c.Granularity); err != nil {
		errs = append(errs, fmt.Errorf("granularity: %w", err))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("max_file_size must not be negative, got %d", c.MaxFileSize))
	}
	if _, err := c.Timeout(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level: unknown level %q", c.LogLevel))
	}
	if c.LogFile.MaxSizeMB < 0 || c.LogFile.MaxBackups < 0 || c.LogFile.MaxAgeDays < 0 {
		errs = append(errs, errors.New("log_file: rotation limits must not be negative"))
	}
	if strings.ContainsAny(c.OutputSheet, `:\/?*[]`) || len(c.OutputSheet) > 31 {
		errs = append(errs, fmt.Errorf("output_sheet: %q is not a valid worksheet name", c.OutputSheet))
	}
	return errors.Join(errs...)
}
