package config

import (
	"fmt"
	"os"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// Defaults mirror the layout the tool was originally deployed in: the
// binary sits next to an input drop directory and a validated directory.
const (
	DefaultSourceDir = "../input"
	DefaultDestDir   = "../valid"
	DefaultPattern   = "*.h5"
)

// Config represents the complete stagesync configuration
type Config struct {
	Paths PathsConfig `yaml:"paths"`
	Sync  SyncConfig  `yaml:"sync"`
}

// PathsConfig configures the source and destination roots
type PathsConfig struct {
	SourceDir string `yaml:"source_dir"`
	DestDir   string `yaml:"dest_dir"`
}

// SyncConfig configures staging behavior
type SyncConfig struct {
	Pattern string `yaml:"pattern"`
	DryRun  bool   `yaml:"dry_run"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Expand environment variables in string fields
	cfg.expandEnv()

	// Apply environment overrides and defaults
	cfg.applyEnv()
	cfg.applyDefaults()

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
// Environment overrides still apply, so a bare binary next to a .env
// file behaves the same as one with a config file.
func Default() (*Config, error) {
	var cfg Config
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.Paths.SourceDir = os.ExpandEnv(c.Paths.SourceDir)
	c.Paths.DestDir = os.ExpandEnv(c.Paths.DestDir)
	c.Sync.Pattern = os.ExpandEnv(c.Sync.Pattern)
}

// applyEnv overrides fields from STAGESYNC_* environment variables
func (c *Config) applyEnv() {
	if v := os.Getenv("STAGESYNC_SOURCE_DIR"); v != "" {
		c.Paths.SourceDir = v
	}
	if v := os.Getenv("STAGESYNC_DEST_DIR"); v != "" {
		c.Paths.DestDir = v
	}
	if v := os.Getenv("STAGESYNC_PATTERN"); v != "" {
		c.Sync.Pattern = v
	}
}

// applyDefaults fills in zero-value fields with the original tool's paths.
func (c *Config) applyDefaults() {
	if c.Paths.SourceDir == "" {
		c.Paths.SourceDir = DefaultSourceDir
	}
	if c.Paths.DestDir == "" {
		c.Paths.DestDir = DefaultDestDir
	}
	if c.Sync.Pattern == "" {
		c.Sync.Pattern = DefaultPattern
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Paths.SourceDir == "" {
		return fmt.Errorf("paths.source_dir is required")
	}
	if c.Paths.DestDir == "" {
		return fmt.Errorf("paths.dest_dir is required")
	}
	if c.Sync.Pattern == "" {
		return fmt.Errorf("sync.pattern is required")
	}

	// The pattern must compile; a missing source directory is deliberately
	// not an error here (an absent input root degrades to a no-op run).
	if _, err := glob.Compile(c.Sync.Pattern); err != nil {
		return fmt.Errorf("invalid sync.pattern %q: %w", c.Sync.Pattern, err)
	}

	return nil
}
