package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the tokenprep tool.
type Config struct {
	Read    ReadConfig    `yaml:"read"`
	Open    OpenConfig    `yaml:"open"`
	Tokens  TokensConfig  `yaml:"tokens"`
	Remote  RemoteConfig  `yaml:"remote"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// ReadConfig holds text reading configuration.
type ReadConfig struct {
	Includes       []string      `yaml:"includes"`
	Excludes       []string      `yaml:"excludes"`
	Encoding       string        `yaml:"encoding"` // "utf-8" or any WHATWG label, e.g. "latin1"
	IgnoreErrors   bool          `yaml:"ignore_errors"`
	Verbose        bool          `yaml:"verbose"`
	Progress       string        `yaml:"progress"` // "auto", "always", "never"
	UpdateInterval time.Duration `yaml:"update_interval"`
}

// OpenConfig holds file opening configuration.
type OpenConfig struct {
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// TokensConfig holds binary token configuration.
type TokensConfig struct {
	Stride  int `yaml:"stride"`   // 2 (uint16) or 4 (int32)
	PerLine int `yaml:"per_line"` // tokens printed per line by decode, 0 = all on one line
}

// RemoteConfig holds object store configuration.
type RemoteConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Prefixes       []string `yaml:"prefixes"` // e.g. "s3://", "gs://"
	Region         string   `yaml:"region"`
	Endpoint       string   `yaml:"endpoint"` // S3-compatible endpoint, empty for AWS
	ForcePathStyle bool     `yaml:"force_path_style"`
}

// CacheConfig holds line count cache configuration.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Read: ReadConfig{
			Includes:       []string{"**/*.txt", "**/*.jsonl", "**/*.csv", "**/*.tsv"},
			Excludes:       []string{"**/.git/**", "**/.tokenprep/**", "**/node_modules/**"},
			Encoding:       "utf-8",
			IgnoreErrors:   true,
			Verbose:        true,
			Progress:       "auto",
			UpdateInterval: time.Second,
		},
		Open: OpenConfig{
			RetryInterval: time.Second,
		},
		Tokens: TokensConfig{
			Stride:  2,
			PerLine: 0,
		},
		Remote: RemoteConfig{
			Enabled:  true,
			Prefixes: []string{"s3://"},
			Region:   "us-east-1",
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for tokenprep.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "tokenprep.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".tokenprep", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// CacheDBPath returns the path to the line count cache database.
func CacheDBPath(dir string) string {
	return filepath.Join(dir, ".tokenprep", "cache.db")
}

// EnsureStateDir ensures the .tokenprep directory exists.
func EnsureStateDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".tokenprep"), 0755)
}
