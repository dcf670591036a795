// Package config loads and validates the policyhub configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrNoSheets             = errors.New("at least one sheet is required")
	ErrInvalidCacheTTL      = errors.New("cache_ttl_sec must be non-negative")
	ErrUnknownRowsDriver    = errors.New("rows.driver must be one of: sheets, csvfile, postgres, sqlite, memory")
	ErrUnknownArchiveDriver = errors.New("archive.driver must be one of: fs, s3, memory")
	ErrInvalidLogLevel      = errors.New("logging.level must be one of: debug, info, warn, error")
)

// Defaults applied by Load before validation.
const (
	DefaultListenAddr  = ":8080"
	DefaultCacheTTLSec = 60
	DefaultLogLevel    = "info"
)

// Config represents the complete policyhub configuration.
type Config struct {
	ListenAddr  string            `yaml:"listen_addr"`
	CacheTTLSec int               `yaml:"cache_ttl_sec"`
	Sheet       string            `yaml:"sheet"`
	Sheets      []string          `yaml:"sheets"`
	SourceNames map[string]string `yaml:"source_names"`
	Rows        RowsConfig        `yaml:"rows"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// RowsConfig selects and configures the row source backend.
type RowsConfig struct {
	Driver   string          `yaml:"driver"`
	Sheets   SheetsAPIConfig `yaml:"sheets"`
	CSVFile  CSVFileConfig   `yaml:"csvfile"`
	Postgres PostgresConfig  `yaml:"postgres"`
	SQLite   SQLiteConfig    `yaml:"sqlite"`
}

// SheetsAPIConfig configures the Google Sheets backend. The API key falls
// back to POLICYHUB_SHEETS_API_KEY when empty.
type SheetsAPIConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	DriveBaseURL string `yaml:"drive_base_url"`
	Range        string `yaml:"range"`
}

// CSVFileConfig configures the local CSV directory backend.
type CSVFileConfig struct {
	Dir string `yaml:"dir"`
}

// PostgresConfig configures the PostgreSQL backend. The DSN falls back to
// POLICYHUB_POSTGRES_DSN when empty.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// ArchiveConfig selects and configures the export archive backend.
type ArchiveConfig struct {
	Driver string         `yaml:"driver"`
	FS     FSConfig       `yaml:"fs"`
	S3     S3ObjectConfig `yaml:"s3"`
}

// FSConfig configures the local filesystem archive.
type FSConfig struct {
	Dir string `yaml:"dir"`
}

// S3ObjectConfig configures the S3 archive. Empty fields fall back to the
// POLICYHUB_ARCHIVE_S3_* environment variables and the ambient AWS config.
type S3ObjectConfig struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from a YAML file, applies defaults, and
// validates it. Any error here is fatal to startup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.CacheTTLSec == 0 {
		c.CacheTTLSec = DefaultCacheTTLSec
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.SheetIdentifiers()) == 0 {
		return ErrNoSheets
	}

	if c.CacheTTLSec < 0 {
		return ErrInvalidCacheTTL
	}

	switch c.Rows.Driver {
	case "", "sheets", "csvfile", "postgres", "sqlite", "memory":
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownRowsDriver, c.Rows.Driver)
	}

	switch c.Archive.Driver {
	case "", "fs", "s3", "memory":
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownArchiveDriver, c.Archive.Driver)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	return nil
}

// SheetIdentifiers resolves the configured sheet list. A non-empty sheets
// list wins over the single sheet field; entries are trimmed and blanks
// dropped.
func (c *Config) SheetIdentifiers() []string {
	var out []string
	for _, s := range c.Sheets {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	if len(out) > 0 {
		return out
	}
	if t := strings.TrimSpace(c.Sheet); t != "" {
		return []string{t}
	}
	return nil
}

// CacheTTL returns the snapshot freshness window as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}
