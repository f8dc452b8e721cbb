package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"tidy-go/internal/tidy"
)

// Config represents the main configuration for tidy.
type Config struct {
	HostID     string           `toml:"host_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"` // "debug", "info" (default), "warn" or "error"
	Root       string           `toml:"root"`      // directory plans are generated for
	Rules      RulesConfig      `toml:"rules"`
	History    HistoryConfig    `toml:"history"`
	Database   DatabaseConfig   `toml:"database"`
	Staging    StagingConfig    `toml:"staging"`
	Workspace  WorkspaceConfig  `toml:"workspace"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	Vaults     []VaultConfig    `toml:"vaults"`
	Encryption EncryptionConfig `toml:"encryption"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

// RulesConfig holds the rule used when none is given and the options every rule reads.
type RulesConfig struct {
	DefaultRule     string                `toml:"default_rule"`
	DateGranularity string                `toml:"date_granularity"`
	SmallBytes      int64                 `toml:"small_bytes"`
	MediumBytes     int64                 `toml:"medium_bytes"`
	Custom          []tidy.CustomCategory `toml:"custom"`
}

// HistoryConfig controls retention of applied batches.
type HistoryConfig struct {
	Keep int `toml:"keep"` // batches kept after each apply; 0 keeps everything
}

// DatabaseConfig represents configuration for the history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// StagingConfig represents where the live plan is kept between commands.
type StagingConfig struct {
	Type       string `toml:"type"`                  // "memory" or "filesystem"
	StagingDir string `toml:"staging_dir,omitempty"` // only used for type=filesystem
}

// WorkspaceConfig selects what plans are applied to.
type WorkspaceConfig struct {
	Type     string        `toml:"type"`      // "filesystem" or "simulated"
	MaxDepth int           `toml:"max_depth"` // scan depth below root; 0 uses the default
	CacheTTL time.Duration `toml:"cache_ttl"` // how long a scan is reused; 0 disables caching
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// VaultConfig represents configuration for a history snapshot vault.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`   // custom endpoint, e.g. MinIO
	S3AccessKey string `toml:"s3_access_key,omitempty"` // static credentials; empty uses the default chain
	S3SecretKey string `toml:"s3_secret_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// EncryptionConfig selects how history snapshots are encrypted before upload.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// MetricsConfig controls the Prometheus textfile written on exit.
type MetricsConfig struct {
	TextfilePath string `toml:"textfile_path,omitempty"` // empty disables the export
}

// Default values written by NewConfig.
const (
	DefaultMaxDepth    = 10
	DefaultCacheTTL    = 30 * time.Second
	DefaultHistoryKeep = 50
)

// NewConfig creates a Config with defaults rooted at baseDir that organizes root.
func NewConfig(hostID, baseDir, root string) *Config {
	return &Config{
		HostID:   hostID,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Root:     root,
		Rules: RulesConfig{
			DefaultRule:     string(tidy.RuleByType),
			DateGranularity: string(tidy.GranularityYearMonth),
			SmallBytes:      tidy.DefaultSmallBytes,
			MediumBytes:     tidy.DefaultMediumBytes,
		},
		History:  HistoryConfig{Keep: DefaultHistoryKeep},
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
		Staging:  StagingConfig{Type: "filesystem", StagingDir: filepath.Join(baseDir, "staging")},
		Workspace: WorkspaceConfig{
			Type:     "filesystem",
			MaxDepth: DefaultMaxDepth,
			CacheTTL: DefaultCacheTTL,
		},
		Filesystem: FilesystemConfig{Ignore: []string{".git", ".DS_Store", "node_modules"}},
		Vaults: []VaultConfig{
			{Type: "filesystem", Name: "local", FSVaultRoot: filepath.Join(baseDir, "vault")},
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "tidy.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "tidy.key"),
		},
	}
}

// Rule parses the configured default rule.
func (r RulesConfig) Rule() (tidy.Rule, error) {
	if r.DefaultRule == "" {
		return tidy.RuleByType, nil
	}
	return tidy.ParseRule(r.DefaultRule)
}

// Options builds rule options, falling back to defaults for unset values.
func (r RulesConfig) Options() tidy.RuleOptions {
	opts := tidy.DefaultRuleOptions()
	if r.DateGranularity != "" {
		opts.DateGranularity = tidy.DateGranularity(strings.ToLower(r.DateGranularity))
	}
	if r.SmallBytes != 0 {
		opts.SizeThresholds.SmallBytes = r.SmallBytes
	}
	if r.MediumBytes != 0 {
		opts.SizeThresholds.MediumBytes = r.MediumBytes
	}
	if len(r.Custom) > 0 {
		opts.CustomCategories = append([]tidy.CustomCategory(nil), r.Custom...)
	}
	return opts
}

// Validate checks the settings that are only read lazily, so mistakes
// surface when the config is loaded rather than at first use.
func (c *Config) Validate() error {
	var errs []error
	if c.HostID == "" {
		errs = append(errs, errors.New("host_id is required"))
	}
	if c.Root == "" {
		errs = append(errs, errors.New("root is required"))
	}

	rule, err := c.Rules.Rule()
	if err != nil {
		errs = append(errs, fmt.Errorf("rules.default_rule: %w", err))
	} else if err := c.Rules.Options().Validate(rule); err != nil {
		errs = append(errs, fmt.Errorf("rules: %w", err))
	}

	if c.History.Keep < 0 {
		errs = append(errs, fmt.Errorf("history.keep must not be negative, got %d", c.History.Keep))
	}
	if c.Workspace.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("workspace.max_depth must not be negative, got %d", c.Workspace.MaxDepth))
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads and validates a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to path. It refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
