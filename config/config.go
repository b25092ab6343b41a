package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. TRADEBOOK_LOG_LEVEL.
const EnvPrefix = "TRADEBOOK"

// Config represents the complete tradebook configuration
type Config struct {
	Source  SourceConfig  `json:"source" yaml:"source"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Engine  EngineConfig  `json:"engine" yaml:"engine"`
	Log     LogConfig     `json:"log" yaml:"log"`
	Server  ServerConfig  `json:"server" yaml:"server"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`
}

// SourceConfig selects where trades are read from
type SourceConfig struct {
	Type     string `json:"type" yaml:"type" envconfig:"SOURCE_TYPE"` // "csv" or "sqlite"
	Path     string `json:"path,omitempty" yaml:"path,omitempty" envconfig:"SOURCE_PATH"`
	Symbol   string `json:"symbol,omitempty" yaml:"symbol,omitempty" envconfig:"SOURCE_SYMBOL"`
	Strategy string `json:"strategy,omitempty" yaml:"strategy,omitempty" envconfig:"SOURCE_STRATEGY"`
	Sort     bool   `json:"sort" yaml:"sort" envconfig:"SOURCE_SORT"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled" envconfig:"JOURNAL_ENABLED"`
	DBPath    string `json:"db_path,omitempty" yaml:"db_path,omitempty" envconfig:"JOURNAL_DB_PATH"`
	EventsCSV string `json:"events_csv,omitempty" yaml:"events_csv,omitempty" envconfig:"JOURNAL_EVENTS_CSV"`
	OrgPath   string `json:"org_path,omitempty" yaml:"org_path,omitempty" envconfig:"JOURNAL_ORG_PATH"`
}

// EngineConfig tunes how the PnL engine treats bad input
type EngineConfig struct {
	SkipInvalid bool `json:"skip_invalid" yaml:"skip_invalid" envconfig:"ENGINE_SKIP_INVALID"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `json:"format" yaml:"format" envconfig:"LOG_FORMAT"` // "text" or "json"
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" envconfig:"SERVER_ADDR"`
}

type TracingConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" envconfig:"TRACING_ENABLED"`
}

// LoadFromFile loads configuration from a file (JSON or YAML), applies
// environment overrides and validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from TRADEBOOK_* environment variables. Unset
// variables leave the current value alone.
func (c *Config) ApplyEnv() error {
	for _, section := range []any{&c.Source, &c.Journal, &c.Engine, &c.Log, &c.Server, &c.Tracing} {
		if err := envconfig.Process(EnvPrefix, section); err != nil {
			return fmt.Errorf("env config: %w", err)
		}
	}
	return nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Source.Type {
	case "csv":
		if c.Source.Path == "" {
			return fmt.Errorf("source.path required for CSV source")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for SQLite source")
		}
	default:
		return fmt.Errorf("source.type must be 'csv' or 'sqlite'")
	}
	if c.Journal.Enabled && c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path required when journal is enabled")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug|info|warn|error")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Type: "csv",
			Path: "./trades.csv",
		},
		Journal: JournalConfig{
			DBPath: "./tradebook.sqlite",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}
