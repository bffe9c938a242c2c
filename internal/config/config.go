// Package config loads the analyzer configuration from .relint/config.json,
// falling back to defaults when no file exists.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the complete relint configuration.
type Config struct {
	Worker   WorkerConfig   `json:"worker" mapstructure:"worker"`
	Snapshot SnapshotConfig `json:"snapshot" mapstructure:"snapshot"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// WorkerConfig describes how the introspection worker is spawned.
type WorkerConfig struct {
	Command string   `json:"command" mapstructure:"command"`
	Args    []string `json:"args" mapstructure:"args"`
}

// SnapshotConfig points at a precomputed schema snapshot. When Path is set,
// the snapshot replaces the live worker entirely.
type SnapshotConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Worker: WorkerConfig{
			Command: "relint-worker",
			Args:    []string{},
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <root>/.relint/config.json. Environment
// variables prefixed RELINT_ override file values.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()

	v.SetDefault("worker.command", "relint-worker")
	v.SetDefault("logging.format", "human")
	v.SetDefault("logging.level", "info")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, ".relint"))
	v.SetEnvPrefix("RELINT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to <root>/.relint/config.json.
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ".relint")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.Worker.Command == "" && c.Snapshot.Path == "" {
		return &ConfigError{Field: "worker.command", Message: "either a worker command or a snapshot path is required"}
	}
	return nil
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
