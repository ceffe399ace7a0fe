package config

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/upmusync/internal/foundation/errors"
)

// Config represents the upmusync tool configuration. Every field has a
// default, so running without a configuration file is supported.
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Watch   WatchConfig   `yaml:"watch"`
}

// PathsConfig locates the desired configuration and the previous snapshot.
type PathsConfig struct {
	Desired  string `yaml:"desired"`
	Previous string `yaml:"previous"`
}

// StoreConfig selects and configures the metadata store.
type StoreConfig struct {
	Backend StoreBackend `yaml:"backend"`
	Mongo   MongoConfig  `yaml:"mongo"`
	SQLite  SQLiteConfig `yaml:"sqlite"`
}

// MongoConfig locates the MongoDB metadata collection.
type MongoConfig struct {
	Addr       string        `yaml:"addr"`
	Database   string        `yaml:"database"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
}

// SQLiteConfig locates the SQLite metadata database.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig configures run metrics export.
type MetricsConfig struct {
	// Textfile, when set, receives the run's metrics in Prometheus text
	// format for the node exporter textfile collector.
	Textfile string `yaml:"textfile"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Load builds the configuration: defaults, then the YAML file at path (when
// path is non-empty), then the environment. The result is validated.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, ferrors.ConfigError("read configuration file").
				WithCause(err).
				WithContext("path", path).
				Build()
		}
		if err := decodeStrict(data, cfg); err != nil {
			return nil, ferrors.ConfigError("parse configuration file").
				WithCause(err).
				WithContext("path", path).
				Build()
		}
	}

	applyEnv(cfg)
	if err := Finalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize applies defaults and validates cfg. Call it again after changing
// fields, for example from command-line overrides.
func Finalize(cfg *Config) error {
	applyDefaults(cfg)
	return Validate(cfg)
}

// Default returns the configuration used when no file is given and the
// environment is empty.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// decodeStrict expands ${VAR} references and rejects unknown keys so that
// typos do not silently fall back to defaults.
func decodeStrict(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(data))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
