package config

import "time"

// Defaults for an installation that follows the standard layout.
const (
	DefaultDesiredPath     = "/etc/sync/upmuconfig.ini"
	DefaultPreviousPath    = "/etc/sync/backupconfig.ini"
	DefaultMongoAddr       = "mongo.local"
	DefaultMongoDatabase   = "qdf"
	DefaultMongoCollection = "metadata"
	DefaultMongoTimeout    = 30 * time.Second
	DefaultSQLitePath      = "metadata.db"
	DefaultWatchDebounce   = 2 * time.Second
)

// DefaultApplier applies defaults for one configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config)
	Domain() string
}

type pathsDefaults struct{}

func (pathsDefaults) Domain() string { return "paths" }

func (pathsDefaults) ApplyDefaults(cfg *Config) {
	if cfg.Paths.Desired == "" {
		cfg.Paths.Desired = DefaultDesiredPath
	}
	if cfg.Paths.Previous == "" {
		cfg.Paths.Previous = DefaultPreviousPath
	}
}

type storeDefaults struct{}

func (storeDefaults) Domain() string { return "store" }

func (storeDefaults) ApplyDefaults(cfg *Config) {
	s := &cfg.Store
	if s.Backend == "" {
		s.Backend = StoreMongo
	}
	if s.Mongo.Addr == "" {
		s.Mongo.Addr = DefaultMongoAddr
	}
	if s.Mongo.Database == "" {
		s.Mongo.Database = DefaultMongoDatabase
	}
	if s.Mongo.Collection == "" {
		s.Mongo.Collection = DefaultMongoCollection
	}
	if s.Mongo.Timeout == 0 {
		s.Mongo.Timeout = DefaultMongoTimeout
	}
	if s.SQLite.Path == "" {
		s.SQLite.Path = DefaultSQLitePath
	}
}

type loggingDefaults struct{}

func (loggingDefaults) Domain() string { return "logging" }

func (loggingDefaults) ApplyDefaults(cfg *Config) {
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
}

type watchDefaults struct{}

func (watchDefaults) Domain() string { return "watch" }

func (watchDefaults) ApplyDefaults(cfg *Config) {
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}
}

var defaultAppliers = []DefaultApplier{
	pathsDefaults{},
	storeDefaults{},
	loggingDefaults{},
	watchDefaults{},
}

func applyDefaults(cfg *Config) {
	for _, a := range defaultAppliers {
		a.ApplyDefaults(cfg)
	}
}
