package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/upmusync/internal/config"
	"git.home.luguber.info/inful/upmusync/internal/metrics"
)

// Global holds state shared by every command.
type Global struct {
	Logger *slog.Logger
	// Out receives command output such as plan tables and validation reports.
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags. Flags override the configuration file,
// which overrides built-in defaults.
type CLI struct {
	Config     string           `short:"c" help:"Tool configuration file (YAML)" type:"path"`
	Desired    string           `help:"Desired fleet configuration" type:"path" placeholder:"PATH"`
	Previous   string           `help:"Previous snapshot written by the last run" type:"path" placeholder:"PATH"`
	Store      string           `help:"Metadata store backend: mongo, sqlite or memory"`
	MongoAddr  string           `name:"mongo-addr" help:"MongoDB address" env:"MONGO_ADDR"`
	SQLitePath string           `name:"sqlite-path" help:"SQLite database for the sqlite store" type:"path"`
	Textfile   string           `name:"metrics-textfile" help:"Write run metrics to this node-exporter textfile" type:"path"`
	Verbose    bool             `short:"v" help:"Enable verbose logging"`
	LogFormat  string           `name:"log-format" help:"Log format: text or json"`
	Version    kong.VersionFlag `name:"version" help:"Show version and exit"`

	Sync     SyncCmd     `cmd:"" default:"withargs" help:"Apply the fleet configuration to the metadata store (default)"`
	Plan     PlanCmd     `cmd:"" help:"Show what sync would do without writing anything"`
	Validate ValidateCmd `cmd:"" help:"Check the fleet configuration for mistakes"`
	Watch    WatchCmd    `cmd:"" help:"Sync whenever the fleet configuration changes"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	c.setLogger(g, config.LoggingConfig{
		Level:  config.NormalizeLogLevel(""),
		Format: config.NormalizeLogFormat(c.LogFormat),
	})
	return nil
}

// LoadConfig loads the configuration file and applies flag overrides. The
// logger is rebuilt from the result.
func (c *CLI) LoadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	c.applyOverrides(cfg)
	if err := config.Finalize(cfg); err != nil {
		return nil, err
	}
	c.setLogger(g, cfg.Logging)
	return cfg, nil
}

func (c *CLI) applyOverrides(cfg *config.Config) {
	if c.Desired != "" {
		cfg.Paths.Desired = c.Desired
	}
	if c.Previous != "" {
		cfg.Paths.Previous = c.Previous
	}
	if c.Store != "" {
		cfg.Store.Backend = config.StoreBackend(c.Store)
	}
	if c.MongoAddr != "" {
		cfg.Store.Mongo.Addr = c.MongoAddr
	}
	if c.SQLitePath != "" {
		cfg.Store.SQLite.Path = c.SQLitePath
	}
	if c.Textfile != "" {
		cfg.Metrics.Textfile = c.Textfile
	}
	if c.Verbose {
		cfg.Logging.Level = config.LogLevelDebug
	}
	if c.LogFormat != "" {
		cfg.Logging.Format = config.LogFormat(c.LogFormat)
	}
}

func (c *CLI) setLogger(g *Global, lc config.LoggingConfig) {
	if c.Verbose {
		lc.Level = config.LogLevelDebug
	}
	g.Logger = lc.NewLogger(os.Stdout)
	slog.SetDefault(g.Logger)
}

// newRecorder returns a Prometheus recorder when a textfile is configured.
func newRecorder(cfg *config.Config) metrics.Recorder {
	if cfg.Metrics.Textfile == "" {
		return metrics.NoopRecorder{}
	}
	return metrics.NewPrometheusRecorder(nil)
}
