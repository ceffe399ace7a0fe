// Package runner performs one sync invocation: load both snapshots, reconcile
// them against the metadata store and persist the new previous snapshot.
// The CLI commands and the watch loop all route through Service.Run.
package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/upmusync/internal/config"
	ferrors "git.home.luguber.info/inful/upmusync/internal/foundation/errors"
	"git.home.luguber.info/inful/upmusync/internal/logfields"
	"git.home.luguber.info/inful/upmusync/internal/metastore"
	"git.home.luguber.info/inful/upmusync/internal/metrics"
	"git.home.luguber.info/inful/upmusync/internal/reconcile"
	"git.home.luguber.info/inful/upmusync/internal/snapshot"
	"git.home.luguber.info/inful/upmusync/internal/util/sets"
)

// Request holds the inputs of one run.
type Request struct {
	// Force lists device keys or aliases to rewrite even when unchanged.
	Force []string
	// UpdateAll ignores the previous snapshot and rewrites every device.
	UpdateAll bool
	// DryRun reconciles against an in-memory store and saves nothing.
	DryRun bool
}

// Result is the outcome of a run.
type Result struct {
	*reconcile.Result

	// RunID tags every log line of the run.
	RunID     string
	DryRun    bool
	Duration  time.Duration
	StartTime time.Time
	EndTime   time.Time
}

// StoreOpener creates the store for a run.
type StoreOpener func(ctx context.Context, cfg config.StoreConfig) (metastore.Store, error)

// Service runs sync invocations for one configuration.
type Service struct {
	cfg       *config.Config
	logger    *slog.Logger
	recorder  metrics.Recorder
	openStore StoreOpener
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder. When it can write a textfile and
// metrics.textfile is configured, the file is written after every run.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

// WithStoreOpener replaces metastore.Open.
func WithStoreOpener(open StoreOpener) Option {
	return func(s *Service) {
		if open != nil {
			s.openStore = open
		}
	}
}

// NewService creates a Service for cfg.
func NewService(cfg *config.Config, options ...Option) *Service {
	s := &Service{
		cfg:       cfg,
		logger:    slog.Default(),
		recorder:  metrics.NoopRecorder{},
		openStore: metastore.Open,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

type textfileWriter interface {
	WriteTextfile(path string) error
}

// Run performs one invocation. Only failures to load the desired
// configuration, read the previous snapshot, open the store or save the new
// snapshot are returned; per-device failures are in the result.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	paths := s.cfg.Paths
	runID := uuid.NewString()
	log := s.logger.With(logfields.RunID(runID))
	if req.DryRun {
		log = log.With(slog.Bool("dry_run", true))
	}

	if err := paths.Validate(); err != nil {
		return nil, err
	}

	desired, err := snapshot.Load(paths.Desired)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "load desired configuration").
			Fatal().
			WithContext("path", paths.Desired).
			Build()
	}
	log.Debug("Loaded desired configuration", logfields.Path(paths.Desired), slog.Int("devices", len(desired)))

	previous := snapshot.Snapshot{}
	if !req.UpdateAll {
		previous, err = snapshot.LoadOptional(paths.Previous)
		if err != nil {
			return nil, err
		}
		log.Debug("Loaded previous snapshot", logfields.Path(paths.Previous), slog.Int("devices", len(previous)))
	}

	storeCfg := s.cfg.Store
	open := s.openStore
	if req.DryRun {
		storeCfg.Backend = config.StoreMemory
		open = metastore.Open
	}
	store, err := open(ctx, storeCfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.Warn("Failed to close metadata store", logfields.Error(cerr))
		}
	}()

	engine := reconcile.NewEngine(store, reconcile.WithLogger(log), reconcile.WithRecorder(s.recorder))
	rec := engine.Reconcile(ctx, desired, previous, reconcile.Options{
		Force:       sets.New(req.Force...),
		UsePrevious: !req.UpdateAll,
	})

	end := time.Now()
	res := &Result{Result: rec, RunID: runID, DryRun: req.DryRun, StartTime: start, EndTime: end, Duration: end.Sub(start)}

	if req.DryRun {
		log.Info("Dry run complete; previous snapshot not written", summaryAttrs(res)...)
		return res, nil
	}

	if err := snapshot.Save(paths.Previous, rec.Snapshot); err != nil {
		return res, err
	}

	s.recorder.ObserveRunDuration(res.Duration)
	s.recorder.SetPendingRetries(rec.Snapshot.PendingRetries())
	s.recorder.SetLastRunTimestamp(end)
	s.writeTextfile()

	log.Info("Sync complete", summaryAttrs(res)...)
	return res, nil
}

func (s *Service) writeTextfile() {
	path := s.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	w, ok := s.recorder.(textfileWriter)
	if !ok {
		return
	}
	if err := w.WriteTextfile(path); err != nil {
		s.logger.Warn("Failed to write metrics textfile", logfields.Path(path), logfields.Error(err))
	}
}

func summaryAttrs(res *Result) []any {
	return []any{
		slog.Int("updated", res.Count(reconcile.ActionUpdated)),
		slog.Int("unchanged", res.Count(reconcile.ActionUnchanged)),
		slog.Int("removed", res.Count(reconcile.ActionRemoved)),
		slog.Int("failed", len(res.Failures())),
		logfields.DurationMS(float64(res.Duration.Microseconds()) / 1000),
	}
}
