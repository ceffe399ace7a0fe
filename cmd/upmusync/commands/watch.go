package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/upmusync/internal/config"
	"git.home.luguber.info/inful/upmusync/internal/logfields"
	"git.home.luguber.info/inful/upmusync/internal/runner"
	"git.home.luguber.info/inful/upmusync/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Debounce time.Duration `help:"Quiet period after a change before syncing; overrides watch.debounce"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}
	if w.Debounce > 0 {
		cfg.Watch.Debounce = w.Debounce
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return RunWatch(ctx, cfg, g)
}

// RunWatch syncs once, then again after every change to the desired
// configuration, until ctx is done.
func RunWatch(ctx context.Context, cfg *config.Config, g *Global) error {
	svc := runner.NewService(cfg,
		runner.WithLogger(g.Logger),
		runner.WithRecorder(newRecorder(cfg)),
	)
	runOnce := func(ctx context.Context) {
		if _, err := svc.Run(ctx, runner.Request{}); err != nil {
			g.Logger.Error("Sync failed", logfields.Error(err))
		}
	}

	runOnce(ctx)

	fw, err := watch.NewFileWatcher(cfg.Paths.Desired, cfg.Watch.Debounce, g.Logger, runOnce)
	if err != nil {
		return err
	}
	if err := fw.Run(ctx); err != nil {
		return err
	}
	g.Logger.Info("Shutdown signal received, stopping watch")
	return nil
}
