package commands

import (
	"context"

	ferrors "git.home.luguber.info/inful/upmusync/internal/foundation/errors"
	"git.home.luguber.info/inful/upmusync/internal/runner"
)

// SyncCmd implements the 'sync' command.
type SyncCmd struct {
	Devices   []string `arg:"" optional:"" name:"device" help:"Device keys or aliases to update even if unchanged"`
	UpdateAll bool     `name:"update-all" help:"Ignore the previous snapshot and update every device"`
}

// Validate rejects combining explicit devices with --update-all.
func (s *SyncCmd) Validate() error {
	return validateSelection(s.Devices, s.UpdateAll)
}

func (s *SyncCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}
	svc := runner.NewService(cfg,
		runner.WithLogger(g.Logger),
		runner.WithRecorder(newRecorder(cfg)),
	)
	// Per-device failures are logged by the engine and do not fail the command.
	_, err = svc.Run(context.Background(), runner.Request{
		Force:     s.Devices,
		UpdateAll: s.UpdateAll,
	})
	return err
}

func validateSelection(devices []string, updateAll bool) error {
	if updateAll && len(devices) > 0 {
		return ferrors.ValidationError("--update-all cannot be combined with device arguments").
			WithContext("devices", devices).
			Build()
	}
	return nil
}
