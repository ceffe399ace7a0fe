package commands

import (
	ferrors "git.home.luguber.info/inful/upmusync/internal/foundation/errors"
	"git.home.luguber.info/inful/upmusync/internal/snapshot"
	"git.home.luguber.info/inful/upmusync/internal/validate"
)

// ValidateCmd implements the 'validate' command.
type ValidateCmd struct {
	Format string `short:"f" default:"text" help:"Output format (text or json)" enum:"text,json"`
	Path   string `arg:"" optional:"" help:"Fleet configuration to check (defaults to the configured desired path)" type:"path"`
}

func (v *ValidateCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}
	path := v.Path
	if path == "" {
		path = cfg.Paths.Desired
	}

	s, err := snapshot.Load(path)
	if err != nil {
		return err
	}
	result := validate.Validate(s)

	var formatter validate.Formatter = validate.TextFormatter{}
	if v.Format == "json" {
		formatter = validate.JSONFormatter{}
	}
	if err := formatter.Format(g.out(), path, result); err != nil {
		return ferrors.RuntimeError("write validation report").WithCause(err).Build()
	}

	if result.HasErrors() {
		return ferrors.ValidationError("fleet configuration has errors").
			WithContext("path", path).
			WithContext("errors", result.ErrorCount()).
			Build()
	}
	return nil
}
