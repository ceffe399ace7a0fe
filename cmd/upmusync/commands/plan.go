package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"git.home.luguber.info/inful/upmusync/internal/reconcile"
	"git.home.luguber.info/inful/upmusync/internal/runner"
)

// PlanCmd implements the 'plan' command.
type PlanCmd struct {
	Devices   []string `arg:"" optional:"" name:"device" help:"Device keys or aliases to treat as forced"`
	UpdateAll bool     `name:"update-all" help:"Plan as if the previous snapshot were ignored"`
	Diff      bool     `help:"Show the record diff for changed devices"`
}

func (p *PlanCmd) Validate() error {
	return validateSelection(p.Devices, p.UpdateAll)
}

func (p *PlanCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}
	svc := runner.NewService(cfg, runner.WithLogger(g.Logger))
	res, err := svc.Run(context.Background(), runner.Request{
		Force:     p.Devices,
		UpdateAll: p.UpdateAll,
		DryRun:    true,
	})
	if err != nil {
		return err
	}
	return writePlan(g.out(), res.Result, p.Diff)
}

func planVerb(a reconcile.Action) string {
	switch a {
	case reconcile.ActionUpdated:
		return "update"
	case reconcile.ActionRemoved:
		return "remove"
	case reconcile.ActionUnchanged:
		return "keep"
	default:
		return string(a)
	}
}

func writePlan(w io.Writer, res *reconcile.Result, withDiff bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "DEVICE\tACTION\tREASON\tSTREAMS"); err != nil {
		return err
	}
	for _, rep := range res.Reports {
		reason := string(rep.Reason)
		if rep.Err != nil {
			reason = rep.Err.Error()
		}
		if reason == "" {
			reason = "-"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", rep.Device, planVerb(rep.Action), reason, rep.Streams); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d to update, %d to remove, %d unchanged, %d invalid\n",
		res.Count(reconcile.ActionUpdated),
		res.Count(reconcile.ActionRemoved),
		res.Count(reconcile.ActionUnchanged),
		len(res.Failures()))
	if err != nil || !withDiff {
		return err
	}

	for _, rep := range res.Reports {
		if rep.Diff == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "\n%s (-previous +desired):\n%s\n", rep.Device, strings.TrimRight(rep.Diff, "\n")); err != nil {
			return err
		}
	}
	return nil
}
