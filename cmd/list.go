package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	storepkg "github.com/olimci/letitgo/pkg/store"
	"github.com/olimci/letitgo/pkg/store/config"
)

func listCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "show recorded exclusions (reads the cache, no scan)",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print machine-readable JSON",
			},
			&cli.BoolFlag{
				Name:  "stale",
				Usage: "only show paths that no longer exist",
			},
			&cli.BoolFlag{
				Name:  "verify",
				Usage: "ask Time Machine whether each path is still excluded",
			},
		},
		Action: a.listAction,
	}
}

type listJSON struct {
	LastRun *time.Time           `json:"last_run"`
	Mode    config.ExclusionMode `json:"exclusion_mode"`
	Paths   []storepkg.ListEntry `json:"paths"`
}

func (a *app) listAction(ctx context.Context, cmd *cli.Command) error {
	if err := noArgs(cmd); err != nil {
		return err
	}

	var (
		store storepkg.Store
		err   error
	)
	if cmd.Bool("verify") {
		store, _, err = a.openConfigured(cmd)
	} else {
		store, err = a.openStore(cmd)
	}
	if err != nil {
		return err
	}

	res, err := store.List(ctx, storepkg.ListOptions{
		StaleOnly: cmd.Bool("stale"),
		Verify:    cmd.Bool("verify"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := listJSON{
			LastRun: res.Record.LastRun,
			Mode:    res.Record.Mode,
			Paths:   res.Entries,
		}
		if out.Paths == nil {
			out.Paths = []storepkg.ListEntry{}
		}
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	st := newStyles(a.stdout)
	label := "Excluded paths"
	if cmd.Bool("stale") {
		label = "Stale paths"
	}
	fmt.Fprintf(a.stdout, "%s (%d, %s mode, last run %s)\n",
		st.title.Render(label), len(res.Entries), res.Record.Mode, formatLastRun(res.Record.LastRun))

	if len(res.Entries) == 0 {
		fmt.Fprintln(a.stdout, st.muted.Render("  (none)"))
		return nil
	}
	for _, e := range res.Entries {
		switch {
		case e.Stale():
			fmt.Fprintf(a.stdout, "  %s %s\n", e.Path, st.warn.Render("(missing)"))
		case e.Drifted():
			fmt.Fprintf(a.stdout, "  %s %s\n", e.Path, st.removed.Render("(not excluded)"))
		default:
			fmt.Fprintf(a.stdout, "  %s\n", e.Path)
		}
	}
	return nil
}
