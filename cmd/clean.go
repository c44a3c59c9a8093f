package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	storepkg "github.com/olimci/letitgo/pkg/store"
)

func cleanCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "clean",
		Usage: "remove recorded exclusions whose paths no longer exist",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "preview",
				Aliases: []string{"dry-run", "n"},
				Usage:   "show stale paths without removing them",
			},
		},
		Action: a.cleanAction,
	}
}

func (a *app) cleanAction(ctx context.Context, cmd *cli.Command) error {
	if err := noArgs(cmd); err != nil {
		return err
	}

	store, cfg, err := a.openConfigured(cmd)
	if err != nil {
		return err
	}

	res, err := store.Clean(ctx, cfg, storepkg.CleanOptions{Preview: cmd.Bool("preview")})
	if err != nil {
		return err
	}

	st := newStyles(a.stdout)
	switch {
	case len(res.Stale) == 0:
		fmt.Fprintln(a.stdout, "No stale paths found.")
	case res.Preview:
		fmt.Fprintln(a.stdout, st.title.Render(fmt.Sprintf("Would remove %d stale exclusion(s):", len(res.Stale))))
		printPaths(a.stdout, st.removed, "-", res.Stale)
	default:
		fmt.Fprintln(a.stdout, st.title.Render(fmt.Sprintf("Removed %d stale exclusion(s):", len(res.Stale))))
		printPaths(a.stdout, st.removed, "-", res.Stale)
	}
	return nil
}
