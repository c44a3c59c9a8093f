package cmd

import (
	"context"

	"github.com/urfave/cli/v3"

	storepkg "github.com/olimci/letitgo/pkg/store"
)

func runCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "scan, compute exclusions and update Time Machine",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "search-path",
				Usage: "scan this directory instead of the configured search paths (repeatable)",
			},
			&cli.BoolFlag{
				Name:    "preview",
				Aliases: []string{"dry-run", "n"},
				Usage:   "show the changes without applying them",
			},
		},
		Action: a.runAction,
	}
}

func (a *app) runAction(ctx context.Context, cmd *cli.Command) error {
	if err := noArgs(cmd); err != nil {
		return err
	}

	store, cfg, err := a.openConfigured(cmd)
	if err != nil {
		return err
	}

	res, err := store.Run(ctx, cfg, storepkg.RunOptions{
		SearchPaths: cmd.StringSlice("search-path"),
		Preview:     cmd.Bool("preview"),
	})
	if err != nil {
		return err
	}

	printRunSummary(a.stdout, res)
	return nil
}
