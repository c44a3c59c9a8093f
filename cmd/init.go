package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func initCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "write a default config file with comments",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "overwrite an existing config file",
			},
		},
		Action: a.initAction,
	}
}

func (a *app) initAction(_ context.Context, cmd *cli.Command) error {
	if err := noArgs(cmd); err != nil {
		return err
	}

	store, err := a.openStore(cmd)
	if err != nil {
		return err
	}

	res, err := store.Init(cmd.Bool("force"))
	if err != nil {
		return err
	}

	if !res.Written {
		fmt.Fprintf(a.stdout, "config already exists at %s (use --force to overwrite)\n", res.Path)
		return nil
	}
	fmt.Fprintf(a.stdout, "config written to %s\n", res.Path)
	return nil
}
