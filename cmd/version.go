package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/olimci/letitgo/pkg/version"
)

func versionCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "show version",
		Action: func(_ context.Context, _ *cli.Command) error {
			fmt.Fprintln(a.stdout, version.Long())
			return nil
		},
	}
}
