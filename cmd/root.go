package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/olimci/letitgo/pkg/store"
)

// Commands:
// run
//   scan search paths for repositories, resolve their ignore rules and sync
//   the resulting exclusions with Time Machine
//
// list
//   show the exclusions recorded by the last run (cache only, no scan)
//
// clean
//   drop recorded exclusions whose paths no longer exist
//
// reset
//   remove every exclusion letitgo applied and clear the cache
//
// init
//   write a commented default config file

const (
	ExitOK     = 0
	ExitFailed = 1
	ExitUsage  = 2
	ExitLocked = 3
)

var errUsage = errors.New("usage error")

func Execute(ctx context.Context, args []string) error {
	return newRootCommand(defaultApp()).Run(ctx, args)
}

// ExitCode maps an error returned by Execute to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, store.ErrLocked):
		return ExitLocked
	case errors.Is(err, errUsage):
		return ExitUsage
	default:
		return ExitFailed
	}
}

func newRootCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "letitgo",
		Usage:     "keep Time Machine exclusions in sync with .gitignore and .lignore rules",
		Reader:    a.stdin,
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:      "config",
				Aliases:   []string{"c"},
				Usage:     "path to the config file",
				TakesFile: true,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log debug details",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "only log errors",
			},
		},
		OnUsageError: func(_ context.Context, _ *cli.Command, err error, _ bool) error {
			return fmt.Errorf("%w: %v", errUsage, err)
		},
		Commands: []*cli.Command{
			runCommand(a),
			listCommand(a),
			cleanCommand(a),
			resetCommand(a),
			initCommand(a),
			versionCommand(a),
		},
	}
}
