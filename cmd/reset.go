package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	storepkg "github.com/olimci/letitgo/pkg/store"
)

var errNotConfirmed = errors.New("reset needs confirmation: pass --yes when not running in a terminal")

func resetCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "remove every exclusion letitgo applied and clear the cache",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "skip the confirmation prompt",
			},
			&cli.BoolFlag{
				Name:    "preview",
				Aliases: []string{"dry-run", "n"},
				Usage:   "show what would be removed",
			},
		},
		Action: a.resetAction,
	}
}

func (a *app) resetAction(ctx context.Context, cmd *cli.Command) error {
	if err := noArgs(cmd); err != nil {
		return err
	}

	store, cfg, err := a.openConfigured(cmd)
	if err != nil {
		return err
	}

	planned, err := store.Reset(ctx, storepkg.ResetOptions{Preview: true, BatchSize: cfg.BatchSize})
	if err != nil {
		return err
	}
	paths, mode := planned.Removed, planned.Mode
	if len(paths) == 0 {
		fmt.Fprintln(a.stdout, "Nothing to reset, the cache is empty.")
		return nil
	}

	st := newStyles(a.stdout)
	if cmd.Bool("preview") {
		fmt.Fprintln(a.stdout, st.title.Render(fmt.Sprintf("Would remove %d exclusion(s) (%s mode):", len(paths), mode)))
		printPaths(a.stdout, st.removed, "-", paths)
		return nil
	}

	if !cmd.Bool("yes") {
		ok, err := a.confirm(fmt.Sprintf("Remove %d exclusion(s) applied in %s mode and clear the cache? [y/N] ", len(paths), mode))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(a.stdout, "Aborted.")
			return nil
		}
	}

	res, err := store.Reset(ctx, storepkg.ResetOptions{BatchSize: cfg.BatchSize})
	if err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, st.title.Render(fmt.Sprintf("Removed %d exclusion(s).", len(res.Removed))))
	return nil
}

func (a *app) confirm(prompt string) (bool, error) {
	if !a.isTerminal() {
		return false, errNotConfirmed
	}

	fmt.Fprint(a.stderr, prompt)
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
