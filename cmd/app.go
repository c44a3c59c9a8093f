package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/olimci/letitgo/pkg/exclusion"
	"github.com/olimci/letitgo/pkg/logging"
	storepkg "github.com/olimci/letitgo/pkg/store"
	"github.com/olimci/letitgo/pkg/store/config"
	"github.com/olimci/letitgo/pkg/utils/fileutils"
)

// app holds the process environment the commands talk to.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	isTerminal func() bool
	store      func() (storepkg.Store, error)
	manager    func(cfg config.Config, logger *zap.Logger) exclusion.Manager
}

func defaultApp() *app {
	return &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		isTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
		store: storepkg.DefaultStore,
		manager: func(cfg config.Config, logger *zap.Logger) exclusion.Manager {
			return exclusion.NewTmutil(cfg.Timeout(), logger)
		},
	}
}

func rootBool(cmd *cli.Command, name string) bool {
	if cmd == nil {
		return false
	}
	if cmd.Bool(name) {
		return true
	}
	root := cmd.Root()
	return root != nil && root.Bool(name)
}

func rootString(cmd *cli.Command, name string) string {
	if v := cmd.String(name); v != "" {
		return v
	}
	if root := cmd.Root(); root != nil {
		return root.String(name)
	}
	return ""
}

func noArgs(cmd *cli.Command) error {
	if cmd.Args().Len() > 0 {
		return fmt.Errorf("%w: %s does not accept arguments", errUsage, cmd.Name)
	}
	return nil
}

// openStore builds the store for one command invocation from the global
// flags. The logger writes to stderr so stdout stays clean for data.
func (a *app) openStore(cmd *cli.Command) (storepkg.Store, error) {
	logger, err := logging.New(logging.Options{
		Level:  logging.LevelFor(rootBool(cmd, "verbose"), rootBool(cmd, "quiet")),
		Writer: a.stderr,
	})
	if err != nil {
		return storepkg.Store{}, err
	}

	s, err := a.store()
	if err != nil {
		return storepkg.Store{}, err
	}
	s.Logger = logger

	if path := rootString(cmd, "config"); path != "" {
		abs, err := fileutils.AbsPath(path)
		if err != nil {
			return storepkg.Store{}, fmt.Errorf("--config: %w", err)
		}
		s.ConfigFile = abs
	}

	return s, nil
}

// openConfigured also loads the config and attaches the exclusion backend.
func (a *app) openConfigured(cmd *cli.Command) (storepkg.Store, config.Config, error) {
	s, err := a.openStore(cmd)
	if err != nil {
		return storepkg.Store{}, config.Config{}, err
	}

	cfg, found, err := s.LoadConfig()
	if err != nil {
		return storepkg.Store{}, config.Config{}, err
	}
	if !found {
		s.Logger.Info("no config file found, using defaults (run `letitgo init` to create one)", zap.String("path", s.ConfigPath()))
	}

	s.Manager = a.manager(cfg, s.Logger)
	return s, cfg, nil
}
