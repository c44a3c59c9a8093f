package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/olimci/letitgo/pkg/exclusion"
	"github.com/olimci/letitgo/pkg/store/config"
	"github.com/olimci/letitgo/pkg/utils/fileutils"
	"github.com/olimci/letitgo/pkg/version"
)

const (
	dirName      = "letitgo"
	configFile   = "config.toml"
	cacheFile    = "cache.json"
	lockFile     = "letitgo.lock"
	envConfigDir = "LETITGO_CONFIG_DIR"
	envCacheDir  = "LETITGO_CACHE_DIR"
)

var (
	ErrLocked    = errors.New("another letitgo run is in progress")
	ErrNoManager = errors.New("no exclusion manager configured")
)

// Store points to the config, cache and lock files and carries the
// collaborators every operation needs.
type Store struct {
	ConfigDir string
	CacheDir  string
	// ConfigFile overrides ConfigDir/config.toml when set.
	ConfigFile string

	Manager exclusion.Manager
	Logger  *zap.Logger
}

func DefaultStore() (Store, error) {
	cfgDir, err := defaultConfigDir()
	if err != nil {
		return Store{}, err
	}
	cacheDir, err := defaultCacheDir()
	if err != nil {
		return Store{}, err
	}

	return Store{ConfigDir: cfgDir, CacheDir: cacheDir}, nil
}

func defaultConfigDir() (string, error) {
	if custom := strings.TrimSpace(os.Getenv(envConfigDir)); custom != "" {
		abs, err := fileutils.AbsPath(custom)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", envConfigDir, err)
		}
		return abs, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); filepath.IsAbs(xdg) {
		return filepath.Join(xdg, dirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", dirName), nil
}

func defaultCacheDir() (string, error) {
	if custom := strings.TrimSpace(os.Getenv(envCacheDir)); custom != "" {
		abs, err := fileutils.AbsPath(custom)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", envCacheDir, err)
		}
		return abs, nil
	}

	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve user cache directory: %w", err)
	}
	return filepath.Join(dir, dirName), nil
}

func (s Store) ConfigPath() string {
	if s.ConfigFile != "" {
		return s.ConfigFile
	}
	return filepath.Join(s.ConfigDir, configFile)
}

func (s Store) CachePath() string {
	return filepath.Join(s.CacheDir, cacheFile)
}

func (s Store) LockPath() string {
	return filepath.Join(s.CacheDir, lockFile)
}

func (s Store) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// LoadConfig reads the config file. A missing file yields the defaults with
// found set to false.
func (s Store) LoadConfig() (cfg config.Config, found bool, err error) {
	path := s.ConfigPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger().Debug("no config file, using defaults", zap.String("path", path))
			return config.Default(), false, nil
		}
		return config.Config{}, false, fmt.Errorf("read %s: %w", path, err)
	}

	cfg, unknown, err := config.Decode(string(data))
	if err != nil {
		return config.Config{}, true, fmt.Errorf("decode %s: %w", path, err)
	}
	for _, key := range unknown {
		s.logger().Warn("unknown config key", zap.String("path", path), zap.String("key", key))
	}

	if err := version.EnsureCompatible(cfg.Version); err != nil {
		return config.Config{}, true, fmt.Errorf("unsupported config version %q: %w", cfg.Version, err)
	}

	return cfg, true, nil
}

// Init writes the default config template. An existing file is kept unless
// force is set.
func (s Store) Init(force bool) (InitResult, error) {
	path := s.ConfigPath()
	res := InitResult{Path: path}

	exists, err := fileutils.Exists(path)
	if err != nil {
		return InitResult{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if exists && !force {
		res.Existed = true
		return res, nil
	}

	if err := fileutils.WriteFileAtomic(path, []byte(config.Template), 0o644); err != nil {
		return InitResult{}, err
	}

	res.Existed = exists
	res.Written = true
	s.logger().Info("config written", zap.String("path", path))
	return res, nil
}
