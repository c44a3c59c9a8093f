package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/olimci/letitgo/pkg/utils/fileutils"
)

var ErrInvalidMode = errors.New("invalid exclusion mode")

// ExclusionMode selects how the backup subsystem records an exclusion.
type ExclusionMode string

const (
	// ModeSticky marks each item itself. No privileges needed; lost when the
	// item is deleted and recreated.
	ModeSticky ExclusionMode = "sticky"
	// ModeFixedPath registers paths centrally. Needs root; survives recreation.
	ModeFixedPath ExclusionMode = "fixed-path"
)

func (m ExclusionMode) IsFixedPath() bool {
	return m == ModeFixedPath
}

func (m ExclusionMode) String() string {
	return string(m)
}

func ParseMode(raw string) (ExclusionMode, error) {
	switch mode := ExclusionMode(strings.TrimSpace(raw)); mode {
	case ModeSticky, ModeFixedPath:
		return mode, nil
	default:
		return "", fmt.Errorf("%w %q (expected %q or %q)", ErrInvalidMode, raw, ModeSticky, ModeFixedPath)
	}
}

func (m ExclusionMode) MarshalText() ([]byte, error) {
	return []byte(m), nil
}

func (m *ExclusionMode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

const (
	DefaultBatchSize      = 200
	DefaultCommandTimeout = 30
)

// Config is the declarative configuration passed into every operation.
type Config struct {
	Version string `toml:"version"` // letitgo version the file was written for

	SearchPaths  []string      `toml:"search_paths"`  // roots scanned for repositories
	IgnoredPaths []string      `toml:"ignored_paths"` // never descended into during the scan
	Whitelist    []string      `toml:"whitelist"`     // absolute-path globs that are never excluded
	Mode         ExclusionMode `toml:"exclusion_mode"`

	SkipPatterns      []string `toml:"skip_patterns"`       // gitignore-style names pruned during the scan
	GlobalIgnoreFile  string   `toml:"global_ignore_file"`  // extra rules applied to every repository
	GitGlobalExcludes bool     `toml:"git_global_excludes"` // also honor git's core.excludesFile

	BatchSize      int `toml:"batch_size"`              // paths per backend invocation
	Workers        int `toml:"workers"`                 // 0 means one per CPU
	CommandTimeout int `toml:"command_timeout_seconds"` // 0 disables the per-invocation timeout
}

func Default() Config {
	return Config{
		SearchPaths: []string{"~"},
		IgnoredPaths: []string{
			"~/.Trash",
			"~/Applications",
			"~/Downloads",
			"~/Library",
			"~/Music",
			"~/Pictures",
		},
		Whitelist: []string{
			"**/application.yml",
			"**/.env",
			"**/.env.*",
		},
		Mode:           ModeSticky,
		BatchSize:      DefaultBatchSize,
		CommandTimeout: DefaultCommandTimeout,
	}
}

// Template is written by init. It decodes to Default().
const Template = `# letitgo configuration

# Directories to scan for git repositories.
search_paths = ["~"]

# Directories never descended into while scanning.
ignored_paths = [
    "~/.Trash",
    "~/Applications",
    "~/Downloads",
    "~/Library",
    "~/Music",
    "~/Pictures",
]

# Globs matched against absolute paths. Matching paths are always backed up,
# even when a .gitignore or .lignore file says otherwise. "*" also matches
# across "/", so "/Users/me/proj/*" covers everything below proj.
whitelist = [
    "**/application.yml",
    "**/.env",
    "**/.env.*",
]

# How exclusions are recorded:
#
#   sticky      marks each item with an extended attribute. No sudo needed.
#               The mark follows moves but is lost when the item is deleted
#               and recreated.
#   fixed-path  registers the path system-wide. Requires running as root.
#               Survives deletion and applies to whatever appears at the path.
#
# Run "letitgo reset" before switching modes.
exclusion_mode = "sticky"

# Directory names (gitignore syntax) pruned while scanning for repositories.
# skip_patterns = ["node_modules", ".venv"]

# Extra ignore rules applied to every repository with the lowest precedence.
# global_ignore_file = "~/.config/letitgo/ignore"

# Also apply git's core.excludesFile.
# git_global_excludes = false

# Paths handed to a single tmutil invocation.
# batch_size = 200

# Parallel scan and resolve workers. 0 uses one per CPU.
# workers = 0

# Seconds before a tmutil invocation is abandoned. 0 waits forever.
# command_timeout_seconds = 30
`

// Decode parses TOML on top of Default(). Unknown keys are returned so the
// caller can report them.
func Decode(data string) (Config, []string, error) {
	cfg := Default()

	meta, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, nil, err
	}

	var unknown []string
	for _, key := range meta.Undecoded() {
		unknown = append(unknown, key.String())
	}
	return cfg, unknown, nil
}

func (c Config) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.CommandTimeout < 0 {
		return fmt.Errorf("command_timeout_seconds must not be negative, got %d", c.CommandTimeout)
	}
	return nil
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.CommandTimeout) * time.Second
}

func (c Config) ResolvedSearchPaths() ([]string, error) {
	return resolveAll(c.SearchPaths)
}

func (c Config) ResolvedIgnoredPaths() ([]string, error) {
	return resolveAll(c.IgnoredPaths)
}

func resolveAll(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := fileutils.AbsPath(p)
		if err != nil {
			return nil, err
		}
		out = append(out, abs)
	}
	return out, nil
}
