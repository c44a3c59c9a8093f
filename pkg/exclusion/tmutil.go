package exclusion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTmutil = "/usr/bin/tmutil"

	// tmutil exits with this code when a path does not exist. The
	// exclusion is then already in the desired state.
	codeNoSuchPath = 213

	excludedMarker = "[Excluded]"
	waitDelay      = 500 * time.Millisecond
)

// Tmutil drives macOS Time Machine through the tmutil binary. Each Add or
// Remove is a single invocation; batching is left to the caller.
type Tmutil struct {
	Binary string
	// Timeout bounds one invocation. Zero waits forever.
	Timeout time.Duration
	// RetryTimeout bounds the per-path retries after a batch timed out.
	// Zero uses half of Timeout.
	RetryTimeout time.Duration
	Logger       *zap.Logger
}

func NewTmutil(timeout time.Duration, logger *zap.Logger) *Tmutil {
	return &Tmutil{
		Binary:  DefaultTmutil,
		Timeout: timeout,
		Logger:  logger,
	}
}

func (t *Tmutil) Add(ctx context.Context, paths []string, privileged bool) error {
	return t.apply(ctx, "addexclusion", paths, privileged)
}

func (t *Tmutil) Remove(ctx context.Context, paths []string, privileged bool) error {
	return t.apply(ctx, "removeexclusion", paths, privileged)
}

func (t *Tmutil) IsExcluded(ctx context.Context, path string) (bool, error) {
	out, timedOut, err := t.exec(ctx, t.Timeout, "isexcluded", path)
	if err != nil {
		return false, err
	}
	if timedOut {
		return false, fmt.Errorf("isexcluded %s: timed out after %s", path, t.Timeout)
	}
	return strings.Contains(out, excludedMarker), nil
}

func (t *Tmutil) apply(ctx context.Context, verb string, paths []string, privileged bool) error {
	if len(paths) == 0 {
		return nil
	}

	args := make([]string, 0, len(paths)+2)
	args = append(args, verb)
	if privileged {
		args = append(args, "-p")
	}
	base := len(args)
	args = append(args, paths...)

	_, timedOut, err := t.exec(ctx, t.Timeout, args...)
	if err != nil || !timedOut {
		return err
	}

	logger := t.logger()
	logger.Warn("tmutil timed out, retrying paths one by one",
		zap.String("verb", verb),
		zap.Int("paths", len(paths)),
		zap.Duration("timeout", t.Timeout),
	)

	skipped := 0
	for _, p := range paths {
		single := append(args[:base:base], p)
		_, timedOut, err := t.exec(ctx, t.retryTimeout(), single...)
		if err != nil {
			return err
		}
		if timedOut {
			logger.Warn("skipping path, tmutil timed out", zap.String("verb", verb), zap.String("path", p))
			skipped++
		}
	}
	if skipped > 0 {
		logger.Warn("paths skipped after timeouts", zap.String("verb", verb), zap.Int("skipped", skipped))
	}

	return nil
}

// exec runs one invocation. A timeout is reported through timedOut rather
// than as an error; cancellation of ctx itself is an error.
func (t *Tmutil) exec(ctx context.Context, timeout time.Duration, args ...string) (string, bool, error) {
	cctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(cctx, t.binary(), args...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	t.logger().Debug("exec", zap.String("binary", t.binary()), zap.Strings("args", args))

	err := cmd.Run()
	if err == nil {
		return stdout.String(), false, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", false, ctxErr
	}
	if errors.Is(cctx.Err(), context.DeadlineExceeded) {
		return "", true, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code == codeNoSuchPath {
			t.logger().Debug("tmutil reported a missing path", zap.String("verb", args[0]), zap.Int("code", code))
			return stdout.String(), false, nil
		}
		return "", false, &CommandError{
			Verb:   args[0],
			Code:   exitErr.ExitCode(),
			Stderr: stderr.String(),
		}
	}

	return "", false, fmt.Errorf("run %s %s: %w", t.binary(), args[0], err)
}

func (t *Tmutil) binary() string {
	if t.Binary == "" {
		return DefaultTmutil
	}
	return t.Binary
}

func (t *Tmutil) retryTimeout() time.Duration {
	if t.RetryTimeout > 0 {
		return t.RetryTimeout
	}
	return t.Timeout / 2
}

func (t *Tmutil) logger() *zap.Logger {
	if t.Logger == nil {
		return zap.NewNop()
	}
	return t.Logger
}
