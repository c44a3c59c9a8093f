// Package exclusion applies and removes backup exclusions.
package exclusion

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Manager is the boundary to the backup subsystem. privileged selects the
// system-wide (fixed-path) registration instead of marking items in place.
type Manager interface {
	Add(ctx context.Context, paths []string, privileged bool) error
	Remove(ctx context.Context, paths []string, privileged bool) error
	IsExcluded(ctx context.Context, path string) (bool, error)
}

var ErrCommandFailed = errors.New("exclusion command failed")

// CommandError reports a backend invocation that exited with an unexpected code.
type CommandError struct {
	Verb   string
	Code   int
	Stderr string
}

func (e *CommandError) Error() string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "%s exited with code %d", e.Verb, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		fmt.Fprint(&msg, ": ", s)
	}
	return msg.String()
}

func (e *CommandError) Unwrap() error {
	return ErrCommandFailed
}
