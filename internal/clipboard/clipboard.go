// Package clipboard hands message text to an external clipboard command.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrNoCommand is returned when no clipboard command is configured.
var ErrNoCommand = errors.New("no clipboard command configured")

// Copier pipes text into Argv on stdin.
type Copier struct {
	Argv    []string
	Timeout time.Duration
}

// New builds a Copier with the default two-second timeout.
func New(argv []string) Copier {
	return Copier{Argv: argv, Timeout: 2 * time.Second}
}

// Copy writes text to the clipboard. Blank text is a no-op.
func (c Copier) Copy(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(c.Argv) == 0 || strings.TrimSpace(c.Argv[0]) == "" {
		return ErrNoCommand
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	if err := runWithInput(ctx, c.Argv, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	return nil
}

func runWithInput(ctx context.Context, argv []string, input string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(input)

	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return fmt.Errorf("%s: %w (%s)", argv[0], err, detail)
		}
		return fmt.Errorf("%s: %w", argv[0], err)
	}
	return nil
}
