// Package app wires parsed commands to the session controller and its collaborators.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rbright/kaiwa/internal/audio"
	"github.com/rbright/kaiwa/internal/cli"
	"github.com/rbright/kaiwa/internal/config"
	"github.com/rbright/kaiwa/internal/doctor"
	"github.com/rbright/kaiwa/internal/logging"
	"github.com/rbright/kaiwa/internal/recording"
	"github.com/rbright/kaiwa/internal/version"
)

const binaryName = "kaiwa"

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Logger *slog.Logger
	// Device replaces the PulseAudio capture device when set.
	Device recording.Device
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr, Stdin: os.Stdin}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return exitUsage
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return exitOK
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return exitOK
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitFailure
	}
	cfg := cfgLoaded.Config

	logRuntime, err := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return exitFailure
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
		logger.Warn("config warning", "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded, audio.SelectSource)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return exitOK
		}
		return exitFailure
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandRecord, cli.CommandStop, cli.CommandCancel:
		return r.forwardOrFail(ctx, string(parsed.Command))
	case cli.CommandAsk:
		return r.commandAsk(ctx, cfg, logger, parsed.Text)
	case cli.CommandSpeak:
		return r.commandSpeak(ctx, cfg, logger, parsed.Text, parsed.Out)
	case cli.CommandChat:
		return r.commandChat(ctx, cfg, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return exitUsage
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	sources, err := audio.ListSources(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitFailure
	}
	if len(sources) == 0 {
		fmt.Fprintln(r.Stdout, "no audio sources found")
		return exitFailure
	}

	for _, src := range sources {
		defaultMark := " "
		if src.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			src.ID,
			src.Description,
			src.State,
			yesNo(src.Available),
			yesNo(src.Muted),
		)
	}
	return exitOK
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
