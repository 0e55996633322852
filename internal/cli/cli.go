// Package cli parses the kaiwa command line into a Parsed invocation.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

type Command string

const (
	CommandChat    Command = "chat"
	CommandAsk     Command = "ask"
	CommandSpeak   Command = "speak"
	CommandRecord  Command = "record"
	CommandStop    Command = "stop"
	CommandCancel  Command = "cancel"
	CommandStatus  Command = "status"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

// Parsed is one resolved invocation.
type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
	// Text is the joined positional text of ask and speak.
	Text string
	// Out is the speak output file.
	Out string
}

// Parse resolves args (without the binary name). Every error is a usage error.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	root := newRoot(&parsed)
	root.SetArgs(args)

	if _, err := root.ExecuteC(); err != nil {
		return Parsed{}, err
	}
	return parsed, nil
}

func newRoot(parsed *Parsed) *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:           "kaiwa",
		Short:         "Bilingual voice and text assistant client",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(*cobra.Command, []string) error {
			if showVersion {
				parsed.Command = CommandVersion
				parsed.ShowHelp = false
			}
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetHelpFunc(func(*cobra.Command, []string) {
		parsed.Command = CommandHelp
		parsed.ShowHelp = true
	})

	root.PersistentFlags().StringVar(&parsed.ConfigPath, "config", "", "config file path")
	root.Flags().BoolVar(&showVersion, "version", false, "show version")

	simple := func(cmd Command, short string) *cobra.Command {
		return &cobra.Command{
			Use:   string(cmd),
			Short: short,
			Args:  noArgs,
			RunE: func(*cobra.Command, []string) error {
				parsed.Command = cmd
				parsed.ShowHelp = false
				return nil
			},
		}
	}

	ask := &cobra.Command{
		Use:   "ask TEXT...",
		Short: "Send one message and print the reply",
		Args:  textArgs(CommandAsk),
		RunE: func(_ *cobra.Command, args []string) error {
			parsed.Command = CommandAsk
			parsed.ShowHelp = false
			parsed.Text = strings.Join(args, " ")
			return nil
		},
	}

	speak := &cobra.Command{
		Use:   "speak TEXT...",
		Short: "Synthesize speech into a file",
		Args:  textArgs(CommandSpeak),
		RunE: func(_ *cobra.Command, args []string) error {
			parsed.Command = CommandSpeak
			parsed.ShowHelp = false
			parsed.Text = strings.Join(args, " ")
			return nil
		},
	}
	speak.Flags().StringVar(&parsed.Out, "out", "", "output file")

	root.AddCommand(
		simple(CommandChat, "Start an interactive session"),
		ask,
		speak,
		simple(CommandRecord, "Start recording in the running session"),
		simple(CommandStop, "Stop recording in the running session"),
		simple(CommandCancel, "Cancel the in-flight voice turn"),
		simple(CommandStatus, "Print the running session state"),
		simple(CommandDevices, "List capture devices"),
		simple(CommandDoctor, "Run configuration and environment checks"),
		simple(CommandVersion, "Print version information"),
	)
	return root
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments after command %q", cmd.Name())
	}
	return nil
}

func textArgs(cmd Command) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if strings.TrimSpace(strings.Join(args, " ")) == "" {
			return errors.New(string(cmd) + " requires text")
		}
		return nil
	}
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  chat             Start an interactive session (owns the control socket)
  ask TEXT...      Send one message and print the reply
  speak TEXT...    Synthesize speech into a file (--out FILE)
  record           Start recording in the running session
  stop             Stop recording and send the voice turn
  cancel           Cancel the in-flight voice turn
  status           Print the running session state
  devices          List capture devices
  doctor           Run configuration and environment checks
  version          Print version information
  help             Show this help

Chat commands:
  /record /stop /cancel /lang en|ja /reset /save [DIR] /speak N [FILE] /copy N /quit

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/kaiwa/config.yaml)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
