// Package cli defines the scribe command tree and parses argv into a
// command the app runner dispatches.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

type Command string

const (
	CommandToggle  Command = "toggle"
	CommandStart   Command = "start"
	CommandStop    Command = "stop"
	CommandCancel  Command = "cancel"
	CommandStatus  Command = "status"
	CommandLive    Command = "live"
	CommandHistory Command = "history"
	CommandShow    Command = "show"
	CommandEdit    Command = "edit"
	CommandDelete  Command = "delete"
	CommandAnalyze Command = "analyze"
	CommandReplay  Command = "replay"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

// Output formats for show.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Parsed is the resolved invocation.
type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool

	// ID is the transcript id for show, edit and delete.
	ID string
	// Text is the joined text argument for edit, analyze and live --set.
	Text string
	// File is the event file for replay.
	File string

	SetText bool
	Done    bool
	Save    bool
	Limit   int
	Format  string
	Quick   bool
	DryRun  bool
}

// Parse runs the command tree over args. Help output goes to stdout.
func Parse(args []string, stdout io.Writer) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	root := NewRootCmd(&parsed)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stdout)
	if err := root.Execute(); err != nil {
		return Parsed{}, err
	}
	return parsed, nil
}

// HelpText renders root usage for error output.
func HelpText() string {
	return NewRootCmd(&Parsed{}).UsageString()
}

// NewRootCmd builds the command tree. Each command's RunE records the
// invocation into parsed instead of doing work.
func NewRootCmd(parsed *Parsed) *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:           "scribe",
		Short:         "Live speech transcription with editable history",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showVersion {
				parsed.Command = CommandVersion
				parsed.ShowHelp = false
				return nil
			}
			return cmd.Help()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&parsed.ConfigPath, "config", "", "config file path (default $XDG_CONFIG_HOME/scribe/config.jsonc)")
	root.Flags().BoolVar(&showVersion, "version", false, "print version information")

	root.AddCommand(
		simpleCmd(parsed, CommandToggle, "Start recording, or stop and save when already recording"),
		simpleCmd(parsed, CommandStart, "Start recording"),
		simpleCmd(parsed, CommandStop, "Stop the active recording and save the transcript"),
		simpleCmd(parsed, CommandCancel, "Discard the active recording"),
		simpleCmd(parsed, CommandStatus, "Print the session state"),
		newLiveCmd(parsed),
		newHistoryCmd(parsed),
		newShowCmd(parsed),
		newEditCmd(parsed),
		newDeleteCmd(parsed),
		newAnalyzeCmd(parsed),
		newReplayCmd(parsed),
		simpleCmd(parsed, CommandDevices, "List available input devices"),
		simpleCmd(parsed, CommandDoctor, "Run configuration and environment checks"),
		simpleCmd(parsed, CommandVersion, "Print version information"),
	)
	return root
}

func record(parsed *Parsed, command Command) {
	parsed.Command = command
	parsed.ShowHelp = false
}

func simpleCmd(parsed *Parsed, command Command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(command),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			record(parsed, command)
			return nil
		},
	}
}

func newLiveCmd(parsed *Parsed) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Print or edit the live transcript of the active recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed.SetText = cmd.Flags().Changed("set")
			record(parsed, CommandLive)
			return nil
		},
	}
	cmd.Flags().StringVar(&parsed.Text, "set", "", "replace the editable text and enter editing")
	cmd.Flags().BoolVar(&parsed.Done, "done", false, "leave editing")
	cmd.Flags().BoolVar(&parsed.Save, "save", false, "persist the current text")
	return cmd
}

func newHistoryCmd(parsed *Parsed) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent transcripts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if parsed.Limit < 0 {
				return fmt.Errorf("--limit must be >= 0")
			}
			record(parsed, CommandHistory)
			return nil
		},
	}
	cmd.Flags().IntVar(&parsed.Limit, "limit", 0, "maximum transcripts to list (default session.history_limit)")
	return cmd
}

func newShowCmd(parsed *Parsed) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Print one transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			parsed.Format = strings.ToLower(strings.TrimSpace(parsed.Format))
			switch parsed.Format {
			case FormatText, FormatJSON, FormatMarkdown:
			default:
				return fmt.Errorf("invalid --format %q (want text, json or markdown)", parsed.Format)
			}
			parsed.ID = args[0]
			record(parsed, CommandShow)
			return nil
		},
	}
	cmd.Flags().StringVar(&parsed.Format, "format", FormatText, "output format: text, json or markdown")
	return cmd
}

func newEditCmd(parsed *Parsed) *cobra.Command {
	return &cobra.Command{
		Use:   "edit ID TEXT...",
		Short: "Replace the edited text of a transcript",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			parsed.ID = args[0]
			parsed.Text = strings.Join(args[1:], " ")
			record(parsed, CommandEdit)
			return nil
		},
	}
}

func newDeleteCmd(parsed *Parsed) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			parsed.ID = args[0]
			record(parsed, CommandDelete)
			return nil
		},
	}
}

func newAnalyzeCmd(parsed *Parsed) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [TEXT...]",
		Short: "Normalize text into punctuated sentences (reads stdin when TEXT is empty)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			parsed.Text = strings.Join(args, " ")
			record(parsed, CommandAnalyze)
			return nil
		},
	}
	cmd.Flags().BoolVar(&parsed.Quick, "quick", false, "only collapse whitespace and capitalize")
	return cmd
}

func newReplayCmd(parsed *Parsed) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Run a recorded JSONL event file through the session engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			parsed.File = args[0]
			record(parsed, CommandReplay)
			return nil
		},
	}
	cmd.Flags().BoolVar(&parsed.DryRun, "dry-run", false, "keep the result in memory instead of the configured store")
	return cmd
}
