package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (Parsed, string, error) {
	t.Helper()
	var out bytes.Buffer
	parsed, err := Parse(args, &out)
	return parsed, out.String(), err
}

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, out, err := parse(t)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
	require.Contains(t, out, "Usage:")
	require.Contains(t, out, "toggle")
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, _, err := parse(t, "--config", "/tmp/scribe.jsonc", "doctor")
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/scribe.jsonc", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
}

func TestParseConfigAfterCommand(t *testing.T) {
	parsed, _, err := parse(t, "status", "--config", "/tmp/cfg")
	require.NoError(t, err)
	require.Equal(t, CommandStatus, parsed.Command)
	require.Equal(t, "/tmp/cfg", parsed.ConfigPath)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  string
		wantCmd  Command
		wantHelp bool
	}{
		{name: "help short flag", args: []string{"-h"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help long flag", args: []string{"--help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help command", args: []string{"help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "version flag", args: []string{"--version"}, wantCmd: CommandVersion},
		{name: "version command", args: []string{"version"}, wantCmd: CommandVersion},
		{name: "toggle", args: []string{"toggle"}, wantCmd: CommandToggle},
		{name: "start", args: []string{"start"}, wantCmd: CommandStart},
		{name: "stop", args: []string{"stop"}, wantCmd: CommandStop},
		{name: "cancel", args: []string{"cancel"}, wantCmd: CommandCancel},
		{name: "devices", args: []string{"devices"}, wantCmd: CommandDevices},
		{name: "missing config path", args: []string{"--config"}, wantErr: "flag needs an argument"},
		{name: "unknown flag", args: []string{"--wat"}, wantErr: "unknown flag"},
		{name: "unknown command", args: []string{"wat"}, wantErr: "unknown command"},
		{name: "extra args", args: []string{"stop", "now"}, wantErr: "unknown command"},
		{name: "show needs id", args: []string{"show"}, wantErr: "accepts 1 arg"},
		{name: "edit needs text", args: []string{"edit", "abc"}, wantErr: "requires at least 2 arg"},
		{name: "bad format", args: []string{"show", "abc", "--format", "xml"}, wantErr: "invalid --format"},
		{name: "negative limit", args: []string{"history", "--limit", "-1"}, wantErr: "--limit must be >= 0"},
		{name: "replay needs file", args: []string{"replay"}, wantErr: "accepts 1 arg"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, _, err := parse(t, tc.args...)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
		})
	}
}

func TestParseLive(t *testing.T) {
	parsed, _, err := parse(t, "live")
	require.NoError(t, err)
	require.Equal(t, CommandLive, parsed.Command)
	require.False(t, parsed.SetText)

	parsed, _, err = parse(t, "live", "--set", "", "--done", "--save")
	require.NoError(t, err)
	require.True(t, parsed.SetText)
	require.Empty(t, parsed.Text)
	require.True(t, parsed.Done)
	require.True(t, parsed.Save)
}

func TestParseTranscriptCommands(t *testing.T) {
	parsed, _, err := parse(t, "history", "--limit", "5")
	require.NoError(t, err)
	require.Equal(t, CommandHistory, parsed.Command)
	require.Equal(t, 5, parsed.Limit)

	parsed, _, err = parse(t, "show", "abc", "--format", "Markdown")
	require.NoError(t, err)
	require.Equal(t, CommandShow, parsed.Command)
	require.Equal(t, "abc", parsed.ID)
	require.Equal(t, FormatMarkdown, parsed.Format)

	parsed, _, err = parse(t, "show", "abc")
	require.NoError(t, err)
	require.Equal(t, FormatText, parsed.Format)

	parsed, _, err = parse(t, "edit", "abc", "new", "words")
	require.NoError(t, err)
	require.Equal(t, CommandEdit, parsed.Command)
	require.Equal(t, "abc", parsed.ID)
	require.Equal(t, "new words", parsed.Text)

	parsed, _, err = parse(t, "delete", "abc")
	require.NoError(t, err)
	require.Equal(t, CommandDelete, parsed.Command)
	require.Equal(t, "abc", parsed.ID)
}

func TestParseAnalyzeAndReplay(t *testing.T) {
	parsed, _, err := parse(t, "analyze", "--quick", "hello", "world")
	require.NoError(t, err)
	require.Equal(t, CommandAnalyze, parsed.Command)
	require.True(t, parsed.Quick)
	require.Equal(t, "hello world", parsed.Text)

	parsed, _, err = parse(t, "analyze")
	require.NoError(t, err)
	require.Empty(t, parsed.Text)

	parsed, _, err = parse(t, "replay", "events.jsonl", "--dry-run")
	require.NoError(t, err)
	require.Equal(t, CommandReplay, parsed.Command)
	require.Equal(t, "events.jsonl", parsed.File)
	require.True(t, parsed.DryRun)
}

func TestHelpTextListsCommands(t *testing.T) {
	text := HelpText()
	for _, name := range []string{"toggle", "live", "history", "show", "analyze", "replay", "doctor", "--config"} {
		require.Contains(t, text, name)
	}
}
