// Package app wires the CLI, configuration, logging, storage and the
// session engine into the scribe process.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rbright/scribe/internal/audio"
	"github.com/rbright/scribe/internal/cli"
	"github.com/rbright/scribe/internal/config"
	"github.com/rbright/scribe/internal/doctor"
	"github.com/rbright/scribe/internal/logging"
	"github.com/rbright/scribe/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr, Stdin: os.Stdin}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args, r.Stdout)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText())
		return 2
	}

	if parsed.ShowHelp {
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logger := r.Logger
	logPath := ""
	if logger == nil {
		logRuntime, err := logging.New(cfgLoaded.Config.Debug.LogLevel)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
			return 1
		}
		defer func() { _ = logRuntime.Close() }()
		logger = logRuntime.Logger
		logPath = logRuntime.Path
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logPath,
	)

	cfg := cfgLoaded.Config
	switch parsed.Command {
	case cli.CommandDoctor:
		return r.commandDoctor(ctx, cfgLoaded, logger)
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandLive:
		return r.commandLive(ctx, parsed)
	case cli.CommandStop, cli.CommandCancel:
		return r.forwardOrFail(ctx, string(parsed.Command))
	case cli.CommandToggle, cli.CommandStart:
		return r.commandRecord(ctx, string(parsed.Command), cfg, logger)
	case cli.CommandHistory:
		return r.commandHistory(ctx, cfg, parsed.Limit, logger)
	case cli.CommandShow:
		return r.commandShow(ctx, cfg, parsed.ID, parsed.Format, logger)
	case cli.CommandEdit:
		return r.commandEdit(ctx, cfg, parsed.ID, parsed.Text, logger)
	case cli.CommandDelete:
		return r.commandDelete(ctx, cfg, parsed.ID, logger)
	case cli.CommandAnalyze:
		return r.commandAnalyze(cfg, parsed.Text, parsed.Quick)
	case cli.CommandReplay:
		return r.commandReplay(ctx, cfg, parsed.File, parsed.DryRun, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDoctor(ctx context.Context, cfgLoaded config.Loaded, logger *slog.Logger) int {
	gw, closeStore, err := openStore(cfgLoaded.Config, logger)
	if err != nil {
		logger.Warn("doctor could not open store", "error", err.Error())
	} else {
		defer closeStore()
	}

	report := doctor.Run(ctx, cfgLoaded, gw)
	fmt.Fprintln(r.Stdout, report.String())
	if report.OK() {
		return 0
	}
	return 1
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}
	for _, device := range devices {
		fmt.Fprintln(r.Stdout, formatDevice(device))
	}
	return 0
}

// formatDevice renders one capture source; "*" marks the server default.
func formatDevice(d audio.Device) string {
	mark := " "
	if d.Default {
		mark = "*"
	}
	flags := []string{"state=" + d.State}
	if !d.Available {
		flags = append(flags, "unavailable")
	}
	if d.Muted {
		flags = append(flags, "muted")
	}
	if d.Usable() {
		flags = append(flags, "usable")
	}
	return fmt.Sprintf("%s %s  %q  [%s]", mark, d.ID, d.Description, strings.Join(flags, " "))
}
