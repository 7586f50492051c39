package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rbright/scribe/internal/cli"
	"github.com/rbright/scribe/internal/ipc"
)

const (
	queryTimeout   = 250 * time.Millisecond
	controlTimeout = 10 * time.Second
)

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus})
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

// commandLive applies live edits in the order set, save, done and prints
// the resulting live text.
func (r Runner) commandLive(ctx context.Context, parsed cli.Parsed) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	var requests []ipc.Request
	if parsed.SetText {
		requests = append(requests, ipc.Request{Command: ipc.CommandEdit, Text: parsed.Text})
	}
	if parsed.Save {
		requests = append(requests, ipc.Request{Command: ipc.CommandPersist})
	}
	if parsed.Done {
		requests = append(requests, ipc.Request{Command: ipc.CommandDoneEditing})
	}
	if len(requests) == 0 {
		requests = append(requests, ipc.Request{Command: ipc.CommandLive})
	}

	var resp ipc.Response
	for _, req := range requests {
		var handled bool
		resp, handled, err = tryForward(ctx, socketPath, req)
		if !handled {
			fmt.Fprintln(r.Stderr, "error: no active scribe session")
			return 1
		}
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
	}

	text := resp.Live
	if resp.Editable != "" {
		text = resp.Editable
	}
	if text != "" {
		fmt.Fprintln(r.Stdout, text)
	}
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: command})
	if !handled {
		fmt.Fprintln(r.Stderr, "error: no active scribe session")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// tryForward sends req to a live owner. handled is false when no owner is
// listening.
func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	return ipc.Forward(ctx, socketPath, req, forwardTimeout(req.Command))
}

// forwardTimeout leaves room for stop to drain and persist.
func forwardTimeout(command string) time.Duration {
	switch command {
	case ipc.CommandStatus, ipc.CommandLive, ipc.CommandEdit, ipc.CommandDoneEditing:
		return queryTimeout
	default:
		return controlTimeout
	}
}
