package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbright/scribe/internal/fsm"
	"github.com/rbright/scribe/internal/ipc"
)

// Handle serves IPC commands for the owner process.
func (e *Engine) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	var err error
	message := req.Command

	switch req.Command {
	case ipc.CommandStatus, ipc.CommandLive:
	case ipc.CommandToggle:
		err = e.Toggle(ctx)
	case ipc.CommandStart:
		if state := e.State(); state != fsm.StateIdle {
			return e.response(message, fmt.Errorf("cannot start from state %s", state))
		}
		err = e.Start(ctx)
	case ipc.CommandStop:
		if state := e.State(); state != fsm.StateRecording && state != fsm.StateRequestingPermission {
			return e.response(message, fmt.Errorf("cannot stop from state %s", state))
		}
		err = e.Stop(ctx)
	case ipc.CommandCancel:
		if state := e.State(); state != fsm.StateRecording && state != fsm.StateRequestingPermission {
			return e.response(message, fmt.Errorf("cannot cancel from state %s", state))
		}
		err = e.Cancel(ctx)
	case ipc.CommandEdit:
		e.SetEditing(true)
		e.UpdateEditedText(req.Text)
	case ipc.CommandDoneEditing:
		e.SetEditing(false)
	case ipc.CommandPersist:
		err = e.PersistChanges(ctx)
	default:
		return e.response(message, fmt.Errorf("unknown command: %s", req.Command))
	}

	if errors.Is(err, ErrStartCancelled) {
		err = nil
		message = "start cancelled"
	}
	return e.response(message, err)
}

func (e *Engine) response(message string, err error) ipc.Response {
	snap := e.Snapshot()
	resp := ipc.Response{
		OK:       err == nil,
		State:    string(snap.State),
		Status:   snap.StatusMessage,
		Live:     snap.LiveText,
		Editable: snap.EditableText,
		Message:  message,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
