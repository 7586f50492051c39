package session

import (
	"context"
	"testing"

	"github.com/rbright/scribe/internal/fsm"
	"github.com/rbright/scribe/internal/ipc"
	"github.com/rbright/scribe/internal/speech"
	"github.com/stretchr/testify/require"
)

func TestHandleLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	resp := h.engine.Handle(ctx, ipc.Request{Command: ipc.CommandStatus})
	require.True(t, resp.OK)
	require.Equal(t, string(fsm.StateIdle), resp.State)
	require.Equal(t, StatusReady, resp.Status)

	resp = h.engine.Handle(ctx, ipc.Request{Command: ipc.CommandStart})
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, string(fsm.StateRecording), resp.State)

	resp = h.engine.Handle(ctx, ipc.Request{Command: ipc.CommandStart})
	require.False(t, resp.OK)
	require.Equal(t, "cannot start from state recording", resp.Error)

	h.engine.Emit(speech.Partial("hello there"))
	resp = h.engine.Handle(ctx, ipc.Request{Command: ipc.CommandLive})
	require.Equal(t, "hello there", resp.Live)
	require.Equal(t, "Hello there.", resp.Editable)

	resp = h.engine.Handle(ctx, ipc.Request{Command: ipc.CommandStop})
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, string(fsm.StateIdle), resp.State)
	require.Equal(t, StatusSaved, resp.Status)

	resp = h.engine.Handle(ctx, ipc.Request{Command: ipc.CommandStop})
	require.False(t, resp.OK)
	require.Equal(t, "cannot stop from state idle", resp.Error)

	resp = h.engine.Handle(ctx, ipc.Request{Command: ipc.CommandCancel})
	require.False(t, resp.OK)
	require.Equal(t, "cannot cancel from state idle", resp.Error)
}

func TestHandleEditing(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.start(t)
	h.engine.Emit(speech.Final("rough draft"))
	require.NoError(t, h.engine.Stop(ctx))

	resp := h.engine.Handle(ctx, ipc.Request{Command: ipc.CommandEdit, Text: "Polished draft."})
	require.True(t, resp.OK)
	require.Equal(t, "Polished draft.", resp.Editable)
	require.True(t, h.engine.Snapshot().Editing)

	resp = h.engine.Handle(ctx, ipc.Request{Command: ipc.CommandPersist})
	require.True(t, resp.OK, resp.Error)
	saved := h.store.all(t)
	require.Len(t, saved, 1)
	require.Equal(t, "Polished draft.", saved[0].EditedText)

	resp = h.engine.Handle(ctx, ipc.Request{Command: ipc.CommandDoneEditing})
	require.True(t, resp.OK)
	require.Equal(t, "rough draft", resp.Editable)
}

func TestHandleToggleAndCancel(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	resp := h.engine.Handle(ctx, ipc.Request{Command: ipc.CommandToggle})
	require.True(t, resp.OK)
	require.Equal(t, string(fsm.StateRecording), resp.State)

	resp = h.engine.Handle(ctx, ipc.Request{Command: ipc.CommandCancel})
	require.True(t, resp.OK)
	require.Equal(t, StatusCancelled, resp.Status)
}

func TestHandleReportsFailures(t *testing.T) {
	h := newHarness(t, nil)
	h.perms.err = ErrPermissionDenied

	resp := h.engine.Handle(context.Background(), ipc.Request{Command: ipc.CommandStart})
	require.False(t, resp.OK)
	require.Equal(t, ErrPermissionDenied.Error(), resp.Error)
	require.Equal(t, string(fsm.StateIdle), resp.State)
}

func TestHandleUnknownCommand(t *testing.T) {
	h := newHarness(t, nil)

	resp := h.engine.Handle(context.Background(), ipc.Request{Command: "explode"})
	require.False(t, resp.OK)
	require.Equal(t, "unknown command: explode", resp.Error)
}
