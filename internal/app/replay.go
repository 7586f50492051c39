package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rbright/scribe/internal/aggregator"
	"github.com/rbright/scribe/internal/config"
	"github.com/rbright/scribe/internal/fsm"
	"github.com/rbright/scribe/internal/session"
	"github.com/rbright/scribe/internal/speech"
	"github.com/rbright/scribe/internal/store"
)

// replayRecognizer stands in for live capture while recorded events are fed
// through Engine.Emit. Each run is stateless, so it is its own handle.
type replayRecognizer struct{}

func (replayRecognizer) Start(context.Context, session.StartOptions) (session.RecognizerRun, error) {
	return replayRecognizer{}, nil
}

func (replayRecognizer) Events() <-chan speech.Event { return nil }

func (replayRecognizer) Stop(context.Context) (session.Recording, error) {
	return session.Recording{Device: "replay"}, nil
}

func (replayRecognizer) Cancel(context.Context) error { return nil }

// commandReplay runs a recorded JSONL event file through a session on a
// virtual clock that follows the event timestamps.
func (r Runner) commandReplay(ctx context.Context, cfg config.Config, path string, dryRun bool, logger *slog.Logger) int {
	events, err := readEventFile(path, r.Stdin)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(events) == 0 {
		fmt.Fprintln(r.Stderr, "error: no events to replay")
		return 1
	}

	var gw store.Gateway
	if dryRun {
		gw = store.NewMemory()
	} else {
		opened, closeStore, err := openStore(cfg, logger)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		defer closeStore()
		gw = opened
	}

	snap, err := replay(ctx, engineConfig(cfg), gw, events, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	logger.Info("replay complete",
		"events", len(events),
		"status", snap.StatusMessage,
		"transcript_id", snap.TranscriptID,
		"dry_run", dryRun,
	)
	return r.reportSession(snap)
}

func replay(ctx context.Context, cfg session.Config, gw store.Gateway, events []speech.Event, logger *slog.Logger) (session.Snapshot, error) {
	clock := aggregator.NewManualClock(events[0].Timestamp)
	engine := session.NewEngine(cfg, session.Deps{
		Logger:     logger,
		Recognizer: replayRecognizer{},
		Store:      gw,
		Clock:      clock,
	})

	if err := engine.Start(ctx); err != nil {
		return session.Snapshot{}, err
	}

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			_ = engine.Cancel(context.WithoutCancel(ctx))
			return engine.Snapshot(), nil
		}
		clock.AdvanceTo(ev.Timestamp)
		engine.Emit(ev)
		if engine.State() != fsm.StateRecording {
			return engine.Snapshot(), nil
		}
	}

	if err := engine.Stop(ctx); err != nil {
		logger.Warn("replay stop failed", "error", err.Error())
	}
	return engine.Snapshot(), nil
}

func readEventFile(path string, stdin io.Reader) ([]speech.Event, error) {
	if path == "-" {
		if stdin == nil {
			return nil, errors.New("no stdin to replay")
		}
		return speech.ReadAll(stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event file: %w", err)
	}
	defer f.Close()
	return speech.ReadAll(f)
}
