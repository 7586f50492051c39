package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rbright/scribe/internal/audio"
	"github.com/rbright/scribe/internal/config"
	"github.com/rbright/scribe/internal/fsm"
	"github.com/rbright/scribe/internal/indicator"
	"github.com/rbright/scribe/internal/ipc"
	"github.com/rbright/scribe/internal/output"
	"github.com/rbright/scribe/internal/pipeline"
	"github.com/rbright/scribe/internal/session"
	"github.com/rbright/scribe/internal/transcript"
)

// commandRecord forwards toggle/start to a live owner, or becomes the owner
// for one recording.
func (r Runner) commandRecord(ctx context.Context, command string, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	req := ipc.Request{Command: command}
	resp, handled, err := tryForward(ctx, socketPath, req)
	if handled {
		return r.printForwarded(resp, err)
	}

	listener, err := ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{ProbeTimeout: 180 * time.Millisecond, Retries: 8})
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			resp, _, forwardErr := tryForward(ctx, socketPath, req)
			return r.printForwarded(resp, forwardErr)
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	gw, closeStore, err := openStore(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer closeStore()

	recognizer := pipeline.NewRecognizer(cfg, logger)
	desktop := indicator.NewDesktop(cfg.Indicator, logger)
	defer desktop.Wait()

	deps := session.Deps{
		Logger:        logger,
		Permissions:   recognizer,
		Recognizer:    recognizer,
		Interruptions: pipeline.NewRouteWatcher(audio.DefaultWatchInterval),
		Store:         gw,
		Indicator:     desktop,
	}
	if cfg.Output.Clipboard {
		deps.Committer = output.NewCommitter(cfg.Output, logger)
	}

	engine := session.NewEngine(engineConfig(cfg), deps)
	return r.serveOwner(ctx, listener, engine, logger)
}

func (r Runner) printForwarded(resp ipc.Response, err error) int {
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// serveOwner starts a recording on engine, serves IPC on listener until the
// recording returns to idle, then reports the outcome.
func (r Runner) serveOwner(ctx context.Context, listener net.Listener, engine *session.Engine, logger *slog.Logger) int {
	finished := make(chan session.Snapshot, 1)
	var once sync.Once
	active := false
	unsubscribe := engine.Subscribe(func(snap session.Snapshot) {
		if snap.State != fsm.StateIdle {
			active = true
			return
		}
		if active {
			once.Do(func() { finished <- snap })
		}
	})
	defer unsubscribe()

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, ipc.HandlerFunc(func(reqCtx context.Context, req ipc.Request) ipc.Response {
			return engine.Handle(context.WithoutCancel(reqCtx), req)
		}))
	}()

	if err := engine.LoadHistory(ctx); err != nil {
		logger.Warn("history load failed", "error", err.Error())
	}

	startedAt := time.Now()
	var snap session.Snapshot
	if err := engine.Start(ctx); err != nil {
		snap = engine.Snapshot()
		if errors.Is(err, session.ErrStartCancelled) {
			snap.StatusMessage = session.StatusCancelled
		}
	} else {
		select {
		case snap = <-finished:
		case <-ctx.Done():
			cleanupCtx := context.WithoutCancel(ctx)
			if cancelErr := engine.Cancel(cleanupCtx); cancelErr != nil {
				logger.Warn("cancel on shutdown failed", "error", cancelErr.Error())
			}
			select {
			case snap = <-finished:
			case <-time.After(controlTimeout):
				snap = engine.Snapshot()
			}
		}
	}

	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logSessionResult(logger, snap, startedAt, time.Now())
	return r.reportSession(snap)
}

func (r Runner) reportSession(snap session.Snapshot) int {
	switch {
	case snap.StatusMessage == session.StatusCancelled:
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	case strings.HasPrefix(snap.StatusMessage, "Error: "):
		message := strings.TrimPrefix(snap.StatusMessage, "Error: ")
		if snap.Notice != nil && snap.Notice.Message != "" {
			message = snap.Notice.Message
		}
		fmt.Fprintf(r.Stderr, "error: %s\n", message)
		return 1
	}

	if snap.StatusMessage == session.StatusInterrupted && snap.Notice != nil {
		fmt.Fprintf(r.Stderr, "warning: %s\n", snap.Notice.Message)
	}
	if text := strings.TrimSpace(snap.EditableText); text != "" {
		fmt.Fprintln(r.Stdout, text)
	}
	return 0
}

func logSessionResult(logger *slog.Logger, snap session.Snapshot, startedAt, finishedAt time.Time) {
	if logger == nil {
		return
	}
	fields := []any{
		"state", snap.State,
		"status", snap.StatusMessage,
		"transcript_id", snap.TranscriptID,
		"started_at", startedAt.Format(time.RFC3339Nano),
		"finished_at", finishedAt.Format(time.RFC3339Nano),
		"duration_ms", finishedAt.Sub(startedAt).Milliseconds(),
		"transcript_length", len(snap.EditableText),
		"history", len(snap.History),
	}

	if snap.Notice != nil && strings.HasPrefix(snap.StatusMessage, "Error: ") {
		logger.Error("session failed", append(fields, "error", snap.Notice.Message)...)
		return
	}
	logger.Info("session complete", fields...)
}

func engineConfig(cfg config.Config) session.Config {
	out := session.DefaultConfig()
	out.Locale = cfg.Recognizer.Locale
	out.OnDevice = cfg.Recognizer.OnDevice
	if cfg.Session.PauseMS > 0 {
		out.PauseDelay = time.Duration(cfg.Session.PauseMS) * time.Millisecond
	}
	if cfg.Session.RegressionRatio > 0 {
		out.RegressionRatio = cfg.Session.RegressionRatio
	}
	if cfg.Session.HistoryLimit > 0 {
		out.HistoryLimit = cfg.Session.HistoryLimit
	}
	out.IntelligentAnalysis = cfg.Session.IntelligentAnalysis
	out.Lexicon = lexicon(cfg.Lexicon)
	return out
}

func lexicon(cfg config.LexiconConfig) transcript.Lexicon {
	return transcript.DefaultLexicon().Merge(transcript.Lexicon{
		SentenceEnders:   cfg.SentenceEnders,
		QuestionWords:    cfg.QuestionWords,
		ExclamationWords: cfg.ExclamationWords,
	})
}
