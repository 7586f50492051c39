// Package session coordinates the recording lifecycle: permissions,
// recognizer events, pause commits, normalization and persistence.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/scribe/internal/aggregator"
	"github.com/rbright/scribe/internal/fsm"
	"github.com/rbright/scribe/internal/speech"
	"github.com/rbright/scribe/internal/store"
	"github.com/rbright/scribe/internal/transcript"
)

// DefaultHistoryLimit is the number of transcripts kept in the history cache.
const DefaultHistoryLimit = 25

// Config tunes engine behavior.
type Config struct {
	Locale              string
	OnDevice            bool
	PauseDelay          time.Duration
	RegressionRatio     float64
	HistoryLimit        int
	IntelligentAnalysis bool
	Lexicon             transcript.Lexicon
	// DrainTimeout bounds the wait for trailing recognizer events on stop.
	DrainTimeout time.Duration
}

// DefaultConfig returns the stock engine configuration.
func DefaultConfig() Config {
	return Config{
		Locale:              "en-US",
		OnDevice:            true,
		PauseDelay:          aggregator.DefaultPauseDelay,
		RegressionRatio:     aggregator.DefaultRegressionRatio,
		HistoryLimit:        DefaultHistoryLimit,
		IntelligentAnalysis: true,
		Lexicon:             transcript.DefaultLexicon(),
		DrainTimeout:        2 * time.Second,
	}
}

// Deps are the engine collaborators. Nil fields get safe fallbacks.
type Deps struct {
	Logger        *slog.Logger
	Permissions   PermissionRequester
	Recognizer    Recognizer
	Interruptions InterruptionSource
	Store         store.Gateway
	Committer     Committer
	Indicator     Indicator
	Clock         aggregator.Clock
}

// Engine is the session state machine. All state mutation happens under mu;
// permission requests, recognizer calls and store I/O run without it and
// re-check the run generation when they complete.
type Engine struct {
	cfg        Config
	logger     *slog.Logger
	perms      PermissionRequester
	recognizer Recognizer
	interrupts InterruptionSource
	store      store.Gateway
	commit     Committer
	indicator  Indicator
	clock      aggregator.Clock
	normalizer transcript.Normalizer

	mu        sync.Mutex
	state     fsm.State
	run       uint64
	working   *aggregator.State
	agg       *aggregator.Aggregator
	runCancel context.CancelFunc
	active    RecognizerRun
	pumpDone  chan struct{}

	editing              bool
	intelligent          bool
	live                 string
	editable             string
	status               string
	history              []store.Transcript
	notice               *Notice
	permissionsConfirmed bool
	startedAt            time.Time
	transcriptID         string
	metadata             store.RecordingMetadata

	seq       uint64
	outbox    []Snapshot
	observers []observer
	nextObs   int
	deliverMu sync.Mutex
}

type observer struct {
	id int
	fn func(Snapshot)
}

// NewEngine builds an idle engine.
func NewEngine(cfg Config, deps Deps) *Engine {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 2 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Permissions == nil {
		deps.Permissions = grantedPermissions{}
	}
	if deps.Recognizer == nil {
		deps.Recognizer = unavailableRecognizer{}
	}
	if deps.Store == nil {
		deps.Store = store.NewMemory()
	}
	if deps.Indicator == nil {
		deps.Indicator = noopIndicator{}
	}
	if deps.Clock == nil {
		deps.Clock = aggregator.SystemClock{}
	}

	return &Engine{
		cfg:         cfg,
		logger:      deps.Logger,
		perms:       deps.Permissions,
		recognizer:  deps.Recognizer,
		interrupts:  deps.Interruptions,
		store:       deps.Store,
		commit:      deps.Committer,
		indicator:   deps.Indicator,
		clock:       deps.Clock,
		normalizer:  transcript.NewNormalizer(transcript.DefaultLexicon().Merge(cfg.Lexicon)),
		state:       fsm.StateIdle,
		working:     &aggregator.State{},
		intelligent: cfg.IntelligentAnalysis,
		status:      StatusReady,
	}
}

// State returns the current state machine state.
func (e *Engine) State() fsm.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot returns the current observable state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Subscribe registers fn for every published snapshot and returns a function
// that removes it. Observers run outside the engine lock, one snapshot at a
// time, and must not call mutating engine methods synchronously.
func (e *Engine) Subscribe(fn func(Snapshot)) func() {
	e.mu.Lock()
	e.nextObs++
	id := e.nextObs
	e.observers = append(e.observers, observer{id: id, fn: fn})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, o := range e.observers {
			if o.id == id {
				e.observers = append(e.observers[:i:i], e.observers[i+1:]...)
				return
			}
		}
	}
}

// Toggle stops an active or pending recording, or starts one from Idle.
func (e *Engine) Toggle(ctx context.Context) error {
	switch e.State() {
	case fsm.StateRecording, fsm.StateRequestingPermission:
		return e.Stop(ctx)
	case fsm.StateIdle:
		return e.Start(ctx)
	default:
		return nil
	}
}

// Start requests permissions if needed, starts the recognizer and enters
// Recording. Failures return to Idle with a notice.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if err := e.transitionLocked(fsm.EventStart); err != nil {
		e.mu.Unlock()
		return err
	}
	e.run++
	run := e.run
	e.resetWorkingLocked()
	e.notice = nil
	e.status = StatusPreparing
	e.transcriptID = uuid.NewString()
	confirmed := e.permissionsConfirmed
	e.publishLocked()
	e.mu.Unlock()
	e.deliver()

	if !confirmed {
		if err := e.perms.RequestPermissions(ctx); err != nil {
			return e.abortStart(ctx, run, err)
		}
		e.mu.Lock()
		e.permissionsConfirmed = true
		e.mu.Unlock()
	}

	e.mu.Lock()
	if e.run != run || e.state != fsm.StateRequestingPermission {
		e.mu.Unlock()
		return ErrStartCancelled
	}
	e.startedAt = e.clock.Now()
	opts := StartOptions{Locale: e.cfg.Locale, OnDevice: e.cfg.OnDevice}
	e.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	handle, err := e.recognizer.Start(runCtx, opts)
	if err != nil {
		cancel()
		return e.abortStart(ctx, run, err)
	}

	e.mu.Lock()
	if e.run != run || e.state != fsm.StateRequestingPermission {
		e.mu.Unlock()
		e.logger.Info("start superseded; discarding recognizer run")
		_ = handle.Cancel(context.WithoutCancel(ctx))
		cancel()
		return ErrStartCancelled
	}
	_ = e.transitionLocked(fsm.EventGranted)
	e.runCancel = cancel
	e.active = handle
	e.pumpDone = make(chan struct{})
	e.agg = aggregator.New(e.working, e.clock, aggregator.Options{
		PauseDelay:      e.cfg.PauseDelay,
		RegressionRatio: e.cfg.RegressionRatio,
	}, func(gen uint64) { e.onPause(run, gen) })
	if opts.OnDevice {
		e.status = StatusRecordingOnDevice
	} else {
		e.status = StatusRecording
	}
	done := e.pumpDone
	id := e.transcriptID
	e.publishLocked()
	e.mu.Unlock()
	e.deliver()

	e.logger.Info("recording started", "transcript_id", id, "locale", opts.Locale)
	e.indicator.ShowRecording(ctx)

	go e.pump(run, handle.Events(), done)
	if e.interrupts != nil {
		go e.watchInterruptions(runCtx, run)
	}
	return nil
}

func (e *Engine) abortStart(ctx context.Context, run uint64, err error) error {
	e.mu.Lock()
	if e.run != run || e.state != fsm.StateRequestingPermission {
		e.mu.Unlock()
		return ErrStartCancelled
	}
	err = classified(err)
	_ = e.transitionLocked(fsm.EventAbort)
	e.run++
	e.resetWorkingLocked()
	notice := NoticeFor(err)
	e.notice = &notice
	e.status = errorStatus(err)
	e.publishLocked()
	e.mu.Unlock()
	e.deliver()

	e.logger.Error("recording start failed", "kind", Classify(err).String(), "error", err.Error())
	e.indicator.ShowNotice(ctx, notice.Title, notice.Message)
	return err
}

// abortPendingLocked cancels a start that has not reached Recording.
func (e *Engine) abortPendingLocked(status string) {
	_ = e.transitionLocked(fsm.EventAbort)
	e.run++
	e.resetWorkingLocked()
	e.status = status
	e.publishLocked()
}

// Stop ends the active recording: trailing events are drained, the current
// partial is flushed, the text is normalized and the transcript persisted.
// While a start is still pending it cancels that start. Otherwise a no-op.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case fsm.StateRequestingPermission:
		e.abortPendingLocked(StatusReady)
		e.mu.Unlock()
		e.deliver()
		return nil
	case fsm.StateRecording:
	default:
		e.mu.Unlock()
		return nil
	}
	_ = e.transitionLocked(fsm.EventStop)
	run := e.run
	done := e.pumpDone
	handle := e.takeActiveLocked()
	e.status = StatusProcessing
	e.publishLocked()
	e.mu.Unlock()
	e.deliver()

	e.indicator.ShowProcessing(ctx)
	e.indicator.CueStop(ctx)

	rec, err := stopRun(ctx, handle)
	if err != nil {
		e.logger.Warn("recognizer stop failed", "error", err.Error())
	}
	e.awaitDrain(ctx, done)

	e.mu.Lock()
	if e.run != run || e.state != fsm.StateStopping {
		e.mu.Unlock()
		return nil
	}
	e.run++
	cancel := e.endRunLocked()
	e.agg.Flush()
	e.live = e.working.LiveText()
	if e.live != "" && !e.editing {
		e.status = StatusAnalyzing
		e.editable = e.render(e.live)
	}
	tr, ok := e.buildTranscriptLocked(rec)
	e.publishLocked()
	e.mu.Unlock()
	e.deliver()
	cancel()

	return e.finish(ctx, tr, ok, StatusSaved, nil)
}

// Cancel discards the active or pending recording without persisting it.
func (e *Engine) Cancel(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case fsm.StateRequestingPermission:
		e.abortPendingLocked(StatusCancelled)
		e.mu.Unlock()
		e.deliver()
		return nil
	case fsm.StateRecording:
	default:
		e.mu.Unlock()
		return nil
	}
	_ = e.transitionLocked(fsm.EventCancel)
	e.run++
	handle := e.takeActiveLocked()
	cancel := e.endRunLocked()
	e.resetWorkingLocked()
	e.status = StatusCancelled
	e.publishLocked()
	e.mu.Unlock()
	e.deliver()

	err := cancelRun(ctx, handle)
	cancel()
	e.indicator.CueCancel(ctx)
	e.indicator.Hide(ctx)
	e.logger.Info("recording cancelled")
	return err
}

// Interrupt ends the active recording as an interruption: the current
// partial is committed unconditionally and the transcript persisted.
func (e *Engine) Interrupt(ctx context.Context, reason string) error {
	e.mu.Lock()
	if e.state != fsm.StateRecording {
		e.mu.Unlock()
		return nil
	}
	return e.interruptLocked(ctx, reason, nil)
}

// Emit handles one recognizer event. Events outside an active recording
// are dropped.
func (e *Engine) Emit(ev speech.Event) {
	e.emit(0, false, ev)
}

func (e *Engine) emit(run uint64, pinned bool, ev speech.Event) {
	e.mu.Lock()
	if pinned && run != e.run {
		e.mu.Unlock()
		return
	}

	textual := ev.Kind == speech.KindPartial || ev.Kind == speech.KindFinal
	if e.state != fsm.StateRecording && !(textual && e.state == fsm.StateStopping) {
		e.logger.Debug("event dropped", "kind", string(ev.Kind), "state", string(e.state))
		e.mu.Unlock()
		return
	}

	switch ev.Kind {
	case speech.KindPartial, speech.KindFinal:
		e.agg.Handle(ev)
		e.refreshLocked()
		if e.state == fsm.StateRecording {
			e.status = StatusListening
		}
		e.publishLocked()
		e.mu.Unlock()
		e.deliver()
	case speech.KindReset:
		_ = e.transitionLocked(fsm.EventReset)
		e.run++
		e.agg.Handle(ev)
		handle := e.takeActiveLocked()
		cancel := e.endRunLocked()
		e.resetWorkingLocked()
		e.status = StatusReady
		e.publishLocked()
		e.mu.Unlock()
		e.deliver()

		if err := cancelRun(context.Background(), handle); err != nil {
			e.logger.Warn("recognizer cancel after reset failed", "error", err.Error())
		}
		cancel()
		e.indicator.Hide(context.Background())
	case speech.KindInterrupted:
		_ = e.interruptLocked(context.Background(), "recognizer interrupted", nil)
	case speech.KindError:
		if speech.IsIgnorable(ev.Code) {
			e.logger.Debug("ignorable recognizer error", "code", ev.Code, "message", ev.Text)
			e.mu.Unlock()
			return
		}
		err := fmt.Errorf("recognizer error %d: %s", ev.Code, ev.Text)
		_ = e.interruptLocked(context.Background(), err.Error(), &Notice{Title: TitleError, Message: err.Error()})
	default:
		e.mu.Unlock()
	}
}

// interruptLocked runs the interruption path. It is entered with mu held in
// Recording and returns with mu released.
func (e *Engine) interruptLocked(ctx context.Context, reason string, cause *Notice) error {
	_ = e.transitionLocked(fsm.EventInterrupt)
	e.run++
	handle := e.takeActiveLocked()
	cancel := e.endRunLocked()
	e.agg.Handle(speech.Interrupted())
	e.live = e.working.LiveText()
	if e.live != "" && !e.editing {
		e.status = StatusAnalyzingPartial
		e.editable = e.render(e.live)
	}
	e.publishLocked()
	e.mu.Unlock()
	e.deliver()

	e.logger.Warn("recording interrupted", "reason", reason)

	rec, err := stopRun(ctx, handle)
	if err != nil {
		e.logger.Warn("recognizer stop after interruption failed", "error", err.Error())
	}
	cancel()

	e.mu.Lock()
	tr, ok := e.buildTranscriptLocked(rec)
	e.mu.Unlock()

	notice := Notice{Title: TitleInterrupted, Message: interruptedMessage}
	if !ok {
		notice.Message = interruptedNoSpeech
	}
	status := StatusInterrupted
	if cause != nil {
		notice = *cause
		status = "Error: " + cause.Message
	}
	return e.finish(ctx, tr, ok, status, &notice)
}

// finish persists tr when ok, refreshes history and returns to Idle.
func (e *Engine) finish(ctx context.Context, tr store.Transcript, ok bool, status string, notice *Notice) error {
	var persistErr error
	var history []store.Transcript
	var historyErr error
	if ok {
		persistErr = e.persist(ctx, tr)
		if persistErr == nil {
			history, historyErr = e.fetchHistory(ctx)
		}
	}

	e.mu.Lock()
	switch {
	case !ok && notice == nil:
		e.status = StatusReady
	case persistErr != nil:
		n := NoticeFor(persistErr)
		notice = &n
		e.status = errorStatus(persistErr)
	default:
		e.status = status
	}
	if historyErr == nil && history != nil {
		e.history = history
	}
	if historyErr != nil && notice == nil {
		n := NoticeFor(historyErr)
		notice = &n
	}
	if notice != nil {
		e.notice = notice
	}
	_ = e.transitionLocked(fsm.EventFinish)
	e.publishLocked()
	e.mu.Unlock()
	e.deliver()

	if notice != nil {
		e.indicator.ShowNotice(ctx, notice.Title, notice.Message)
	}
	if ok && persistErr == nil {
		e.logger.Info("transcript saved", "transcript_id", tr.ID, "chars", len(tr.EditedText))
		e.dispatch(ctx, tr)
		e.indicator.CueComplete(ctx)
	}
	if notice == nil {
		e.indicator.Hide(ctx)
	}
	return persistErr
}

func (e *Engine) dispatch(ctx context.Context, tr store.Transcript) {
	if e.commit == nil {
		return
	}
	if err := e.commit.Commit(ctx, tr.DisplayText()); err != nil {
		e.logger.Error("output dispatch failed", "transcript_id", tr.ID, "error", err.Error())
		e.indicator.ShowNotice(ctx, TitleError, "Output dispatch failed")
	}
}

// persist saves tr, or updates it when its id is already in history.
func (e *Engine) persist(ctx context.Context, tr store.Transcript) error {
	e.mu.Lock()
	exists := e.historyIndexLocked(tr.ID) >= 0
	e.mu.Unlock()

	var err error
	if exists {
		err = e.store.Update(ctx, tr)
	} else {
		err = e.store.Save(ctx, tr)
	}
	if err != nil {
		e.logger.Error("transcript persist failed", "transcript_id", tr.ID, "error", err.Error())
		return &PersistenceError{Op: "save", Err: err}
	}

	e.mu.Lock()
	if i := e.historyIndexLocked(tr.ID); i >= 0 {
		tr.OriginalText = e.history[i].OriginalText
		tr.CreatedAt = e.history[i].CreatedAt
		e.history[i] = tr
	} else {
		e.history = append([]store.Transcript{tr}, e.history...)
	}
	e.mu.Unlock()
	return nil
}

func (e *Engine) fetchHistory(ctx context.Context) ([]store.Transcript, error) {
	items, err := e.store.FetchRecent(ctx, e.cfg.HistoryLimit)
	if err != nil {
		e.logger.Warn("history refresh failed", "error", err.Error())
		return nil, &PersistenceError{Op: "fetch", Err: err}
	}
	if items == nil {
		items = []store.Transcript{}
	}
	return items, nil
}

// LoadHistory refreshes the history cache from the store.
func (e *Engine) LoadHistory(ctx context.Context) error {
	items, err := e.fetchHistory(ctx)

	e.mu.Lock()
	if err != nil {
		n := NoticeFor(err)
		e.notice = &n
	} else {
		e.history = items
	}
	e.publishLocked()
	e.mu.Unlock()
	e.deliver()
	return err
}

// SetEditing switches edit mode. Leaving edit mode resets the editable text
// to the raw live text; unsaved edits are discarded.
func (e *Engine) SetEditing(editing bool) {
	e.mu.Lock()
	e.editing = editing
	if !editing {
		e.editable = e.live
	}
	e.publishLocked()
	e.mu.Unlock()
	e.deliver()
}

// UpdateEditedText replaces the editable text.
func (e *Engine) UpdateEditedText(text string) {
	e.mu.Lock()
	e.editable = text
	e.publishLocked()
	e.mu.Unlock()
	e.deliver()
}

// SetIntelligentAnalysis toggles normalization of the editable view.
func (e *Engine) SetIntelligentAnalysis(enabled bool) {
	e.mu.Lock()
	e.intelligent = enabled
	if !e.editing && e.live != "" {
		e.editable = e.render(e.live)
	}
	e.publishLocked()
	e.mu.Unlock()
	e.deliver()
}

// DismissNotice clears the current notice.
func (e *Engine) DismissNotice() {
	e.mu.Lock()
	e.notice = nil
	e.publishLocked()
	e.mu.Unlock()
	e.deliver()
}

// PersistChanges saves the current live and editable text under the current
// transcript id. It does nothing when there is no live text.
func (e *Engine) PersistChanges(ctx context.Context) error {
	e.mu.Lock()
	if e.live == "" {
		e.mu.Unlock()
		return nil
	}
	meta := e.metadata
	if meta.EndTime.IsZero() {
		meta = e.metadataLocked(Recording{})
	}
	tr := e.transcriptLocked(meta)
	e.mu.Unlock()

	err := e.persist(ctx, tr)

	e.mu.Lock()
	if err != nil {
		n := NoticeFor(err)
		e.notice = &n
	}
	e.publishLocked()
	e.mu.Unlock()
	e.deliver()
	return err
}

// UpdateTranscriptText stores text as the edited text of t. On failure the
// history cache keeps its previous entry.
func (e *Engine) UpdateTranscriptText(ctx context.Context, t store.Transcript, text string) (store.Transcript, error) {
	updated := t
	updated.EditedText = text
	updated.UpdatedAt = e.clock.Now()

	if err := e.store.Update(ctx, updated); err != nil {
		err = &PersistenceError{Op: "update", Err: err}
		e.mu.Lock()
		n := NoticeFor(err)
		e.notice = &n
		e.publishLocked()
		e.mu.Unlock()
		e.deliver()
		return t, err
	}

	e.mu.Lock()
	if i := e.historyIndexLocked(t.ID); i >= 0 {
		e.history[i] = updated
	}
	e.publishLocked()
	e.mu.Unlock()
	e.deliver()
	return updated, nil
}

// DeleteTranscript removes id from the store and the history cache. On
// failure the history cache is left unchanged.
func (e *Engine) DeleteTranscript(ctx context.Context, id string) error {
	if err := e.store.Delete(ctx, id); err != nil {
		err = &PersistenceError{Op: "delete", Err: err}
		e.mu.Lock()
		n := NoticeFor(err)
		e.notice = &n
		e.publishLocked()
		e.mu.Unlock()
		e.deliver()
		return err
	}

	e.mu.Lock()
	if i := e.historyIndexLocked(id); i >= 0 {
		e.history = append(e.history[:i:i], e.history[i+1:]...)
	}
	e.publishLocked()
	e.mu.Unlock()
	e.deliver()
	return nil
}

// pump feeds one run's recognizer events into the engine. A nil channel
// means events arrive through Emit instead.
func (e *Engine) pump(run uint64, events <-chan speech.Event, done chan struct{}) {
	defer close(done)
	if events == nil {
		return
	}
	for ev := range events {
		e.emit(run, true, ev)
	}

	e.mu.Lock()
	if e.run == run && e.state == fsm.StateRecording {
		_ = e.interruptLocked(context.Background(), "recognizer stream ended", nil)
		return
	}
	e.mu.Unlock()
}

func (e *Engine) awaitDrain(ctx context.Context, done <-chan struct{}) {
	if done == nil {
		return
	}
	timer := time.NewTimer(e.cfg.DrainTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		e.logger.Warn("recognizer did not close its event stream", "timeout", e.cfg.DrainTimeout.String())
	case <-ctx.Done():
	}
}

func (e *Engine) watchInterruptions(ctx context.Context, run uint64) {
	ch, err := e.interrupts.Watch(ctx)
	if err != nil {
		e.logger.Warn("interruption watch unavailable", "error", err.Error())
		return
	}
	select {
	case <-ctx.Done():
	case intr, ok := <-ch:
		if !ok {
			return
		}
		e.mu.Lock()
		if e.run != run || e.state != fsm.StateRecording {
			e.mu.Unlock()
			return
		}
		_ = e.interruptLocked(context.Background(), intr.Reason, nil)
	}
}

func (e *Engine) onPause(run, gen uint64) {
	e.mu.Lock()
	if run != e.run || (e.state != fsm.StateRecording && e.state != fsm.StateStopping) {
		e.mu.Unlock()
		return
	}
	update := e.agg.Pause(gen)
	if !update.Changed {
		e.mu.Unlock()
		return
	}
	e.refreshLocked()
	e.publishLocked()
	e.mu.Unlock()
	e.deliver()
}

func (e *Engine) render(text string) string {
	if !e.intelligent {
		return text
	}
	return e.normalizer.Analyze(text)
}

func (e *Engine) refreshLocked() {
	e.live = e.working.LiveText()
	if !e.editing {
		e.editable = e.render(e.live)
	}
}

func (e *Engine) resetWorkingLocked() {
	if e.agg != nil {
		e.agg.Close()
		e.agg = nil
	}
	e.working = &aggregator.State{}
	e.live = ""
	e.editable = ""
	e.metadata = store.RecordingMetadata{}
}

// endRunLocked detaches the run context and pause timer; the returned cancel
// must be called once the recognizer is done with the run.
// takeActiveLocked detaches the current recognizer run so exactly one
// caller ends it.
func (e *Engine) takeActiveLocked() RecognizerRun {
	handle := e.active
	e.active = nil
	return handle
}

func stopRun(ctx context.Context, handle RecognizerRun) (Recording, error) {
	if handle == nil {
		return Recording{}, nil
	}
	return handle.Stop(ctx)
}

func cancelRun(ctx context.Context, handle RecognizerRun) error {
	if handle == nil {
		return nil
	}
	return handle.Cancel(ctx)
}

func (e *Engine) endRunLocked() context.CancelFunc {
	if e.agg != nil {
		e.agg.Close()
	}
	cancel := e.runCancel
	e.runCancel = nil
	if cancel == nil {
		cancel = func() {}
	}
	return cancel
}

func (e *Engine) metadataLocked(rec Recording) store.RecordingMetadata {
	end := e.clock.Now()
	start := e.startedAt
	if start.IsZero() {
		start = end
	}
	return store.RecordingMetadata{
		StartTime:     start,
		EndTime:       end,
		Duration:      end.Sub(start),
		AudioRef:      rec.AudioRef,
		AudioChecksum: rec.AudioChecksum,
		Locale:        e.cfg.Locale,
		OnDevice:      e.cfg.OnDevice,
	}
}

func (e *Engine) buildTranscriptLocked(rec Recording) (store.Transcript, bool) {
	if e.live == "" {
		return store.Transcript{}, false
	}
	e.metadata = e.metadataLocked(rec)
	return e.transcriptLocked(e.metadata), true
}

func (e *Engine) transcriptLocked(meta store.RecordingMetadata) store.Transcript {
	edited := e.editable
	if edited == "" {
		edited = e.live
	}
	if e.transcriptID == "" {
		e.transcriptID = uuid.NewString()
	}
	return store.Transcript{
		ID:           e.transcriptID,
		OriginalText: e.live,
		EditedText:   edited,
		CreatedAt:    meta.StartTime,
		UpdatedAt:    e.clock.Now(),
		Metadata:     meta,
	}
}

func (e *Engine) historyIndexLocked(id string) int {
	for i, t := range e.history {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) transitionLocked(event fsm.Event) error {
	next, err := fsm.Transition(e.state, event)
	if err != nil {
		return err
	}
	e.logger.Debug("state transition", "from", string(e.state), "event", string(event), "to", string(next))
	e.state = next
	return nil
}

func (e *Engine) snapshotLocked() Snapshot {
	history := make([]store.Transcript, len(e.history))
	copy(history, e.history)

	var notice *Notice
	if e.notice != nil {
		n := *e.notice
		notice = &n
	}
	return Snapshot{
		Seq:                 e.seq,
		State:               e.state,
		IsRecording:         e.state.Recording(),
		Editing:             e.editing,
		IntelligentAnalysis: e.intelligent,
		LiveText:            e.live,
		EditableText:        e.editable,
		StatusMessage:       e.status,
		TranscriptID:        e.transcriptID,
		History:             history,
		Notice:              notice,
	}
}

func (e *Engine) publishLocked() {
	e.seq++
	e.outbox = append(e.outbox, e.snapshotLocked())
}

// deliver hands queued snapshots to observers in sequence order.
func (e *Engine) deliver() {
	e.deliverMu.Lock()
	defer e.deliverMu.Unlock()

	e.mu.Lock()
	batch := e.outbox
	e.outbox = nil
	observers := make([]observer, len(e.observers))
	copy(observers, e.observers)
	e.mu.Unlock()

	for _, snap := range batch {
		for _, o := range observers {
			o.fn(snap)
		}
	}
}

func classified(err error) error {
	if Classify(err) != KindUnknown {
		return err
	}
	var unknown *UnknownError
	if errors.As(err, &unknown) {
		return err
	}
	return &UnknownError{Cause: err}
}
