// Package indicator handles desktop notifications and audio cue playback.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/scribe/internal/config"
)

// notifyFunc sends or replaces a desktop notification and returns its id.
type notifyFunc func(ctx context.Context, appName string, replaceID uint32, summary, body string, timeoutMS int) (uint32, error)

// dismissFunc closes a desktop notification by id.
type dismissFunc func(ctx context.Context, id uint32) error

// cueFunc plays one audio cue.
type cueFunc func(kind cueKind, cfg config.IndicatorConfig) error

// Desktop shows recording state as a replaceable freedesktop notification
// and plays audio cues through Pulse.
type Desktop struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages

	notify  notifyFunc
	dismiss dismissFunc
	cue     cueFunc

	mu             sync.Mutex
	notificationID uint32
	soundMu        sync.Mutex
	cues           sync.WaitGroup
}

// NewDesktop creates an indicator from config.
func NewDesktop(cfg config.IndicatorConfig, logger *slog.Logger) *Desktop {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Desktop{
		cfg:      cfg,
		logger:   logger,
		messages: indicatorMessagesFromEnv(),
		notify:   desktopNotify,
		dismiss:  desktopDismiss,
		cue:      emitCue,
	}
}

// ShowRecording signals recording start and emits the start cue.
func (d *Desktop) ShowRecording(ctx context.Context) {
	d.playCue(cueStart)
	d.show(ctx, d.messages.recording, "", 0)
}

// ShowProcessing signals that the recording is being finalized.
func (d *Desktop) ShowProcessing(ctx context.Context) {
	d.show(ctx, d.messages.processing, "", 0)
}

// ShowNotice plays the notice cue and displays a titled message that expires
// after the error timeout.
func (d *Desktop) ShowNotice(ctx context.Context, title, message string) {
	if strings.TrimSpace(title) == "" {
		title = d.messages.errorText
	}
	timeout := d.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	d.playCue(cueNotice)
	d.show(ctx, title, message, timeout)
}

// CueStop emits the stop cue.
func (d *Desktop) CueStop(context.Context) {
	d.playCue(cueStop)
}

// CueComplete emits the successful-save cue.
func (d *Desktop) CueComplete(context.Context) {
	d.playCue(cueComplete)
}

// CueCancel emits the cancel cue.
func (d *Desktop) CueCancel(context.Context) {
	d.playCue(cueCancel)
}

// Hide dismisses the active notification.
func (d *Desktop) Hide(ctx context.Context) {
	if !d.cfg.Enable {
		return
	}
	d.mu.Lock()
	id := d.notificationID
	d.notificationID = 0
	d.mu.Unlock()
	if id == 0 {
		return
	}
	d.run(ctx, func(ctx context.Context) error { return d.dismiss(ctx, id) })
}

// Wait blocks until queued audio cues have finished.
func (d *Desktop) Wait() {
	d.cues.Wait()
}

// show sends a notification that replaces the previous one. A zero timeout
// keeps it visible until Hide.
func (d *Desktop) show(ctx context.Context, summary, body string, timeoutMS int) {
	if !d.cfg.Enable {
		return
	}
	if timeoutMS == 0 {
		timeoutMS = 300000
	}

	d.run(ctx, func(ctx context.Context) error {
		d.mu.Lock()
		replaceID := d.notificationID
		d.mu.Unlock()

		id, err := d.notify(ctx, d.appName(), replaceID, summary, body, timeoutMS)
		if err != nil {
			return err
		}

		d.mu.Lock()
		d.notificationID = id
		d.mu.Unlock()
		return nil
	})
}

func (d *Desktop) appName() string {
	if name := strings.TrimSpace(d.cfg.DesktopAppName); name != "" {
		return name
	}
	return "scribe"
}

// run executes an indicator operation with a bounded timeout.
func (d *Desktop) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		d.logger.Debug("indicator dispatch failed", "error", err.Error())
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (d *Desktop) playCue(kind cueKind) {
	if !d.cfg.SoundEnable {
		return
	}
	d.cues.Add(1)
	go func() {
		defer d.cues.Done()
		d.soundMu.Lock()
		defer d.soundMu.Unlock()
		if err := d.cue(kind, d.cfg); err != nil {
			d.logger.Debug("indicator audio cue failed", "cue", kind.String(), "error", err.Error())
		}
	}()
}
