// Package pipeline wires Pulse capture, local recordings and a streaming
// speech transport into the session recognizer contract.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/scribe/internal/audio"
	"github.com/rbright/scribe/internal/config"
	"github.com/rbright/scribe/internal/session"
	"github.com/rbright/scribe/internal/speech"
)

// pcmSource is the capture surface the pipeline consumes.
type pcmSource interface {
	Chunks() <-chan []byte
	Stop() error
	BytesCaptured() int64
	SinkErr() error
}

// Recognizer starts capture -> recognizer -> events pipelines. Each Start
// returns an independent Run. It implements session.PermissionRequester and
// session.Recognizer.
type Recognizer struct {
	cfg    config.Config
	logger *slog.Logger

	selectDevice func(ctx context.Context, input, fallback string) (audio.Selection, error)
	startCapture func(ctx context.Context, device audio.Device, sink io.Writer) (pcmSource, error)
	openStream   func(ctx context.Context, opts speech.StartOptions) (speech.Stream, error)
	checkHealth  func(ctx context.Context, target string, timeout time.Duration) error
	now          func() time.Time
}

// Run is one started recording. It implements session.RecognizerRun.
type Run struct {
	owner     *Recognizer
	events    chan speech.Event
	ended     atomic.Bool
	cancel    context.CancelFunc
	selection audio.Selection
	capture   pcmSource
	stream    speech.Stream
	wav       *audio.WAVFile
	dump      *os.File
	sendDone  chan struct{}
	closeOnce sync.Once
}

// NewRecognizer constructs a live recognizer from runtime config.
func NewRecognizer(cfg config.Config, logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Recognizer{
		cfg:          cfg,
		logger:       logger.With("component", "pipeline"),
		selectDevice: audio.SelectDevice,
		startCapture: func(ctx context.Context, device audio.Device, sink io.Writer) (pcmSource, error) {
			capture, err := audio.StartCapture(ctx, device, sink)
			if err != nil {
				return nil, err
			}
			return capture, nil
		},
		checkHealth: func(ctx context.Context, target string, timeout time.Duration) error {
			return speech.CheckHealth(ctx, target, "", timeout)
		},
		now: time.Now,
	}
	r.openStream = r.dialStream
	return r
}

// RequestPermissions confirms that Pulse is reachable and a usable input
// source can be selected.
func (r *Recognizer) RequestPermissions(ctx context.Context) error {
	selection, err := r.selectDevice(ctx, r.cfg.Audio.Input, r.cfg.Audio.Fallback)
	if err != nil {
		return fmt.Errorf("%w: %v", session.ErrPermissionDenied, err)
	}
	if !selection.Device.Usable() {
		return fmt.Errorf("%w: input %s is not usable", session.ErrPermissionDenied, describeDevice(selection.Device))
	}
	return nil
}

// Start checks recognizer health, opens the transport, starts capture and
// returns the handle for the run. Cancelling ctx tears the run down.
func (r *Recognizer) Start(ctx context.Context, opts session.StartOptions) (session.RecognizerRun, error) {
	if target := strings.TrimSpace(r.cfg.Recognizer.HealthTarget); target != "" {
		if err := r.checkHealth(ctx, target, r.startTimeout()); err != nil {
			return nil, fmt.Errorf("%w: %v", session.ErrRecognizerUnavailable, err)
		}
	}

	selection, err := r.selectDevice(ctx, r.cfg.Audio.Input, r.cfg.Audio.Fallback)
	if err != nil {
		return nil, &session.CaptureError{Message: err.Error()}
	}
	if selection.Warning != "" {
		r.logger.Warn(selection.Warning)
	}

	runCtx, cancel := context.WithCancel(ctx)
	rn := &Run{owner: r, cancel: cancel, selection: selection, sendDone: make(chan struct{})}

	stream, err := r.openStream(runCtx, speech.StartOptions{
		Locale:     opts.Locale,
		OnDevice:   opts.OnDevice,
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", session.ErrRecognizerUnavailable, err)
	}
	rn.stream = stream

	wav, err := r.createRecording()
	if err != nil {
		r.abort(rn)
		return nil, &session.CaptureError{Message: err.Error()}
	}
	rn.wav = wav

	if r.cfg.Debug.EventDump {
		dump, derr := createDebugFile("events", "jsonl", r.now())
		if derr != nil {
			r.logger.Warn("unable to create event dump", "error", derr.Error())
		} else {
			rn.dump = dump
		}
	}

	capture, err := r.startCapture(runCtx, selection.Device, wav)
	if err != nil {
		r.abort(rn)
		return nil, &session.CaptureError{Message: err.Error()}
	}
	rn.capture = capture

	rn.events = make(chan speech.Event, 64)
	go r.sendLoop(rn)
	go r.forward(runCtx, rn, rn.events)

	r.logger.Info("recognizer started",
		"device", describeDevice(selection.Device),
		"transport", r.cfg.Recognizer.Transport,
		"recording", wav.Path(),
	)
	return rn, nil
}

// Events returns the run's event channel. It closes once the recognizer
// stream ends or the run is cancelled.
func (rn *Run) Events() <-chan speech.Event {
	return rn.events
}

// Stop ends capture and finalizes the local recording. The recognizer keeps
// delivering its trailing events until it closes the event channel.
func (rn *Run) Stop(ctx context.Context) (session.Recording, error) {
	if !rn.ended.CompareAndSwap(false, true) {
		return session.Recording{}, nil
	}
	r := rn.owner

	_ = rn.capture.Stop()
	select {
	case <-rn.sendDone:
	case <-ctx.Done():
		rn.cancel()
	}

	if err := rn.capture.SinkErr(); err != nil {
		r.logger.Warn("recording write failed", "error", err.Error())
	}

	rec := session.Recording{
		Device:        describeDevice(rn.selection.Device),
		BytesCaptured: rn.capture.BytesCaptured(),
	}
	ref, checksum, err := r.finishRecording(rn.wav)
	rec.AudioRef = ref
	rec.AudioChecksum = checksum
	return rec, err
}

// Cancel discards the run and its recording.
func (rn *Run) Cancel(_ context.Context) error {
	if !rn.ended.CompareAndSwap(false, true) {
		return nil
	}
	r := rn.owner

	_ = rn.capture.Stop()
	rn.cancel()
	if err := rn.wav.Close(); err != nil {
		r.logger.Debug("close discarded recording", "error", err.Error())
	}
	if !r.cfg.Debug.AudioDump {
		removeRecording(r.logger, rn.wav.Path())
	}
	r.logger.Info("recognizer cancelled")
	return nil
}

// dialStream opens the configured speech transport.
func (r *Recognizer) dialStream(ctx context.Context, opts speech.StartOptions) (speech.Stream, error) {
	switch r.cfg.Recognizer.Transport {
	case config.TransportCommand:
		stream, err := speech.StartCommand(ctx, r.cfg.Recognizer.Command.Argv, opts, r.logger)
		if err != nil {
			return nil, err
		}
		return stream, nil
	default:
		stream, err := speech.DialWebSocket(ctx, speech.WebSocketConfig{
			Endpoint:    r.cfg.Recognizer.Endpoint,
			DialTimeout: r.startTimeout(),
			Options:     opts,
		}, r.logger)
		if err != nil {
			return nil, err
		}
		return stream, nil
	}
}

// sendLoop forwards capture chunks to the recognizer and half-closes the
// stream once capture ends. Chunks keep draining after a send failure.
func (r *Recognizer) sendLoop(rn *Run) {
	defer close(rn.sendDone)

	failed := false
	for chunk := range rn.capture.Chunks() {
		if failed || len(chunk) == 0 {
			continue
		}
		if err := rn.stream.SendAudio(chunk); err != nil {
			r.logger.Warn("send audio failed", "error", err.Error())
			failed = true
		}
	}
	if err := rn.stream.CloseSend(); err != nil {
		r.logger.Debug("close recognizer send side", "error", err.Error())
	}
}

// forward relays recognizer events until the stream ends or the run is
// cancelled, then closes the stream and the output channel.
func (r *Recognizer) forward(ctx context.Context, rn *Run, out chan<- speech.Event) {
	defer close(out)
	defer r.closeStream(rn)
	defer closeDump(rn)

	events := rn.stream.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.dumpEvent(rn, ev)
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (r *Recognizer) closeStream(rn *Run) {
	rn.closeOnce.Do(func() {
		if err := rn.stream.Close(); err != nil {
			r.logger.Debug("close recognizer stream", "error", err.Error())
		}
	})
}

// abort releases a partially started run.
func (r *Recognizer) abort(rn *Run) {
	rn.cancel()
	if rn.stream != nil {
		r.closeStream(rn)
	}
	closeDump(rn)
	if rn.wav != nil {
		_ = rn.wav.Close()
		removeRecording(r.logger, rn.wav.Path())
	}
}

// finishRecording patches the WAV header and hashes the file. Recordings
// that are not kept are removed after hashing and get no reference.
func (r *Recognizer) finishRecording(wav *audio.WAVFile) (string, string, error) {
	if err := wav.Close(); err != nil {
		return "", "", &session.CaptureError{Message: "finalize recording: " + err.Error()}
	}
	checksum, err := audio.ChecksumFile(wav.Path())
	if err != nil {
		return "", "", &session.CaptureError{Message: err.Error()}
	}
	if !r.keepRecordings() {
		removeRecording(r.logger, wav.Path())
		return "", checksum, nil
	}
	return wav.Path(), checksum, nil
}

func (r *Recognizer) createRecording() (*audio.WAVFile, error) {
	dir := strings.TrimSpace(r.cfg.Audio.RecordingsDir)
	if dir == "" {
		stateDir, err := config.StateDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(stateDir, "recordings")
	}
	stamp := r.now().Format("20060102-150405.000")
	name := fmt.Sprintf("recording-%s.wav", stamp)
	for attempt := 1; ; attempt++ {
		wav, err := audio.CreateWAV(filepath.Join(dir, name))
		if !errors.Is(err, os.ErrExist) || attempt >= maxRecordingNameAttempts {
			return wav, err
		}
		name = fmt.Sprintf("recording-%s-%d.wav", stamp, attempt)
	}
}

// maxRecordingNameAttempts bounds suffixing when runs start within the same
// millisecond.
const maxRecordingNameAttempts = 8

func (r *Recognizer) keepRecordings() bool {
	return r.cfg.Audio.KeepRecordings || r.cfg.Debug.AudioDump
}

func (r *Recognizer) startTimeout() time.Duration {
	if r.cfg.Recognizer.StartTimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(r.cfg.Recognizer.StartTimeoutMS) * time.Millisecond
}

func removeRecording(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("remove recording failed", "path", path, "error", err.Error())
	}
}

// describeDevice formats device metadata for logs and recording metadata.
func describeDevice(device audio.Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}
