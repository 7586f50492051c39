package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// CommandStream runs a local recognizer process: PCM is written to its stdin
// and JSONL events are read from its stdout.
type CommandStream struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger *slog.Logger
	events chan Event
	stderr *bytes.Buffer

	mu        sync.Mutex
	sendEnd   bool
	closed    bool
	cancel    context.CancelFunc
	waitDone  chan struct{}
	readDone  chan struct{}
	closeOnce sync.Once
}

// StartCommand launches argv with the session options exported as
// SCRIBE_LOCALE, SCRIBE_SAMPLE_RATE, SCRIBE_CHANNELS and SCRIBE_ON_DEVICE.
func StartCommand(ctx context.Context, argv []string, opts StartOptions, logger *slog.Logger) (*CommandStream, error) {
	if len(argv) == 0 {
		return nil, errors.New("recognizer command argv cannot be empty")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(),
		"SCRIBE_LOCALE="+opts.Locale,
		"SCRIBE_SAMPLE_RATE="+strconv.Itoa(opts.SampleRate),
		"SCRIBE_CHANNELS="+strconv.Itoa(opts.Channels),
		"SCRIBE_ON_DEVICE="+strconv.FormatBool(opts.OnDevice),
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open stdout for %s: %w", argv[0], err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start recognizer %s: %w", argv[0], err)
	}

	s := &CommandStream{
		cmd:      cmd,
		stdin:    stdin,
		logger:   logger.With("component", "speech.command", "command", argv[0]),
		events:   make(chan Event, 128),
		stderr:   stderr,
		cancel:   cancel,
		waitDone: make(chan struct{}),
		readDone: make(chan struct{}),
	}

	go s.readLoop(runCtx, stdout)
	go s.wait()

	return s, nil
}

// SendAudio writes PCM to the recognizer stdin.
func (s *CommandStream) SendAudio(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.sendEnd {
		return ErrStreamClosed
	}
	_, err := s.stdin.Write(pcm)
	return err
}

// CloseSend closes stdin so the recognizer can flush its final result.
func (s *CommandStream) CloseSend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendEnd || s.closed {
		return nil
	}
	s.sendEnd = true
	return s.stdin.Close()
}

// Events returns decoded recognizer events.
func (s *CommandStream) Events() <-chan Event {
	return s.events
}

// Close terminates the recognizer process and waits for it to exit.
func (s *CommandStream) Close() error {
	s.closeOnce.Do(func() {
		// Kill first so a blocked stdin write releases the lock.
		s.cancel()
		s.mu.Lock()
		s.closed = true
		if !s.sendEnd {
			s.sendEnd = true
			_ = s.stdin.Close()
		}
		s.mu.Unlock()
	})
	<-s.waitDone
	return nil
}

func (s *CommandStream) readLoop(ctx context.Context, stdout io.Reader) {
	defer close(s.readDone)
	defer close(s.events)

	err := ReadEvents(ctx, stdout, s.events)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("recognizer output decode failed", "error", err)
	}
}

// wait reaps the process once stdout is drained.
func (s *CommandStream) wait() {
	defer close(s.waitDone)
	<-s.readDone

	err := s.cmd.Wait()
	if msg := strings.TrimSpace(s.stderr.String()); msg != "" {
		s.logger.Debug("recognizer stderr", "output", msg)
	}
	if err != nil && !s.isClosed() {
		s.logger.Warn("recognizer exited", "error", err)
	}
}

func (s *CommandStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
