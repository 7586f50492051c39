package session

import (
	"context"

	"github.com/rbright/scribe/internal/speech"
)

// PermissionRequester confirms that capture and recognition are allowed.
// It returns ErrPermissionDenied or ErrRecognizerUnavailable on refusal.
type PermissionRequester interface {
	RequestPermissions(ctx context.Context) error
}

// StartOptions configures one recognizer run.
type StartOptions struct {
	Locale   string
	OnDevice bool
}

// Recording describes captured audio returned by RecognizerRun.Stop.
type Recording struct {
	AudioRef      string
	AudioChecksum string
	Device        string
	BytesCaptured int64
}

// Recognizer drives capture and speech recognition. Start begins one run;
// ctx bounds the whole run.
type Recognizer interface {
	Start(ctx context.Context, opts StartOptions) (RecognizerRun, error)
}

// RecognizerRun is the handle for a single started run. Runs are
// independent: ending one never touches another.
//
// Events returns the run's channel; nil means events arrive through
// Engine.Emit. Stop ends capture, lets the recognizer deliver its remaining
// events and closes the channel. Cancel discards the run. Only the first of
// Stop or Cancel has an effect, and neither may block on the channel being
// drained.
type RecognizerRun interface {
	Events() <-chan speech.Event
	Stop(ctx context.Context) (Recording, error)
	Cancel(ctx context.Context) error
}

// Interruption is an external signal that ends the active recording.
type Interruption struct {
	Reason string
}

// InterruptionSource produces interruptions (audio session loss, input route
// changes) until ctx is done.
type InterruptionSource interface {
	Watch(ctx context.Context) (<-chan Interruption, error)
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowRecording(context.Context)
	ShowProcessing(context.Context)
	ShowNotice(ctx context.Context, title, message string)
	CueStop(context.Context)
	CueComplete(context.Context)
	CueCancel(context.Context)
	Hide(context.Context)
}

// Committer receives the display text of each saved transcript, for
// example to place it on the clipboard. Failures are reported as a notice
// and never undo the save.
type Committer interface {
	Commit(ctx context.Context, text string) error
}

// CommitFunc lets a plain function serve as a Committer.
type CommitFunc func(ctx context.Context, text string) error

func (f CommitFunc) Commit(ctx context.Context, text string) error { return f(ctx, text) }

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowRecording(context.Context)              {}
func (noopIndicator) ShowProcessing(context.Context)             {}
func (noopIndicator) ShowNotice(context.Context, string, string) {}
func (noopIndicator) CueStop(context.Context)                    {}
func (noopIndicator) CueComplete(context.Context)                {}
func (noopIndicator) CueCancel(context.Context)                  {}
func (noopIndicator) Hide(context.Context)                       {}

// grantedPermissions is used when no PermissionRequester is wired.
type grantedPermissions struct{}

func (grantedPermissions) RequestPermissions(context.Context) error { return nil }

// unavailableRecognizer is used when no Recognizer is wired.
type unavailableRecognizer struct{}

func (unavailableRecognizer) Start(context.Context, StartOptions) (RecognizerRun, error) {
	return nil, ErrRecognizerUnavailable
}
