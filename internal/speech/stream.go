package speech

import "errors"

// ErrStreamClosed is returned when audio is sent after CloseSend or Close.
var ErrStreamClosed = errors.New("recognizer stream closed")

// Stream is one live recognition session: PCM goes in, events come out.
// Events is closed once the recognizer finishes or the stream is closed.
type Stream interface {
	SendAudio([]byte) error
	CloseSend() error
	Events() <-chan Event
	Close() error
}

// StartOptions describes the audio and language of one recognition session.
type StartOptions struct {
	Locale     string
	OnDevice   bool
	SampleRate int
	Channels   int
}
