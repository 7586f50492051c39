package session

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied reports missing speech or microphone access.
	ErrPermissionDenied = errors.New("speech recognition and microphone permissions are required")
	// ErrRecognizerUnavailable reports that no recognizer can serve a recording.
	ErrRecognizerUnavailable = errors.New("speech recognizer is currently unavailable")
	// ErrStartCancelled reports a start superseded by stop or cancel.
	ErrStartCancelled = errors.New("start cancelled")
)

// CaptureError reports an audio capture failure.
type CaptureError struct {
	Message string
}

func (e *CaptureError) Error() string {
	return "audio capture failed: " + e.Message
}

// PersistenceError reports a failed store operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s transcript: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// UnknownError wraps an error outside the taxonomy.
type UnknownError struct {
	Cause error
}

func (e *UnknownError) Error() string {
	if e.Cause == nil {
		return "unknown error"
	}
	return e.Cause.Error()
}

func (e *UnknownError) Unwrap() error {
	return e.Cause
}

// ErrorKind is the taxonomy class of an error.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindPermissionDenied
	KindRecognizerUnavailable
	KindCapture
	KindPersistence
)

func (k ErrorKind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission_denied"
	case KindRecognizerUnavailable:
		return "recognizer_unavailable"
	case KindCapture:
		return "capture_failure"
	case KindPersistence:
		return "persistence_failure"
	default:
		return "unknown"
	}
}

// Classify maps err onto the taxonomy.
func Classify(err error) ErrorKind {
	var captureErr *CaptureError
	var persistErr *PersistenceError
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrRecognizerUnavailable):
		return KindRecognizerUnavailable
	case errors.As(err, &captureErr):
		return KindCapture
	case errors.As(err, &persistErr):
		return KindPersistence
	default:
		return KindUnknown
	}
}

// Notice is a non-blocking user-facing message.
type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Notice titles.
const (
	TitleError         = "Error"
	TitleSaveFailed    = "Save Failed"
	TitleUpdateFailed  = "Update Failed"
	TitleDeleteFailed  = "Delete Failed"
	TitleHistoryFailed = "Unable to load history"
	TitleInterrupted   = "Recording Interrupted"
)

const (
	interruptedMessage  = "Your transcript has been saved. Toggle recording to continue."
	interruptedNoSpeech = "Recording stopped before any speech was captured."
)

// NoticeFor builds the notice shown for err.
func NoticeFor(err error) Notice {
	var persistErr *PersistenceError
	if errors.As(err, &persistErr) {
		title := TitleError
		switch persistErr.Op {
		case "save":
			title = TitleSaveFailed
		case "update":
			title = TitleUpdateFailed
		case "delete":
			title = TitleDeleteFailed
		case "fetch":
			title = TitleHistoryFailed
		}
		return Notice{Title: title, Message: persistErr.Err.Error()}
	}
	return Notice{Title: TitleError, Message: err.Error()}
}
