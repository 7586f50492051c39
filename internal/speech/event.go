// Package speech defines recognizer hypothesis events and the transports that carry them.
package speech

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind identifies one recognizer event type.
type Kind string

const (
	KindPartial     Kind = "partial"
	KindFinal       Kind = "final"
	KindReset       Kind = "reset"
	KindInterrupted Kind = "interrupted"
	KindError       Kind = "error"
)

// Event is one timestamped recognizer output.
type Event struct {
	Kind      Kind
	Text      string
	Code      int
	Timestamp time.Time
}

func Partial(text string) Event { return Event{Kind: KindPartial, Text: text, Timestamp: time.Now()} }
func Final(text string) Event   { return Event{Kind: KindFinal, Text: text, Timestamp: time.Now()} }
func Reset() Event              { return Event{Kind: KindReset, Timestamp: time.Now()} }
func Interrupted() Event        { return Event{Kind: KindInterrupted, Timestamp: time.Now()} }

// Failure builds an error event carrying a recognizer status code.
func Failure(code int, message string) Event {
	return Event{Kind: KindError, Code: code, Text: message, Timestamp: time.Now()}
}

// ignorableCodes are recognizer statuses that carry no user-visible meaning
// (no speech detected, request cancelled, session retired by the server).
var ignorableCodes = map[int]struct{}{
	203:  {},
	216:  {},
	301:  {},
	1100: {},
	1101: {},
	1110: {},
}

// IsIgnorable reports whether an error code is benign upstream noise.
func IsIgnorable(code int) bool {
	_, ok := ignorableCodes[code]
	return ok
}

// wireEvent is the JSON representation shared by every transport.
type wireEvent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Code int    `json:"code,omitempty"`
	TS   string `json:"ts,omitempty"`
}

// MarshalJSON encodes the event in wire form.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{Type: string(e.Kind), Text: e.Text, Code: e.Code}
	if !e.Timestamp.IsZero() {
		w.TS = e.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire form and validates the event type.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	kind := Kind(strings.ToLower(strings.TrimSpace(w.Type)))
	switch kind {
	case KindPartial, KindFinal, KindReset, KindInterrupted, KindError:
	default:
		return fmt.Errorf("unknown event type %q", w.Type)
	}

	var ts time.Time
	if w.TS != "" {
		parsed, err := time.Parse(time.RFC3339Nano, w.TS)
		if err != nil {
			return fmt.Errorf("parse event ts %q: %w", w.TS, err)
		}
		ts = parsed
	}

	*e = Event{Kind: kind, Text: w.Text, Code: w.Code, Timestamp: ts}
	return nil
}
