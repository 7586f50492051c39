package speech

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

const maxEventLineBytes = 1 << 20

// Decoder reads newline-delimited JSON events.
type Decoder struct {
	scanner *bufio.Scanner
	line    int
	now     func() time.Time
}

// NewDecoder wraps r. Events without a timestamp are stamped on read.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLineBytes)
	return &Decoder{scanner: scanner, now: time.Now}
}

// Next returns the next event, skipping blank lines and `#` comments.
// It returns io.EOF once the input is exhausted.
func (d *Decoder) Next() (Event, error) {
	for d.scanner.Scan() {
		d.line++
		line := bytes.TrimSpace(d.scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return Event{}, fmt.Errorf("event line %d: %w", d.line, err)
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = d.now()
		}
		return ev, nil
	}
	if err := d.scanner.Err(); err != nil {
		return Event{}, fmt.Errorf("read events: %w", err)
	}
	return Event{}, io.EOF
}

// ReadAll decodes every event in r.
func ReadAll(r io.Reader) ([]Event, error) {
	dec := NewDecoder(r)
	var events []Event
	for {
		ev, err := dec.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
}

// ReadEvents forwards decoded events to out until EOF, a decode error, or
// cancellation. A decode error is reported as an error event so consumers see
// it in stream order.
func ReadEvents(ctx context.Context, r io.Reader, out chan<- Event) error {
	dec := NewDecoder(r)
	for {
		ev, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			ev = Failure(0, err.Error())
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
		if err != nil {
			return err
		}
	}
}
