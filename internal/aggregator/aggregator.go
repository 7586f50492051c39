package aggregator

import (
	"time"

	"github.com/rbright/scribe/internal/speech"
)

// DefaultPauseDelay is the silence after the last partial that commits it.
const DefaultPauseDelay = 2 * time.Second

// Options tunes pause detection and regression handling.
type Options struct {
	PauseDelay      time.Duration
	RegressionRatio float64
}

// Update describes the effect of one handled event.
type Update struct {
	LiveText  string
	Committed []string
	// Changed is false when the event left the live text untouched.
	Changed bool
}

// Aggregator applies recognizer events to a State.
//
// It is not safe for concurrent use: the owner must call Handle, Pause and
// Flush from a single serialization point. Pause timers call the onPause hook
// with a generation number; the owner re-enters its serialization point and
// passes it back to Pause, which ignores superseded generations.
type Aggregator struct {
	state   *State
	clock   Clock
	opts    Options
	onPause func(gen uint64)

	timer Timer
	gen   uint64
}

// New builds an aggregator over state. A nil onPause disables pause commits.
func New(state *State, clock Clock, opts Options, onPause func(gen uint64)) *Aggregator {
	if state == nil {
		state = &State{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if opts.PauseDelay <= 0 {
		opts.PauseDelay = DefaultPauseDelay
	}
	if opts.RegressionRatio <= 0 || opts.RegressionRatio >= 1 {
		opts.RegressionRatio = DefaultRegressionRatio
	}
	return &Aggregator{state: state, clock: clock, opts: opts, onPause: onPause}
}

// State exposes the working state for reads by the owner.
func (a *Aggregator) State() *State {
	return a.state
}

// Handle applies one event. Interrupted and Reset only touch working state;
// finalization is left to the owner.
func (a *Aggregator) Handle(ev speech.Event) Update {
	switch ev.Kind {
	case speech.KindPartial:
		return a.partial(ev.Text)
	case speech.KindFinal:
		return a.final(ev.Text)
	case speech.KindReset:
		a.cancelTimer()
		a.state.Clear()
		return Update{Changed: true}
	case speech.KindInterrupted:
		return a.interrupt()
	default:
		return Update{LiveText: a.state.LiveText()}
	}
}

func (a *Aggregator) partial(text string) Update {
	var committed []string
	if DecideWithRatio(a.state.LastPartial, text, a.opts.RegressionRatio) == CommitPrevious {
		if a.state.Commit(a.state.LastPartial) {
			committed = append(committed, a.state.LastPartial)
		}
	}

	a.state.LastPartial = text
	a.state.Current = text
	a.reschedule()

	return Update{LiveText: a.state.LiveText(), Committed: committed, Changed: true}
}

func (a *Aggregator) final(text string) Update {
	var committed []string
	if a.state.Commit(text) {
		committed = append(committed, text)
	}
	a.state.Current = ""
	return Update{LiveText: a.state.LiveText(), Committed: committed, Changed: true}
}

func (a *Aggregator) interrupt() Update {
	a.cancelTimer()
	var committed []string
	if a.state.Current != "" {
		a.state.Segments = append(a.state.Segments, a.state.Current)
		committed = append(committed, a.state.Current)
		a.state.Current = ""
	}
	return Update{LiveText: a.state.LiveText(), Committed: committed, Changed: len(committed) > 0}
}

// Pause commits the current partial if gen is still the live timer.
func (a *Aggregator) Pause(gen uint64) Update {
	if gen != a.gen || a.timer == nil {
		return Update{LiveText: a.state.LiveText()}
	}
	a.timer = nil

	if !a.state.Commit(a.state.Current) {
		return Update{LiveText: a.state.LiveText()}
	}
	committed := []string{a.state.Current}
	a.state.Current = ""
	return Update{LiveText: a.state.LiveText(), Committed: committed, Changed: true}
}

// Flush cancels the pause timer and commits the current partial unless it is
// empty or a duplicate of the last segment.
func (a *Aggregator) Flush() Update {
	a.cancelTimer()
	var committed []string
	if a.state.Commit(a.state.Current) {
		committed = append(committed, a.state.Current)
	}
	a.state.Current = ""
	return Update{LiveText: a.state.LiveText(), Committed: committed, Changed: len(committed) > 0}
}

// Close cancels any pending timer without touching state.
func (a *Aggregator) Close() {
	a.cancelTimer()
}

// Pending reports whether a pause timer is armed.
func (a *Aggregator) Pending() bool {
	return a.timer != nil
}

func (a *Aggregator) reschedule() {
	a.cancelTimer()
	if a.onPause == nil {
		return
	}
	gen := a.gen
	onPause := a.onPause
	a.timer = a.clock.AfterFunc(a.opts.PauseDelay, func() { onPause(gen) })
}

func (a *Aggregator) cancelTimer() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
}
