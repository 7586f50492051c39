package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle                 State = "idle"
	StateRequestingPermission State = "requesting_permission"
	StateRecording            State = "recording"
	StateStopping             State = "stopping"
	StateInterrupted          State = "interrupted"
)

const (
	EventStart     Event = "start"
	EventGranted   Event = "granted"
	EventAbort     Event = "abort"
	EventStop      Event = "stop"
	EventInterrupt Event = "interrupt"
	EventCancel    Event = "cancel"
	EventReset     Event = "reset"
	EventFinish    Event = "finish"
)

func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateRequestingPermission, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRequestingPermission:
		switch event {
		case EventGranted:
			return StateRecording, nil
		case EventAbort:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventStop:
			return StateStopping, nil
		case EventInterrupt:
			return StateInterrupted, nil
		case EventCancel, EventReset:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateStopping, StateInterrupted:
		switch event {
		case EventFinish:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Recording reports whether capture is live in state s.
func (s State) Recording() bool {
	return s == StateRecording
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
