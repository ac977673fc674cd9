// Package fsm defines the listener session state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
	StateDraining  State = "draining"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

const (
	EventStart   Event = "start"
	EventStop    Event = "stop"
	EventCancel  Event = "cancel"
	EventDrained Event = "drained"
	EventFail    Event = "fail"
)

// Transition applies one event to the current state. Failure is reachable
// from every state; all other transitions are explicit.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateFailed, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateListening, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateListening:
		switch event {
		case EventStop:
			return StateDraining, nil
		case EventCancel:
			return StateDone, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateDraining:
		switch event {
		case EventDrained:
			return StateDone, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateDone, StateFailed:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
