// Package fsm defines the session phases. Recording and processing never overlap.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
)

const (
	// EventRecord starts capture.
	EventRecord Event = "record"
	// EventStop ends capture and hands the artifact to the pipeline.
	EventStop Event = "stop"
	// EventAbort ends capture without a turn, for a device that failed to open.
	EventAbort Event = "abort"
	// EventSubmit starts a typed turn.
	EventSubmit Event = "submit"
	// EventSettle ends a turn whatever its outcome.
	EventSettle Event = "settle"
)

func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventRecord:
			return StateRecording, nil
		case EventSubmit:
			return StateProcessing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventStop:
			return StateProcessing, nil
		case EventAbort:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateProcessing:
		switch event {
		case EventSettle:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
