package agent

import "time"

// EventKind is the type of an agent event.
type EventKind int

const (
	NoopEvent EventKind = iota
	// ButtonPressEvent steps to the next scene.
	ButtonPressEvent
	// AlarmEvent starts the wake sequence.
	AlarmEvent
	// KnobEvent carries a new potentiometer position.
	KnobEvent
	// SleepTimerEvent fades the strip out.
	SleepTimerEvent
)

func (k EventKind) String() string {
	switch k {
	case ButtonPressEvent:
		return "button_press"
	case AlarmEvent:
		return "alarm"
	case KnobEvent:
		return "knob"
	case SleepTimerEvent:
		return "sleep_timer"
	default:
		return "noop"
	}
}

// Event is handed from peripherals and timers to the agent's event loop.
type Event struct {
	Kind EventKind
	// AlarmID is set for AlarmEvent.
	AlarmID string
	// Percent is set for KnobEvent.
	Percent uint8
	// Fade is the fade-out time of a SleepTimerEvent.
	Fade time.Duration
}

func (e Event) String() string {
	return e.Kind.String()
}
