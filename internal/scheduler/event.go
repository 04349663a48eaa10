package scheduler

import (
	"fmt"
	"time"
)

// EventType is the kind of a timer event.
type EventType int

const (
	// EventDelay is emitted when a timer starts waiting for its next run.
	EventDelay EventType = iota + 1
	// EventStart is emitted when a task starts.
	EventStart
	// EventComplete is emitted when a task returns without error.
	EventComplete
	// EventError is emitted when a task returns an error.
	EventError
	// EventStop is emitted once when a timer stops.
	EventStop
)

func (t EventType) String() string {
	switch t {
	case EventDelay:
		return "delay"
	case EventStart:
		return "start"
	case EventComplete:
		return "complete"
	case EventError:
		return "error"
	case EventStop:
		return "stop"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event describes a state change of a timer.
type Event struct {
	Timer string
	Type  EventType
	Time  time.Time
	// Delay is set for EventDelay.
	Delay time.Duration
	// Elapsed is the task run time, set for EventComplete and EventError.
	Elapsed time.Duration
	// Err is set for EventError.
	Err error
}

// Observer is called synchronously for every event.
type Observer func(Event)

// TimerStatus summarizes the history of a timer.
type TimerStatus struct {
	Name       string        `json:"name"`
	Executions int64         `json:"executions"`
	Failures   int64         `json:"failures"`
	Running    bool          `json:"running"`
	Stopped    bool          `json:"stopped"`
	LastDelay  time.Duration `json:"lastDelay"`
	LastError  string        `json:"lastError,omitempty"`
}

func (s *TimerStatus) apply(e Event) {
	switch e.Type {
	case EventDelay:
		s.LastDelay = e.Delay
	case EventStart:
		s.Running = true
	case EventComplete:
		s.Running = false
		s.Executions++
	case EventError:
		s.Running = false
		s.Executions++
		s.Failures++
		s.LastError = e.Err.Error()
	case EventStop:
		s.Running = false
		s.Stopped = true
	}
}
