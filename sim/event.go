package sim

import (
	"fmt"
	"time"
)

// EventKind names the four observable steps of a flow.
type EventKind string

const (
	EventArrival EventKind = "arrival" // flow arrived and is about to contend
	EventWait    EventKind = "wait"    // flow re-checked the pipe and is still blocked
	EventStart   EventKind = "start"   // flow acquired the pipe
	EventEnd     EventKind = "end"     // flow released the pipe
)

// Event is a timestamped observation emitted by the core.
// Events carry the elapsed time since the clock's reference time and a copy
// of the flow's static attributes.
type Event struct {
	Kind    EventKind
	Flow    Flow
	Elapsed time.Duration // time since simulation start
	Time    time.Time     // wall time of the observation

	// Wait events only. BlockedBy is the holder when BlockedByHolder is true,
	// otherwise the flow at the head of the queue that will acquire first.
	BlockedBy       int
	BlockedByHolder bool
}

// Timestamp returns the elapsed time of the event.
func (e Event) Timestamp() time.Duration {
	return e.Elapsed
}

// Message renders the event body without the elapsed-time prefix.
func (e Event) Message() string {
	switch e.Kind {
	case EventArrival:
		return fmt.Sprintf("Flow %d arrives: arrival time (%.2f), transmission time (%.2f), priority (%d).",
			e.Flow.ID, e.Flow.Arrival.Seconds(), e.Flow.Hold.Seconds(), e.Flow.Priority)
	case EventWait:
		if e.BlockedByHolder {
			return fmt.Sprintf("Flow %d waits for the finish of flow %d.", e.Flow.ID, e.BlockedBy)
		}
		return fmt.Sprintf("Flow %d waits behind flow %d.", e.Flow.ID, e.BlockedBy)
	case EventStart:
		return fmt.Sprintf("Flow %d starts its transmission at time %.2f.", e.Flow.ID, e.Elapsed.Seconds())
	case EventEnd:
		return fmt.Sprintf("Flow %d ends its transmission at time %.2f.", e.Flow.ID, e.Elapsed.Seconds())
	default:
		return fmt.Sprintf("Flow %d: unknown event %q.", e.Flow.ID, e.Kind)
	}
}

// Line renders the event as one log line prefixed by the elapsed time in
// seconds with two decimals.
func (e Event) Line() string {
	return fmt.Sprintf("[%.2f] %s", e.Elapsed.Seconds(), e.Message())
}

// EventSink consumes events emitted by the core.
// Emit is called from many goroutines, sometimes while the arbiter lock is
// held, so implementations must be safe for concurrent use and must not call
// back into the arbiter.
type EventSink interface {
	Emit(Event)
}
