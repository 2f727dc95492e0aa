// Defines the Flow struct that models one flow in the simulation.
// A flow arrives at a fixed offset, needs the pipe for a fixed duration
// and competes with the other flows by priority class.

package sim

import (
	"fmt"
	"time"
)

// FlowState represents the lifecycle state of a flow.
type FlowState string

const (
	StatePending      FlowState = "pending"      // waiting out the arrival offset
	StateArrived      FlowState = "arrived"      // arrived, not yet contending
	StateWaiting      FlowState = "waiting"      // queued for the pipe
	StateTransmitting FlowState = "transmitting" // holding the pipe
	StateDone         FlowState = "done"         // released the pipe
)

// AllFlowStates lists every state in lifecycle order.
var AllFlowStates = []FlowState{StatePending, StateArrived, StateWaiting, StateTransmitting, StateDone}

// Flow is the immutable description of one flow. It is created once by the
// input parser and never modified afterwards.
type Flow struct {
	ID       int           `yaml:"id"`       // Unique identifier within a run
	Arrival  time.Duration `yaml:"arrival"`  // Offset from simulation start at which the flow arrives
	Hold     time.Duration `yaml:"hold"`     // Time the flow keeps the pipe once it acquires it
	Priority int           `yaml:"priority"` // Priority class, lower value = higher precedence
}

// This method returns a human-readable string representation of a Flow.
func (f Flow) String() string {
	return fmt.Sprintf("Flow: (ID: %d, Arrival: %v, Hold: %v, Priority: %d)", f.ID, f.Arrival, f.Hold, f.Priority)
}
