package sim

import (
	"fmt"
	"sync"
)

// StateTracker records the current state of every flow in a run and keeps
// per-state counts. It is safe for concurrent use.
type StateTracker struct {
	mu               sync.Mutex
	states           map[int]FlowState
	counts           map[FlowState]int
	peakTransmitting int
}

// NewStateTracker registers every flow in StatePending.
func NewStateTracker(flows []*Flow) *StateTracker {
	t := &StateTracker{
		states: make(map[int]FlowState, len(flows)),
		counts: make(map[FlowState]int, len(AllFlowStates)),
	}
	for _, f := range flows {
		t.states[f.ID] = StatePending
	}
	t.counts[StatePending] = len(flows)
	return t
}

// Observe moves a flow to a new state. Unknown flow IDs panic: the tracker is
// built from the complete flow set before any task starts.
func (t *StateTracker) Observe(id int, s FlowState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.states[id]
	if !ok {
		panic(fmt.Sprintf("StateTracker: unknown flow %d", id))
	}
	if prev == s {
		return
	}
	t.states[id] = s
	t.counts[prev]--
	t.counts[s]++
	if n := t.counts[StateTransmitting]; n > t.peakTransmitting {
		t.peakTransmitting = n
	}
}

// State returns the current state of a flow.
func (t *StateTracker) State(id int) FlowState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[id]
}

// Counts returns a snapshot of the number of flows per state.
func (t *StateTracker) Counts() map[FlowState]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[FlowState]int, len(AllFlowStates))
	for _, s := range AllFlowStates {
		out[s] = t.counts[s]
	}
	return out
}

// Total returns the number of tracked flows.
func (t *StateTracker) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.states)
}

// PeakTransmitting returns the largest number of flows ever observed in
// StateTransmitting at once. It is 1 (or 0) in every correct run.
func (t *StateTracker) PeakTransmitting() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peakTransmitting
}
