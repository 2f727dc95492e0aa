// Package trace provides decision-trace recording for pipe arbitration analysis.
// It has no dependencies on sim/ and stores pure data types.
package trace

import "time"

// Candidate captures one flow present in the wait queue when a grant was made.
type Candidate struct {
	FlowID   int
	Priority int
	Hold     time.Duration
	Arrival  time.Duration
}

// GrantRecord captures a single acquisition of the pipe.
type GrantRecord struct {
	FlowID     int
	Elapsed    time.Duration
	Immediate  bool        // granted without queueing
	Candidates []Candidate // queue contents at grant time, head first (nil if immediate)
	WakeChecks int         // times the flow re-checked the pipe and stayed blocked
}

// ReleaseRecord captures a single release of the pipe.
type ReleaseRecord struct {
	FlowID  int
	Elapsed time.Duration
	Waiters int // flows woken by the broadcast
}
