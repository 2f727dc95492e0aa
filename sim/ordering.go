package sim

import (
	"fmt"
	"sort"
)

// FlowOrdering decides which waiting flow acquires the pipe next.
// Implementations sort the slice in-place with sort.SliceStable so that
// flows the ordering considers equal keep their insertion order.
type FlowOrdering interface {
	Name() string
	Less(a, b *Flow) bool
}

// PrioritySJF orders flows by priority class (ascending), then by hold
// duration (ascending, shortest job first), then by arrival offset and ID
// so that repeated runs produce the same acquisition order.
type PrioritySJF struct{}

func (p *PrioritySJF) Name() string { return "priority-sjf" }

func (p *PrioritySJF) Less(a, b *Flow) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if a.Hold != b.Hold {
		return a.Hold < b.Hold
	}
	if a.Arrival != b.Arrival {
		return a.Arrival < b.Arrival
	}
	return a.ID < b.ID
}

// TruncatedPrioritySJF reproduces the reference comparator: the hold
// durations are subtracted in seconds and the difference is truncated toward
// zero, so holds less than one second apart compare as equal. Remaining ties
// keep insertion order.
type TruncatedPrioritySJF struct{}

func (t *TruncatedPrioritySJF) Name() string { return "priority-sjf-truncated" }

func (t *TruncatedPrioritySJF) Less(a, b *Flow) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return int(a.Hold.Seconds()-b.Hold.Seconds()) < 0
}

// SortFlows sorts flows in-place by the given ordering.
func SortFlows(flows []*Flow, ordering FlowOrdering) {
	sort.SliceStable(flows, func(i, j int) bool {
		return ordering.Less(flows[i], flows[j])
	})
}

// validOrderings is the set of recognized ordering names.
var validOrderings = map[string]bool{"": true, "priority-sjf": true, "priority-sjf-truncated": true}

// IsValidOrdering returns true if name is a recognized ordering.
func IsValidOrdering(name string) bool {
	return validOrderings[name]
}

// NewOrdering creates a FlowOrdering by name.
// Valid names: "priority-sjf" (default), "priority-sjf-truncated".
// Empty string defaults to PrioritySJF (for CLI flag default compatibility).
// Panics on unrecognized names.
func NewOrdering(name string) FlowOrdering {
	if !IsValidOrdering(name) {
		panic(fmt.Sprintf("unknown ordering %q", name))
	}
	switch name {
	case "", "priority-sjf":
		return &PrioritySJF{}
	case "priority-sjf-truncated":
		return &TruncatedPrioritySJF{}
	default:
		panic(fmt.Sprintf("unhandled ordering %q", name))
	}
}
