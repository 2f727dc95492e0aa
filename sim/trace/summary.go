package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalGrants        int     `yaml:"total_grants"`
	ImmediateGrants    int     `yaml:"immediate_grants"`
	QueuedGrants       int     `yaml:"queued_grants"`
	MaxQueueDepth      int     `yaml:"max_queue_depth"`
	MeanQueueDepth     float64 `yaml:"mean_queue_depth"`
	TotalWakeChecks    int     `yaml:"total_wake_checks"`
	WastedWakeups      int     `yaml:"wasted_wakeups"`      // woken by a release but not granted
	PriorityInversions int     `yaml:"priority_inversions"` // grants that skipped a higher-precedence waiter
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{}
	if st == nil {
		return summary
	}

	summary.TotalGrants = len(st.Grants)
	totalDepth := 0
	for _, g := range st.Grants {
		summary.TotalWakeChecks += g.WakeChecks
		if g.Immediate {
			summary.ImmediateGrants++
			continue
		}
		summary.QueuedGrants++
		depth := len(g.Candidates)
		totalDepth += depth
		if depth > summary.MaxQueueDepth {
			summary.MaxQueueDepth = depth
		}
		if isInversion(g) {
			summary.PriorityInversions++
		}
	}
	if summary.QueuedGrants > 0 {
		summary.MeanQueueDepth = float64(totalDepth) / float64(summary.QueuedGrants)
	}

	// A release with waiters hands the pipe to exactly one of them; every
	// other woken waiter re-checks and blocks again.
	for _, r := range st.Releases {
		if r.Waiters > 0 {
			summary.WastedWakeups += r.Waiters - 1
		}
	}

	return summary
}

// isInversion reports whether some candidate had strictly higher precedence
// (lower priority class) than the granted flow.
func isInversion(g GrantRecord) bool {
	granted := -1
	for i, c := range g.Candidates {
		if c.FlowID == g.FlowID {
			granted = i
			break
		}
	}
	if granted < 0 {
		return false
	}
	for _, c := range g.Candidates {
		if c.Priority < g.Candidates[granted].Priority {
			return true
		}
	}
	return false
}
