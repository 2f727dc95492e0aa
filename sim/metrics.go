// Tracks run-wide and per-flow statistics such as waiting time, turnaround
// and pipe utilization, derived from the emitted event stream.

package sim

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// FlowMetrics holds the observed timeline of one flow.
type FlowMetrics struct {
	FlowID     int           `yaml:"flow_id"`
	Priority   int           `yaml:"priority"`
	Arrived    time.Duration `yaml:"arrived"`    // elapsed time of the arrival event
	Started    time.Duration `yaml:"started"`    // elapsed time of the start event
	Ended      time.Duration `yaml:"ended"`      // elapsed time of the end event
	Wait       time.Duration `yaml:"wait"`       // Started - Arrived
	Turnaround time.Duration `yaml:"turnaround"` // Ended - Arrived
	WaitChecks int           `yaml:"wait_checks"`
	Completed  bool          `yaml:"completed"`
}

// Metrics aggregates statistics about the run for final reporting.
type Metrics struct {
	CompletedFlows int           `yaml:"completed_flows"`
	Makespan       time.Duration `yaml:"makespan"`  // elapsed time of the last end event
	BusyTime       time.Duration `yaml:"busy_time"` // total time the pipe was held
	Utilization    float64       `yaml:"utilization"`
	WaitEvents     int           `yaml:"wait_events"`
	StartOrder     []int         `yaml:"start_order"`

	WaitTime   Distribution `yaml:"wait_time_seconds"`
	Turnaround Distribution `yaml:"turnaround_seconds"`

	// Mean wait in seconds per priority class.
	MeanWaitByPriority map[int]float64 `yaml:"mean_wait_by_priority"`

	Flows []FlowMetrics `yaml:"flows"` // sorted by start time, unfinished flows last
}

// ComputeMetrics derives Metrics from an event stream in emission order.
func ComputeMetrics(events []Event) *Metrics {
	m := &Metrics{MeanWaitByPriority: make(map[int]float64)}
	byFlow := make(map[int]*FlowMetrics)
	get := func(f Flow) *FlowMetrics {
		fm, ok := byFlow[f.ID]
		if !ok {
			fm = &FlowMetrics{FlowID: f.ID, Priority: f.Priority}
			byFlow[f.ID] = fm
		}
		return fm
	}

	for _, e := range events {
		fm := get(e.Flow)
		switch e.Kind {
		case EventArrival:
			fm.Arrived = e.Elapsed
		case EventWait:
			fm.WaitChecks++
			m.WaitEvents++
		case EventStart:
			fm.Started = e.Elapsed
			m.StartOrder = append(m.StartOrder, e.Flow.ID)
		case EventEnd:
			fm.Ended = e.Elapsed
			fm.Completed = true
		}
	}

	var waits, turnarounds []float64
	waitSum := make(map[int]float64)
	waitCount := make(map[int]int)
	for _, fm := range byFlow {
		if fm.Completed {
			fm.Wait = fm.Started - fm.Arrived
			fm.Turnaround = fm.Ended - fm.Arrived
		}
		m.Flows = append(m.Flows, *fm)
		if !fm.Completed {
			continue
		}
		m.CompletedFlows++
		m.BusyTime += fm.Ended - fm.Started
		if fm.Ended > m.Makespan {
			m.Makespan = fm.Ended
		}
		waits = append(waits, fm.Wait.Seconds())
		turnarounds = append(turnarounds, fm.Turnaround.Seconds())
		waitSum[fm.Priority] += fm.Wait.Seconds()
		waitCount[fm.Priority]++
	}
	sort.Slice(m.Flows, func(i, j int) bool {
		a, b := m.Flows[i], m.Flows[j]
		if a.Completed != b.Completed {
			return a.Completed
		}
		if a.Started != b.Started {
			return a.Started < b.Started
		}
		return a.FlowID < b.FlowID
	})

	if m.Makespan > 0 {
		m.Utilization = float64(m.BusyTime) / float64(m.Makespan)
	}
	m.WaitTime = NewDistribution(waits)
	m.Turnaround = NewDistribution(turnarounds)
	for p, sum := range waitSum {
		m.MeanWaitByPriority[p] = sum / float64(waitCount[p])
	}
	return m
}

// Print displays aggregated metrics at the end of the run.
func (m *Metrics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Completed Flows      : %d\n", m.CompletedFlows)
	if m.CompletedFlows == 0 {
		return
	}
	fmt.Fprintf(w, "Makespan             : %.2f s\n", m.Makespan.Seconds())
	fmt.Fprintf(w, "Pipe Utilization     : %.2f\n", m.Utilization)
	fmt.Fprintf(w, "Average Wait         : %.2f s\n", m.WaitTime.Mean)
	fmt.Fprintf(w, "P95 Wait             : %.2f s\n", m.WaitTime.P95)
	fmt.Fprintf(w, "Max Wait             : %.2f s\n", m.WaitTime.Max)
	fmt.Fprintf(w, "Average Turnaround   : %.2f s\n", m.Turnaround.Mean)
	fmt.Fprintf(w, "Wait Events          : %d\n", m.WaitEvents)
	fmt.Fprintf(w, "Start Order          : %v\n", m.StartOrder)

	priorities := make([]int, 0, len(m.MeanWaitByPriority))
	for p := range m.MeanWaitByPriority {
		priorities = append(priorities, p)
	}
	sort.Ints(priorities)
	for _, p := range priorities {
		fmt.Fprintf(w, "Mean Wait (prio %2d)  : %.2f s\n", p, m.MeanWaitByPriority[p])
	}
}
