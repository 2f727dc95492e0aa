// sim/simulator.go
package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/inference-sim/flowsim/sim/trace"
)

// ErrAlreadyRun is returned when Run is called a second time on the same Simulator.
var ErrAlreadyRun = errors.New("simulator already ran")

// Simulator owns one run: the flow set, the arbiter, one FlowTask per flow
// and the bookkeeping around them. The flow set is fixed at construction.
type Simulator struct {
	RunID  string
	Config RunConfig
	Flows  []*Flow

	// Set by Run.
	Clock   *Clock
	Arbiter *ResourceArbiter
	States  *StateTracker
	Trace   *trace.SimulationTrace
	Metrics *Metrics

	recorder *Recorder
	sinks    []EventSink
	ran      bool
}

// NewSimulator validates the configuration and the flow set.
// sink receives every event in addition to the internal recorder; it may be nil.
func NewSimulator(cfg RunConfig, flows []Flow, sink EventSink) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(flows) > cfg.MaxFlows {
		return nil, fmt.Errorf("%w: %d flows exceed max_flows %d", ErrInvalidConfig, len(flows), cfg.MaxFlows)
	}
	seen := make(map[int]bool, len(flows))
	owned := make([]*Flow, len(flows))
	for i := range flows {
		f := flows[i]
		if seen[f.ID] {
			return nil, fmt.Errorf("%w: duplicate flow id %d", ErrInvalidConfig, f.ID)
		}
		if f.Arrival < 0 || f.Hold < 0 {
			return nil, fmt.Errorf("%w: flow %d has a negative arrival or hold", ErrInvalidConfig, f.ID)
		}
		seen[f.ID] = true
		owned[i] = &f
	}
	s := &Simulator{
		RunID:    uuid.New().String(),
		Config:   cfg,
		Flows:    owned,
		recorder: NewRecorder(),
	}
	s.AddSink(sink)
	return s, nil
}

// AddSink registers another receiver of every event. It must be called
// before Run. Nil sinks are ignored.
func (s *Simulator) AddSink(sink EventSink) {
	if sink != nil {
		s.sinks = append(s.sinks, sink)
	}
}

// Run starts one FlowTask per flow, waits for all of them and computes the
// run's metrics. The clock's reference time is captured before any task
// starts. Cancelling ctx aborts flows that have not arrived yet.
func (s *Simulator) Run(ctx context.Context) (*Metrics, error) {
	if s.ran {
		return nil, ErrAlreadyRun
	}
	s.ran = true

	log := logrus.WithField("run_id", s.RunID)
	log.Infof("Starting simulation of %d flows (ordering=%s, time unit=%v, batch arrivals=%v)",
		len(s.Flows), s.Config.Ordering, s.Config.TimeUnit, s.Config.BatchSimultaneousArrivals)

	s.States = NewStateTracker(s.Flows)
	s.Trace = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevel(s.Config.Trace)})
	sink := append(MultiSink{s.recorder}, s.sinks...)

	s.Clock = NewClock()
	s.Arbiter = NewResourceArbiter(NewOrdering(s.Config.Ordering), s.Clock, sink,
		WithTrace(s.Trace), WithStateObserver(s.States))

	tasks := make([]*FlowTask, len(s.Flows))
	for i, f := range s.Flows {
		tasks[i] = NewFlowTask(f, s.Arbiter, s.Clock, sink, s.States)
	}
	if s.Config.BatchSimultaneousArrivals {
		s.formCohorts(tasks)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			return task.Run(gctx)
		})
	}
	err := g.Wait()

	s.Metrics = ComputeMetrics(s.recorder.Events())
	if err != nil {
		log.Warnf("Simulation stopped early: %v", err)
		return s.Metrics, err
	}
	log.Infof("Simulation complete: %d flows in %.2fs", s.Metrics.CompletedFlows, s.Metrics.Makespan.Seconds())
	return s.Metrics, nil
}

// Events returns every event emitted so far, in emission order.
func (s *Simulator) Events() []Event {
	return s.recorder.Events()
}

// formCohorts links tasks that share an arrival offset so they are admitted
// together. Singleton arrivals contend on their own.
func (s *Simulator) formCohorts(tasks []*FlowTask) {
	byArrival := make(map[time.Duration][]*FlowTask)
	for _, t := range tasks {
		byArrival[t.Flow.Arrival] = append(byArrival[t.Flow.Arrival], t)
	}
	offsets := make([]time.Duration, 0, len(byArrival))
	for off := range byArrival {
		offsets = append(offsets, off)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	for _, off := range offsets {
		group := byArrival[off]
		if len(group) < 2 {
			continue
		}
		flows := make([]*Flow, len(group))
		for i, t := range group {
			flows[i] = t.Flow
		}
		c := newCohort(s.Arbiter, flows)
		for _, t := range group {
			t.cohort = c
		}
		logrus.Debugf("cohort at %v: %d flows", off, len(group))
	}
}
