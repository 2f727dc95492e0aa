package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// FlowTask is the unit of work for one flow: wait out the arrival offset,
// acquire the pipe, hold it for the flow's duration, release it.
//
// State machine: pending -> arrived -> (waiting) -> transmitting -> done.
// The task itself reports pending -> arrived; the arbiter reports the rest
// under its lock so states never disagree with the queue.
type FlowTask struct {
	Flow *Flow

	arbiter *ResourceArbiter
	clock   *Clock
	sink    EventSink
	states  StateObserver
	cohort  *cohort
}

// NewFlowTask binds a flow to the arbiter it contends on. The clock must be
// the one the arbiter uses so that arrival offsets and event timestamps share
// a reference time.
func NewFlowTask(f *Flow, arbiter *ResourceArbiter, clock *Clock, sink EventSink, states StateObserver) *FlowTask {
	if sink == nil {
		sink = Discard
	}
	return &FlowTask{Flow: f, arbiter: arbiter, clock: clock, sink: sink, states: states}
}

// Run drives the flow through its whole lifecycle. Cancelling ctx aborts the
// task only while it is still pending; once the flow has arrived it always
// runs to completion. The only error after arrival is a release by a
// non-holder, which a correct arbiter never produces.
func (t *FlowTask) Run(ctx context.Context) error {
	if err := t.waitForArrival(ctx); err != nil {
		if t.cohort != nil {
			t.cohort.cancel()
		}
		return fmt.Errorf("flow %d: %w", t.Flow.ID, err)
	}

	if t.states != nil {
		t.states.Observe(t.Flow.ID, StateArrived)
	}
	now := t.clock.Now()
	t.sink.Emit(Event{Kind: EventArrival, Flow: *t.Flow, Elapsed: now.Sub(t.clock.Start()), Time: now})

	if t.cohort != nil && !t.cohort.arrive() {
		logrus.Debugf("flow %d: cohort broken up, contending alone", t.Flow.ID)
	}

	result := t.arbiter.Acquire(t.Flow)
	logrus.Debugf("flow %d acquired the pipe (immediate=%v, wake checks=%d)", t.Flow.ID, result.Immediate, result.WakeChecks)

	time.Sleep(t.Flow.Hold)

	return t.arbiter.Release(t.Flow)
}

// waitForArrival sleeps until the flow's arrival offset from the clock's
// reference time.
func (t *FlowTask) waitForArrival(ctx context.Context) error {
	d := t.clock.Until(t.Flow.Arrival)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cohort gathers the flows that share an arrival offset. When the last
// member arrives, the whole cohort is admitted to the arbiter at once.
type cohort struct {
	cond     *sync.Cond
	arbiter  *ResourceArbiter
	flows    []*Flow
	arrived  int
	admitted bool
	canceled bool
}

func newCohort(arbiter *ResourceArbiter, flows []*Flow) *cohort {
	return &cohort{
		cond:    sync.NewCond(&sync.Mutex{}),
		arbiter: arbiter,
		flows:   flows,
	}
}

// arrive blocks until every member has arrived and the cohort is admitted.
// It returns false when a member gave up before arriving; the caller then
// contends on its own.
func (c *cohort) arrive() bool {
	c.cond.L.Lock()
	defer c.cond.L.Unlock()

	c.arrived++
	if c.arrived == len(c.flows) && !c.canceled {
		c.arbiter.Admit(c.flows...)
		c.admitted = true
		c.cond.Broadcast()
	}
	for !c.admitted && !c.canceled {
		c.cond.Wait()
	}
	return c.admitted
}

// cancel releases members blocked in arrive. It has no effect once the
// cohort has been admitted.
func (c *cohort) cancel() {
	c.cond.L.Lock()
	defer c.cond.L.Unlock()
	if !c.admitted {
		c.canceled = true
	}
	c.cond.Broadcast()
}
