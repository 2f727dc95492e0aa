package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/flowsim/sim/trace"
)

// ErrNotHolder is returned by Release when the releasing flow does not hold the pipe.
var ErrNotHolder = errors.New("flow does not hold the pipe")

// StateObserver is told about every state change the arbiter causes.
// Observe is called with the arbiter lock held.
type StateObserver interface {
	Observe(flowID int, state FlowState)
}

// AcquireResult describes how a flow obtained the pipe.
type AcquireResult struct {
	Immediate  bool // pipe was free and nobody was queued
	WakeChecks int  // times the flow re-checked and stayed blocked
}

// ArbiterOption configures a ResourceArbiter.
type ArbiterOption func(*ResourceArbiter)

// WithTrace records every grant and release into st.
func WithTrace(st *trace.SimulationTrace) ArbiterOption {
	return func(a *ResourceArbiter) { a.trace = st }
}

// WithStateObserver reports waiting, transmitting and done transitions to obs.
func WithStateObserver(obs StateObserver) ArbiterOption {
	return func(a *ResourceArbiter) { a.states = obs }
}

// ResourceArbiter grants exclusive use of the pipe to one flow at a time.
//
// Waiting flows sit in a WaitQueue kept sorted by the arbiter's FlowOrdering.
// Release does not hand the pipe to a particular waiter: it broadcasts, and
// every waiter re-checks whether the pipe is free and it is the head of the
// queue. The head-of-queue check is the selection. The price is one wakeup
// per waiter per release, most of which block again.
//
// All fields below mu are guarded by mu; cond is bound to mu.
type ResourceArbiter struct {
	clock *Clock
	sink  EventSink

	mu       sync.Mutex
	cond     *sync.Cond
	occupied bool
	holder   *Flow
	waiters  *WaitQueue
	trace    *trace.SimulationTrace
	states   StateObserver
}

// NewResourceArbiter creates a free pipe with an empty wait queue.
func NewResourceArbiter(ordering FlowOrdering, clock *Clock, sink EventSink, opts ...ArbiterOption) *ResourceArbiter {
	if clock == nil {
		clock = NewClock()
	}
	if sink == nil {
		sink = Discard
	}
	a := &ResourceArbiter{
		clock:   clock,
		sink:    sink,
		waiters: NewWaitQueue(ordering),
	}
	a.cond = sync.NewCond(&a.mu)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Admit queues a cohort of flows that arrived at the same instant, in one
// atomic step, so that the ordering rather than goroutine scheduling decides
// which of them acquires first. Each admitted flow must then call Acquire.
func (a *ResourceArbiter) Admit(flows ...*Flow) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, f := range flows {
		a.mustNotHold(f)
		if a.waiters.Contains(f.ID) {
			continue
		}
		a.waiters.Insert(f)
		a.observe(f.ID, StateWaiting)
	}
	logrus.Debugf("admitted cohort of %d flows, queue now %s", len(flows), a.waiters)
}

// Acquire blocks until f holds the pipe. It never fails and has no timeout.
func (a *ResourceArbiter) Acquire(f *Flow) AcquireResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mustNotHold(f)

	queued := a.waiters.Contains(f.ID)
	if !queued && !a.occupied && a.waiters.Len() == 0 {
		a.grant(f, AcquireResult{Immediate: true}, nil)
		return AcquireResult{Immediate: true}
	}
	if !queued {
		a.waiters.Insert(f)
		a.observe(f.ID, StateWaiting)
	}

	checks := 0
	for a.occupied || a.waiters.Peek().ID != f.ID {
		checks++
		a.emitWait(f)
		a.cond.Wait()
	}

	candidates := a.snapshotCandidates()
	a.waiters.PopHead()
	result := AcquireResult{WakeChecks: checks}
	a.grant(f, result, candidates)
	return result
}

// Release frees the pipe and wakes every waiter.
// It returns an error wrapping ErrNotHolder, and changes nothing, when f is
// not the current holder.
func (a *ResourceArbiter) Release(f *Flow) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.occupied || a.holder == nil || a.holder.ID != f.ID {
		holder := "none"
		if a.holder != nil {
			holder = fmt.Sprint(a.holder.ID)
		}
		return fmt.Errorf("release by flow %d (holder: %s): %w", f.ID, holder, ErrNotHolder)
	}

	a.occupied = false
	a.holder = nil
	a.observe(f.ID, StateDone)
	a.sink.Emit(a.event(EventEnd, f))
	if a.trace.Enabled() {
		a.trace.RecordRelease(trace.ReleaseRecord{
			FlowID:  f.ID,
			Elapsed: a.clock.Elapsed(),
			Waiters: a.waiters.Len(),
		})
	}
	a.cond.Broadcast()
	return nil
}

// Holder returns the flow holding the pipe, if any.
func (a *ResourceArbiter) Holder() (Flow, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.holder == nil {
		return Flow{}, false
	}
	return *a.holder, true
}

// Occupied reports whether some flow holds the pipe.
func (a *ResourceArbiter) Occupied() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.occupied
}

// QueueLen returns the number of waiting flows.
func (a *ResourceArbiter) QueueLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.waiters.Len()
}

// Waiting returns the IDs of the waiting flows in acquisition order.
func (a *ResourceArbiter) Waiting() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.waiters.IDs()
}

// grant makes f the holder. Requires a.mu.
func (a *ResourceArbiter) grant(f *Flow, result AcquireResult, candidates []trace.Candidate) {
	a.occupied = true
	a.holder = f
	a.observe(f.ID, StateTransmitting)
	a.sink.Emit(a.event(EventStart, f))
	if a.trace.Enabled() {
		a.trace.RecordGrant(trace.GrantRecord{
			FlowID:     f.ID,
			Elapsed:    a.clock.Elapsed(),
			Immediate:  result.Immediate,
			Candidates: candidates,
			WakeChecks: result.WakeChecks,
		})
	}
}

// emitWait reports what f is blocked by: the holder if the pipe is
// occupied, otherwise the head of the queue. Requires a.mu.
func (a *ResourceArbiter) emitWait(f *Flow) {
	e := a.event(EventWait, f)
	if a.occupied {
		e.BlockedBy = a.holder.ID
		e.BlockedByHolder = true
	} else {
		e.BlockedBy = a.waiters.Peek().ID
	}
	a.sink.Emit(e)
}

// snapshotCandidates copies the queue for the decision trace. Requires a.mu.
func (a *ResourceArbiter) snapshotCandidates() []trace.Candidate {
	if !a.trace.Enabled() {
		return nil
	}
	items := a.waiters.Items()
	out := make([]trace.Candidate, len(items))
	for i, w := range items {
		out[i] = trace.Candidate{FlowID: w.ID, Priority: w.Priority, Hold: w.Hold, Arrival: w.Arrival}
	}
	return out
}

func (a *ResourceArbiter) event(kind EventKind, f *Flow) Event {
	now := a.clock.Now()
	return Event{Kind: kind, Flow: *f, Elapsed: now.Sub(a.clock.Start()), Time: now}
}

func (a *ResourceArbiter) observe(id int, s FlowState) {
	if a.states != nil {
		a.states.Observe(id, s)
	}
}

// mustNotHold panics if f already holds the pipe: acquiring twice is a
// programming error in the caller. Requires a.mu.
func (a *ResourceArbiter) mustNotHold(f *Flow) {
	if a.holder != nil && a.holder.ID == f.ID {
		panic(fmt.Sprintf("flow %d acquires the pipe it already holds", f.ID))
	}
}
