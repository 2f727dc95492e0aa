package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// referenceFlows is the three-flow example: flows 2 and 3 arrive together,
// flow 1 arrives when flow 2 finishes.
func referenceFlows(unit time.Duration) []Flow {
	return []Flow{
		{ID: 1, Arrival: 3 * unit, Hold: 3 * unit, Priority: 2},
		{ID: 2, Arrival: 0, Hold: 3 * unit, Priority: 1},
		{ID: 3, Arrival: 0, Hold: 4 * unit, Priority: 1},
	}
}

func fastConfig() RunConfig {
	cfg := DefaultRunConfig()
	cfg.TimeUnit = 20 * time.Millisecond
	return cfg
}

func runSimulation(t *testing.T, cfg RunConfig, flows []Flow) (*Simulator, *Metrics) {
	t.Helper()
	s, err := NewSimulator(cfg, flows, nil)
	require.NoError(t, err)
	m, err := s.Run(context.Background())
	require.NoError(t, err)
	return s, m
}

func TestSimulator_ReferenceScenario_StartOrder(t *testing.T) {
	// GIVEN the reference flows with a 20ms time unit
	cfg := fastConfig()

	// WHEN simulated
	s, m := runSimulation(t, cfg, referenceFlows(cfg.TimeUnit))

	// THEN flows transmit in order 2, 3, 1 and all complete
	assert.Equal(t, []int{2, 3, 1}, m.StartOrder)
	assert.Equal(t, 3, m.CompletedFlows)
	assert.Equal(t, 3, s.States.Counts()[StateDone])
	assert.Equal(t, 1, s.States.PeakTransmitting())
	assert.GreaterOrEqual(t, m.Makespan, 10*cfg.TimeUnit)
}

func TestSimulator_LaterArrivalOvertakesLowerPriorityWaiter(t *testing.T) {
	// GIVEN flows 1 and 2 arriving together and flow 3 arriving while 2
	// transmits, with higher precedence than the waiting flow 1
	cfg := fastConfig()
	u := cfg.TimeUnit
	flows := []Flow{
		{ID: 1, Arrival: 0, Hold: 5 * u, Priority: 2},
		{ID: 2, Arrival: 0, Hold: 3 * u, Priority: 1},
		{ID: 3, Arrival: 2 * u, Hold: 2 * u, Priority: 1},
	}

	// WHEN simulated
	s, m := runSimulation(t, cfg, flows)

	// THEN flow 3 transmits before flow 1 and nothing is left queued
	assert.Equal(t, []int{2, 3, 1}, m.StartOrder)
	assert.Equal(t, 3, m.CompletedFlows)
	assert.Equal(t, 0, s.Arbiter.QueueLen())
	assert.Equal(t, 1, s.States.PeakTransmitting())
	assert.GreaterOrEqual(t, m.Makespan, 10*u)
}

func TestSimulator_OrderIsStableAcrossRuns(t *testing.T) {
	cfg := fastConfig()
	_, first := runSimulation(t, cfg, referenceFlows(cfg.TimeUnit))
	_, second := runSimulation(t, cfg, referenceFlows(cfg.TimeUnit))
	assert.Equal(t, first.StartOrder, second.StartOrder)
}

func TestSimulator_EventConservation(t *testing.T) {
	// GIVEN flows with mixed arrivals and a shared arrival instant
	cfg := fastConfig()
	cfg.TimeUnit = 5 * time.Millisecond
	flows := []Flow{
		{ID: 1, Arrival: 0, Hold: 2 * cfg.TimeUnit, Priority: 3},
		{ID: 2, Arrival: 0, Hold: 1 * cfg.TimeUnit, Priority: 1},
		{ID: 3, Arrival: cfg.TimeUnit, Hold: 1 * cfg.TimeUnit, Priority: 2},
		{ID: 4, Arrival: cfg.TimeUnit, Hold: 0, Priority: 2},
		{ID: 5, Arrival: 4 * cfg.TimeUnit, Hold: 1 * cfg.TimeUnit, Priority: 1},
	}

	// WHEN simulated
	s, m := runSimulation(t, cfg, flows)

	// THEN every flow arrives, starts and ends exactly once, in that order
	seen := make(map[int][]EventKind)
	for _, e := range s.Events() {
		if e.Kind == EventWait {
			continue
		}
		seen[e.Flow.ID] = append(seen[e.Flow.ID], e.Kind)
	}
	for _, f := range flows {
		assert.Equal(t, []EventKind{EventArrival, EventStart, EventEnd}, seen[f.ID], "flow %d", f.ID)
	}
	assert.Equal(t, len(flows), m.CompletedFlows)
	assert.Len(t, m.StartOrder, len(flows))

	// AND transmissions never overlap: starts and ends alternate in emission order
	holder := -1
	for _, e := range s.Events() {
		switch e.Kind {
		case EventStart:
			assert.Equal(t, -1, holder, "flow %d started while %d held the pipe", e.Flow.ID, holder)
			holder = e.Flow.ID
		case EventEnd:
			assert.Equal(t, holder, e.Flow.ID)
			holder = -1
		}
	}
}

func TestSimulator_WithoutBatching_StillSerializes(t *testing.T) {
	cfg := fastConfig()
	cfg.BatchSimultaneousArrivals = false
	s, m := runSimulation(t, cfg, referenceFlows(cfg.TimeUnit))

	assert.Equal(t, 3, m.CompletedFlows)
	assert.Equal(t, 1, s.States.PeakTransmitting())
	assert.Contains(t, []int{2, 3}, m.StartOrder[0])
	assert.Equal(t, 1, m.StartOrder[2])
}

func TestSimulator_EmptyFlowSet(t *testing.T) {
	_, m := runSimulation(t, fastConfig(), nil)
	assert.Equal(t, 0, m.CompletedFlows)
	assert.Empty(t, m.StartOrder)
}

func TestSimulator_DecisionTrace(t *testing.T) {
	cfg := fastConfig()
	cfg.Trace = "decisions"
	s, _ := runSimulation(t, cfg, referenceFlows(cfg.TimeUnit))

	require.True(t, s.Trace.Enabled())
	require.Len(t, s.Trace.Grants, 3)
	assert.Equal(t, 2, s.Trace.Grants[0].FlowID)
	assert.Len(t, s.Trace.Releases, 3)
}

func TestSimulator_Run_Twice_ReturnsErrAlreadyRun(t *testing.T) {
	s, _ := runSimulation(t, fastConfig(), nil)
	_, err := s.Run(context.Background())
	assert.True(t, errors.Is(err, ErrAlreadyRun))
}

func TestSimulator_Cancel_AbortsPendingFlowsOnly(t *testing.T) {
	// GIVEN one flow that finishes quickly and one arriving much later
	flows := []Flow{
		{ID: 1, Arrival: 0, Hold: ms(10), Priority: 1},
		{ID: 2, Arrival: time.Hour, Hold: ms(10), Priority: 1},
	}
	s, err := NewSimulator(fastConfig(), flows, nil)
	require.NoError(t, err)

	// WHEN the run is canceled after the first flow completes
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	m, err := s.Run(ctx)

	// THEN the run reports the cancellation and keeps the finished flow
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	require.NotNil(t, m)
	assert.Equal(t, 1, m.CompletedFlows)
	assert.Equal(t, StateDone, s.States.State(1))
	assert.Equal(t, StatePending, s.States.State(2))
}

func TestNewSimulator_RejectsInvalidInput(t *testing.T) {
	tooMany := make([]Flow, 3)
	for i := range tooMany {
		tooMany[i] = Flow{ID: i}
	}
	small := fastConfig()
	small.MaxFlows = 2

	tests := []struct {
		name  string
		cfg   RunConfig
		flows []Flow
	}{
		{"invalid config", RunConfig{}, nil},
		{"over capacity", small, tooMany},
		{"duplicate id", fastConfig(), []Flow{{ID: 1}, {ID: 1}}},
		{"negative arrival", fastConfig(), []Flow{{ID: 1, Arrival: -1}}},
		{"negative hold", fastConfig(), []Flow{{ID: 1, Hold: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSimulator(tt.cfg, tt.flows, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestNewSimulator_CopiesFlows(t *testing.T) {
	flows := []Flow{{ID: 1, Hold: ms(10)}}
	s, err := NewSimulator(fastConfig(), flows, nil)
	require.NoError(t, err)
	flows[0].ID = 42
	assert.Equal(t, 1, s.Flows[0].ID)
	assert.NotEmpty(t, s.RunID)
}
