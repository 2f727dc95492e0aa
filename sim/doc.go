// Package sim provides the core of flowsim: a real-time simulation of flows
// contending for one exclusive transmission pipe.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - flow.go: Flow descriptor and lifecycle states (pending → arrived → waiting → transmitting → done)
//   - arbiter.go: ResourceArbiter, the mutex/condition-variable protocol that grants the pipe
//   - task.go: FlowTask, one goroutine per flow driving it through its lifecycle
//
// simulator.go ties them together: it builds one task per flow, runs them
// under an errgroup and derives Metrics from the recorded events.
//
// # Architecture
//
// The sim package defines the kernel and its extension points; supporting
// code lives in sub-packages:
//   - sim/workload/: input parsing (local or remote via afs) and synthetic flow generation
//   - sim/trace/: arbitration decision trace and its summary
//   - sim/telemetry/: OpenTelemetry span export of flow lifecycles
//
// # Key Interfaces
//
//   - FlowOrdering: decides which waiting flow acquires the pipe next
//   - EventSink: receives every arrival, wait, start and end event
//   - StateObserver: receives state transitions caused by the arbiter
//
// Time is real wall-clock time. Arrival offsets and transmission times are
// realized with timers and sleeps, so runs are not bit-for-bit reproducible;
// the acquisition order among flows that are all waiting is.
package sim
