package workload

import (
	"bufio"
	"fmt"
	"io"

	"github.com/inference-sim/flowsim/sim"
)

// GenerateConfig bounds the values of generated records. All values are in
// time units except Priorities.
type GenerateConfig struct {
	Flows           int // number of records
	MaxArrival      int // arrivals are drawn from [0, MaxArrival]
	MaxTransmission int // transmissions are drawn from [1, MaxTransmission]
	Priorities      int // priorities are drawn from [1, Priorities]
}

// DefaultGenerateConfig returns a small contended workload.
func DefaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Flows: 10, MaxArrival: 20, MaxTransmission: 10, Priorities: 3}
}

// Validate checks parameter ranges.
func (c GenerateConfig) Validate() error {
	if c.Flows < 0 {
		return fmt.Errorf("flows must be >= 0, got %d", c.Flows)
	}
	if c.MaxArrival < 0 {
		return fmt.Errorf("max arrival must be >= 0, got %d", c.MaxArrival)
	}
	if c.MaxTransmission < 1 {
		return fmt.Errorf("max transmission must be >= 1, got %d", c.MaxTransmission)
	}
	if c.Priorities < 1 {
		return fmt.Errorf("priorities must be >= 1, got %d", c.Priorities)
	}
	return nil
}

// Record is one line of a description, in input units.
type Record struct {
	ID           int
	Arrival      int
	Transmission int
	Priority     int
}

// Generate draws cfg.Flows records with IDs 1..Flows. The same key and
// config always produce the same records. Arrivals, transmissions and
// priorities come from independent RNG streams; the record order is a
// permutation drawn from the workload stream.
func Generate(key sim.SimulationKey, cfg GenerateConfig) ([]Record, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := sim.NewPartitionedRNG(key)
	arrivals := rng.ForSubsystem(sim.SubsystemArrivals)
	durations := rng.ForSubsystem(sim.SubsystemDurations)
	priorities := rng.ForSubsystem(sim.SubsystemPriorities)

	records := make([]Record, cfg.Flows)
	for i := range records {
		records[i] = Record{
			ID:           i + 1,
			Arrival:      arrivals.Intn(cfg.MaxArrival + 1),
			Transmission: 1 + durations.Intn(cfg.MaxTransmission),
			Priority:     1 + priorities.Intn(cfg.Priorities),
		}
	}
	order := rng.ForSubsystem(sim.SubsystemWorkload)
	order.Shuffle(len(records), func(i, j int) { records[i], records[j] = records[j], records[i] })
	return records, nil
}

// WriteDescription writes records in the input format ParseFlows reads.
func WriteDescription(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, len(records))
	for _, r := range records {
		fmt.Fprintf(bw, "%d:%d,%d,%d\n", r.ID, r.Arrival, r.Transmission, r.Priority)
	}
	return bw.Flush()
}
