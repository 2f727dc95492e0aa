package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/inference-sim/flowsim/sim/trace"
)

// ErrInvalidConfig is wrapped by every RunConfig validation error.
var ErrInvalidConfig = errors.New("invalid run configuration")

// DefaultTimeUnit is the duration of one input time unit (unit 7 = 0.7s).
const DefaultTimeUnit = 100 * time.Millisecond

// DefaultMaxFlows is the largest flow set a run accepts unless configured otherwise.
const DefaultMaxFlows = 100

// RunConfig groups the parameters of one simulation run.
type RunConfig struct {
	TimeUnit                  time.Duration `mapstructure:"time_unit" yaml:"time_unit"`                                     // duration of one input unit (must be > 0)
	MaxFlows                  int           `mapstructure:"max_flows" yaml:"max_flows"`                                     // capacity limit on the declared flow count (must be > 0)
	Ordering                  string        `mapstructure:"ordering" yaml:"ordering"`                                       // "priority-sjf" (default) or "priority-sjf-truncated"
	BatchSimultaneousArrivals bool          `mapstructure:"batch_simultaneous_arrivals" yaml:"batch_simultaneous_arrivals"` // admit same-instant arrivals as one cohort
	Trace                     string        `mapstructure:"trace" yaml:"trace"`                                             // "none" (default) or "decisions"
}

// DefaultRunConfig returns the configuration matching the reference behaviour,
// with the duration tie-break compared exactly and same-instant arrivals
// admitted together.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		TimeUnit:                  DefaultTimeUnit,
		MaxFlows:                  DefaultMaxFlows,
		Ordering:                  "priority-sjf",
		BatchSimultaneousArrivals: true,
		Trace:                     string(trace.TraceLevelNone),
	}
}

// Validate checks names and parameter ranges.
func (c RunConfig) Validate() error {
	if c.TimeUnit <= 0 {
		return fmt.Errorf("%w: time_unit must be positive, got %v", ErrInvalidConfig, c.TimeUnit)
	}
	if c.MaxFlows <= 0 {
		return fmt.Errorf("%w: max_flows must be positive, got %d", ErrInvalidConfig, c.MaxFlows)
	}
	if !IsValidOrdering(c.Ordering) {
		return fmt.Errorf("%w: unknown ordering %q", ErrInvalidConfig, c.Ordering)
	}
	if !trace.IsValidTraceLevel(c.Trace) {
		return fmt.Errorf("%w: unknown trace level %q", ErrInvalidConfig, c.Trace)
	}
	return nil
}
