package sim

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/flowsim/sim/trace"
)

// Report is the persisted outcome of one run.
type Report struct {
	RunID     string              `yaml:"run_id"`
	StartedAt time.Time           `yaml:"started_at"`
	Config    RunConfig           `yaml:"config"`
	Flows     []Flow              `yaml:"flows"`
	Metrics   *Metrics            `yaml:"metrics"`
	Trace     *trace.TraceSummary `yaml:"trace,omitempty"` // only when decisions were traced
	Error     string              `yaml:"error,omitempty"` // set when the run stopped early
}

// Report assembles the report of a finished run. runErr is the error Run
// returned, if any.
func (s *Simulator) Report(runErr error) *Report {
	r := &Report{
		RunID:   s.RunID,
		Config:  s.Config,
		Metrics: s.Metrics,
	}
	if s.Clock != nil {
		r.StartedAt = s.Clock.Start()
	}
	for _, f := range s.Flows {
		r.Flows = append(r.Flows, *f)
	}
	if s.Trace.Enabled() {
		r.Trace = trace.Summarize(s.Trace)
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	return r
}

// WriteReport encodes r as YAML.
func WriteReport(w io.Writer, r *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding run report: %w", err)
	}
	return enc.Close()
}

// SaveReport writes r as YAML to path.
func SaveReport(path string, r *Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling run report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing run report: %w", err)
	}
	return nil
}
