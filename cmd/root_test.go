package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/flowsim/sim"
	"github.com/inference-sim/flowsim/sim/workload"
)

const referenceInput = "3\n1:3,3,2\n2:0,3,1\n3:0,4,1\n"

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flows.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the CLI with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func startIndex(out string, id int) int {
	return strings.Index(out, fmt.Sprintf("Flow %d starts", id))
}

func TestRoot_RunsReferenceScenario(t *testing.T) {
	// GIVEN the reference input and a fast time unit
	input := writeInput(t, referenceInput)

	// WHEN run through the root command
	out, err := execute(t, input, "--time-unit", "10ms")

	// THEN every event is printed and flows start in order 2, 3, 1
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "arrives:"))
	assert.Equal(t, 3, strings.Count(out, "ends its transmission"))
	assert.Contains(t, out, "Flow 2 arrives: arrival time (0.00), transmission time (0.03), priority (1).")
	i2, i3, i1 := startIndex(out, 2), startIndex(out, 3), startIndex(out, 1)
	require.True(t, i2 >= 0 && i3 >= 0 && i1 >= 0, out)
	assert.Less(t, i2, i3)
	assert.Less(t, i3, i1)
	assert.NotContains(t, out, "Simulation Metrics")
}

func TestRunCmd_WritesSummaryReportAndSpans(t *testing.T) {
	// GIVEN output paths for the report and the spans
	dir := t.TempDir()
	input := writeInput(t, referenceInput)
	report := filepath.Join(dir, "report.yaml")
	spans := filepath.Join(dir, "spans.json")

	// WHEN run with every output enabled
	out, err := execute(t, "run", input, "--time-unit", "10ms", "--summary",
		"--trace", "decisions", "--report", report, "--otel-out", spans)

	// THEN metrics are printed and both files are written
	require.NoError(t, err)
	assert.Contains(t, out, "=== Simulation Metrics ===")
	assert.Contains(t, out, "Start Order          : [2 3 1]")

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), "total_grants: 3")

	data, err = os.ReadFile(spans)
	require.NoError(t, err)
	assert.Contains(t, string(data), "flow.transmit")
}

func TestRunCmd_LogFormat_OneEntryPerEvent(t *testing.T) {
	// GIVEN the reference input and the default --log level
	input := writeInput(t, referenceInput)

	// WHEN run with structured log output
	out, err := execute(t, "run", input, "--time-unit", "5ms", "--format", "log")

	// THEN every flow's events are logged as entries, not text lines
	require.NoError(t, err)
	assert.NotContains(t, out, "[0.00] Flow")
	assert.Equal(t, 3, strings.Count(out, "event=arrival"), out)
	assert.Equal(t, 3, strings.Count(out, "event=start"), out)
	assert.Equal(t, 3, strings.Count(out, "event=end"), out)
	for id := 1; id <= 3; id++ {
		assert.Contains(t, out, fmt.Sprintf("Flow %d arrives:", id))
	}
}

func TestRunCmd_LogFormat_QuietLogLevel_StillLogsEvents(t *testing.T) {
	input := writeInput(t, "1\n1:0,1,1\n")
	out, err := execute(t, "run", input, "--time-unit", "5ms", "--format", "log", "--log", "error")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "arrives:"), out)
}

func TestRunCmd_ConfigurationErrors_NoFlowStarts(t *testing.T) {
	input := writeInput(t, referenceInput)
	tests := []struct {
		name string
		args []string
		is   error
	}{
		{"over capacity", []string{input, "--max-flows", "2"}, workload.ErrCapacityExceeded},
		{"unknown ordering", []string{input, "--ordering", "fifo"}, sim.ErrInvalidConfig},
		{"unknown format", []string{input, "--format", "xml"}, sim.ErrInvalidConfig},
		{"zero time unit", []string{input, "--time-unit", "0s"}, sim.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.is), "got %v", err)
			assert.NotContains(t, out, "arrives:")
		})
	}
}

func TestRunCmd_MalformedInput_ReturnsParseError(t *testing.T) {
	input := writeInput(t, "2\n1:0,3,1\n")
	_, err := execute(t, input)
	var pe *workload.ParseError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, "record", pe.Field)
}

func TestRoot_RequiresExactlyOneArgument(t *testing.T) {
	_, err := execute(t)
	assert.Error(t, err)
	_, err = execute(t, "a.txt", "b.txt")
	assert.Error(t, err)
}

func TestRoot_InvalidLogLevel(t *testing.T) {
	input := writeInput(t, "0\n")
	_, err := execute(t, input, "--log", "loud")
	assert.Error(t, err)
}
