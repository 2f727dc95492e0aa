package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/flowsim/sim"
	"github.com/inference-sim/flowsim/sim/telemetry"
	"github.com/inference-sim/flowsim/sim/workload"
)

// Output formats for the event stream.
const (
	formatText = "text"
	formatLog  = "log"
)

// newRootCmd builds the command tree. The root command runs a simulation
// just like "run" does.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "flowsim <input>",
		Short: "Real-time simulator of flows sharing one transmission pipe",
		Long: `flowsim reads a flow description and replays it in real time: every flow
waits for its arrival, contends for the single transmission pipe, holds it
for its transmission time and releases it. Waiting flows acquire the pipe in
priority order, shortest transmission first within a priority class.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logLevel, _ := cmd.Flags().GetString("log")
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level: %s", logLevel)
			}
			logrus.SetLevel(level)
			return nil
		},
		RunE: runSimulation,
	}
	root.PersistentFlags().String("log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	root.PersistentFlags().StringP("config", "c", "", "YAML run configuration file")
	addRunFlags(root)

	runCmd := &cobra.Command{
		Use:   "run <input>",
		Short: "Run the flow simulation",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)

	root.AddCommand(runCmd, newCheckCmd(), newGenerateCmd(), newConfigCmd())
	return root
}

// addRunFlags registers the flags of a simulation run. Flags that override
// the run configuration default to its values so --help shows them.
func addRunFlags(cmd *cobra.Command) {
	addConfigFlags(cmd)
	cmd.Flags().String("format", formatText, "Event output format (text, log)")
	cmd.Flags().Bool("summary", false, "Print run metrics after the events")
	cmd.Flags().String("report", "", "Write a YAML run report to this path")
	cmd.Flags().String("otel-out", "", "Export OpenTelemetry spans as JSON to this path")
}

// Execute runs the CLI root command
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

// runSimulation loads configuration and input, runs every flow to
// completion and writes the requested outputs. Configuration and input
// errors are returned before any flow starts.
func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if format != formatText && format != formatLog {
		return fmt.Errorf("%w: unknown output format %q", sim.ErrInvalidConfig, format)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flows, err := workload.LoadFlows(ctx, nil, args[0], workload.ParseConfig{TimeUnit: cfg.TimeUnit, MaxFlows: cfg.MaxFlows})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var text *sim.TextSink
	var sink sim.EventSink
	if format == formatText {
		text = sim.NewTextSink(out)
		sink = text
	} else {
		sink = sim.NewLogSink(newEventLogger(out))
	}

	s, err := sim.NewSimulator(cfg, flows, sink)
	if err != nil {
		return err
	}
	log := logrus.WithField("run_id", s.RunID)

	shutdownTelemetry := func() {}
	if path, _ := cmd.Flags().GetString("otel-out"); path != "" {
		shutdownTelemetry, err = attachTelemetry(ctx, s, path)
		if err != nil {
			return err
		}
	}

	metrics, runErr := s.Run(ctx)
	shutdownTelemetry()

	if text != nil && text.Err() != nil {
		log.Errorf("event output incomplete: %v", text.Err())
	}
	if summary, _ := cmd.Flags().GetBool("summary"); summary && metrics != nil {
		metrics.Print(out)
	}
	if path, _ := cmd.Flags().GetString("report"); path != "" {
		if err := sim.SaveReport(path, s.Report(runErr)); err != nil {
			return err
		}
		log.Infof("Report written to %s", path)
	}
	return runErr
}

// attachTelemetry exports the run's spans to path. The returned func ends
// unfinished spans, flushes the exporter and closes the file.
func attachTelemetry(ctx context.Context, s *sim.Simulator, path string) (func(), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating span output: %w", err)
	}
	tp, err := telemetry.NewStdoutProvider(ctx, f, s.RunID)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("creating span exporter: %w", err)
	}
	spans := telemetry.NewSpanSink(tp)
	s.AddSink(spans)
	return func() {
		spans.Close()
		if err := tp.Shutdown(context.Background()); err != nil {
			logrus.Warnf("flushing spans: %v", err)
		}
		closeQuietly(f)
	}, nil
}

// newEventLogger returns the logger events go to with --format log. Events
// are the run's output, so it writes to w at info level unless --log asks
// for more detail.
func newEventLogger(w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	if level := logrus.GetLevel(); level > logrus.InfoLevel {
		logger.SetLevel(level)
	}
	return logger
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		logrus.Warnf("close: %v", err)
	}
}
