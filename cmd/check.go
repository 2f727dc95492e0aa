package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/inference-sim/flowsim/sim"
	"github.com/inference-sim/flowsim/sim/workload"
)

func newCheckCmd() *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check <input>",
		Short: "Validate a flow description without running it",
		Long: `check parses the input with the effective run configuration and prints
the flows in the order the arbiter would grant them if they were all
waiting at once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRunConfig(cmd)
			if err != nil {
				return err
			}
			flows, err := workload.LoadFlows(commandContext(cmd), nil, args[0],
				workload.ParseConfig{TimeUnit: cfg.TimeUnit, MaxFlows: cfg.MaxFlows})
			if err != nil {
				return err
			}

			ordered := make([]*sim.Flow, len(flows))
			for i := range flows {
				ordered[i] = &flows[i]
			}
			sim.SortFlows(ordered, sim.NewOrdering(cfg.Ordering))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d flows, ordering %s\n", args[0], len(flows), cfg.Ordering)
			if len(flows) == 0 {
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tFLOW\tARRIVAL\tTRANSMISSION\tPRIORITY")
			for i, f := range ordered {
				fmt.Fprintf(tw, "%d\t%d\t%.2f\t%.2f\t%d\n", i+1, f.ID, f.Arrival.Seconds(), f.Hold.Seconds(), f.Priority)
			}
			return tw.Flush()
		},
	}
	addConfigFlags(checkCmd)
	return checkCmd
}
