package cmd

import (
	"bytes"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/inference-sim/flowsim/sim"
	"github.com/inference-sim/flowsim/sim/workload"
)

func newGenerateCmd() *cobra.Command {
	def := workload.DefaultGenerateConfig()
	var (
		cfg  workload.GenerateConfig
		seed int64
		out  string
	)
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a random flow description",
		Long: `generate writes a description in the input format. The same seed and
bounds always produce the same description. Values are in time units.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := workload.Generate(sim.NewSimulationKey(seed), cfg)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := workload.WriteDescription(&buf, records); err != nil {
				return err
			}
			if out == "" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			dest := url.Normalize(out, file.Scheme)
			if err := afs.New().Upload(commandContext(cmd), dest, file.DefaultFileOsMode, &buf); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			logrus.Infof("Wrote %d flows to %s", len(records), dest)
			return nil
		},
	}
	generateCmd.Flags().IntVar(&cfg.Flows, "flows", def.Flows, "Number of flows")
	generateCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the random generator")
	generateCmd.Flags().IntVar(&cfg.MaxArrival, "max-arrival", def.MaxArrival, "Largest arrival offset, in time units")
	generateCmd.Flags().IntVar(&cfg.MaxTransmission, "max-transmission", def.MaxTransmission, "Largest transmission time, in time units")
	generateCmd.Flags().IntVar(&cfg.Priorities, "priorities", def.Priorities, "Number of priority classes")
	generateCmd.Flags().StringVarP(&out, "out", "o", "", "Destination path or URL (default stdout)")
	return generateCmd
}
