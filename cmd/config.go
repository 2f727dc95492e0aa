package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/flowsim/sim"
)

// envPrefix scopes environment overrides, e.g. FLOWSIM_TIME_UNIT=50ms.
const envPrefix = "FLOWSIM"

// configFlags maps run configuration keys to the flags that override them.
var configFlags = map[string]string{
	"time_unit":                   "time-unit",
	"max_flows":                   "max-flows",
	"ordering":                    "ordering",
	"batch_simultaneous_arrivals": "batch-arrivals",
	"trace":                       "trace",
}

// addConfigFlags registers the flags that override the run configuration.
func addConfigFlags(cmd *cobra.Command) {
	def := sim.DefaultRunConfig()
	cmd.Flags().Duration("time-unit", def.TimeUnit, "Duration of one input time unit")
	cmd.Flags().Int("max-flows", def.MaxFlows, "Largest flow count an input may declare")
	cmd.Flags().String("ordering", def.Ordering, "Wait queue ordering (priority-sjf, priority-sjf-truncated)")
	cmd.Flags().Bool("batch-arrivals", def.BatchSimultaneousArrivals, "Admit flows arriving at the same instant together")
	cmd.Flags().String("trace", def.Trace, "Arbitration trace level (none, decisions)")
}

// loadRunConfig resolves the run configuration with precedence
// flag > environment > config file > default, and validates it.
func loadRunConfig(cmd *cobra.Command) (sim.RunConfig, error) {
	v := viper.New()
	def := sim.DefaultRunConfig()
	v.SetDefault("time_unit", def.TimeUnit)
	v.SetDefault("max_flows", def.MaxFlows)
	v.SetDefault("ordering", def.Ordering)
	v.SetDefault("batch_simultaneous_arrivals", def.BatchSimultaneousArrivals)
	v.SetDefault("trace", def.Trace)

	for key, name := range configFlags {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return sim.RunConfig{}, err
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return sim.RunConfig{}, fmt.Errorf("%w: reading %s: %v", sim.ErrInvalidConfig, path, err)
		}
	}

	var cfg sim.RunConfig
	if err := v.UnmarshalExact(&cfg); err != nil {
		return sim.RunConfig{}, fmt.Errorf("%w: %v", sim.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return sim.RunConfig{}, err
	}
	return cfg, nil
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create a run configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective run configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRunConfig(cmd)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	addConfigFlags(showCmd)

	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a configuration file with the default values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config file already exists at %s", path)
			}
			data, err := yaml.Marshal(sim.DefaultRunConfig())
			if err != nil {
				return err
			}
			header := "# flowsim run configuration\n# Environment variables FLOWSIM_<KEY> and command-line flags take precedence.\n"
			if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
				return fmt.Errorf("writing config file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
			return nil
		},
	}

	configCmd.AddCommand(showCmd, initCmd)
	return configCmd
}
