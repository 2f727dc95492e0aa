package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/flowsim/sim"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flowsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// resolve parses args on a fresh command carrying the config flags.
func resolve(t *testing.T, args ...string) (sim.RunConfig, error) {
	t.Helper()
	cmd := &cobra.Command{Use: "resolve"}
	addConfigFlags(cmd)
	cmd.Flags().String("config", "", "")
	require.NoError(t, cmd.ParseFlags(args))
	return loadRunConfig(cmd)
}

func TestLoadRunConfig_Defaults(t *testing.T) {
	cfg, err := resolve(t)
	require.NoError(t, err)
	assert.Equal(t, sim.DefaultRunConfig(), cfg)
}

func TestLoadRunConfig_Precedence(t *testing.T) {
	// GIVEN a config file, an environment override and a flag
	path := writeConfig(t, "time_unit: 50ms\nmax_flows: 10\nordering: priority-sjf-truncated\n")
	t.Setenv("FLOWSIM_MAX_FLOWS", "20")

	// WHEN the flag overrides the ordering
	cfg, err := resolve(t, "--config", path, "--ordering", "priority-sjf")

	// THEN flag > env > file > default
	require.NoError(t, err)
	assert.Equal(t, "priority-sjf", cfg.Ordering)
	assert.Equal(t, 20, cfg.MaxFlows)
	assert.Equal(t, 50*time.Millisecond, cfg.TimeUnit)
	assert.True(t, cfg.BatchSimultaneousArrivals)
}

func TestLoadRunConfig_EnvDuration(t *testing.T) {
	t.Setenv("FLOWSIM_TIME_UNIT", "250ms")
	cfg, err := resolve(t)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.TimeUnit)
}

func TestLoadRunConfig_Errors(t *testing.T) {
	t.Run("unknown key", func(t *testing.T) {
		path := writeConfig(t, "time_unit: 50ms\nspeed: 3\n")
		_, err := resolve(t, "--config", path)
		require.Error(t, err)
		assert.True(t, errors.Is(err, sim.ErrInvalidConfig))
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := resolve(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, sim.ErrInvalidConfig))
	})
	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("FLOWSIM_TRACE", "everything")
		_, err := resolve(t)
		require.Error(t, err)
		assert.True(t, errors.Is(err, sim.ErrInvalidConfig))
	})
}

func TestConfigInit_WritesLoadableDefaults(t *testing.T) {
	// GIVEN a fresh path
	path := filepath.Join(t.TempDir(), "flowsim.yaml")

	// WHEN config init writes it
	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Config written to")

	// THEN loading it yields the defaults, and a second init refuses to overwrite
	cfg, err := resolve(t, "--config", path)
	require.NoError(t, err)
	assert.Equal(t, sim.DefaultRunConfig(), cfg)
	_, err = execute(t, "config", "init", path)
	assert.Error(t, err)
}

func TestConfigShow_PrintsEffectiveConfig(t *testing.T) {
	out, err := execute(t, "config", "show", "--max-flows", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "max_flows: 7")
	assert.Contains(t, out, "ordering: priority-sjf")
}
