package sim

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRunConfig_IsValid(t *testing.T) {
	cfg := DefaultRunConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 100*time.Millisecond, cfg.TimeUnit)
	assert.Equal(t, 100, cfg.MaxFlows)
	assert.Equal(t, "priority-sjf", cfg.Ordering)
	assert.True(t, cfg.BatchSimultaneousArrivals)
}

func TestRunConfig_Validate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunConfig)
	}{
		{"zero time unit", func(c *RunConfig) { c.TimeUnit = 0 }},
		{"negative time unit", func(c *RunConfig) { c.TimeUnit = -time.Millisecond }},
		{"zero max flows", func(c *RunConfig) { c.MaxFlows = 0 }},
		{"unknown ordering", func(c *RunConfig) { c.Ordering = "fifo" }},
		{"unknown trace level", func(c *RunConfig) { c.Trace = "all" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRunConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestRunConfig_Validate_AcceptsAlternatives(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.Ordering = "priority-sjf-truncated"
	cfg.Trace = "decisions"
	cfg.BatchSimultaneousArrivals = false
	assert.NoError(t, cfg.Validate())
}
