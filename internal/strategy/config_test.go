package strategy

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	testCases := []struct {
		desc   string
		mutate func(c *Config)
	}{
		{desc: "zero gap threshold", mutate: func(c *Config) { c.GapThreshold = 0 }},
		{desc: "zero failure threshold", mutate: func(c *Config) { c.FailureThresholdGapUp = 0 }},
		{desc: "zero entry factor", mutate: func(c *Config) { c.EntryFactor = 0 }},
		{desc: "zero trade budget", mutate: func(c *Config) { c.MaxDailyTrades = 0 }},
		{desc: "zero capital", mutate: func(c *Config) { c.CapitalPerInstrument = 0 }},
		{desc: "zero exit wait", mutate: func(c *Config) { c.MaxExitWaitShort = 0 }},
		{desc: "zero timeout budget", mutate: func(c *Config) { c.TimeoutExitMaxPeriod = 0 }},
		{desc: "missing latest entry time", mutate: func(c *Config) { c.LatestEntryTime = ClockTime{} }},
		{desc: "missing closing cutoffs", mutate: func(c *Config) { c.PreCloseCutoff = ClockTime{} }},
		{desc: "cutoffs out of order", mutate: func(c *Config) {
			c.PreCloseCutoff = ClockTime{Hour: 14, Minute: 56}
		}},
		{desc: "negative deferred multiplier", mutate: func(c *Config) { c.DeferredEntryATRMultiplier = -1 }},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigJSON(t *testing.T) {
	raw := `{
		"gapThreshold": 0.025,
		"maxExitWaitShort": "4m30s",
		"maxExitWaitLong": 300000000000,
		"latestEntryTime": "14:15",
		"preCloseCutoff": "14:45"
	}`
	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(raw), &cfg))
	assert.Equal(t, 0.025, cfg.GapThreshold)
	assert.Equal(t, 4*time.Minute+30*time.Second, cfg.MaxExitWaitShort.Std())
	assert.Equal(t, 5*time.Minute, cfg.MaxExitWaitLong.Std())
	assert.Equal(t, ClockTime{Hour: 14, Minute: 15}, cfg.LatestEntryTime)
	assert.Equal(t, 855, cfg.LatestEntryTime.Minutes())

	out, err := json.Marshal(cfg)
	require.NoError(t, err)
	var back Config
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, cfg, back)

	var bad Duration
	assert.Error(t, json.Unmarshal([]byte(`"fast"`), &bad))
	var badClock ClockTime
	assert.Error(t, json.Unmarshal([]byte(`"25:99"`), &badClock))
}

func TestClockTimeReached(t *testing.T) {
	loc := time.FixedZone("JST", 9*3600)
	c := ClockTime{Hour: 14, Minute: 50}
	assert.False(t, c.Reached(time.Date(2026, 1, 5, 14, 49, 59, 0, loc)))
	assert.True(t, c.Reached(time.Date(2026, 1, 5, 14, 50, 0, 0, loc)))
	assert.True(t, c.Reached(time.Date(2026, 1, 5, 15, 0, 0, 0, loc)))
}
