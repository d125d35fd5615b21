package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/strategy"
)

func TestParseAppliesDefaults(t *testing.T) {
	loaded, err := Parse([]byte(`{
		"symbols": ["6758", "7203"],
		"timezone": "UTC"
	}`))
	require.NoError(t, err)

	assert.Equal(t, 2, loaded.Registry.SymbolCount())
	assert.Equal(t, time.UTC, loaded.Location)
	assert.Equal(t, strategy.DefaultConfig(), loaded.Strategy)
	assert.False(t, loaded.Journal.Enabled)
	assert.False(t, loaded.Recorder.Enabled)
	assert.Zero(t, loaded.BarWindowMinutes)
}

func TestParseOverrides(t *testing.T) {
	loaded, err := Parse([]byte(`{
		"symbols": ["6758"],
		"timezone": "UTC",
		"strategy": {"maxDailyTrades": 5, "maxExitWaitShort": "4m"},
		"risk": {"maxOrderQty": 50000},
		"feed": {"url": "ws://localhost:8000/ws", "replayUrl": "http://localhost:8001"},
		"recorder": {"enabled": true, "dir": "capture"},
		"barWindowMinutes": 5
	}`))
	require.NoError(t, err)

	assert.Equal(t, 5, loaded.Strategy.MaxDailyTrades)
	assert.Equal(t, 4*time.Minute, loaded.Strategy.MaxExitWaitShort.Std())
	// untouched fields keep the production defaults
	assert.Equal(t, 0.02, loaded.Strategy.GapThreshold)
	assert.Equal(t, 50_000.0, loaded.Risk.MaxOrderQty)
	assert.Equal(t, "ws://localhost:8000/ws", loaded.Feed.URL)
	assert.Equal(t, "capture", loaded.Recorder.Dir)
	assert.Equal(t, 5, loaded.BarWindowMinutes)
}

func TestParseRejectsInvalid(t *testing.T) {
	testCases := []struct {
		desc string
		raw  string
	}{
		{desc: "malformed json", raw: `{`},
		{desc: "no symbols", raw: `{"timezone": "UTC"}`},
		{desc: "duplicate symbol", raw: `{"symbols": ["6758", "6758"], "timezone": "UTC"}`},
		{desc: "bad timezone", raw: `{"symbols": ["6758"], "timezone": "Mars/Olympus"}`},
		{desc: "invalid strategy", raw: `{"symbols": ["6758"], "timezone": "UTC", "strategy": {"maxDailyTrades": 0}}`},
		{desc: "journal without database", raw: `{"symbols": ["6758"], "timezone": "UTC", "journal": {"enabled": true}}`},
		{desc: "recorder without dir", raw: `{"symbols": ["6758"], "timezone": "UTC", "recorder": {"enabled": true}}`},
		{desc: "negative bar window", raw: `{"symbols": ["6758"], "timezone": "UTC", "barWindowMinutes": -1}`},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := Parse([]byte(tc.raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"symbols": ["6758"],
		"timezone": "UTC",
		"risk": {"killSwitch": true, "maxPosition": 20000}
	}`), 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Risk.KillSwitch)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadRiskConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"symbols": ["6758"],
		"risk": {"maxOrderQty": 1000, "maxPriceDeviationBps": 200}
	}`), 0o644))

	cfg, err := LoadRiskConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, cfg.MaxOrderQty)
	assert.Equal(t, 200.0, cfg.MaxPriceDeviationBps)
}
