package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"main/internal/risk"
	"main/internal/schema"
	"main/internal/strategy"
)

const defaultTimezone = "Asia/Tokyo"

// FileConfig mirrors the JSON config layout. Strategy parameters start
// from the production defaults; the file only overrides what it names.
type FileConfig struct {
	Symbols  []string        `json:"symbols"`
	Timezone string          `json:"timezone"`
	Strategy strategy.Config `json:"strategy"`
	Risk     risk.Config     `json:"risk"`
	Feed     FeedConfig      `json:"feed"`
	Master   MasterConfig    `json:"master"`
	Journal  JournalConfig   `json:"journal"`
	Recorder RecorderConfig  `json:"recorder"`

	// BarWindowMinutes optionally rolls 1-minute bars into window
	// bars for the capture stream. Zero disables the roll-up.
	BarWindowMinutes int `json:"barWindowMinutes"`
}

// FeedConfig locates the tick server.
type FeedConfig struct {
	URL string `json:"url"`
	// ReplayURL is the HTTP control endpoint for server-side replay.
	ReplayURL string `json:"replayUrl"`
}

// MasterConfig locates the stock master. File takes precedence over
// URL when both are set.
type MasterConfig struct {
	URL  string `json:"url"`
	File string `json:"file"`
}

// JournalConfig holds the Postgres trade journal settings.
type JournalConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// RecorderConfig controls the session event capture.
type RecorderConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Registry *schema.Registry
	Location *time.Location
	Strategy strategy.Config
	Risk     risk.Config
	Feed     FeedConfig
	Master   MasterConfig
	Journal  JournalConfig
	Recorder RecorderConfig

	BarWindowMinutes int
}

// Load reads a JSON config file and resolves it. Invalid configuration
// is an error; the caller is expected to abort.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	return Parse(data)
}

// Parse resolves raw JSON config bytes.
func Parse(data []byte) (Loaded, error) {
	cfg := FileConfig{
		Timezone: defaultTimezone,
		Strategy: strategy.DefaultConfig(),
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}
	return resolve(cfg)
}

func resolve(cfg FileConfig) (Loaded, error) {
	if len(cfg.Symbols) == 0 {
		return Loaded{}, fmt.Errorf("config: symbols is empty")
	}
	registry := schema.NewRegistry()
	for _, code := range cfg.Symbols {
		if _, err := registry.AddSymbol(code); err != nil {
			return Loaded{}, fmt.Errorf("config: %w", err)
		}
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Loaded{}, fmt.Errorf("config: invalid timezone %q: %w", cfg.Timezone, err)
	}

	if err := cfg.Strategy.Validate(); err != nil {
		return Loaded{}, fmt.Errorf("config: strategy: %w", err)
	}

	if cfg.Journal.Enabled && cfg.Journal.Database == "" {
		return Loaded{}, fmt.Errorf("config: journal enabled without database")
	}
	if cfg.Recorder.Enabled && cfg.Recorder.Dir == "" {
		return Loaded{}, fmt.Errorf("config: recorder enabled without dir")
	}
	if cfg.BarWindowMinutes < 0 {
		return Loaded{}, fmt.Errorf("config: barWindowMinutes must be >= 0")
	}

	return Loaded{
		Registry:         registry,
		Location:         loc,
		Strategy:         cfg.Strategy,
		Risk:             cfg.Risk,
		Feed:             cfg.Feed,
		Master:           cfg.Master,
		Journal:          cfg.Journal,
		Recorder:         cfg.Recorder,
		BarWindowMinutes: cfg.BarWindowMinutes,
	}, nil
}

// LoadRiskConfig re-reads only the risk limits from a config file, for
// hot reload.
func LoadRiskConfig(path string) (risk.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return risk.Config{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return risk.Config{}, err
	}
	return cfg.Risk, nil
}
