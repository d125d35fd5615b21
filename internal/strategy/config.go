package strategy

import (
	"encoding/json"
	"time"

	"main/internal/errors"
)

// Duration is a time.Duration with JSON support for strings like "5m".
type Duration time.Duration

// UnmarshalJSON accepts either a duration string or nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(v))
	default:
		return errors.New("invalid duration")
	}
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ClockTime is a time of day in the exchange timezone, serialized as
// "15:04".
type ClockTime struct {
	Hour   int
	Minute int
}

// UnmarshalJSON parses "HH:MM".
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return err
	}
	c.Hour, c.Minute = t.Hour(), t.Minute()
	return nil
}

// MarshalJSON writes "HH:MM".
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Date(0, 1, 1, c.Hour, c.Minute, 0, 0, time.UTC).Format("15:04"))
}

// Minutes returns minutes since midnight.
func (c ClockTime) Minutes() int { return c.Hour*60 + c.Minute }

// IsZero reports whether the time was never set.
func (c ClockTime) IsZero() bool { return c.Hour == 0 && c.Minute == 0 }

// Reached reports whether t's time of day is at or past c.
func (c ClockTime) Reached(t time.Time) bool {
	return t.Hour()*60+t.Minute() >= c.Minutes()
}

// Config holds the strategy parameters. Defaults match the production
// parameter set for the Tokyo session.
type Config struct {
	// Eligibility.
	MinMarketCap float64 `json:"minMarketCap"`
	GapThreshold float64 `json:"gapThreshold"`

	// Entry.
	FailureThresholdGapUp   int     `json:"failureThresholdGapUp"`
	FailureThresholdGapDown int     `json:"failureThresholdGapDown"`
	EntryFactor             float64 `json:"entryFactor"`
	ExitFactor              float64 `json:"exitFactor"`
	MaxDailyTrades          int     `json:"maxDailyTrades"`
	CapitalPerInstrument    float64 `json:"capitalPerInstrument"`
	LatestEntryTime         ClockTime `json:"latestEntryTime"`

	// Deferred entry. Zero disables the feature: entries are quoted
	// immediately when the signal fires.
	DeferredEntryATRMultiplier float64 `json:"deferredEntryAtrMultiplier"`

	// Exit timeouts.
	MaxExitWaitShort     Duration  `json:"maxExitWaitShort"`
	MaxExitWaitLong      Duration  `json:"maxExitWaitLong"`
	TimeoutExitMaxPeriod Duration  `json:"timeoutExitMaxPeriod"`
	PreCloseCutoff       ClockTime `json:"preCloseCutoff"`
	ClosingWindowStart   ClockTime `json:"closingWindowStart"`

	// Volume risk guard.
	EntryVolumeRatioGapUp   float64 `json:"entryVolumeRatioGapUp"`
	EntryVolumeRatioGapDown float64 `json:"entryVolumeRatioGapDown"`
	ExitVolumeRatio         float64 `json:"exitVolumeRatio"`
	ForceExitATRFactor      float64 `json:"forceExitAtrFactor"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MinMarketCap:            100_000_000_000,
		GapThreshold:            0.02,
		FailureThresholdGapUp:   3,
		FailureThresholdGapDown: 3,
		EntryFactor:             1.5,
		ExitFactor:              1.0,
		MaxDailyTrades:          3,
		CapitalPerInstrument:    10_000_000,
		LatestEntryTime:         ClockTime{Hour: 14, Minute: 30},
		MaxExitWaitShort:        Duration(5 * time.Minute),
		MaxExitWaitLong:         Duration(7 * time.Minute),
		TimeoutExitMaxPeriod:    Duration(5 * time.Minute),
		PreCloseCutoff:          ClockTime{Hour: 14, Minute: 50},
		ClosingWindowStart:      ClockTime{Hour: 14, Minute: 55},
		EntryVolumeRatioGapUp:   4.0,
		EntryVolumeRatioGapDown: 3.0,
		ExitVolumeRatio:         5.0,
		ForceExitATRFactor:      1.5,
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	switch {
	case c.GapThreshold <= 0:
		return errors.New("gapThreshold must be > 0")
	case c.FailureThresholdGapUp <= 0 || c.FailureThresholdGapDown <= 0:
		return errors.New("failure thresholds must be > 0")
	case c.EntryFactor <= 0 || c.ExitFactor <= 0:
		return errors.New("entry/exit factors must be > 0")
	case c.MaxDailyTrades <= 0:
		return errors.New("maxDailyTrades must be > 0")
	case c.CapitalPerInstrument <= 0:
		return errors.New("capitalPerInstrument must be > 0")
	case c.MaxExitWaitShort <= 0 || c.MaxExitWaitLong <= 0:
		return errors.New("exit wait times must be > 0")
	case c.TimeoutExitMaxPeriod <= 0:
		return errors.New("timeoutExitMaxPeriod must be > 0")
	case c.LatestEntryTime.IsZero():
		return errors.New("latestEntryTime must be set")
	case c.PreCloseCutoff.IsZero() || c.ClosingWindowStart.IsZero():
		return errors.New("closing cutoffs must be set")
	case c.PreCloseCutoff.Minutes() >= c.ClosingWindowStart.Minutes():
		return errors.New("preCloseCutoff must be before closingWindowStart")
	case c.DeferredEntryATRMultiplier < 0:
		return errors.New("deferredEntryAtrMultiplier must be >= 0")
	}
	return nil
}
