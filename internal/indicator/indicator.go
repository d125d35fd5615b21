package indicator

import (
	"math"
	"time"

	"main/internal/schema"
)

const (
	atrPeriod    = 14
	volumeWindow = 5
)

// Values is the indicator snapshot the strategy consumes after each
// completed bar.
type Values struct {
	VWAP           float64
	ATR            float64
	VolumeMA       float64
	AboveVWAPCount int
	BelowVWAPCount int
	EqualVWAPCount int
	BarCount       int
	DailyVolume    float64
	DailyTurnover  float64
}

// Ready reports whether the ATR has warmed up. VWAP and the counts are
// valid from the first bar.
func (v Values) Ready() bool {
	return v.BarCount > atrPeriod
}

// Calculator maintains intraday indicators for one instrument from its
// completed 1-minute bars. VWAP is cumulative turnover over cumulative
// volume for the day. ATR uses Wilder smoothing: the first bar has no
// previous close and contributes no sample, the next 14 true ranges
// average into the seed exposed on the fifteenth bar, then
// (tr + prev*13)/14 from the sixteenth. The above/below counts compare
// each bar close against the VWAP that includes that bar.
type Calculator struct {
	loc *time.Location

	day           int
	dailyVolume   float64
	dailyTurnover float64

	barCount  int
	prevClose float64
	trSum     float64
	atr       float64

	above int
	below int
	equal int

	volumes [volumeWindow]float64
	volIdx  int
	volCnt  int
}

// NewCalculator creates a calculator. Bar timestamps are interpreted in
// loc to detect day changes.
func NewCalculator(loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.Local
	}
	return &Calculator{loc: loc}
}

// OnBar folds a completed bar into the indicators and returns the
// updated snapshot. A bar dated after the current day resets everything
// first.
func (c *Calculator) OnBar(bar schema.Bar) Values {
	ts := time.Unix(0, bar.TsStart).In(c.loc)
	day := ts.Year()*10000 + int(ts.Month())*100 + ts.Day()
	if c.day != 0 && day != c.day {
		c.Reset()
	}
	c.day = day

	c.dailyVolume += bar.Volume
	c.dailyTurnover += bar.Turnover

	vwap := c.vwap()
	switch {
	case bar.Close > vwap:
		c.above++
	case bar.Close < vwap:
		c.below++
	default:
		c.equal++
	}

	tr := bar.High - bar.Low
	if c.barCount > 0 {
		tr = math.Max(tr, math.Max(
			math.Abs(bar.High-c.prevClose),
			math.Abs(bar.Low-c.prevClose),
		))
	}
	c.barCount++
	switch {
	case c.barCount == 1:
		// no true range sample without a previous close
	case c.barCount < atrPeriod+1:
		c.trSum += tr
	case c.barCount == atrPeriod+1:
		c.trSum += tr
		c.atr = c.trSum / atrPeriod
	default:
		c.atr = (tr + c.atr*(atrPeriod-1)) / atrPeriod
	}
	c.prevClose = bar.Close

	c.volumes[c.volIdx] = bar.Volume
	c.volIdx = (c.volIdx + 1) % volumeWindow
	if c.volCnt < volumeWindow {
		c.volCnt++
	}

	return c.Snapshot()
}

func (c *Calculator) vwap() float64 {
	if c.dailyVolume <= 0 {
		return 0
	}
	return c.dailyTurnover / c.dailyVolume
}

// Snapshot returns the current indicator values without mutating state.
func (c *Calculator) Snapshot() Values {
	v := Values{
		VWAP:           c.vwap(),
		AboveVWAPCount: c.above,
		BelowVWAPCount: c.below,
		EqualVWAPCount: c.equal,
		BarCount:       c.barCount,
		DailyVolume:    c.dailyVolume,
		DailyTurnover:  c.dailyTurnover,
	}
	if c.barCount > atrPeriod {
		v.ATR = c.atr
	}
	if c.volCnt == volumeWindow {
		sum := 0.0
		for _, x := range c.volumes {
			sum += x
		}
		v.VolumeMA = sum / volumeWindow
	}
	return v
}

// Reset clears all state for a new trading day.
func (c *Calculator) Reset() {
	loc := c.loc
	*c = Calculator{loc: loc}
}
