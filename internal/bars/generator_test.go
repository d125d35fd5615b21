package bars

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

var jst = time.FixedZone("JST", 9*3600)

func at(min, sec int) time.Time {
	return time.Date(2026, 1, 5, 9, min, sec, 0, jst)
}

func tick(price, cumVolume, cumTurnover float64) schema.Tick {
	return schema.Tick{SymbolID: 1, Price: price, Volume: cumVolume, Turnover: cumTurnover}
}

func TestMinuteBarFromCumulativeTicks(t *testing.T) {
	var bars []schema.Bar
	g := New(1, jst, func(b schema.Bar) { bars = append(bars, b) })

	// the first print of the day carries the opening auction volume
	g.OnTick(tick(100, 5000, 500_000), at(0, 1))
	g.OnTick(tick(102, 5600, 561_200), at(0, 30))
	g.OnTick(tick(99, 6000, 600_800), at(0, 59))
	require.Empty(t, bars)

	cur, ok := g.Current()
	require.True(t, ok)
	assert.Equal(t, 100.0, cur.Open)
	assert.Equal(t, 102.0, cur.High)
	assert.Equal(t, 99.0, cur.Low)
	assert.Equal(t, 6000.0, cur.Volume)
	assert.Equal(t, 600_800.0, cur.Turnover)

	// a print in the next minute completes the bar
	g.OnTick(tick(101, 6500, 651_300), at(1, 2))
	require.Len(t, bars, 1)
	b := bars[0]
	assert.Equal(t, at(0, 0).UnixNano(), b.TsStart)
	assert.EqualValues(t, 60, b.IntervalSeconds)
	assert.Equal(t, 99.0, b.Close)
	assert.Equal(t, 6000.0, b.Volume)
	assert.Equal(t, 600_800.0, b.Turnover)

	// the new bar holds only the delta beyond the completed ones
	cur, ok = g.Current()
	require.True(t, ok)
	assert.Equal(t, 101.0, cur.Open)
	assert.Equal(t, 500.0, cur.Volume)
	assert.Equal(t, 50_500.0, cur.Turnover)
}

func TestQuietMinutesSkipBars(t *testing.T) {
	var bars []schema.Bar
	g := New(1, jst, func(b schema.Bar) { bars = append(bars, b) })

	g.OnTick(tick(100, 1000, 100_000), at(0, 10))
	// next trade four minutes later: exactly one bar completes
	g.OnTick(tick(100, 1200, 120_000), at(4, 10))
	require.Len(t, bars, 1)
	assert.Equal(t, at(0, 0).UnixNano(), bars[0].TsStart)

	cur, _ := g.Current()
	assert.Equal(t, at(4, 0).UnixNano(), cur.TsStart)
	assert.Equal(t, 200.0, cur.Volume)
}

func TestCumulativeRestartTreatedAsFresh(t *testing.T) {
	var bars []schema.Bar
	g := New(1, jst, func(b schema.Bar) { bars = append(bars, b) })

	g.OnTick(tick(100, 5000, 500_000), at(0, 10))
	// the upstream feed restarted its counters
	g.OnTick(tick(100, 300, 30_000), at(0, 20))

	cur, _ := g.Current()
	assert.Equal(t, 5300.0, cur.Volume)
	assert.Equal(t, 530_000.0, cur.Turnover)
}

func TestFlushStale(t *testing.T) {
	var bars []schema.Bar
	g := New(1, jst, func(b schema.Bar) { bars = append(bars, b) })

	g.OnTick(tick(100, 1000, 100_000), at(0, 10))

	// within the grace period nothing happens
	g.FlushStale(at(1, 3), 5*time.Second)
	assert.Empty(t, bars)

	g.FlushStale(at(1, 6), 5*time.Second)
	require.Len(t, bars, 1)
	assert.Equal(t, 100.0, bars[0].Close)

	// idempotent once flushed
	g.FlushStale(at(2, 0), 5*time.Second)
	assert.Len(t, bars, 1)
}

func TestDiscardDropsUnfinishedBar(t *testing.T) {
	var bars []schema.Bar
	g := New(1, jst, func(b schema.Bar) { bars = append(bars, b) })

	g.OnTick(tick(100, 1000, 100_000), at(0, 10))
	g.Discard()
	assert.Empty(t, bars)
	if _, ok := g.Current(); ok {
		t.Fatal("discarded bar still current")
	}

	// baselines dropped too: the next print counts in full
	g.OnTick(tick(101, 1500, 151_500), at(1, 0))
	cur, ok := g.Current()
	require.True(t, ok)
	assert.Equal(t, 1500.0, cur.Volume)
}

func TestDayChangeFlushesAndResets(t *testing.T) {
	var bars []schema.Bar
	g := New(1, jst, func(b schema.Bar) { bars = append(bars, b) })

	g.OnTick(tick(100, 9000, 900_000), at(59, 30))
	next := time.Date(2026, 1, 6, 9, 0, 5, 0, jst)
	g.OnTick(tick(105, 2000, 210_000), next)

	// the previous day's unfinished bar flushed on the way out
	require.Len(t, bars, 1)
	assert.Equal(t, 100.0, bars[0].Close)

	// the new day starts from its own cumulative baseline
	cur, _ := g.Current()
	assert.Equal(t, 105.0, cur.Open)
	assert.Equal(t, 2000.0, cur.Volume)
	assert.Equal(t, 210_000.0, cur.Turnover)
}

func TestWindowRollup(t *testing.T) {
	var minutes, windows []schema.Bar
	g := New(1, jst, func(b schema.Bar) { minutes = append(minutes, b) }).
		WithWindow(3, func(b schema.Bar) { windows = append(windows, b) })

	prices := []float64{100, 104, 98}
	vol := 0.0
	turn := 0.0
	for i, p := range prices {
		vol += 1000
		turn += p * 1000
		g.OnTick(tick(p, vol, turn), at(i, 10))
	}
	// force the third minute out
	g.Flush()

	require.Len(t, minutes, 3)
	require.Len(t, windows, 1)
	w := windows[0]
	assert.EqualValues(t, 180, w.IntervalSeconds)
	assert.Equal(t, at(0, 0).UnixNano(), w.TsStart)
	assert.Equal(t, 100.0, w.Open)
	assert.Equal(t, 104.0, w.High)
	assert.Equal(t, 98.0, w.Low)
	assert.Equal(t, 98.0, w.Close)
	assert.Equal(t, 3000.0, w.Volume)
}
