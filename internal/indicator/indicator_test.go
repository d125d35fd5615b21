package indicator

import (
	"math"
	"testing"
	"time"

	"main/internal/schema"
)

var jst = time.FixedZone("JST", 9*3600)

func minuteBar(min int, open, high, low, closePx, volume, turnover float64) schema.Bar {
	ts := time.Date(2026, 1, 5, 9, min, 0, 0, jst)
	return schema.Bar{
		SymbolID:        1,
		IntervalSeconds: 60,
		TsStart:         ts.UnixNano(),
		Open:            open,
		High:            high,
		Low:             low,
		Close:           closePx,
		Volume:          volume,
		Turnover:        turnover,
	}
}

func TestVWAPIsCumulative(t *testing.T) {
	c := NewCalculator(jst)

	v := c.OnBar(minuteBar(1, 100, 101, 99, 100, 1000, 100_000))
	if v.VWAP != 100 {
		t.Fatalf("vwap after one bar: got %v want 100", v.VWAP)
	}

	// second bar trades at 110: vwap moves to the volume weighted mix
	v = c.OnBar(minuteBar(2, 110, 111, 109, 110, 1000, 110_000))
	if v.VWAP != 105 {
		t.Fatalf("vwap after two bars: got %v want 105", v.VWAP)
	}
	if v.DailyVolume != 2000 || v.DailyTurnover != 210_000 {
		t.Fatalf("daily totals: got %v / %v", v.DailyVolume, v.DailyTurnover)
	}
}

func TestVWAPCounts(t *testing.T) {
	c := NewCalculator(jst)

	// close above the bar-inclusive vwap
	v := c.OnBar(minuteBar(1, 100, 106, 100, 106, 1000, 100_000))
	if v.AboveVWAPCount != 1 || v.BelowVWAPCount != 0 {
		t.Fatalf("counts after bar 1: above %d below %d", v.AboveVWAPCount, v.BelowVWAPCount)
	}

	// close below
	v = c.OnBar(minuteBar(2, 106, 106, 95, 95, 1000, 100_000))
	if v.AboveVWAPCount != 1 || v.BelowVWAPCount != 1 {
		t.Fatalf("counts after bar 2: above %d below %d", v.AboveVWAPCount, v.BelowVWAPCount)
	}

	// close exactly on vwap: turnover keeps vwap pinned at 100
	v = c.OnBar(minuteBar(3, 95, 100, 95, 100, 1000, 100_000))
	if v.EqualVWAPCount != 1 {
		t.Fatalf("equal count: got %d want 1", v.EqualVWAPCount)
	}
}

func TestWilderATRWarmup(t *testing.T) {
	c := NewCalculator(jst)

	// fourteen bars with a constant true range of 2
	var v Values
	for i := 1; i <= 14; i++ {
		v = c.OnBar(minuteBar(i, 100, 101, 99, 100, 1000, 100_000))
	}
	if v.Ready() {
		t.Fatal("atr must not be ready at fourteen bars")
	}
	if v.ATR != 0 {
		t.Fatalf("atr exposed during warmup: got %v", v.ATR)
	}

	// fifteenth bar completes the fourteen samples: the exposed value
	// is their plain average (high 105 against the previous close of
	// 100 caps the last range at 9)
	v = c.OnBar(minuteBar(15, 100, 105, 96, 100, 1000, 100_000))
	if !v.Ready() {
		t.Fatal("atr must be ready at fifteen bars")
	}
	seed := (2.0*13 + 9.0) / 14
	if math.Abs(v.ATR-seed) > 1e-12 {
		t.Fatalf("atr: got %v want %v", v.ATR, seed)
	}

	// smoothing starts on the sixteenth bar
	v = c.OnBar(minuteBar(16, 100, 101, 99, 100, 1000, 100_000))
	want := (2.0 + seed*13) / 14
	if math.Abs(v.ATR-want) > 1e-12 {
		t.Fatalf("atr after smoothing: got %v want %v", v.ATR, want)
	}
}

func TestTrueRangeUsesPreviousClose(t *testing.T) {
	c := NewCalculator(jst)
	c.OnBar(minuteBar(1, 100, 101, 99, 100, 1000, 100_000))

	// a gap bar: high-low is 1 but the jump from the previous close
	// dominates the true range
	c.OnBar(minuteBar(2, 110, 110.5, 109.5, 110, 1000, 110_000))
	for i := 3; i <= 14; i++ {
		c.OnBar(minuteBar(i, 110, 111, 109, 110, 1000, 110_000))
	}
	v := c.OnBar(minuteBar(15, 110, 111, 109, 110, 1000, 110_000))

	// plain average of the fourteen samples: the gap bar contributes
	// 10.5, the rest 2
	want := (10.5 + 13*2.0) / 14
	if math.Abs(v.ATR-want) > 1e-12 {
		t.Fatalf("atr: got %v want %v", v.ATR, want)
	}
}

func TestVolumeMAWindow(t *testing.T) {
	c := NewCalculator(jst)

	var v Values
	for i := 1; i <= 4; i++ {
		v = c.OnBar(minuteBar(i, 100, 101, 99, 100, 1000, 100_000))
	}
	if v.VolumeMA != 0 {
		t.Fatalf("volume ma before five bars: got %v", v.VolumeMA)
	}

	v = c.OnBar(minuteBar(5, 100, 101, 99, 100, 2000, 200_000))
	if v.VolumeMA != 1200 {
		t.Fatalf("volume ma at five bars: got %v want 1200", v.VolumeMA)
	}

	// the window slides: the oldest 1000 drops out
	v = c.OnBar(minuteBar(6, 100, 101, 99, 100, 3000, 300_000))
	if v.VolumeMA != 1600 {
		t.Fatalf("volume ma after slide: got %v want 1600", v.VolumeMA)
	}
}

func TestCalculatorResetsOnNewDay(t *testing.T) {
	c := NewCalculator(jst)
	for i := 1; i <= 15; i++ {
		c.OnBar(minuteBar(i, 100, 101, 99, 100, 1000, 100_000))
	}
	if !c.Snapshot().Ready() {
		t.Fatal("warmup failed")
	}

	next := time.Date(2026, 1, 6, 9, 0, 0, 0, jst)
	v := c.OnBar(schema.Bar{
		SymbolID:        1,
		IntervalSeconds: 60,
		TsStart:         next.UnixNano(),
		Open:            200, High: 201, Low: 199, Close: 200,
		Volume: 500, Turnover: 100_000,
	})
	if v.BarCount != 1 {
		t.Fatalf("bar count after rollover: got %d want 1", v.BarCount)
	}
	if v.VWAP != 200 {
		t.Fatalf("vwap after rollover: got %v want 200", v.VWAP)
	}
	if v.Ready() {
		t.Fatal("atr survived the rollover")
	}
}

func TestManagerTracksPerSymbol(t *testing.T) {
	m := NewManager(jst)
	m.Prime([]uint32{1, 2})

	bar := minuteBar(1, 100, 101, 99, 100, 1000, 100_000)
	m.OnBar(bar)
	other := bar
	other.SymbolID = 2
	other.Close = 99
	other.Turnover = 99_000
	m.OnBar(other)

	v1, ok := m.Snapshot(1)
	if !ok || v1.VWAP != 100 {
		t.Fatalf("symbol 1: got %v (%v)", v1.VWAP, ok)
	}
	v2, ok := m.Snapshot(2)
	if !ok || v2.VWAP != 99 {
		t.Fatalf("symbol 2: got %v (%v)", v2.VWAP, ok)
	}
	if _, ok := m.Snapshot(3); ok {
		t.Fatal("unknown symbol must have no snapshot")
	}

	m.ResetDay()
	v1, _ = m.Snapshot(1)
	if v1.BarCount != 0 {
		t.Fatal("reset must clear all calculators")
	}
}
