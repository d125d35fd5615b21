package bars

import (
	"time"

	"main/internal/schema"
)

// Generator builds 1-minute bars for one instrument from ticks whose
// volume and turnover fields are cumulative for the day. The first tick
// of the day contributes its full cumulative volume to the first bar,
// so the opening auction is not lost. A completed bar is emitted when a
// tick arrives in a later minute or when FlushStale decides the market
// has gone quiet past the bar's minute.
type Generator struct {
	symbolID uint32
	loc      *time.Location
	onBar    func(schema.Bar)

	windowSize  int
	onWindowBar func(schema.Bar)

	cur        schema.Bar
	curEnd     time.Time
	hasBar     bool
	day        int
	lastVolume float64
	lastValue  float64

	window    schema.Bar
	windowCnt int
}

// New creates a generator emitting completed 1-minute bars through
// onBar. loc interprets tick timestamps for minute and day boundaries.
func New(symbolID uint32, loc *time.Location, onBar func(schema.Bar)) *Generator {
	if loc == nil {
		loc = time.Local
	}
	return &Generator{symbolID: symbolID, loc: loc, onBar: onBar}
}

// WithWindow additionally rolls completed 1-minute bars into n-minute
// window bars delivered through onWindowBar.
func (g *Generator) WithWindow(n int, onWindowBar func(schema.Bar)) *Generator {
	if n > 1 && onWindowBar != nil {
		g.windowSize = n
		g.onWindowBar = onWindowBar
	}
	return g
}

// OnTick folds a tick into the in-progress bar, completing and emitting
// the previous bar when the tick crosses a minute boundary. ts is the
// tick's event time.
func (g *Generator) OnTick(tick schema.Tick, ts time.Time) {
	ts = ts.In(g.loc)
	day := ts.Year()*10000 + int(ts.Month())*100 + ts.Day()
	if g.day != 0 && day != g.day {
		g.Flush()
		g.resetDay()
	}
	g.day = day

	deltaVolume := tick.Volume - g.lastVolume
	deltaValue := tick.Turnover - g.lastValue
	if deltaVolume < 0 { // cumulative counters restarted upstream
		deltaVolume = tick.Volume
		deltaValue = tick.Turnover
	}
	g.lastVolume = tick.Volume
	g.lastValue = tick.Turnover

	minuteStart := ts.Truncate(time.Minute)
	if g.hasBar && !minuteStart.Before(g.curEnd) {
		g.emit()
	}
	if !g.hasBar {
		g.cur = schema.Bar{
			SymbolID:        g.symbolID,
			IntervalSeconds: 60,
			TsStart:         minuteStart.UnixNano(),
			Open:            tick.Price,
			High:            tick.Price,
			Low:             tick.Price,
		}
		g.curEnd = minuteStart.Add(time.Minute)
		g.hasBar = true
	}
	if tick.Price > g.cur.High {
		g.cur.High = tick.Price
	}
	if tick.Price < g.cur.Low {
		g.cur.Low = tick.Price
	}
	g.cur.Close = tick.Price
	g.cur.Volume += deltaVolume
	g.cur.Turnover += deltaValue
}

// Current returns the in-progress bar for intra-bar checks.
func (g *Generator) Current() (schema.Bar, bool) {
	return g.cur, g.hasBar
}

// FlushStale completes the in-progress bar when now is past its minute
// end by at least grace. Illiquid instruments otherwise hold a finished
// minute open until the next trade arrives.
func (g *Generator) FlushStale(now time.Time, grace time.Duration) {
	if g.hasBar && now.In(g.loc).After(g.curEnd.Add(grace)) {
		g.emit()
	}
}

// Discard drops the in-progress bar and the cumulative baselines
// without emitting. Used when the session rolls over and the unfinished
// minute belongs to a day that is already closed.
func (g *Generator) Discard() {
	g.resetDay()
}

// Flush force-completes the in-progress bar, if any.
func (g *Generator) Flush() {
	if g.hasBar {
		g.emit()
	}
}

func (g *Generator) emit() {
	bar := g.cur
	g.hasBar = false
	g.cur = schema.Bar{}
	if g.onBar != nil {
		g.onBar(bar)
	}
	g.rollWindow(bar)
}

func (g *Generator) rollWindow(bar schema.Bar) {
	if g.windowSize <= 1 {
		return
	}
	if g.windowCnt == 0 {
		g.window = bar
		g.window.IntervalSeconds = uint32(g.windowSize * 60)
	} else {
		if bar.High > g.window.High {
			g.window.High = bar.High
		}
		if bar.Low < g.window.Low {
			g.window.Low = bar.Low
		}
		g.window.Close = bar.Close
		g.window.Volume += bar.Volume
		g.window.Turnover += bar.Turnover
	}
	g.windowCnt++
	if g.windowCnt >= g.windowSize {
		g.onWindowBar(g.window)
		g.windowCnt = 0
	}
}

func (g *Generator) resetDay() {
	g.hasBar = false
	g.cur = schema.Bar{}
	g.lastVolume = 0
	g.lastValue = 0
	g.windowCnt = 0
}
