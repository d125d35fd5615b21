package strategy

import (
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/bars"
	"main/internal/bus"
	"main/internal/codec"
	"main/internal/gateway"
	"main/internal/indicator"
	"main/internal/master"
	"main/internal/obs"
	"main/internal/risk"
	"main/internal/schema"
	"main/internal/state"
)

// RoundTrip is one completed entry/exit cycle, handed to the journal.
type RoundTrip struct {
	Code       string
	Direction  Direction
	Qty        float64
	EntryPrice float64
	ExitPrice  float64
	EntryTime  time.Time
	ExitTime   time.Time
	ViaTimeout bool
}

// Journal persists completed round trips. Implementations must not
// block the calling shard goroutine for long.
type Journal interface {
	RecordRoundTrip(RoundTrip)
}

// Deps wires the engine to its collaborators. Gateway and Registry are
// required; everything else is optional.
type Deps struct {
	Registry  *schema.Registry
	Master    *master.Table
	Gateway   gateway.Gateway
	Risk      *risk.Engine
	Metrics   *obs.Metrics
	Journal   Journal
	Positions *state.PositionReducer

	// Location is the exchange timezone; defaults to time.Local.
	Location *time.Location

	// Observers for the event recorder. Called on the shard goroutine.
	OnIntent func(schema.OrderIntent, time.Time)
	OnRisk   func(schema.RiskDecision, time.Time)
	OnBar    func(schema.Bar, time.Time)

	// BarFlushGrace delays force-completing a stale bar past its
	// minute end. Defaults to 5s.
	BarFlushGrace time.Duration

	// WindowMinutes rolls 1-minute bars into window bars delivered
	// through OnWindowBar.
	WindowMinutes int
	OnWindowBar   func(schema.Bar)
}

// symbolRuntime is the per-instrument working set. Each instance is
// touched only by its owning shard goroutine.
type symbolRuntime struct {
	id        uint32
	gen       *bars.Generator
	lastPrice float64
	clock     time.Time
	day       int
}

// Engine is the strategy executor: a per-instrument state machine
// driven by ticks, completed bars and order callbacks, all delivered
// serialized per symbol. The shared maps are built in New and read-only
// afterwards.
type Engine struct {
	cfg        Config
	store      *Store
	day        *DayTracker
	indicators *indicator.Manager
	runtime    map[uint32]*symbolRuntime

	gw      gateway.Gateway
	risk    *risk.Engine
	metrics *obs.Metrics
	journal Journal
	master  *master.Table

	posMu     sync.Mutex
	positions *state.PositionReducer

	loc        *time.Location
	flushGrace time.Duration

	onIntent func(schema.OrderIntent, time.Time)
	onRisk   func(schema.RiskDecision, time.Time)
	onBar    func(schema.Bar, time.Time)
}

// New builds an engine for every symbol in the registry. Symbols
// missing from the stock master stay tracked but never become eligible.
func New(cfg Config, deps Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Registry == nil || deps.Gateway == nil {
		return nil, ErrMissingDeps
	}
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	grace := deps.BarFlushGrace
	if grace <= 0 {
		grace = 5 * time.Second
	}

	symbolIDs := make([]uint32, 0, deps.Registry.SymbolCount())
	for i := 0; i < deps.Registry.SymbolCount(); i++ {
		sym, _ := deps.Registry.SymbolAt(i)
		symbolIDs = append(symbolIDs, uint32(sym.ID))
	}

	e := &Engine{
		cfg:        cfg,
		store:      NewStore(deps.Registry),
		day:        NewDayTracker(cfg, symbolIDs),
		indicators: indicator.NewManager(loc),
		runtime:    make(map[uint32]*symbolRuntime, len(symbolIDs)),
		gw:         deps.Gateway,
		risk:       deps.Risk,
		metrics:    deps.Metrics,
		journal:    deps.Journal,
		positions:  deps.Positions,
		loc:        loc,
		flushGrace: grace,
		onIntent:   deps.OnIntent,
		onRisk:     deps.OnRisk,
		onBar:      deps.OnBar,
	}
	e.master = deps.Master
	e.indicators.Prime(symbolIDs)
	for _, id := range symbolIDs {
		rt := &symbolRuntime{id: id}
		rt.gen = bars.New(id, loc, func(bar schema.Bar) {
			e.onCompletedBar(rt, bar)
		})
		if deps.WindowMinutes > 1 && deps.OnWindowBar != nil {
			rt.gen.WithWindow(deps.WindowMinutes, deps.OnWindowBar)
		}
		e.runtime[id] = rt
	}
	return e, nil
}

// Store exposes the context arena for inspection and tests.
func (e *Engine) Store() *Store { return e.store }

// HandleEvent decodes a bus event and dispatches it to the handlers.
// It must be called from the owning symbol's shard goroutine.
func (e *Engine) HandleEvent(ev bus.Event) {
	e.metrics.ObserveEvent(ev.Header)
	ts := time.Unix(0, ev.Header.TsEvent).In(e.loc)
	if ev.Header.TsEvent == 0 {
		ts = time.Unix(0, ev.Header.TsRecv).In(e.loc)
	}
	switch ev.Header.Type {
	case schema.EventTick:
		tick, ok := codec.DecodeTick(ev.Payload)
		if !ok {
			logs.Errorf("tick decode failed, seq: %d", ev.Header.Seq)
			return
		}
		e.OnTick(tick, ts)
	case schema.EventBar:
		bar, ok := codec.DecodeBar(ev.Payload)
		if !ok {
			logs.Errorf("bar decode failed, seq: %d", ev.Header.Seq)
			return
		}
		e.OnExternalBar(bar, ts)
	case schema.EventOrderAck:
		ack, ok := codec.DecodeOrderAck(ev.Payload)
		if !ok {
			logs.Errorf("ack decode failed, seq: %d", ev.Header.Seq)
			return
		}
		e.OnAck(ack, ts)
	case schema.EventFill:
		fill, ok := codec.DecodeFill(ev.Payload)
		if !ok {
			logs.Errorf("fill decode failed, seq: %d", ev.Header.Seq)
			return
		}
		e.OnFill(fill, ts)
	case schema.EventTimer:
		timer, ok := codec.DecodeTimer(ev.Payload)
		if !ok {
			return
		}
		e.OnTimer(timer.SymbolID, ts)
	}
}

// OnTick drives one instrument forward from a trade print.
func (e *Engine) OnTick(tick schema.Tick, ts time.Time) {
	rt, ok := e.runtime[tick.SymbolID]
	if !ok {
		return
	}
	ctx, _ := e.store.Get(tick.SymbolID)

	e.rolloverCheck(rt, ctx, ts)
	rt.clock = ts
	rt.lastPrice = tick.Price

	if !e.day.Seen(tick.SymbolID) {
		rec, found := e.lookupMaster(ctx.Code)
		e.day.Classify(tick.SymbolID, tick.Price, rec, found)
		if dir := e.day.Gap(tick.SymbolID); dir != DirectionNone {
			logs.Infof("gap classified, symbol: %s, dir: %s, first: %0.1f", ctx.Code, dir, tick.Price)
		}
	}

	rt.gen.OnTick(tick, ts)

	e.checkEntryTrigger(ctx, tick.Price, ts)
	if cur, has := rt.gen.Current(); has {
		e.checkRiskGuard(ctx, cur, ts)
	}
	e.checkExitTimeout(ctx, rt.lastPrice, ts)
}

// OnExternalBar feeds a completed bar that arrived pre-aggregated,
// bypassing the tick generator. Used by replay of bar-only captures.
func (e *Engine) OnExternalBar(bar schema.Bar, ts time.Time) {
	rt, ok := e.runtime[bar.SymbolID]
	if !ok {
		return
	}
	ctx, _ := e.store.Get(bar.SymbolID)
	e.rolloverCheck(rt, ctx, ts)
	rt.clock = ts
	if bar.Close > 0 {
		rt.lastPrice = bar.Close
	}
	e.onCompletedBar(rt, bar)
}

// OnTimer advances an instrument's clocks without market data: stale
// bars are flushed and exit timeouts keep firing through quiet tape.
func (e *Engine) OnTimer(symbolID uint32, now time.Time) {
	rt, ok := e.runtime[symbolID]
	if !ok {
		return
	}
	ctx, _ := e.store.Get(symbolID)
	rt.gen.FlushStale(now, e.flushGrace)
	if now.After(rt.clock) {
		rt.clock = now
	}
	e.checkExitTimeout(ctx, rt.lastPrice, rt.clock)
}

// OnAck routes a broker acknowledgment to its context.
func (e *Engine) OnAck(ack schema.OrderAck, ts time.Time) {
	ctx, ok := e.store.Get(ack.SymbolID)
	if !ok {
		e.metrics.IncUnknownOrderEvent()
		return
	}
	e.handleAck(ctx, ack, e.eventClock(ack.SymbolID, ts))
}

// OnFill routes an execution to its context.
func (e *Engine) OnFill(fill schema.Fill, ts time.Time) {
	ctx, ok := e.store.Get(fill.SymbolID)
	if !ok {
		e.metrics.IncUnknownOrderEvent()
		return
	}
	e.handleFill(ctx, fill, e.eventClock(fill.SymbolID, ts))
}

// onCompletedBar is the per-bar strategy pass: indicators first, then
// the escalator, then the state-dependent action.
func (e *Engine) onCompletedBar(rt *symbolRuntime, bar schema.Bar) {
	vals := e.indicators.OnBar(bar)
	barEnd := time.Unix(0, bar.TsStart).In(e.loc).
		Add(time.Duration(bar.IntervalSeconds) * time.Second)
	now := rt.clock
	if barEnd.After(now) {
		now = barEnd
	}
	if e.onBar != nil {
		e.onBar(bar, now)
	}

	ctx, ok := e.store.Get(bar.SymbolID)
	if !ok {
		return
	}
	ctx.EntryCanceledThisBar = false

	e.checkExitTimeout(ctx, rt.lastPrice, now)

	switch ctx.State {
	case StateIdle:
		sig, fire := e.evaluateSignal(ctx, bar, vals, now)
		if !fire {
			return
		}
		e.metrics.IncSignal()
		if sig.deferred {
			e.armDeferred(ctx, sig.direction, sig.price)
			return
		}
		e.placeEntry(ctx, sig.direction, sig.price, now)
	case StateWaitingEntry:
		if now.Hour()*60+now.Minute() > e.cfg.LatestEntryTime.Minutes() {
			// too late to keep working the entry; partial fills are
			// closed out at market
			logs.Infof("entry pulled past latest entry, symbol: %s", ctx.Code)
			if e.cancelEntry(ctx, now) && ctx.State == StateHolding {
				e.marketExit(ctx, now)
			}
			return
		}
		e.requoteEntry(ctx, vals, now)
	case StateHolding:
		// exit was rejected or could not be quoted; try again
		if target, ok := e.exitTarget(ctx, vals); ok {
			e.placeExit(ctx, target, now, ctx.ExitStartTime.IsZero())
		}
	case StateWaitingExit:
		e.requoteExit(ctx, vals, now)
	}
}

// rolloverCheck resets one instrument when its events cross into a new
// trading day. The generator and indicators reset themselves on their
// own date checks.
func (e *Engine) rolloverCheck(rt *symbolRuntime, ctx *Context, ts time.Time) {
	day := ts.Year()*10000 + int(ts.Month())*100 + ts.Day()
	if rt.day != 0 && day != rt.day {
		logs.Infof("new trading day, symbol: %s", ctx.Code)
		e.store.releaseOrder(ctx.EntryOrderID)
		e.store.releaseOrder(ctx.ExitOrderID)
		ctx.reset()
		e.day.ResetSymbol(rt.id)
		// the unfinished minute belongs to the closed session
		rt.gen.Discard()
		rt.lastPrice = 0
	}
	rt.day = day
}

// ResetForNewDay returns the whole engine to its start-of-day state.
// The caller must quiesce the shards first.
func (e *Engine) ResetForNewDay() {
	e.store.ResetForNewDay()
	e.day.Reset()
	e.indicators.ResetDay()
	for _, rt := range e.runtime {
		rt.gen.Flush()
		rt.lastPrice = 0
		rt.day = 0
	}
	e.posMu.Lock()
	if e.positions != nil {
		e.positions.Reset()
	}
	e.posMu.Unlock()
}

func (e *Engine) eventClock(symbolID uint32, ts time.Time) time.Time {
	if rt, ok := e.runtime[symbolID]; ok && rt.clock.After(ts) {
		return rt.clock
	}
	return ts
}

func (e *Engine) lookupMaster(code string) (master.Record, bool) {
	if e.master == nil {
		return master.Record{}, false
	}
	rec, err := e.master.Lookup(code)
	return rec, err == nil
}

func (e *Engine) applyPosition(fill schema.Fill) {
	if e.positions == nil {
		return
	}
	e.posMu.Lock()
	e.positions.ApplyFill(fill)
	e.posMu.Unlock()
}

func (e *Engine) riskView(symbolID uint32) risk.StateView {
	view := risk.StateView{}
	if e.positions != nil {
		e.posMu.Lock()
		view.Position = e.positions.Position(symbolID)
		e.posMu.Unlock()
	}
	if rt, ok := e.runtime[symbolID]; ok {
		view.ReferencePrice = rt.lastPrice
	}
	return view
}
