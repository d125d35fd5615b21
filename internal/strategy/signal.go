package strategy

import (
	"math"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/indicator"
	"main/internal/schema"
)

// entrySignal is a resolved decision to work an entry.
type entrySignal struct {
	direction Direction
	price     float64
	deferred  bool
}

// evaluateSignal decides on each completed bar whether an idle,
// eligible instrument should start working an entry. It returns false
// when any precondition fails; the decision is pure and leaves the
// context untouched.
func (e *Engine) evaluateSignal(ctx *Context, bar schema.Bar, vals indicator.Values, now time.Time) (entrySignal, bool) {
	if ctx.State != StateIdle || ctx.TradingBanned || ctx.DeferredArmed {
		return entrySignal{}, false
	}
	dir := e.day.Gap(ctx.SymbolID)
	if dir == DirectionNone {
		return entrySignal{}, false
	}
	if ctx.TradeCount >= e.cfg.MaxDailyTrades {
		return entrySignal{}, false
	}
	if now.Hour()*60+now.Minute() > e.cfg.LatestEntryTime.Minutes() {
		return entrySignal{}, false
	}
	if !vals.Ready() || vals.VWAP <= 0 || vals.ATR <= 0 {
		return entrySignal{}, false
	}
	rec, ok := e.day.Record(ctx.SymbolID)
	if !ok {
		return entrySignal{}, false
	}

	var target float64
	switch dir {
	case DirectionShort:
		if vals.BelowVWAPCount < e.cfg.FailureThresholdGapUp {
			return entrySignal{}, false
		}
		target = rec.RoundUp(vals.VWAP + vals.ATR*e.cfg.EntryFactor)
	case DirectionLong:
		if vals.AboveVWAPCount < e.cfg.FailureThresholdGapDown {
			return entrySignal{}, false
		}
		target = rec.RoundDown(vals.VWAP - vals.ATR*e.cfg.EntryFactor)
	}
	if target <= 0 {
		return entrySignal{}, false
	}

	// After a timeout round trip the quote must be reachable: skip
	// signals whose target sits outside the bar's range.
	if ctx.TimeoutTradeCount > 0 && (target < bar.Low || target > bar.High) {
		logs.Debugf("signal skipped, target %0.1f outside bar [%0.1f, %0.1f], symbol: %s",
			target, bar.Low, bar.High, ctx.Code)
		return entrySignal{}, false
	}

	sig := entrySignal{direction: dir, price: target}
	if m := e.cfg.DeferredEntryATRMultiplier; m > 0 &&
		math.Abs(bar.Close-target) > m*vals.ATR {
		sig.deferred = true
	}
	return sig, true
}

// entryTarget recomputes the raw entry quote for a working entry, used
// to re-quote while waiting.
func (e *Engine) entryTarget(ctx *Context, vals indicator.Values) (float64, bool) {
	if vals.VWAP <= 0 || vals.ATR <= 0 {
		return 0, false
	}
	rec, ok := e.day.Record(ctx.SymbolID)
	if !ok {
		return 0, false
	}
	switch ctx.Direction {
	case DirectionShort:
		return rec.RoundUp(vals.VWAP + vals.ATR*e.cfg.EntryFactor), true
	case DirectionLong:
		return rec.RoundDown(vals.VWAP - vals.ATR*e.cfg.EntryFactor), true
	default:
		return 0, false
	}
}

// exitTarget computes the exit quote on the opposite side of VWAP.
func (e *Engine) exitTarget(ctx *Context, vals indicator.Values) (float64, bool) {
	if vals.VWAP <= 0 || vals.ATR <= 0 {
		return 0, false
	}
	rec, ok := e.day.Record(ctx.SymbolID)
	if !ok {
		return 0, false
	}
	switch ctx.Direction {
	case DirectionShort:
		// short entered above VWAP, cover below it
		return rec.RoundUp(vals.VWAP - vals.ATR*e.cfg.ExitFactor), true
	case DirectionLong:
		return rec.RoundDown(vals.VWAP + vals.ATR*e.cfg.ExitFactor), true
	default:
		return 0, false
	}
}

// triggerHit reports whether a tick reaches an armed deferred entry.
func triggerHit(dir Direction, price, trigger float64) bool {
	switch dir {
	case DirectionShort:
		return price >= trigger
	case DirectionLong:
		return price <= trigger
	default:
		return false
	}
}
