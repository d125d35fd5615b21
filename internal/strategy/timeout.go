package strategy

import (
	"time"

	"github.com/yanun0323/logs"
)

// timeoutAction is the escalator's decision for one check.
type timeoutAction uint8

const (
	timeoutNone timeoutAction = iota
	// timeoutEscalate cancels the passive exit and re-quotes at the
	// latest trade price.
	timeoutEscalate
	// timeoutMarket abandons the escalated quote for a market order.
	timeoutMarket
)

// timeoutDecision inspects the exit clocks without side effects. The
// same inputs always produce the same decision, so a re-check with no
// time elapsed is a no-op after the action was applied.
func (e *Engine) timeoutDecision(ctx *Context, now time.Time) timeoutAction {
	switch ctx.State {
	case StateWaitingExit:
		if ctx.ExitIsMarket || ctx.ExitOrderID == 0 || ctx.ExitStartTime.IsZero() {
			return timeoutNone
		}
		wait := e.cfg.MaxExitWaitShort.Std()
		if ctx.Direction == DirectionLong {
			wait = e.cfg.MaxExitWaitLong.Std()
		}
		if now.Sub(ctx.ExitStartTime) >= wait || e.cfg.PreCloseCutoff.Reached(now) {
			return timeoutEscalate
		}
	case StateWaitingTimeoutExit:
		if ctx.TimeoutExitStartTime.IsZero() {
			return timeoutNone
		}
		if now.Sub(ctx.TimeoutExitStartTime) >= e.cfg.TimeoutExitMaxPeriod.Std() ||
			e.cfg.ClosingWindowStart.Reached(now) {
			return timeoutMarket
		}
	}
	return timeoutNone
}

// checkExitTimeout runs the escalator for one instrument. lastPrice is
// the latest trade print, used to re-quote at a fillable level.
func (e *Engine) checkExitTimeout(ctx *Context, lastPrice float64, now time.Time) {
	switch e.timeoutDecision(ctx, now) {
	case timeoutEscalate:
		if lastPrice <= 0 {
			return
		}
		if !e.cancelExitOrder(ctx) {
			return
		}
		price := lastPrice
		if rec, ok := e.day.Record(ctx.SymbolID); ok {
			if ctx.Direction == DirectionShort {
				price = rec.RoundUp(lastPrice)
			} else {
				price = rec.RoundDown(lastPrice)
			}
		}
		if !e.placeExit(ctx, price, now, false) {
			return
		}
		ctx.State = StateWaitingTimeoutExit
		ctx.TimeoutExitStartTime = now
		e.metrics.IncTimeoutEscalation()
		logs.Warnf("exit timed out, re-quoted at last price, symbol: %s, price: %0.1f", ctx.Code, price)
	case timeoutMarket:
		if !e.marketExit(ctx, now) {
			return
		}
		e.metrics.IncTimeoutEscalation()
		logs.Warnf("timeout exit stalled, market order sent, symbol: %s", ctx.Code)
	}
}
