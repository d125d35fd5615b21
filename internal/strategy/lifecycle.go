package strategy

import (
	"time"

	"github.com/yanun0323/logs"

	"main/internal/indicator"
	"main/internal/schema"
)

// placeEntry quotes a limit entry for a fired signal. A pre-trade risk
// denial or gateway error leaves the context idle; nothing is mutated
// until the intent is accepted for sending.
func (e *Engine) placeEntry(ctx *Context, dir Direction, price float64, now time.Time) bool {
	qty := e.day.PositionSize(ctx.SymbolID)
	if qty <= 0 {
		return false
	}
	orderID, ok := e.sendOrder(ctx, dir.EntrySide(), schema.OrderTypeLimit, price, qty, now, true)
	if !ok {
		return false
	}
	ctx.State = StateWaitingEntry
	ctx.Direction = dir
	ctx.EntryOrderID = orderID
	ctx.OrderQty = qty
	ctx.FilledQty = 0
	ctx.FillNotional = 0
	ctx.EntryQuotePrice = price
	logs.Infof("entry quoted, symbol: %s, side: %s, price: %0.1f, qty: %0.0f",
		ctx.Code, dir.EntrySide(), price, qty)
	return true
}

// armDeferred stores the trigger levels instead of quoting when the
// signal fired far from the market.
func (e *Engine) armDeferred(ctx *Context, dir Direction, price float64) {
	ctx.Direction = dir
	ctx.DeferredArmed = true
	ctx.TriggerPrice = price
	ctx.TriggerOrderPrice = price
	logs.Infof("entry deferred, symbol: %s, trigger: %0.1f", ctx.Code, price)
}

// checkEntryTrigger places the deferred entry once a tick touches the
// trigger level.
func (e *Engine) checkEntryTrigger(ctx *Context, price float64, now time.Time) {
	if ctx.State != StateIdle || !ctx.DeferredArmed || ctx.TradingBanned {
		return
	}
	if now.Hour()*60+now.Minute() > e.cfg.LatestEntryTime.Minutes() {
		ctx.DeferredArmed = false
		return
	}
	if !triggerHit(ctx.Direction, price, ctx.TriggerPrice) {
		return
	}
	dir := ctx.Direction
	target := ctx.TriggerOrderPrice
	ctx.DeferredArmed = false
	ctx.TriggerPrice = 0
	ctx.TriggerOrderPrice = 0
	e.placeEntry(ctx, dir, target, now)
}

// requoteEntry moves a working entry to the recomputed target. The
// re-quote is cancel-then-place; an unchanged target is left alone, and
// a cancel that loses to a fill leaves the context untouched.
func (e *Engine) requoteEntry(ctx *Context, vals indicator.Values, now time.Time) {
	if ctx.State != StateWaitingEntry {
		return
	}
	target, ok := e.entryTarget(ctx, vals)
	if !ok || target == ctx.EntryQuotePrice {
		return
	}
	dir := ctx.Direction
	if !e.cancelEntry(ctx, now) {
		return
	}
	if ctx.State == StateIdle {
		e.placeEntry(ctx, dir, target, now)
	}
}

// cancelEntry cancels the working entry and resolves the context from
// whatever was already filled: untouched entries go back to idle,
// partially filled ones hold the filled shares and exit through the
// normal path. Returns false when the cancel lost the race.
func (e *Engine) cancelEntry(ctx *Context, now time.Time) bool {
	if ctx.EntryOrderID == 0 {
		return false
	}
	if err := e.gw.CancelOrder(ctx.EntryOrderID); err != nil {
		logs.Warnf("entry cancel lost, symbol: %s, order: %d, err: %v",
			ctx.Code, ctx.EntryOrderID, err)
		return false
	}
	e.metrics.IncOrderCanceled()
	e.store.releaseOrder(ctx.EntryOrderID)
	filled := ctx.FilledQty
	avg := ctx.avgFillPrice()
	dir := ctx.Direction
	ctx.clearWorkingOrder()
	if filled > 0 {
		ctx.State = StateHolding
		ctx.Direction = dir
		ctx.PositionSize = filled
		ctx.EntryFillPrice = avg
		ctx.EntryTime = now
		logs.Warnf("entry canceled with partial fill, symbol: %s, held: %0.0f", ctx.Code, filled)
	} else {
		ctx.State = StateIdle
		ctx.Direction = DirectionNone
	}
	return true
}

// placeExit quotes the closing order for the held shares. stampStart
// marks the first exit after an entry; re-quotes keep the original
// start time so the timeout clock keeps running.
func (e *Engine) placeExit(ctx *Context, price float64, now time.Time, stampStart bool) bool {
	if ctx.PositionSize <= 0 {
		return false
	}
	orderID, ok := e.sendOrder(ctx, ctx.Direction.ExitSide(), schema.OrderTypeLimit, price, ctx.PositionSize, now, false)
	if !ok {
		return false
	}
	ctx.State = StateWaitingExit
	ctx.ExitOrderID = orderID
	ctx.OrderQty = ctx.PositionSize
	ctx.FilledQty = 0
	ctx.FillNotional = 0
	ctx.ExitQuotePrice = price
	ctx.ExitIsMarket = false
	if stampStart {
		ctx.ExitStartTime = now
		ctx.TimeoutExitStartTime = time.Time{}
	}
	logs.Infof("exit quoted, symbol: %s, side: %s, price: %0.1f, qty: %0.0f",
		ctx.Code, ctx.Direction.ExitSide(), price, ctx.PositionSize)
	return true
}

// requoteExit moves a working exit to the recomputed target on a new
// bar. Timeout exits are never re-quoted here; the escalator owns them.
func (e *Engine) requoteExit(ctx *Context, vals indicator.Values, now time.Time) {
	if ctx.State != StateWaitingExit || ctx.ExitIsMarket {
		return
	}
	target, ok := e.exitTarget(ctx, vals)
	if !ok || target == ctx.ExitQuotePrice {
		return
	}
	if !e.cancelExitOrder(ctx) {
		return
	}
	e.placeExit(ctx, target, now, false)
}

// cancelExitOrder cancels the working exit, leaving the context in
// Holding with the position intact. Returns false when the cancel lost
// the race with a fill.
func (e *Engine) cancelExitOrder(ctx *Context) bool {
	if ctx.ExitOrderID == 0 {
		return true
	}
	if err := e.gw.CancelOrder(ctx.ExitOrderID); err != nil {
		logs.Warnf("exit cancel lost, symbol: %s, order: %d, err: %v",
			ctx.Code, ctx.ExitOrderID, err)
		return false
	}
	e.metrics.IncOrderCanceled()
	e.store.releaseOrder(ctx.ExitOrderID)
	// filled shares of the canceled exit shrink the open position
	ctx.PositionSize -= ctx.FilledQty
	ctx.clearWorkingOrder()
	ctx.State = StateHolding
	return true
}

// marketExit replaces whatever exit is working with a market order.
func (e *Engine) marketExit(ctx *Context, now time.Time) bool {
	if !e.cancelExitOrder(ctx) {
		return false
	}
	if ctx.PositionSize <= 0 {
		// the canceled exit had already filled everything
		e.finishRoundTrip(ctx, now)
		return true
	}
	orderID, ok := e.sendOrder(ctx, ctx.Direction.ExitSide(), schema.OrderTypeMarket, 0, ctx.PositionSize, now, false)
	if !ok {
		return false
	}
	ctx.State = StateWaitingExit
	ctx.ExitOrderID = orderID
	ctx.OrderQty = ctx.PositionSize
	ctx.FilledQty = 0
	ctx.FillNotional = 0
	ctx.ExitQuotePrice = 0
	ctx.ExitIsMarket = true
	logs.Infof("market exit sent, symbol: %s, qty: %0.0f", ctx.Code, ctx.PositionSize)
	return true
}

// sendOrder builds and submits one intent, running entries through the
// pre-trade risk engine. It returns the allocated order id.
func (e *Engine) sendOrder(ctx *Context, side schema.OrderSide, typ schema.OrderType,
	price, qty float64, now time.Time, isEntry bool) (uint64, bool) {
	intent := schema.OrderIntent{
		OrderID:  e.gw.NextOrderID(),
		SymbolID: ctx.SymbolID,
		Side:     side,
		Type:     typ,
		Price:    price,
		Qty:      qty,
	}
	if isEntry && e.risk != nil {
		decision := e.risk.Evaluate(intent, e.riskView(ctx.SymbolID))
		if e.onRisk != nil {
			e.onRisk(decision, now)
		}
		if decision.Action == schema.RiskActionDeny {
			e.metrics.IncRiskReason(decision.Reason)
			logs.Warnf("entry denied by risk, symbol: %s, reason: %d", ctx.Code, decision.Reason)
			return 0, false
		}
	}
	if err := e.gw.SendOrder(intent); err != nil {
		logs.Errorf("send order failed, symbol: %s, err: %v", ctx.Code, err)
		return 0, false
	}
	e.store.bindOrder(intent.OrderID, ctx.SymbolID)
	e.metrics.IncOrderPlaced()
	if e.onIntent != nil {
		e.onIntent(intent, now)
	}
	return intent.OrderID, true
}

// handleAck applies a broker acknowledgment to the owning context.
// Acks for ids the context no longer works are dropped.
func (e *Engine) handleAck(ctx *Context, ack schema.OrderAck, now time.Time) {
	isEntry := ack.OrderID != 0 && ack.OrderID == ctx.EntryOrderID
	isExit := ack.OrderID != 0 && ack.OrderID == ctx.ExitOrderID
	if !isEntry && !isExit {
		if ack.Status == schema.OrderAckStatusRejected || ack.Status == schema.OrderAckStatusCanceled {
			e.metrics.IncUnknownOrderEvent()
			logs.Debugf("ack dropped, stale order, symbol: %s, order: %d", ctx.Code, ack.OrderID)
		}
		return
	}

	switch ack.Status {
	case schema.OrderAckStatusRejected:
		e.metrics.IncOrderReject()
		e.store.releaseOrder(ack.OrderID)
		if isEntry {
			ctx.clearWorkingOrder()
			ctx.State = StateIdle
			ctx.Direction = DirectionNone
			logs.Warnf("entry rejected, symbol: %s, reason: %d", ctx.Code, ack.Reason)
		} else {
			// keep holding; a fresh exit goes out on the next bar
			ctx.PositionSize -= ctx.FilledQty
			ctx.clearWorkingOrder()
			ctx.State = StateHolding
			logs.Warnf("exit rejected, symbol: %s, reason: %d", ctx.Code, ack.Reason)
		}
	case schema.OrderAckStatusCanceled, schema.OrderAckStatusExpired:
		// unsolicited cancel from the broker side
		e.store.releaseOrder(ack.OrderID)
		if isEntry {
			filled := ctx.FilledQty
			avg := ctx.avgFillPrice()
			dir := ctx.Direction
			ctx.clearWorkingOrder()
			if filled > 0 {
				ctx.State = StateHolding
				ctx.Direction = dir
				ctx.PositionSize = filled
				ctx.EntryFillPrice = avg
				ctx.EntryTime = now
			} else {
				ctx.State = StateIdle
				ctx.Direction = DirectionNone
			}
		} else {
			ctx.PositionSize -= ctx.FilledQty
			ctx.clearWorkingOrder()
			ctx.State = StateHolding
		}
		logs.Warnf("order canceled by broker, symbol: %s, order: %d", ctx.Code, ack.OrderID)
	}
}

// handleFill applies an execution to the owning context, transitioning
// on full fills. Fills for stale ids are dropped and counted.
func (e *Engine) handleFill(ctx *Context, fill schema.Fill, now time.Time) {
	e.applyPosition(fill)

	switch {
	case fill.OrderID == ctx.EntryOrderID && ctx.State == StateWaitingEntry:
		ctx.FilledQty += fill.Qty
		ctx.FillNotional += fill.Price * fill.Qty
		if ctx.FilledQty+fillEpsilon < ctx.OrderQty {
			return
		}
		e.completeEntry(ctx, now)
	case fill.OrderID == ctx.ExitOrderID && (ctx.State == StateWaitingExit || ctx.State == StateWaitingTimeoutExit):
		ctx.FilledQty += fill.Qty
		ctx.FillNotional += fill.Price * fill.Qty
		if ctx.FilledQty+fillEpsilon < ctx.OrderQty {
			return
		}
		e.finishRoundTrip(ctx, now)
	default:
		e.metrics.IncUnknownOrderEvent()
		logs.Warnf("fill dropped, stale order, symbol: %s, order: %d, qty: %0.0f",
			ctx.Code, fill.OrderID, fill.Qty)
	}
}

const fillEpsilon = 1e-9

// completeEntry records the filled entry and quotes the exit
// immediately; holding is momentary.
func (e *Engine) completeEntry(ctx *Context, now time.Time) {
	e.store.releaseOrder(ctx.EntryOrderID)
	ctx.PositionSize = ctx.FilledQty
	ctx.EntryFillPrice = ctx.avgFillPrice()
	ctx.EntryTime = now
	ctx.clearWorkingOrder()
	ctx.State = StateHolding
	logs.Infof("entry filled, symbol: %s, price: %0.1f, qty: %0.0f",
		ctx.Code, ctx.EntryFillPrice, ctx.PositionSize)

	if vals, ok := e.indicators.Snapshot(ctx.SymbolID); ok {
		if target, ok := e.exitTarget(ctx, vals); ok {
			e.placeExit(ctx, target, now, true)
			return
		}
	}
	// no usable indicator snapshot; the next bar quotes the exit
	ctx.ExitStartTime = now
}

// finishRoundTrip closes the books on a fully exited position.
func (e *Engine) finishRoundTrip(ctx *Context, now time.Time) {
	e.store.releaseOrder(ctx.ExitOrderID)
	exitPrice := ctx.avgFillPrice()
	viaTimeout := ctx.ExitIsMarket
	rt := RoundTrip{
		Code:       ctx.Code,
		Direction:  ctx.Direction,
		Qty:        ctx.PositionSize,
		EntryPrice: ctx.EntryFillPrice,
		ExitPrice:  exitPrice,
		EntryTime:  ctx.EntryTime,
		ExitTime:   now,
		ViaTimeout: viaTimeout,
	}
	ctx.clearWorkingOrder()
	ctx.PositionSize = 0
	ctx.TradeCount++
	if viaTimeout {
		ctx.TimeoutTradeCount++
	}
	ctx.State = StateIdle
	ctx.Direction = DirectionNone
	ctx.EntryFillPrice = 0
	ctx.ExitStartTime = time.Time{}
	ctx.TimeoutExitStartTime = time.Time{}
	e.metrics.IncRoundTrip()
	logs.Infof("round trip closed, symbol: %s, dir: %s, entry: %0.1f, exit: %0.1f, trades: %d",
		ctx.Code, rt.Direction, rt.EntryPrice, rt.ExitPrice, ctx.TradeCount)
	if e.journal != nil {
		e.journal.RecordRoundTrip(rt)
	}
}

// avgFillPrice returns the volume weighted fill price of the working
// order.
func (c *Context) avgFillPrice() float64 {
	if c.FilledQty <= 0 {
		return 0
	}
	return c.FillNotional / c.FilledQty
}
