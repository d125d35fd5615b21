package strategy

import (
	"math"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/schema"
)

// checkRiskGuard watches the in-progress bar on every tick and pulls
// quotes when volume surges. An entry is canceled at most once per bar;
// an exit facing a violent adverse move is abandoned for a market
// order and the instrument is banned for the rest of the day.
func (e *Engine) checkRiskGuard(ctx *Context, curBar schema.Bar, now time.Time) {
	if ctx.State != StateWaitingEntry && ctx.State != StateWaitingExit {
		return
	}
	vals, ok := e.indicators.Snapshot(ctx.SymbolID)
	if !ok || vals.VolumeMA <= 0 {
		return
	}
	ratio := curBar.Volume / vals.VolumeMA

	if ctx.State == StateWaitingEntry {
		if ctx.EntryCanceledThisBar {
			return
		}
		limit := e.cfg.EntryVolumeRatioGapUp
		if ctx.Direction == DirectionLong {
			limit = e.cfg.EntryVolumeRatioGapDown
		}
		if limit <= 0 || ratio <= limit {
			return
		}
		if e.cancelEntry(ctx, now) {
			ctx.EntryCanceledThisBar = true
			e.metrics.IncGuardEntryCancel()
			logs.Warnf("entry pulled, volume surge, symbol: %s, ratio: %0.1f", ctx.Code, ratio)
		}
		return
	}

	// exit side
	if ctx.ExitIsMarket {
		return
	}
	if e.cfg.ExitVolumeRatio <= 0 || ratio < e.cfg.ExitVolumeRatio {
		return
	}
	if vals.ATR <= 0 || math.Abs(curBar.Close-curBar.Open) < vals.ATR*e.cfg.ForceExitATRFactor {
		return
	}
	adverse := (ctx.Direction == DirectionShort && curBar.Close > curBar.Open) ||
		(ctx.Direction == DirectionLong && curBar.Close < curBar.Open)
	if !adverse {
		return
	}
	if e.marketExit(ctx, now) {
		ctx.TradingBanned = true
		e.day.Ban(ctx.SymbolID)
		e.metrics.IncGuardForceExit()
		logs.Warnf("forced exit, adverse surge, symbol: %s, ratio: %0.1f, move: %0.1f",
			ctx.Code, ratio, curBar.Close-curBar.Open)
	}
}
