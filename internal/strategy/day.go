package strategy

import (
	"main/internal/master"
)

// dayInfo is the per-instrument day state fixed at the first tick.
type dayInfo struct {
	firstPrice float64
	gap        Direction
	eligible   bool
	sized      bool
	position   float64
	record     master.Record
	hasRecord  bool
}

// DayTracker classifies each instrument once per day from its first
// tick: market-cap eligibility, opening gap direction against the
// previous close, and the day's position size. The classification never
// changes until the next daily reset.
type DayTracker struct {
	cfg  Config
	info map[uint32]*dayInfo
}

// NewDayTracker creates a tracker for the given symbol ids.
func NewDayTracker(cfg Config, symbolIDs []uint32) *DayTracker {
	t := &DayTracker{cfg: cfg, info: make(map[uint32]*dayInfo, len(symbolIDs))}
	for _, id := range symbolIDs {
		t.info[id] = &dayInfo{}
	}
	return t
}

// Classify records the first tick of the day for an instrument and
// fixes its gap direction. Later calls for the same day are no-ops.
// rec carries the previous close, market cap and lot size; ok=false
// means the instrument is absent from the stock master and stays
// ineligible.
func (t *DayTracker) Classify(symbolID uint32, price float64, rec master.Record, ok bool) {
	info, tracked := t.info[symbolID]
	if !tracked || info.firstPrice > 0 {
		return
	}
	info.firstPrice = price
	if !ok || price <= 0 || rec.PreviousClose <= 0 {
		return
	}
	info.record = rec
	info.hasRecord = true
	if rec.MarketCap() < t.cfg.MinMarketCap {
		return
	}
	ratio := price/rec.PreviousClose - 1
	switch {
	case ratio >= t.cfg.GapThreshold:
		info.gap = DirectionShort
	case ratio <= -t.cfg.GapThreshold:
		info.gap = DirectionLong
	default:
		return
	}
	info.eligible = true
	info.position = rec.PositionSize(t.cfg.CapitalPerInstrument)
	info.sized = info.position > 0
	if !info.sized {
		info.eligible = false
	}
}

// Gap returns the fixed gap direction, or DirectionNone when the
// instrument did not gap or is ineligible.
func (t *DayTracker) Gap(symbolID uint32) Direction {
	if info, ok := t.info[symbolID]; ok && info.eligible {
		return info.gap
	}
	return DirectionNone
}

// Eligible reports whether the instrument trades today.
func (t *DayTracker) Eligible(symbolID uint32) bool {
	info, ok := t.info[symbolID]
	return ok && info.eligible
}

// Ban removes an instrument from the eligible set for the day.
func (t *DayTracker) Ban(symbolID uint32) {
	if info, ok := t.info[symbolID]; ok {
		info.eligible = false
	}
}

// PositionSize returns the day's share quantity for the instrument.
func (t *DayTracker) PositionSize(symbolID uint32) float64 {
	if info, ok := t.info[symbolID]; ok {
		return info.position
	}
	return 0
}

// Record returns the instrument's stock master record.
func (t *DayTracker) Record(symbolID uint32) (master.Record, bool) {
	if info, ok := t.info[symbolID]; ok && info.hasRecord {
		return info.record, true
	}
	return master.Record{}, false
}

// Seen reports whether the instrument has printed its first tick.
func (t *DayTracker) Seen(symbolID uint32) bool {
	info, ok := t.info[symbolID]
	return ok && info.firstPrice > 0
}

// Reset clears all day state for a new session.
func (t *DayTracker) Reset() {
	for _, info := range t.info {
		*info = dayInfo{}
	}
}

// ResetSymbol clears one instrument's day state, used when its own
// event stream crosses into a new date.
func (t *DayTracker) ResetSymbol(symbolID uint32) {
	if info, ok := t.info[symbolID]; ok {
		*info = dayInfo{}
	}
}
