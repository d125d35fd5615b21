package master

import (
	"math"

	"main/internal/errors"
)

// Record holds the per-instrument reference data published in the daily
// stock master file. PreviousClose is basePrice10 divided by ten; the
// market cap is shares outstanding times previous close.
type Record struct {
	Code              string
	PreviousClose     float64
	LotSize           float64
	SharesOutstanding float64
	TickType          int
}

// MarketCap returns the reference market capitalization in yen.
func (r Record) MarketCap() float64 {
	return r.SharesOutstanding * r.PreviousClose
}

// Table is the loaded stock master, keyed by exchange code.
type Table struct {
	records map[string]Record
}

// ErrUnknownSymbol is returned when a code is absent from the master.
var ErrUnknownSymbol = errors.New("symbol not in stock master")

// Lookup returns the record for a code.
func (t *Table) Lookup(code string) (Record, error) {
	r, ok := t.records[code]
	if !ok {
		return Record{}, errors.Wrap(ErrUnknownSymbol, code)
	}
	return r, nil
}

// Len returns the number of instruments in the master.
func (t *Table) Len() int { return len(t.records) }

// PositionSize converts a per-instrument capital budget into a share
// quantity rounded to the lot, never below one lot.
func (r Record) PositionSize(capital float64) float64 {
	if r.PreviousClose <= 0 || r.LotSize <= 0 {
		return 0
	}
	lots := math.Round(capital / r.PreviousClose / r.LotSize)
	if lots < 1 {
		lots = 1
	}
	return lots * r.LotSize
}

// TickSize returns the minimum price increment at the given price level
// for the record's tick type. Type 2 is the fine-grained table used by
// TOPIX100 constituents; everything else uses the regular table.
func (r Record) TickSize(price float64) float64 {
	if r.TickType == 2 {
		return topix100Tick(price)
	}
	return regularTick(price)
}

func regularTick(price float64) float64 {
	switch {
	case price <= 3_000:
		return 1
	case price <= 5_000:
		return 5
	case price <= 30_000:
		return 10
	case price <= 50_000:
		return 50
	case price <= 300_000:
		return 100
	case price <= 500_000:
		return 500
	case price <= 3_000_000:
		return 1_000
	case price <= 5_000_000:
		return 5_000
	case price <= 30_000_000:
		return 10_000
	case price <= 50_000_000:
		return 50_000
	default:
		return 100_000
	}
}

func topix100Tick(price float64) float64 {
	switch {
	case price <= 1_000:
		return 0.1
	case price <= 3_000:
		return 0.5
	case price <= 10_000:
		return 1
	case price <= 30_000:
		return 5
	case price <= 100_000:
		return 10
	case price <= 300_000:
		return 50
	case price <= 1_000_000:
		return 100
	case price <= 3_000_000:
		return 500
	case price <= 10_000_000:
		return 1_000
	case price <= 30_000_000:
		return 5_000
	default:
		return 10_000
	}
}

// RoundDown snaps price down to a valid increment.
func (r Record) RoundDown(price float64) float64 {
	tick := r.TickSize(price)
	return math.Floor(price/tick+1e-9) * tick
}

// RoundUp snaps price up to a valid increment.
func (r Record) RoundUp(price float64) float64 {
	tick := r.TickSize(price)
	return math.Ceil(price/tick-1e-9) * tick
}
