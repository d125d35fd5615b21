// Package mdg generates synthetic intraday tick data: an opening gap
// against the previous close followed by a mean-reverting random walk.
// The output feeds capture files that the trader replays end to end.
package mdg

import (
	"fmt"
	"math"
	"math/rand"

	"main/internal/schema"
)

// Config shapes one instrument's synthetic day.
type Config struct {
	// PrevClose anchors the gap; the first print opens at
	// PrevClose*(1+GapRatio).
	PrevClose float64
	// GapRatio is the signed opening gap, e.g. 0.03 for +3%.
	GapRatio float64
	// TickSize quantizes every price.
	TickSize float64
	// Volatility is the per-step standard deviation as a fraction of
	// the current price.
	Volatility float64
	// MeanReversion pulls each step back toward the open by this
	// fraction of the displacement.
	MeanReversion float64
	// BaseQty is the average trade size in shares.
	BaseQty float64
	Seed    int64
}

func (c Config) validate() error {
	if c.PrevClose <= 0 {
		return fmt.Errorf("prev close must be > 0")
	}
	if c.TickSize <= 0 {
		return fmt.Errorf("tick size must be > 0")
	}
	if c.Volatility < 0 {
		return fmt.Errorf("volatility must be >= 0")
	}
	if c.BaseQty <= 0 {
		return fmt.Errorf("base qty must be > 0")
	}
	return nil
}

// Generator walks one instrument's price path and accumulates the
// day-cumulative volume and turnover carried on every tick.
type Generator struct {
	cfg      Config
	symbolID uint32
	rng      *rand.Rand

	price    float64
	anchor   float64
	volume   float64
	turnover float64
	opened   bool
}

// NewGenerator validates the config and seeds the walk.
func NewGenerator(symbolID uint32, cfg Config) (*Generator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MeanReversion < 0 {
		cfg.MeanReversion = 0
	}
	open := quantize(cfg.PrevClose*(1+cfg.GapRatio), cfg.TickSize)
	return &Generator{
		cfg:      cfg,
		symbolID: symbolID,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		price:    open,
		anchor:   open,
	}, nil
}

// Next produces the next trade print. The first call returns the
// opening print at the gapped price.
func (g *Generator) Next() schema.Tick {
	if g.opened {
		step := g.rng.NormFloat64() * g.cfg.Volatility * g.price
		step -= g.cfg.MeanReversion * (g.price - g.anchor)
		g.price = quantize(g.price+step, g.cfg.TickSize)
		if g.price < g.cfg.TickSize {
			g.price = g.cfg.TickSize
		}
	}
	g.opened = true

	qty := math.Ceil(g.cfg.BaseQty * (0.5 + g.rng.Float64()))
	g.volume += qty
	g.turnover += qty * g.price

	return schema.Tick{
		SymbolID: g.symbolID,
		Price:    g.price,
		Volume:   g.volume,
		Turnover: g.turnover,
	}
}

// Price reports the current walk price.
func (g *Generator) Price() float64 { return g.price }

func quantize(price, tick float64) float64 {
	return math.Round(price/tick) * tick
}
