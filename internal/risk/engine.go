package risk

import (
	"math"
	"sync/atomic"

	"main/internal/schema"
)

// Config defines pre-trade order limits, applied before any intent
// reaches the gateway. Zero values disable the corresponding check.
type Config struct {
	KillSwitch           bool    `json:"killSwitch"`
	MaxOrderQty          float64 `json:"maxOrderQty"`
	MaxOrderNotional     float64 `json:"maxOrderNotional"`
	MaxPosition          float64 `json:"maxPosition"`
	MaxPriceDeviationBps float64 `json:"maxPriceDeviationBps"`
}

// StateView provides the evaluation context for one intent.
type StateView struct {
	// Position is the signed share position for the intent's symbol.
	Position float64
	// ReferencePrice anchors the price band check, normally the
	// latest trade price.
	ReferencePrice float64
}

// Engine evaluates pre-trade limit checks. The limits live behind an
// atomic so the config watcher can swap them while the symbol
// goroutines keep evaluating.
type Engine struct {
	cfg atomic.Value
}

// NewEngine creates a risk engine with the given limits.
func NewEngine(cfg Config) *Engine {
	e := &Engine{}
	e.cfg.Store(cfg)
	return e
}

// SetConfig swaps the limits, for config hot reload.
func (e *Engine) SetConfig(cfg Config) {
	e.cfg.Store(cfg)
}

// Evaluate applies the limit checks to an order intent.
func (e *Engine) Evaluate(intent schema.OrderIntent, state StateView) schema.RiskDecision {
	cfg := e.cfg.Load().(Config)
	decision := schema.RiskDecision{
		OrderID:       intent.OrderID,
		SymbolID:      intent.SymbolID,
		Action:        schema.RiskActionAllow,
		Reason:        schema.RiskReasonNone,
		ProposedQty:   intent.Qty,
		ProposedPrice: intent.Price,
		CurrentPos:    state.Position,
	}

	if cfg.KillSwitch {
		decision.Action = schema.RiskActionDeny
		decision.Reason = schema.RiskReasonKillSwitch
		return decision
	}

	if cfg.MaxOrderQty > 0 && intent.Qty > cfg.MaxOrderQty {
		decision.Action = schema.RiskActionDeny
		decision.Reason = schema.RiskReasonMaxQty
		return decision
	}

	if cfg.MaxPriceDeviationBps > 0 && intent.Type == schema.OrderTypeLimit &&
		intent.Price > 0 && state.ReferencePrice > 0 {
		diff := math.Abs(intent.Price - state.ReferencePrice)
		if diff*10000 > state.ReferencePrice*cfg.MaxPriceDeviationBps {
			decision.Action = schema.RiskActionDeny
			decision.Reason = schema.RiskReasonPriceBand
			return decision
		}
	}

	if cfg.MaxOrderNotional > 0 && intent.Type == schema.OrderTypeLimit {
		if intent.Price*intent.Qty > cfg.MaxOrderNotional {
			decision.Action = schema.RiskActionDeny
			decision.Reason = schema.RiskReasonMaxNotional
			return decision
		}
	}

	nextPos := state.Position
	switch intent.Side {
	case schema.OrderSideBuy:
		nextPos += intent.Qty
	case schema.OrderSideSell:
		nextPos -= intent.Qty
	}
	if cfg.MaxPosition > 0 && math.Abs(nextPos) > cfg.MaxPosition {
		decision.Action = schema.RiskActionDeny
		decision.Reason = schema.RiskReasonPositionLimit
		return decision
	}

	return decision
}
