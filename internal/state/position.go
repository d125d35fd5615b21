package state

import "main/internal/schema"

// PositionReducer folds fill events into signed share positions per
// symbol. It is the process-wide view used for end-of-day snapshots
// and pre-trade position limits.
type PositionReducer struct {
	positions map[uint32]float64
}

// NewPositionReducer creates an empty reducer.
func NewPositionReducer() *PositionReducer {
	return &PositionReducer{positions: make(map[uint32]float64)}
}

// ApplyFill updates the position and returns the new quantity.
func (r *PositionReducer) ApplyFill(fill schema.Fill) float64 {
	current := r.positions[fill.SymbolID]
	var next float64
	switch fill.Side {
	case schema.OrderSideBuy:
		next = current + fill.Qty
	case schema.OrderSideSell:
		next = current - fill.Qty
	default:
		next = current
	}
	r.positions[fill.SymbolID] = next
	return next
}

// ApplySnapshot replaces positions with a snapshot.
func (r *PositionReducer) ApplySnapshot(snapshot Snapshot) {
	if r.positions == nil {
		r.positions = make(map[uint32]float64, len(snapshot.Positions))
	} else {
		for key := range r.positions {
			delete(r.positions, key)
		}
	}
	for _, entry := range snapshot.Positions {
		r.positions[entry.SymbolID] = entry.Qty
	}
}

// Position returns the current position quantity for a symbol.
func (r *PositionReducer) Position(symbolID uint32) float64 {
	return r.positions[symbolID]
}

// Count returns the number of tracked symbols.
func (r *PositionReducer) Count() int {
	return len(r.positions)
}

// Reset clears all positions for a new trading day.
func (r *PositionReducer) Reset() {
	for key := range r.positions {
		delete(r.positions, key)
	}
}
