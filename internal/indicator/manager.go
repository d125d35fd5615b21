package indicator

import (
	"time"

	"main/internal/schema"
)

// Manager holds one Calculator per instrument. The map must be fully
// populated via Prime before concurrent per-symbol use; after that each
// calculator is touched only by its owning goroutine.
type Manager struct {
	loc   *time.Location
	calcs map[uint32]*Calculator
}

// NewManager creates an empty manager using loc for day detection.
func NewManager(loc *time.Location) *Manager {
	if loc == nil {
		loc = time.Local
	}
	return &Manager{loc: loc, calcs: make(map[uint32]*Calculator)}
}

// Prime allocates a calculator for every id up front.
func (m *Manager) Prime(ids []uint32) {
	for _, id := range ids {
		if _, ok := m.calcs[id]; !ok {
			m.calcs[id] = NewCalculator(m.loc)
		}
	}
}

// OnBar folds a completed bar into the instrument's indicators,
// creating the calculator on first sight.
func (m *Manager) OnBar(bar schema.Bar) Values {
	c, ok := m.calcs[bar.SymbolID]
	if !ok {
		c = NewCalculator(m.loc)
		m.calcs[bar.SymbolID] = c
	}
	return c.OnBar(bar)
}

// Snapshot returns the current values for an instrument. The second
// return is false when no bar has been seen yet.
func (m *Manager) Snapshot(symbolID uint32) (Values, bool) {
	c, ok := m.calcs[symbolID]
	if !ok {
		return Values{}, false
	}
	return c.Snapshot(), true
}

// ResetDay clears every instrument's indicators for a new trading day.
func (m *Manager) ResetDay() {
	for _, c := range m.calcs {
		c.Reset()
	}
}
