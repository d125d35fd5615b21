package strategy

import (
	"sync"
	"time"

	"main/internal/errors"
	"main/internal/schema"
)

var (
	ErrUnknownSymbol   = errors.New("symbol not tracked")
	ErrOrderNotIndexed = errors.New("order id not indexed")
	ErrMissingDeps     = errors.New("registry and gateway are required")
)

// State is the per-instrument trading state.
type State uint8

const (
	StateIdle State = iota
	StateWaitingEntry
	StateHolding
	StateWaitingExit
	StateWaitingTimeoutExit
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaitingEntry:
		return "waiting_entry"
	case StateHolding:
		return "holding"
	case StateWaitingExit:
		return "waiting_exit"
	case StateWaitingTimeoutExit:
		return "waiting_timeout_exit"
	default:
		return "unknown"
	}
}

// Direction is the position direction implied by the opening gap. A gap
// up shorts the failure, a gap down buys it.
type Direction uint8

const (
	DirectionNone Direction = iota
	DirectionShort
	DirectionLong
)

func (d Direction) String() string {
	switch d {
	case DirectionShort:
		return "short"
	case DirectionLong:
		return "long"
	default:
		return "none"
	}
}

// EntrySide returns the order side that opens a position in d.
func (d Direction) EntrySide() schema.OrderSide {
	switch d {
	case DirectionShort:
		return schema.OrderSideSell
	case DirectionLong:
		return schema.OrderSideBuy
	default:
		return schema.OrderSideUnknown
	}
}

// ExitSide returns the order side that closes a position in d.
func (d Direction) ExitSide() schema.OrderSide {
	return d.EntrySide().Opposite()
}

// Context is the full trading state for one instrument. All fields are
// owned by the instrument's shard goroutine.
type Context struct {
	SymbolID uint32
	Code     string

	State     State
	Direction Direction

	TradeCount        int
	TimeoutTradeCount int

	// Working order. At most one of EntryOrderID/ExitOrderID is
	// non-zero, matching the state: entry id only in WaitingEntry,
	// exit id only in WaitingExit/WaitingTimeoutExit.
	EntryOrderID uint64
	ExitOrderID  uint64
	OrderQty     float64
	FilledQty    float64
	FillNotional float64
	ExitIsMarket bool

	EntryQuotePrice float64
	ExitQuotePrice  float64
	EntryFillPrice  float64

	EntryTime            time.Time
	ExitStartTime        time.Time
	TimeoutExitStartTime time.Time

	PositionSize float64

	TradingBanned        bool
	EntryCanceledThisBar bool

	// Deferred entry trigger, armed instead of quoting when the
	// signal fires far from the market.
	DeferredArmed     bool
	TriggerPrice      float64
	TriggerOrderPrice float64
}

// reset returns the context to its initial state, keeping identity.
func (c *Context) reset() {
	*c = Context{SymbolID: c.SymbolID, Code: c.Code}
}

// clearWorkingOrder drops the current order without touching state.
func (c *Context) clearWorkingOrder() {
	c.EntryOrderID = 0
	c.ExitOrderID = 0
	c.OrderQty = 0
	c.FilledQty = 0
	c.FillNotional = 0
	c.ExitIsMarket = false
}

// Store holds one Context per tracked instrument plus a reverse index
// from working order id to instrument. The context arena is built once
// at startup and read-only as a map afterwards; the order index is
// shared across shard goroutines and guarded separately.
type Store struct {
	bySymbol map[uint32]*Context

	mu      sync.RWMutex
	byOrder map[uint64]uint32
}

// NewStore creates a store with a context per registry symbol.
func NewStore(registry *schema.Registry) *Store {
	s := &Store{
		bySymbol: make(map[uint32]*Context, registry.SymbolCount()),
		byOrder:  make(map[uint64]uint32),
	}
	for i := 0; i < registry.SymbolCount(); i++ {
		sym, _ := registry.SymbolAt(i)
		s.bySymbol[uint32(sym.ID)] = &Context{SymbolID: uint32(sym.ID), Code: sym.Code}
	}
	return s
}

// Get returns the context for a tracked instrument.
func (s *Store) Get(symbolID uint32) (*Context, bool) {
	c, ok := s.bySymbol[symbolID]
	return c, ok
}

// bindOrder and releaseOrder keep the reverse index in step with the
// contexts' working order ids.
func (s *Store) bindOrder(orderID uint64, symbolID uint32) {
	s.mu.Lock()
	s.byOrder[orderID] = symbolID
	s.mu.Unlock()
}

func (s *Store) releaseOrder(orderID uint64) {
	if orderID == 0 {
		return
	}
	s.mu.Lock()
	delete(s.byOrder, orderID)
	s.mu.Unlock()
}

// OwnerOf returns the instrument owning a working order id.
func (s *Store) OwnerOf(orderID uint64) (uint32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byOrder[orderID]
	return id, ok
}

// ForEach visits every context. Callers must not hold shard events
// in flight while mutating other instruments' contexts.
func (s *Store) ForEach(fn func(*Context)) {
	for _, c := range s.bySymbol {
		fn(c)
	}
}

// ResetForNewDay returns every context to its initial state and clears
// the order index.
func (s *Store) ResetForNewDay() {
	for _, c := range s.bySymbol {
		c.reset()
	}
	s.mu.Lock()
	for id := range s.byOrder {
		delete(s.byOrder, id)
	}
	s.mu.Unlock()
}
