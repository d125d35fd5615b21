package gateway

import (
	"sync"
	"sync/atomic"

	"main/internal/schema"
)

// SimConfig controls the simulated gateway behavior.
type SimConfig struct {
	// AutoAck emits an Acked status immediately after SendOrder.
	AutoAck bool
	// AutoFill fills every order in full immediately after the ack.
	// Limit orders fill at their limit price, market orders at the
	// last trade price seen for the symbol.
	AutoFill bool
	// ResendOnReconnect returns working intents from Reconnect.
	ResendOnReconnect bool
}

// Sim is an in-process gateway for paper trading, replay and tests.
// Orders rest until filled through FillOrder/FillAll, rejected, or
// canceled, unless AutoFill is set. All methods are safe for use from
// multiple symbol goroutines.
type Sim struct {
	cfg SimConfig
	cb  Callbacks

	mu        sync.Mutex
	state     *StateMachine
	pending   map[uint64]schema.OrderIntent
	lastPrice map[uint32]float64
	connected bool

	nextID uint64
}

// NewSim creates a simulated gateway delivering events through cb.
func NewSim(cfg SimConfig, cb Callbacks) *Sim {
	return &Sim{
		cfg:       cfg,
		cb:        cb,
		state:     NewStateMachine(),
		pending:   make(map[uint64]schema.OrderIntent),
		lastPrice: make(map[uint32]float64),
		connected: true,
	}
}

// NextOrderID allocates a monotonically increasing order id.
func (s *Sim) NextOrderID() uint64 {
	return atomic.AddUint64(&s.nextID, 1)
}

// MarkPrice records the latest trade price used to fill market orders.
func (s *Sim) MarkPrice(symbolID uint32, price float64) {
	s.mu.Lock()
	s.lastPrice[symbolID] = price
	s.mu.Unlock()
}

// SendOrder registers an intent. With AutoAck/AutoFill the resulting
// events fire before SendOrder returns, on the caller's goroutine.
func (s *Sim) SendOrder(intent schema.OrderIntent) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return ErrDisconnected
	}
	if _, err := s.state.ApplyIntent(intent); err != nil {
		s.mu.Unlock()
		return err
	}
	s.pending[intent.OrderID] = intent
	autoAck, autoFill := s.cfg.AutoAck, s.cfg.AutoFill
	s.mu.Unlock()

	if autoAck {
		s.AcceptOrder(intent.OrderID)
	}
	if autoFill {
		s.FillAll(intent.OrderID)
	}
	return nil
}

// CancelOrder removes a working order. The result is authoritative: nil
// means the order is canceled and will never fill.
func (s *Sim) CancelOrder(orderID uint64) error {
	s.mu.Lock()
	o, ok := s.state.Order(orderID)
	if !ok {
		s.mu.Unlock()
		return ErrUnknownOrder
	}
	if o.State.Terminal() {
		s.mu.Unlock()
		return ErrOrderTerminal
	}
	ack := schema.OrderAck{
		OrderID:   orderID,
		SymbolID:  o.SymbolID,
		Status:    schema.OrderAckStatusCanceled,
		LeavesQty: o.LeavesQty,
	}
	if _, err := s.state.ApplyAck(ack); err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.pending, orderID)
	s.mu.Unlock()

	s.emitAck(ack)
	return nil
}

// AcceptOrder emits a working acknowledgment for a sent order.
func (s *Sim) AcceptOrder(orderID uint64) {
	s.ackStatus(orderID, schema.OrderAckStatusAcked, schema.OrderAckReasonNone)
}

// RejectOrder fails a working order with the given reason.
func (s *Sim) RejectOrder(orderID uint64, reason schema.OrderAckReason) {
	s.ackStatus(orderID, schema.OrderAckStatusRejected, reason)
}

func (s *Sim) ackStatus(orderID uint64, status schema.OrderAckStatus, reason schema.OrderAckReason) {
	s.mu.Lock()
	o, ok := s.state.Order(orderID)
	if !ok {
		s.mu.Unlock()
		return
	}
	ack := schema.OrderAck{
		OrderID:   orderID,
		SymbolID:  o.SymbolID,
		Status:    status,
		Reason:    reason,
		Price:     o.Price,
		Qty:       o.Qty,
		LeavesQty: o.LeavesQty,
	}
	if _, err := s.state.ApplyAck(ack); err != nil {
		s.mu.Unlock()
		return
	}
	if status == schema.OrderAckStatusRejected {
		delete(s.pending, orderID)
	}
	s.mu.Unlock()

	s.emitAck(ack)
}

// FillOrder executes qty shares of a working order at price, emitting
// the fill and the matching status acknowledgment.
func (s *Sim) FillOrder(orderID uint64, price, qty float64) {
	s.mu.Lock()
	o, ok := s.state.Order(orderID)
	if !ok || o.State.Terminal() {
		s.mu.Unlock()
		return
	}
	fill := schema.Fill{
		OrderID:  orderID,
		SymbolID: o.SymbolID,
		Side:     o.Side,
		Price:    price,
		Qty:      qty,
	}
	if _, err := s.state.ApplyFill(fill); err != nil {
		s.mu.Unlock()
		return
	}
	status := schema.OrderAckStatusPartFilled
	if o.State == OrderStateFilled {
		status = schema.OrderAckStatusFilled
		delete(s.pending, orderID)
	}
	ack := schema.OrderAck{
		OrderID:   orderID,
		SymbolID:  o.SymbolID,
		Status:    status,
		Price:     price,
		Qty:       o.Qty,
		LeavesQty: o.LeavesQty,
	}
	s.mu.Unlock()

	s.emitFill(fill)
	s.emitAck(ack)
}

// FillAll executes the full remaining quantity of a working order.
// Limit orders fill at the limit price, market orders at the last
// marked price (falling back to the limit field when none was marked).
func (s *Sim) FillAll(orderID uint64) {
	s.mu.Lock()
	o, ok := s.state.Order(orderID)
	if !ok || o.State.Terminal() {
		s.mu.Unlock()
		return
	}
	price := o.Price
	if o.Type == schema.OrderTypeMarket {
		if last, ok := s.lastPrice[o.SymbolID]; ok && last > 0 {
			price = last
		}
	}
	qty := o.LeavesQty
	s.mu.Unlock()

	if qty > 0 {
		s.FillOrder(orderID, price, qty)
	}
}

// Order exposes the sim's view of an order for assertions.
func (s *Sim) Order(orderID uint64) (Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.state.Order(orderID)
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Disconnect makes SendOrder fail until Reconnect.
func (s *Sim) Disconnect() {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
}

// Reconnect restores connectivity and returns working intents to
// resend when configured to do so.
func (s *Sim) Reconnect() []schema.OrderIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	if !s.cfg.ResendOnReconnect {
		return nil
	}
	out := make([]schema.OrderIntent, 0, len(s.pending))
	for _, intent := range s.pending {
		out = append(out, intent)
	}
	return out
}

func (s *Sim) emitAck(ack schema.OrderAck) {
	if s.cb.OnAck != nil {
		s.cb.OnAck(ack)
	}
}

func (s *Sim) emitFill(fill schema.Fill) {
	if s.cb.OnFill != nil {
		s.cb.OnFill(fill)
	}
}
