package schema

// Tick is the payload for EventTick. Volume and Turnover are cumulative
// for the trading day, matching the tick server frames; per-tick deltas
// are derived downstream by the bar generator.
type Tick struct {
	SymbolID uint32
	Flags    uint16
	Reserved uint16
	Price    float64
	Volume   float64
	Turnover float64
}

// Bar is the payload for EventBar. TsStart marks the beginning of the
// bar interval; the interval length in seconds is carried explicitly so
// rolled-up window bars share the payload.
type Bar struct {
	SymbolID        uint32
	IntervalSeconds uint32
	TsStart         int64
	Open            float64
	High            float64
	Low             float64
	Close           float64
	Volume          float64
	Turnover        float64
}

// Timer is the payload for EventTimer, a per-instrument clock pulse
// that keeps timeouts advancing through quiet tape.
type Timer struct {
	SymbolID uint32
	Reserved uint32
}

// OrderSide describes order direction.
type OrderSide uint16

const (
	OrderSideUnknown OrderSide = iota
	OrderSideBuy
	OrderSideSell
)

// Opposite returns the side that closes a position opened with s.
func (s OrderSide) Opposite() OrderSide {
	switch s {
	case OrderSideBuy:
		return OrderSideSell
	case OrderSideSell:
		return OrderSideBuy
	default:
		return OrderSideUnknown
	}
}

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "buy"
	case OrderSideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// OrderType describes order type.
type OrderType uint16

const (
	OrderTypeUnknown OrderType = iota
	OrderTypeLimit
	OrderTypeMarket
)

// OrderIntent is the payload for EventOrderIntent. Market orders carry
// Price zero.
type OrderIntent struct {
	OrderID  uint64
	SymbolID uint32
	Side     OrderSide
	Type     OrderType
	Price    float64
	Qty      float64
}

// OrderAckStatus describes the outcome of an order acknowledgment.
type OrderAckStatus uint16

const (
	OrderAckStatusUnknown OrderAckStatus = iota
	OrderAckStatusAcked
	OrderAckStatusRejected
	OrderAckStatusCanceled
	OrderAckStatusExpired
	OrderAckStatusPartFilled
	OrderAckStatusFilled
)

// OrderAckReason describes the reason for an order acknowledgment.
type OrderAckReason uint16

const (
	OrderAckReasonNone OrderAckReason = iota
	OrderAckReasonExchangeReject
	OrderAckReasonRiskReject
	OrderAckReasonRateLimit
	OrderAckReasonInvalidPrice
	OrderAckReasonInvalidQty
	OrderAckReasonNotAllowed
)

// OrderAck is the payload for EventOrderAck.
type OrderAck struct {
	OrderID   uint64
	SymbolID  uint32
	Status    OrderAckStatus
	Reason    OrderAckReason
	Price     float64
	Qty       float64
	LeavesQty float64
}

// Fill is the payload for EventFill.
type Fill struct {
	OrderID  uint64
	SymbolID uint32
	Side     OrderSide
	Flags    uint16
	Price    float64
	Qty      float64
}

// RiskAction is the outcome of a pre-trade risk decision.
type RiskAction uint16

const (
	RiskActionUnknown RiskAction = iota
	RiskActionAllow
	RiskActionDeny
)

// RiskReason is a coarse reason code for risk decisions.
type RiskReason uint16

const (
	RiskReasonNone RiskReason = iota
	RiskReasonKillSwitch
	RiskReasonMaxQty
	RiskReasonMaxNotional
	RiskReasonPriceBand
	RiskReasonPositionLimit
)

// RiskDecision is the payload for EventRiskDecision.
type RiskDecision struct {
	OrderID       uint64
	SymbolID      uint32
	Action        RiskAction
	Reason        RiskReason
	ProposedQty   float64
	ProposedPrice float64
	CurrentPos    float64
}
