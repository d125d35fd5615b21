package gateway

import (
	"main/internal/errors"
	"main/internal/schema"
)

var (
	ErrDuplicateOrder    = errors.New("order already exists")
	ErrUnknownOrder      = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order state transition")
	ErrInvalidFill       = errors.New("invalid fill quantity")
	ErrOrderTerminal     = errors.New("order already terminal")
	ErrDisconnected      = errors.New("order gateway disconnected")
)

// Callbacks receive asynchronous order events from a gateway. They are
// invoked from the gateway's own context; implementations must hand the
// event off to the owning symbol's queue rather than acting inline.
type Callbacks struct {
	OnAck  func(schema.OrderAck)
	OnFill func(schema.Fill)
}

// Gateway is the broker boundary. SendOrder is asynchronous: the
// entry/working/terminal progression arrives through Callbacks.
// CancelOrder is synchronous-result: a nil return means the order was
// canceled and will not fill; an error means the cancel lost the race
// and the caller must leave its state alone.
type Gateway interface {
	NextOrderID() uint64
	SendOrder(intent schema.OrderIntent) error
	CancelOrder(orderID uint64) error
}
