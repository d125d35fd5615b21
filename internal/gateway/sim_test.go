package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

// recorder collects emitted events in order for assertions.
type recorder struct {
	acks  []schema.OrderAck
	fills []schema.Fill
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnAck:  func(ack schema.OrderAck) { r.acks = append(r.acks, ack) },
		OnFill: func(fill schema.Fill) { r.fills = append(r.fills, fill) },
	}
}

func TestSimManualFillFlow(t *testing.T) {
	rec := &recorder{}
	s := NewSim(SimConfig{}, rec.callbacks())

	intent := limitIntent(s.NextOrderID())
	require.NoError(t, s.SendOrder(intent))
	require.Empty(t, rec.acks)

	s.AcceptOrder(intent.OrderID)
	require.Len(t, rec.acks, 1)
	assert.Equal(t, schema.OrderAckStatusAcked, rec.acks[0].Status)

	s.FillOrder(intent.OrderID, 1080, 4_000)
	require.Len(t, rec.fills, 1)
	require.Len(t, rec.acks, 2)
	assert.Equal(t, schema.OrderAckStatusPartFilled, rec.acks[1].Status)
	assert.Equal(t, 6_000.0, rec.acks[1].LeavesQty)

	s.FillAll(intent.OrderID)
	require.Len(t, rec.fills, 2)
	assert.Equal(t, 6_000.0, rec.fills[1].Qty)
	assert.Equal(t, 1080.0, rec.fills[1].Price)
	assert.Equal(t, schema.OrderAckStatusFilled, rec.acks[2].Status)

	o, ok := s.Order(intent.OrderID)
	require.True(t, ok)
	assert.Equal(t, OrderStateFilled, o.State)
}

func TestSimAutoAckAutoFill(t *testing.T) {
	rec := &recorder{}
	s := NewSim(SimConfig{AutoAck: true, AutoFill: true}, rec.callbacks())

	intent := limitIntent(s.NextOrderID())
	require.NoError(t, s.SendOrder(intent))

	// acked, filled in one shot, all before SendOrder returned
	require.Len(t, rec.fills, 1)
	assert.Equal(t, 10_000.0, rec.fills[0].Qty)
	assert.Equal(t, 1080.0, rec.fills[0].Price)
	require.Len(t, rec.acks, 2)
	assert.Equal(t, schema.OrderAckStatusAcked, rec.acks[0].Status)
	assert.Equal(t, schema.OrderAckStatusFilled, rec.acks[1].Status)
}

func TestSimMarketOrderFillsAtMark(t *testing.T) {
	rec := &recorder{}
	s := NewSim(SimConfig{AutoAck: true}, rec.callbacks())
	s.MarkPrice(1, 1034)

	id := s.NextOrderID()
	require.NoError(t, s.SendOrder(schema.OrderIntent{
		OrderID:  id,
		SymbolID: 1,
		Side:     schema.OrderSideBuy,
		Type:     schema.OrderTypeMarket,
		Qty:      10_000,
	}))
	s.FillAll(id)

	require.Len(t, rec.fills, 1)
	assert.Equal(t, 1034.0, rec.fills[0].Price)
}

func TestSimCancelIsAuthoritative(t *testing.T) {
	rec := &recorder{}
	s := NewSim(SimConfig{AutoAck: true}, rec.callbacks())

	intent := limitIntent(s.NextOrderID())
	require.NoError(t, s.SendOrder(intent))
	require.NoError(t, s.CancelOrder(intent.OrderID))

	// canceled means canceled: fills can no longer happen
	s.FillAll(intent.OrderID)
	assert.Empty(t, rec.fills)
	assert.Equal(t, schema.OrderAckStatusCanceled, rec.acks[1].Status)

	assert.Equal(t, ErrOrderTerminal, s.CancelOrder(intent.OrderID))
	assert.Equal(t, ErrUnknownOrder, s.CancelOrder(999))
}

func TestSimDuplicateOrderID(t *testing.T) {
	s := NewSim(SimConfig{}, Callbacks{})
	intent := limitIntent(7)
	require.NoError(t, s.SendOrder(intent))
	assert.Equal(t, ErrDuplicateOrder, s.SendOrder(intent))
}

func TestSimDisconnectAndResend(t *testing.T) {
	rec := &recorder{}
	s := NewSim(SimConfig{AutoAck: true, ResendOnReconnect: true}, rec.callbacks())

	working := limitIntent(s.NextOrderID())
	require.NoError(t, s.SendOrder(working))

	filled := limitIntent(s.NextOrderID())
	require.NoError(t, s.SendOrder(filled))
	s.FillAll(filled.OrderID)

	s.Disconnect()
	assert.Equal(t, ErrDisconnected, s.SendOrder(limitIntent(s.NextOrderID())))

	// only the still-working order comes back for resend
	resend := s.Reconnect()
	require.Len(t, resend, 1)
	assert.Equal(t, working.OrderID, resend[0].OrderID)
}
