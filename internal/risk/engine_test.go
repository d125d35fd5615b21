package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"main/internal/schema"
)

func sellLimit(qty, price float64) schema.OrderIntent {
	return schema.OrderIntent{
		OrderID:  1,
		SymbolID: 1,
		Side:     schema.OrderSideSell,
		Type:     schema.OrderTypeLimit,
		Price:    price,
		Qty:      qty,
	}
}

func TestEvaluateLimits(t *testing.T) {
	testCases := []struct {
		desc   string
		cfg    Config
		intent schema.OrderIntent
		state  StateView
		want   schema.RiskReason
	}{
		{
			desc:   "no limits allows everything",
			intent: sellLimit(10_000, 1080),
			want:   schema.RiskReasonNone,
		},
		{
			desc:   "kill switch denies first",
			cfg:    Config{KillSwitch: true, MaxOrderQty: 1},
			intent: sellLimit(10_000, 1080),
			want:   schema.RiskReasonKillSwitch,
		},
		{
			desc:   "qty over the cap",
			cfg:    Config{MaxOrderQty: 5_000},
			intent: sellLimit(10_000, 1080),
			want:   schema.RiskReasonMaxQty,
		},
		{
			desc:   "qty at the cap passes",
			cfg:    Config{MaxOrderQty: 10_000},
			intent: sellLimit(10_000, 1080),
			want:   schema.RiskReasonNone,
		},
		{
			desc:   "price outside the band",
			cfg:    Config{MaxPriceDeviationBps: 100},
			intent: sellLimit(10_000, 1080),
			state:  StateView{ReferencePrice: 1000},
			want:   schema.RiskReasonPriceBand,
		},
		{
			desc:   "price inside the band",
			cfg:    Config{MaxPriceDeviationBps: 100},
			intent: sellLimit(10_000, 1009),
			state:  StateView{ReferencePrice: 1000},
			want:   schema.RiskReasonNone,
		},
		{
			desc:   "band skipped without a reference",
			cfg:    Config{MaxPriceDeviationBps: 100},
			intent: sellLimit(10_000, 1080),
			want:   schema.RiskReasonNone,
		},
		{
			desc:   "band skipped for market orders",
			cfg:    Config{MaxPriceDeviationBps: 100},
			intent: schema.OrderIntent{OrderID: 1, SymbolID: 1, Side: schema.OrderSideSell, Type: schema.OrderTypeMarket, Qty: 100},
			state:  StateView{ReferencePrice: 1000},
			want:   schema.RiskReasonNone,
		},
		{
			desc:   "notional over the cap",
			cfg:    Config{MaxOrderNotional: 10_000_000},
			intent: sellLimit(10_000, 1080),
			want:   schema.RiskReasonMaxNotional,
		},
		{
			desc:   "position limit applies after the side",
			cfg:    Config{MaxPosition: 10_000},
			intent: sellLimit(6_000, 1080),
			state:  StateView{Position: -5_000},
			want:   schema.RiskReasonPositionLimit,
		},
		{
			desc:   "position limit respects netting",
			cfg:    Config{MaxPosition: 10_000},
			intent: schema.OrderIntent{OrderID: 1, SymbolID: 1, Side: schema.OrderSideBuy, Type: schema.OrderTypeLimit, Price: 1080, Qty: 6_000},
			state:  StateView{Position: -5_000},
			want:   schema.RiskReasonNone,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			e := NewEngine(tc.cfg)
			decision := e.Evaluate(tc.intent, tc.state)
			assert.Equal(t, tc.want, decision.Reason)
			if tc.want == schema.RiskReasonNone {
				assert.Equal(t, schema.RiskActionAllow, decision.Action)
			} else {
				assert.Equal(t, schema.RiskActionDeny, decision.Action)
			}
			assert.Equal(t, tc.intent.OrderID, decision.OrderID)
			assert.Equal(t, tc.intent.Qty, decision.ProposedQty)
			assert.Equal(t, tc.state.Position, decision.CurrentPos)
		})
	}
}

func TestSetConfigSwapsLimits(t *testing.T) {
	e := NewEngine(Config{})
	intent := sellLimit(10_000, 1080)

	decision := e.Evaluate(intent, StateView{})
	assert.Equal(t, schema.RiskActionAllow, decision.Action)

	e.SetConfig(Config{KillSwitch: true})
	decision = e.Evaluate(intent, StateView{})
	assert.Equal(t, schema.RiskActionDeny, decision.Action)
	assert.Equal(t, schema.RiskReasonKillSwitch, decision.Reason)

	e.SetConfig(Config{})
	decision = e.Evaluate(intent, StateView{})
	assert.Equal(t, schema.RiskActionAllow, decision.Action)
}
