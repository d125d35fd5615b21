package strategy

import (
	"testing"
	"time"

	"main/internal/gateway"
	"main/internal/indicator"
	"main/internal/schema"
)

func TestEvaluateSignalPreconditions(t *testing.T) {
	h := newHarness(t, DefaultConfig(), gateway.SimConfig{})
	h.classify(5)

	ready := indicator.Values{VWAP: 1050, ATR: 20, BarCount: 15, BelowVWAPCount: 3}
	bar := schema.Bar{SymbolID: h.id, Close: 1075, High: 1085, Low: 1040}
	at := func(hh, mm int) time.Time { return h.at(5, hh, mm, 0) }

	testCases := []struct {
		desc     string
		mutate   func(ctx *Context)
		vals     indicator.Values
		bar      schema.Bar
		now      time.Time
		wantFire bool
		wantDefer bool
	}{
		{
			desc:     "all preconditions met",
			vals:     ready,
			bar:      bar,
			now:      at(10, 0),
			wantFire: true,
		},
		{
			desc:   "not idle",
			mutate: func(ctx *Context) { ctx.State = StateHolding },
			vals:   ready,
			bar:    bar,
			now:    at(10, 0),
		},
		{
			desc:   "banned for the day",
			mutate: func(ctx *Context) { ctx.TradingBanned = true },
			vals:   ready,
			bar:    bar,
			now:    at(10, 0),
		},
		{
			desc:   "deferred trigger already armed",
			mutate: func(ctx *Context) { ctx.DeferredArmed = true },
			vals:   ready,
			bar:    bar,
			now:    at(10, 0),
		},
		{
			desc:   "daily trade budget spent",
			mutate: func(ctx *Context) { ctx.TradeCount = 3 },
			vals:   ready,
			bar:    bar,
			now:    at(10, 0),
		},
		{
			desc: "past the latest entry time",
			vals: ready,
			bar:  bar,
			now:  at(14, 31),
		},
		{
			desc: "at the latest entry time still fires",
			vals: ready,
			bar:  bar,
			now:  at(14, 30),
			wantFire: true,
		},
		{
			desc: "atr not warmed up",
			vals: indicator.Values{VWAP: 1050, ATR: 20, BarCount: 14, BelowVWAPCount: 3},
			bar:  bar,
			now:  at(10, 0),
		},
		{
			desc: "below count under the threshold",
			vals: indicator.Values{VWAP: 1050, ATR: 20, BarCount: 15, BelowVWAPCount: 2},
			bar:  bar,
			now:  at(10, 0),
		},
		{
			desc:   "timeout history requires a reachable target",
			mutate: func(ctx *Context) { ctx.TimeoutTradeCount = 1 },
			vals:   ready,
			bar:    schema.Bar{SymbolID: h.id, Close: 1045, High: 1055, Low: 1040},
			now:    at(10, 0),
		},
		{
			desc:     "timeout history with the target in range",
			mutate:   func(ctx *Context) { ctx.TimeoutTradeCount = 1 },
			vals:     ready,
			bar:      bar,
			now:      at(10, 0),
			wantFire: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			ctx := Context{SymbolID: h.id, Code: "6758"}
			if tc.mutate != nil {
				tc.mutate(&ctx)
			}
			sig, fire := h.eng.evaluateSignal(&ctx, tc.bar, tc.vals, tc.now)
			if fire != tc.wantFire {
				t.Fatalf("fire: got %v want %v", fire, tc.wantFire)
			}
			if !fire {
				return
			}
			if sig.direction != DirectionShort {
				t.Fatalf("direction: got %v want %v", sig.direction, DirectionShort)
			}
			if sig.price != 1080 {
				t.Fatalf("price: got %v want 1080", sig.price)
			}
			if sig.deferred != tc.wantDefer {
				t.Fatalf("deferred: got %v want %v", sig.deferred, tc.wantDefer)
			}
		})
	}
}

func TestDeferredDecisionThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeferredEntryATRMultiplier = 1.0
	h := newHarness(t, cfg, gateway.SimConfig{})
	h.classify(5)

	ctx := Context{SymbolID: h.id, Code: "6758"}
	vals := indicator.Values{VWAP: 1050, ATR: 20, BarCount: 15, BelowVWAPCount: 3}
	now := h.at(5, 10, 0, 0)

	// close 21 away from the 1080 target: defer
	sig, fire := h.eng.evaluateSignal(&ctx, schema.Bar{SymbolID: h.id, Close: 1059, High: 1085, Low: 1040}, vals, now)
	if !fire || !sig.deferred {
		t.Fatalf("got fire=%v deferred=%v, want deferred fire", fire, sig.deferred)
	}

	// close 15 away: quote immediately
	sig, fire = h.eng.evaluateSignal(&ctx, schema.Bar{SymbolID: h.id, Close: 1065, High: 1085, Low: 1040}, vals, now)
	if !fire || sig.deferred {
		t.Fatalf("got fire=%v deferred=%v, want immediate fire", fire, sig.deferred)
	}
}

func TestEntryAndExitTargets(t *testing.T) {
	h := newHarness(t, DefaultConfig(), gateway.SimConfig{})
	h.classify(5)
	vals := indicator.Values{VWAP: 1050, ATR: 20}

	testCases := []struct {
		desc      string
		dir       Direction
		wantEntry float64
		wantExit  float64
	}{
		{desc: "short quotes above vwap, covers below", dir: DirectionShort, wantEntry: 1080, wantExit: 1030},
		{desc: "long quotes below vwap, sells above", dir: DirectionLong, wantEntry: 1020, wantExit: 1070},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			ctx := Context{SymbolID: h.id, Direction: tc.dir}
			entry, ok := h.eng.entryTarget(&ctx, vals)
			if !ok || entry != tc.wantEntry {
				t.Fatalf("entry: got %v (%v) want %v", entry, ok, tc.wantEntry)
			}
			exit, ok := h.eng.exitTarget(&ctx, vals)
			if !ok || exit != tc.wantExit {
				t.Fatalf("exit: got %v (%v) want %v", exit, ok, tc.wantExit)
			}
		})
	}

	ctx := Context{SymbolID: h.id, Direction: DirectionNone}
	if _, ok := h.eng.entryTarget(&ctx, vals); ok {
		t.Fatal("no direction must not produce a target")
	}
}

func TestTriggerHit(t *testing.T) {
	testCases := []struct {
		desc    string
		dir     Direction
		price   float64
		trigger float64
		want    bool
	}{
		{desc: "short hit at trigger", dir: DirectionShort, price: 1080, trigger: 1080, want: true},
		{desc: "short hit above", dir: DirectionShort, price: 1081, trigger: 1080, want: true},
		{desc: "short below trigger", dir: DirectionShort, price: 1079, trigger: 1080, want: false},
		{desc: "long hit at trigger", dir: DirectionLong, price: 1020, trigger: 1020, want: true},
		{desc: "long hit below", dir: DirectionLong, price: 1019, trigger: 1020, want: true},
		{desc: "long above trigger", dir: DirectionLong, price: 1021, trigger: 1020, want: false},
		{desc: "no direction", dir: DirectionNone, price: 1080, trigger: 1080, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			if got := triggerHit(tc.dir, tc.price, tc.trigger); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}
