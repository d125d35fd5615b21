package schema

import "testing"

func TestOrderSide(t *testing.T) {
	testCases := []struct {
		side     OrderSide
		opposite OrderSide
		str      string
	}{
		{OrderSideBuy, OrderSideSell, "buy"},
		{OrderSideSell, OrderSideBuy, "sell"},
		{OrderSideUnknown, OrderSideUnknown, "unknown"},
		{OrderSide(99), OrderSideUnknown, "unknown"},
	}
	for _, tc := range testCases {
		if got := tc.side.Opposite(); got != tc.opposite {
			t.Fatalf("opposite of %v: got %v want %v", tc.side, got, tc.opposite)
		}
		if got := tc.side.String(); got != tc.str {
			t.Fatalf("string of side %d: got %q want %q", uint16(tc.side), got, tc.str)
		}
	}
}
