package feed

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jst = time.FixedZone("JST", 9*3600)

// frame builds a Frame the way the wire delivers it: timestamp in
// microseconds since midnight, price multiplied by ten.
func frame(t *testing.T, tsMicro int64, price10, qty float64) Frame {
	t.Helper()
	var f Frame
	raw := fmt.Sprintf(`{"timestamp":%d,"price10":%v,"quantity":%v}`, tsMicro, price10, qty)
	require.NoError(t, json.Unmarshal([]byte(raw), &f))
	return f
}

func TestConvertAccumulatesDayTotals(t *testing.T) {
	tr := NewTracker(jst)
	now := time.Date(2026, 1, 5, 9, 0, 1, 0, jst)
	nineAM := int64(9 * 3600 * 1_000_000)

	tick, ts, ok := tr.Convert(1, frame(t, nineAM, 10_300, 500), now)
	require.True(t, ok)
	assert.Equal(t, 1030.0, tick.Price)
	assert.Equal(t, 500.0, tick.Volume)
	assert.Equal(t, 515_000.0, tick.Turnover)
	assert.Equal(t, time.Date(2026, 1, 5, 9, 0, 0, 0, jst), ts)

	// totals are cumulative across frames
	tick, ts, ok = tr.Convert(1, frame(t, nineAM+30_000_000, 10_310, 200), now.Add(30*time.Second))
	require.True(t, ok)
	assert.Equal(t, 1031.0, tick.Price)
	assert.Equal(t, 700.0, tick.Volume)
	assert.Equal(t, 721_200.0, tick.Turnover)
	assert.Equal(t, time.Date(2026, 1, 5, 9, 0, 30, 0, jst), ts)

	// instruments accumulate independently
	tick, _, ok = tr.Convert(2, frame(t, nineAM, 20_000, 100), now)
	require.True(t, ok)
	assert.Equal(t, 100.0, tick.Volume)
}

func TestConvertDropsOutOfOrderFrames(t *testing.T) {
	tr := NewTracker(jst)
	now := time.Date(2026, 1, 5, 9, 0, 1, 0, jst)
	nineAM := int64(9 * 3600 * 1_000_000)

	_, _, ok := tr.Convert(1, frame(t, nineAM, 10_300, 500), now)
	require.True(t, ok)

	_, _, ok = tr.Convert(1, frame(t, nineAM-1_000_000, 10_295, 100), now)
	assert.False(t, ok)

	// the dropped frame must not disturb the totals
	tick, _, ok := tr.Convert(1, frame(t, nineAM, 10_305, 100), now)
	require.True(t, ok)
	assert.Equal(t, 600.0, tick.Volume)
}

func TestConvertResetsOnNewDay(t *testing.T) {
	tr := NewTracker(jst)
	nineAM := int64(9 * 3600 * 1_000_000)

	day1 := time.Date(2026, 1, 5, 9, 0, 1, 0, jst)
	_, _, ok := tr.Convert(1, frame(t, nineAM, 10_300, 500), day1)
	require.True(t, ok)

	day2 := time.Date(2026, 1, 6, 9, 0, 1, 0, jst)
	tick, ts, ok := tr.Convert(1, frame(t, nineAM, 10_400, 300), day2)
	require.True(t, ok)
	assert.Equal(t, 300.0, tick.Volume)
	assert.Equal(t, 312_000.0, tick.Turnover)
	assert.Equal(t, time.Date(2026, 1, 6, 9, 0, 0, 0, jst), ts)
}
