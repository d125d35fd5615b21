package feed

import (
	"time"

	"github.com/yanun0323/logs"

	"main/internal/schema"
)

type symbolCache struct {
	volume    float64
	turnover  float64
	timestamp int64
	day       int
}

// Tracker converts raw frames into ticks. Frames carry per-trade
// quantity and a day-relative microsecond timestamp; ticks carry
// day-cumulative volume and turnover. One Tracker per stream goroutine.
type Tracker struct {
	loc   *time.Location
	cache map[uint32]*symbolCache
}

func NewTracker(loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.Local
	}
	return &Tracker{loc: loc, cache: make(map[uint32]*symbolCache)}
}

// Convert folds one frame into the running day totals and returns the
// tick plus its event time. Out-of-order frames are dropped.
func (t *Tracker) Convert(symbolID uint32, frame Frame, now time.Time) (schema.Tick, time.Time, bool) {
	now = now.In(t.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, t.loc)
	ts := midnight.Add(time.Duration(frame.Timestamp) * time.Microsecond)
	day := now.Year()*10000 + int(now.Month())*100 + now.Day()

	c, ok := t.cache[symbolID]
	if !ok {
		c = &symbolCache{day: day}
		t.cache[symbolID] = c
	}
	if c.day != day {
		c.volume = 0
		c.turnover = 0
		c.timestamp = 0
		c.day = day
	}
	if frame.Timestamp < c.timestamp {
		logs.Warnf("frame out of order, symbol: %d, ts: %d, last: %d", symbolID, frame.Timestamp, c.timestamp)
		return schema.Tick{}, time.Time{}, false
	}

	priceF, _ := frame.Price10.Float64()
	price := priceF / 10
	qty, _ := frame.Quantity.Float64()
	c.volume += qty
	c.turnover += qty * price
	c.timestamp = frame.Timestamp

	return schema.Tick{
		SymbolID: symbolID,
		Price:    price,
		Volume:   c.volume,
		Turnover: c.turnover,
	}, ts, true
}
