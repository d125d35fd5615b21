package journal

import (
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/errors"
	"main/internal/strategy"
	"main/pkg/conn"
)

// roundTripRow is the persisted form of one completed round trip.
type roundTripRow struct {
	ID         uint      `gorm:"primaryKey"`
	Symbol     string    `gorm:"index;size:16"`
	Direction  string    `gorm:"size:8"`
	Qty        float64   `gorm:""`
	EntryPrice float64   `gorm:""`
	ExitPrice  float64   `gorm:""`
	EntryTime  time.Time `gorm:""`
	ExitTime   time.Time `gorm:"index"`
	ViaTimeout bool      `gorm:""`
	CreatedAt  time.Time `gorm:""`
}

func (roundTripRow) TableName() string { return "round_trips" }

// Journal persists round trips to Postgres. Writes are handed to a
// background worker so the strategy path never blocks on the database.
type Journal struct {
	client *conn.Client
	queue  chan strategy.RoundTrip
	wg     sync.WaitGroup
	once   sync.Once
}

const queueSize = 256

// New opens the journal database and migrates the schema.
func New(opt conn.Option) (*Journal, error) {
	client, err := conn.New(opt)
	if err != nil {
		return nil, errors.Wrap(err, "open journal db")
	}
	if err := client.DB().AutoMigrate(&roundTripRow{}); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "migrate journal schema")
	}
	j := &Journal{
		client: client,
		queue:  make(chan strategy.RoundTrip, queueSize),
	}
	j.wg.Add(1)
	go j.run()
	return j, nil
}

// RecordRoundTrip enqueues a round trip without blocking. Entries are
// dropped with a log line when the queue is full.
func (j *Journal) RecordRoundTrip(rt strategy.RoundTrip) {
	select {
	case j.queue <- rt:
	default:
		logs.Errorf("journal queue full, round trip dropped, symbol: %s", rt.Code)
	}
}

// Close drains the queue and closes the database connection.
func (j *Journal) Close() error {
	j.once.Do(func() { close(j.queue) })
	j.wg.Wait()
	return j.client.Close()
}

func (j *Journal) run() {
	defer j.wg.Done()
	for rt := range j.queue {
		row := roundTripRow{
			Symbol:     rt.Code,
			Direction:  rt.Direction.String(),
			Qty:        rt.Qty,
			EntryPrice: rt.EntryPrice,
			ExitPrice:  rt.ExitPrice,
			EntryTime:  rt.EntryTime,
			ExitTime:   rt.ExitTime,
			ViaTimeout: rt.ViaTimeout,
		}
		if err := j.client.DB().Create(&row).Error; err != nil {
			logs.Errorf("journal insert failed, symbol: %s, err: %v", rt.Code, err)
		}
	}
}
