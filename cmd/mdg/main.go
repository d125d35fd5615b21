package main

import (
	"context"
	"flag"
	"log"
	"sync"
	"time"

	"main/internal/bus"
	"main/internal/codec"
	"main/internal/mdg"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/recorder"
	"main/internal/schema"
)

func main() {
	outDir := flag.String("out-dir", "testdata/capture", "Capture directory for generated ticks")
	configPath := flag.String("config", "", "Path to JSON config (symbol universe)")
	ticks := flag.Int("ticks", 10000, "Ticks to generate per symbol")
	date := flag.String("date", "", "Trading date YYYYMMDD (default: today)")
	prevClose := flag.Float64("prev-close", 1000, "Previous close price")
	gap := flag.Float64("gap", 0.03, "Opening gap ratio (alternates sign per symbol)")
	tickSize := flag.Float64("tick-size", 0.5, "Price tick size")
	volatility := flag.Float64("volatility", 0.0005, "Per-step volatility fraction")
	baseQty := flag.Float64("base-qty", 300, "Average trade size in shares")
	seed := flag.Int64("seed", 1, "RNG seed")
	flag.Parse()

	if *configPath == "" {
		log.Fatalf("config path is required")
	}
	if *ticks <= 0 {
		log.Fatalf("ticks must be > 0")
	}
	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	day := time.Now().In(loaded.Location)
	if *date != "" {
		day, err = time.ParseInLocation("20060102", *date, loaded.Location)
		if err != nil {
			log.Fatalf("invalid date: %v", err)
		}
	}
	sessionOpen := time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, loaded.Location)
	sessionClose := time.Date(day.Year(), day.Month(), day.Day(), 15, 0, 0, 0, loaded.Location)
	step := sessionClose.Sub(sessionOpen) / time.Duration(*ticks)

	generators := make([]*mdg.Generator, 0, loaded.Registry.SymbolCount())
	for i := 0; i < loaded.Registry.SymbolCount(); i++ {
		sym, _ := loaded.Registry.SymbolAt(i)
		ratio := *gap
		if i%2 == 1 {
			ratio = -ratio
		}
		g, err := mdg.NewGenerator(uint32(sym.ID), mdg.Config{
			PrevClose:     *prevClose,
			GapRatio:      ratio,
			TickSize:      *tickSize,
			Volatility:    *volatility,
			MeanReversion: 0.01,
			BaseQty:       *baseQty,
			Seed:          *seed + int64(i),
		})
		if err != nil {
			log.Fatalf("generator init failed: %v", err)
		}
		generators = append(generators, g)
	}

	ctx := context.Background()
	writer, err := recorder.NewWriter(recorder.DefaultConfig(*outDir))
	if err != nil {
		log.Fatalf("capture init failed: %v", err)
	}
	if err := writer.Start(ctx); err != nil {
		log.Fatalf("capture start failed: %v", err)
	}

	queue := bus.NewQueue(1024)
	errCh := make(chan error, 1)
	var wg sync.WaitGroup
	metrics := obs.NewMetrics()
	traceGen := obs.NewTraceGenerator(uint64(*seed))

	wg.Add(1)
	go func() {
		defer wg.Done()
		queue.Run(ctx, func(e bus.Event) {
			if err := writer.TryAppend(e.Header, e.Payload); err != nil {
				select {
				case errCh <- err:
				default:
				}
			}
		})
	}()

	seq := uint64(0)
	for i := 0; i < *ticks; i++ {
		ts := sessionOpen.Add(time.Duration(i) * step)
		for _, g := range generators {
			seq++
			tick := g.Next()
			header := schema.NewHeader(schema.EventTick, 1, seq, ts.UnixNano(), ts.UnixNano())
			header.TraceID = traceGen.Next()
			payload := codec.EncodeTick(nil, tick)
			if err := queue.TryPublish(bus.Event{Header: header, Payload: payload}); err != nil {
				log.Fatalf("publish failed: %v", err)
			}
			metrics.ObserveEvent(header)
		}
	}

	queue.Close()
	wg.Wait()

	var appendErr error
	select {
	case appendErr = <-errCh:
	default:
	}

	if err := writer.Close(); err != nil {
		log.Fatalf("capture close failed: %v", err)
	}
	if appendErr != nil {
		log.Fatalf("capture append failed: %v", appendErr)
	}
	snapshot := metrics.Snapshot()
	log.Printf("generated: events=%v drops=%d", snapshot.EventCounts, snapshot.QueueDrops)
}
