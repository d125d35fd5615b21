package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"

	"main/internal/bus"
	"main/internal/codec"
	"main/internal/feed"
	"main/internal/gateway"
	"main/internal/journal"
	"main/internal/master"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/recorder"
	"main/internal/risk"
	"main/internal/schema"
	"main/internal/state"
	"main/internal/strategy"
	"main/pkg/conn"
)

const eventSource uint16 = 1

// publisher assigns sequence numbers and routes events to the
// per-symbol shards. The shard consumer mirrors everything it applies
// into the session capture.
type publisher struct {
	shards  *bus.Shards
	writer  *recorder.Writer
	metrics *obs.Metrics
	seq     atomic.Uint64
}

func (p *publisher) publish(eventType schema.EventType, symbolID uint32, ts time.Time, payload []byte, traceID uint64) {
	next := p.seq.Add(1)
	header := schema.NewHeader(eventType, eventSource, next, ts.UnixNano(), time.Now().UTC().UnixNano())
	if traceID == 0 {
		traceID = next
	}
	header.TraceID = traceID
	if err := p.shards.Publish(symbolID, bus.Event{Header: header, Payload: payload}); err != nil {
		if errors.Is(err, bus.ErrQueueFull) {
			p.metrics.IncQueueDrop()
		} else {
			p.metrics.IncQueueClosed()
		}
	}
}

// record appends an event straight to the capture, bypassing the
// shards. Used for events born on a shard goroutine.
func (p *publisher) record(eventType schema.EventType, ts time.Time, payload []byte) {
	if p.writer == nil {
		return
	}
	next := p.seq.Add(1)
	header := schema.NewHeader(eventType, eventSource, next, ts.UnixNano(), time.Now().UTC().UnixNano())
	header.TraceID = next
	if err := p.writer.TryAppend(header, payload); err != nil {
		log.Printf("capture append failed: %v", err)
	}
}

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	configReload := flag.Duration("config-reload-interval", 2*time.Second, "Risk limit reload interval (0=disable)")
	autoFill := flag.Bool("auto-fill", true, "Fill simulated orders immediately")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disabled)")
	snapshotPath := flag.String("snapshot-path", "", "Position snapshot output (default: <capture-dir>/positions.json)")
	recoverEnabled := flag.Bool("recover", false, "Recover positions from snapshot + capture tail")
	recoverSnapshot := flag.String("recover-snapshot", "", "Snapshot path for recovery (default: <capture-dir>/positions.json)")
	recoverNoChecksum := flag.Bool("recover-no-checksum", false, "Disable checksum validation for recovery")
	recoverMaxPayload := flag.Int("recover-max-payload", 0, "Max payload size in bytes for recovery (0=unlimited)")

	replayDir := flag.String("replay-dir", "", "Capture directory for local replay mode")
	replayPrefix := flag.String("replay-prefix", "", "Capture file prefix (default: session)")
	replaySpeed := flag.Float64("replay-speed", 0, "Playback speed (1=real-time, 0=no pacing)")
	replayUseRecv := flag.Bool("replay-use-recv-time", false, "Use receive timestamp for pacing")
	replayNoChecksum := flag.Bool("replay-no-checksum", false, "Disable checksum validation")

	feedReplayDate := flag.String("feed-replay-date", "", "Ask the tick server to replay a day (YYYYMMDD)")
	feedReplaySpeed := flag.Float64("feed-replay-speed", 1, "Server-side replay speed")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *configPath == "" {
		log.Fatalf("config path is required")
	}
	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if *pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "trader",
			ServerAddress:   *pyroscopeAddr,
			Logger:          emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	table, err := loadMaster(ctx, loaded)
	if err != nil {
		log.Fatalf("stock master load failed: %v", err)
	}

	metrics := obs.NewMetrics()
	traceGen := obs.NewTraceGenerator(0)
	riskEngine := risk.NewEngine(loaded.Risk)
	positions := state.NewPositionReducer()

	var recoveredSeq uint64
	if *recoverEnabled {
		recovered, err := state.RecoverPositions(ctx, state.RecoverConfig{
			WALDir:          loaded.Recorder.Dir,
			SnapshotPath:    resolveSnapshotPath(loaded.Recorder.Dir, *recoverSnapshot),
			DisableChecksum: *recoverNoChecksum,
			MaxPayloadSize:  *recoverMaxPayload,
		})
		if err != nil {
			log.Fatalf("position recovery failed: %v", err)
		}
		positions = recovered.Positions
		recoveredSeq = recovered.LastSeq
		log.Printf("recovered positions=%d last_seq=%d", positions.Count(), recoveredSeq)
	}

	var writer *recorder.Writer
	if loaded.Recorder.Enabled && *replayDir == "" {
		writer, err = recorder.NewWriter(recorder.DefaultConfig(loaded.Recorder.Dir))
		if err != nil {
			log.Fatalf("capture writer failed: %v", err)
		}
		if err := writer.Start(ctx); err != nil {
			log.Fatalf("capture writer start failed: %v", err)
		}
	}

	shards := bus.NewShards(loaded.Registry.SymbolCount(), 1024)
	pub := &publisher{shards: shards, writer: writer, metrics: metrics}
	pub.seq.Store(recoveredSeq)

	sim := gateway.NewSim(gateway.SimConfig{
		AutoAck:           true,
		AutoFill:          *autoFill,
		ResendOnReconnect: true,
	}, gateway.Callbacks{
		OnAck: func(ack schema.OrderAck) {
			now := time.Now().In(loaded.Location)
			pub.publish(schema.EventOrderAck, ack.SymbolID, now, codec.EncodeOrderAck(nil, ack), traceGen.Next())
		},
		OnFill: func(fill schema.Fill) {
			now := time.Now().In(loaded.Location)
			pub.publish(schema.EventFill, fill.SymbolID, now, codec.EncodeFill(nil, fill), traceGen.Next())
		},
	})

	deps := strategy.Deps{
		Registry:  loaded.Registry,
		Master:    table,
		Gateway:   sim,
		Risk:      riskEngine,
		Metrics:   metrics,
		Positions: positions,
		Location:  loaded.Location,
		OnIntent: func(intent schema.OrderIntent, ts time.Time) {
			pub.record(schema.EventOrderIntent, ts, codec.EncodeOrderIntent(nil, intent))
		},
		OnRisk: func(decision schema.RiskDecision, ts time.Time) {
			pub.record(schema.EventRiskDecision, ts, codec.EncodeRiskDecision(nil, decision))
		},
		OnBar: func(bar schema.Bar, ts time.Time) {
			pub.record(schema.EventBar, ts, codec.EncodeBar(nil, bar))
		},
		WindowMinutes: loaded.BarWindowMinutes,
	}
	if deps.WindowMinutes > 1 {
		deps.OnWindowBar = func(bar schema.Bar) {
			end := time.Unix(0, bar.TsStart).Add(time.Duration(bar.IntervalSeconds) * time.Second)
			pub.record(schema.EventBar, end, codec.EncodeBar(nil, bar))
		}
	}

	var jnl *journal.Journal
	if loaded.Journal.Enabled {
		jnl, err = journal.New(conn.Option{
			Host:     loaded.Journal.Host,
			Port:     loaded.Journal.Port,
			User:     loaded.Journal.User,
			Password: loaded.Journal.Password,
			Database: loaded.Journal.Database,
		})
		if err != nil {
			log.Fatalf("journal open failed: %v", err)
		}
		deps.Journal = jnl
	}

	engine, err := strategy.New(loaded.Strategy, deps)
	if err != nil {
		log.Fatalf("engine init failed: %v", err)
	}

	handler := func(e bus.Event) {
		if writer != nil && e.Header.Type != schema.EventTimer {
			if err := writer.TryAppend(e.Header, e.Payload); err != nil {
				log.Printf("capture append failed: %v", err)
			}
		}
		engine.HandleEvent(e)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		shards.Run(ctx, handler)
	}()

	if *replayDir != "" {
		err = runReplay(ctx, recorder.PlaybackConfig{
			Dir:             *replayDir,
			FilePrefix:      *replayPrefix,
			Speed:           *replaySpeed,
			UseRecvTime:     *replayUseRecv,
			DisableChecksum: *replayNoChecksum,
		}, pub, sim)
	} else {
		err = runLive(ctx, loaded, pub, sim, riskEngine, traceGen, *configPath, *configReload, *feedReplayDate, *feedReplaySpeed)
	}

	shards.Close()
	wg.Wait()

	if writer != nil {
		if closeErr := writer.Close(); closeErr != nil {
			log.Printf("capture close failed: %v", closeErr)
		}
		path := resolveSnapshotPath(loaded.Recorder.Dir, *snapshotPath)
		snapshot := positions.SnapshotWithMeta(pub.seq.Load(), time.Now().UTC().UnixNano())
		if err := state.WriteSnapshot(path, snapshot); err != nil {
			log.Printf("snapshot write failed: %v", err)
		}
	}
	if jnl != nil {
		if closeErr := jnl.Close(); closeErr != nil {
			log.Printf("journal close failed: %v", closeErr)
		}
	}
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}

	snapshot := metrics.Snapshot()
	log.Printf("metrics: events=%v signals=%d orders=%d cancels=%d rejects=%d round_trips=%d timeouts=%d guard_cancels=%d force_exits=%d drops=%d",
		snapshot.EventCounts, snapshot.Signals, snapshot.OrdersPlaced, snapshot.OrdersCanceled, snapshot.OrderRejects,
		snapshot.RoundTrips, snapshot.TimeoutEscalations, snapshot.GuardEntryCancels, snapshot.GuardForceExits, snapshot.QueueDrops)
}

func runLive(ctx context.Context, loaded ops.Loaded, pub *publisher, sim *gateway.Sim, riskEngine *risk.Engine, traceGen *obs.TraceGenerator, configPath string, reloadInterval time.Duration, feedReplayDate string, feedReplaySpeed float64) error {
	f := feed.New(ctx, loaded.Feed.URL, loaded.Feed.ReplayURL)
	if err := f.StartWebsocket(ctx); err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	defer f.Close()

	symbols := make([]string, 0, loaded.Registry.SymbolCount())
	for i := 0; i < loaded.Registry.SymbolCount(); i++ {
		sym, _ := loaded.Registry.SymbolAt(i)
		symbols = append(symbols, sym.Code)
	}
	if err := f.Subscribe(ctx, symbols); err != nil {
		return fmt.Errorf("feed subscribe: %w", err)
	}
	go f.RunHeartbeat(ctx)

	tracker := feed.NewTracker(loaded.Location)
	unsubscribe := f.ObserveFrames(ctx, func(symbol string, frames []feed.Frame) {
		id, ok := loaded.Registry.SymbolIDByCode(symbol)
		if !ok {
			return
		}
		for _, frame := range frames {
			tick, ts, ok := tracker.Convert(uint32(id), frame, time.Now())
			if !ok {
				continue
			}
			sim.MarkPrice(tick.SymbolID, tick.Price)
			pub.publish(schema.EventTick, tick.SymbolID, ts, codec.EncodeTick(nil, tick), traceGen.Next())
		}
	})
	defer unsubscribe()

	if feedReplayDate != "" {
		if err := f.StartReplay(ctx, feedReplayDate, symbols, feedReplaySpeed); err != nil {
			return fmt.Errorf("feed replay: %w", err)
		}
		defer func() {
			if err := f.StopReplay(context.Background()); err != nil {
				log.Printf("feed replay stop failed: %v", err)
			}
		}()
	}

	go runTimer(ctx, loaded, pub)
	if reloadInterval > 0 {
		go watchRiskConfig(ctx, configPath, reloadInterval, riskEngine)
	}

	<-ctx.Done()
	return nil
}

// runTimer pulses every instrument once a second so stale bars flush
// and exit timeouts keep firing when the tape goes quiet.
func runTimer(ctx context.Context, loaded ops.Loaded, pub *publisher) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			now = now.In(loaded.Location)
			for i := 0; i < loaded.Registry.SymbolCount(); i++ {
				sym, _ := loaded.Registry.SymbolAt(i)
				id := uint32(sym.ID)
				pub.publish(schema.EventTimer, id, now, codec.EncodeTimer(nil, schema.Timer{SymbolID: id}), 0)
			}
		}
	}
}

func watchRiskConfig(ctx context.Context, path string, interval time.Duration, engine *risk.Engine) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastMod time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil {
				log.Printf("config stat failed: %v", err)
				continue
			}
			if !info.ModTime().After(lastMod) {
				continue
			}
			cfg, err := ops.LoadRiskConfig(path)
			if err != nil {
				log.Printf("risk config reload failed: %v", err)
				continue
			}
			engine.SetConfig(cfg)
			lastMod = info.ModTime()
			log.Printf("risk limits reloaded: %s", path)
		}
	}
}

func runReplay(ctx context.Context, cfg recorder.PlaybackConfig, pub *publisher, sim *gateway.Sim) error {
	pb, err := recorder.NewPlayback(cfg)
	if err != nil {
		return err
	}
	return pb.Run(ctx, func(header schema.EventHeader, payload []byte) error {
		symbolID, ok := eventSymbolID(header, payload)
		if !ok {
			return nil
		}
		if header.Type == schema.EventTick {
			if tick, ok := codec.DecodeTick(payload); ok {
				sim.MarkPrice(tick.SymbolID, tick.Price)
			}
		}
		copied := make([]byte, len(payload))
		copy(copied, payload)
		pub.publish(header.Type, symbolID, time.Unix(0, header.TsEvent), copied, header.TraceID)
		return nil
	})
}

func eventSymbolID(header schema.EventHeader, payload []byte) (uint32, bool) {
	switch header.Type {
	case schema.EventTick:
		t, ok := codec.DecodeTick(payload)
		return t.SymbolID, ok
	case schema.EventBar:
		b, ok := codec.DecodeBar(payload)
		return b.SymbolID, ok
	case schema.EventOrderIntent:
		i, ok := codec.DecodeOrderIntent(payload)
		return i.SymbolID, ok
	case schema.EventOrderAck:
		a, ok := codec.DecodeOrderAck(payload)
		return a.SymbolID, ok
	case schema.EventFill:
		f, ok := codec.DecodeFill(payload)
		return f.SymbolID, ok
	case schema.EventRiskDecision:
		d, ok := codec.DecodeRiskDecision(payload)
		return d.SymbolID, ok
	case schema.EventTimer:
		t, ok := codec.DecodeTimer(payload)
		return t.SymbolID, ok
	default:
		return 0, false
	}
}

func resolveSnapshotPath(dir string, path string) string {
	if path != "" {
		return path
	}
	return filepath.Join(dir, "positions.json")
}

func loadMaster(ctx context.Context, loaded ops.Loaded) (*master.Table, error) {
	switch {
	case loaded.Master.File != "":
		return master.LoadFile(loaded.Master.File)
	case loaded.Master.URL != "":
		return master.NewClient(loaded.Master.URL).Fetch(ctx, time.Now().In(loaded.Location))
	default:
		log.Printf("no stock master configured; instruments stay ineligible")
		return nil, nil
	}
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
