package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"main/internal/codec"
	"main/internal/recorder"
	"main/internal/schema"
)

func main() {
	dir := flag.String("dir", "testdata/capture", "Capture directory")
	prefix := flag.String("prefix", "", "Capture file prefix (default: session)")
	speed := flag.Float64("speed", 0, "Playback speed (1=real-time, 0=no pacing)")
	useRecv := flag.Bool("use-recv-time", false, "Use receive timestamp for pacing")
	noChecksum := flag.Bool("no-checksum", false, "Disable checksum validation")
	maxPayload := flag.Int("max-payload", 0, "Max payload size in bytes (0=unlimited)")
	decode := flag.Bool("decode", false, "Decode known payload types")
	flag.Parse()

	cfg := recorder.PlaybackConfig{
		Dir:             *dir,
		FilePrefix:      *prefix,
		Speed:           *speed,
		UseRecvTime:     *useRecv,
		DisableChecksum: *noChecksum,
		MaxPayloadSize:  *maxPayload,
	}
	pb, err := recorder.NewPlayback(cfg)
	if err != nil {
		log.Fatalf("playback init failed: %v", err)
	}

	ctx := context.Background()
	var index int
	err = pb.Run(ctx, func(header schema.EventHeader, payload []byte) error {
		index++
		fmt.Printf("%06d seq=%d type=%s ts_event=%d ts_recv=%d len=%d\n", index, header.Seq, eventTypeName(header.Type), header.TsEvent, header.TsRecv, len(payload))
		if *decode {
			printDecoded(header.Type, payload)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("playback run failed: %v", err)
	}
}

func eventTypeName(t schema.EventType) string {
	switch t {
	case schema.EventTick:
		return "Tick"
	case schema.EventBar:
		return "Bar"
	case schema.EventOrderIntent:
		return "OrderIntent"
	case schema.EventOrderAck:
		return "OrderAck"
	case schema.EventFill:
		return "Fill"
	case schema.EventRiskDecision:
		return "RiskDecision"
	case schema.EventTimer:
		return "Timer"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

func printDecoded(t schema.EventType, payload []byte) {
	switch t {
	case schema.EventTick:
		tick, ok := codec.DecodeTick(payload)
		if !ok {
			fmt.Println("  decode Tick failed")
			return
		}
		fmt.Printf("  tick symbol=%d price=%.2f volume=%.0f turnover=%.0f\n",
			tick.SymbolID, tick.Price, tick.Volume, tick.Turnover)
	case schema.EventBar:
		bar, ok := codec.DecodeBar(payload)
		if !ok {
			fmt.Println("  decode Bar failed")
			return
		}
		fmt.Printf("  bar symbol=%d interval=%ds ohlc=%.2f/%.2f/%.2f/%.2f volume=%.0f\n",
			bar.SymbolID, bar.IntervalSeconds, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	case schema.EventOrderIntent:
		order, ok := codec.DecodeOrderIntent(payload)
		if !ok {
			fmt.Println("  decode OrderIntent failed")
			return
		}
		fmt.Printf("  order id=%d symbol=%d side=%d type=%d price=%.2f qty=%.0f\n",
			order.OrderID, order.SymbolID, order.Side, order.Type, order.Price, order.Qty)
	case schema.EventOrderAck:
		ack, ok := codec.DecodeOrderAck(payload)
		if !ok {
			fmt.Println("  decode OrderAck failed")
			return
		}
		fmt.Printf("  ack id=%d symbol=%d status=%d reason=%d price=%.2f qty=%.0f leaves=%.0f\n",
			ack.OrderID, ack.SymbolID, ack.Status, ack.Reason, ack.Price, ack.Qty, ack.LeavesQty)
	case schema.EventRiskDecision:
		decision, ok := codec.DecodeRiskDecision(payload)
		if !ok {
			fmt.Println("  decode RiskDecision failed")
			return
		}
		fmt.Printf("  risk id=%d action=%d reason=%d price=%.2f qty=%.0f pos=%.0f\n",
			decision.OrderID, decision.Action, decision.Reason, decision.ProposedPrice, decision.ProposedQty,
			decision.CurrentPos)
	case schema.EventFill:
		fill, ok := codec.DecodeFill(payload)
		if !ok {
			fmt.Println("  decode Fill failed")
			return
		}
		fmt.Printf("  fill id=%d symbol=%d side=%d price=%.2f qty=%.0f\n",
			fill.OrderID, fill.SymbolID, fill.Side, fill.Price, fill.Qty)
	default:
		return
	}
}
