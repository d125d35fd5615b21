package codec

import (
	"encoding/binary"
	"math"

	"main/internal/schema"
)

const BarPayloadSize = 64

// EncodeBar serializes a completed bar into a fixed-size payload.
func EncodeBar(dst []byte, bar schema.Bar) []byte {
	if cap(dst) < BarPayloadSize {
		dst = make([]byte, BarPayloadSize)
	} else {
		dst = dst[:BarPayloadSize]
	}

	binary.LittleEndian.PutUint32(dst[0:4], bar.SymbolID)
	binary.LittleEndian.PutUint32(dst[4:8], bar.IntervalSeconds)
	binary.LittleEndian.PutUint64(dst[8:16], uint64(bar.TsStart))
	binary.LittleEndian.PutUint64(dst[16:24], math.Float64bits(bar.Open))
	binary.LittleEndian.PutUint64(dst[24:32], math.Float64bits(bar.High))
	binary.LittleEndian.PutUint64(dst[32:40], math.Float64bits(bar.Low))
	binary.LittleEndian.PutUint64(dst[40:48], math.Float64bits(bar.Close))
	binary.LittleEndian.PutUint64(dst[48:56], math.Float64bits(bar.Volume))
	binary.LittleEndian.PutUint64(dst[56:64], math.Float64bits(bar.Turnover))

	return dst
}

// DecodeBar parses a fixed-size bar payload.
func DecodeBar(src []byte) (schema.Bar, bool) {
	if len(src) < BarPayloadSize {
		return schema.Bar{}, false
	}
	return schema.Bar{
		SymbolID:        binary.LittleEndian.Uint32(src[0:4]),
		IntervalSeconds: binary.LittleEndian.Uint32(src[4:8]),
		TsStart:         int64(binary.LittleEndian.Uint64(src[8:16])),
		Open:            math.Float64frombits(binary.LittleEndian.Uint64(src[16:24])),
		High:            math.Float64frombits(binary.LittleEndian.Uint64(src[24:32])),
		Low:             math.Float64frombits(binary.LittleEndian.Uint64(src[32:40])),
		Close:           math.Float64frombits(binary.LittleEndian.Uint64(src[40:48])),
		Volume:          math.Float64frombits(binary.LittleEndian.Uint64(src[48:56])),
		Turnover:        math.Float64frombits(binary.LittleEndian.Uint64(src[56:64])),
	}, true
}
