package codec

import (
	"encoding/binary"
	"math"

	"main/internal/schema"
)

const TickPayloadSize = 32

// EncodeTick serializes a tick into a fixed-size payload.
func EncodeTick(dst []byte, tick schema.Tick) []byte {
	if cap(dst) < TickPayloadSize {
		dst = make([]byte, TickPayloadSize)
	} else {
		dst = dst[:TickPayloadSize]
	}

	binary.LittleEndian.PutUint32(dst[0:4], tick.SymbolID)
	binary.LittleEndian.PutUint16(dst[4:6], tick.Flags)
	binary.LittleEndian.PutUint16(dst[6:8], tick.Reserved)
	binary.LittleEndian.PutUint64(dst[8:16], math.Float64bits(tick.Price))
	binary.LittleEndian.PutUint64(dst[16:24], math.Float64bits(tick.Volume))
	binary.LittleEndian.PutUint64(dst[24:32], math.Float64bits(tick.Turnover))

	return dst
}

// DecodeTick parses a fixed-size tick payload.
func DecodeTick(src []byte) (schema.Tick, bool) {
	if len(src) < TickPayloadSize {
		return schema.Tick{}, false
	}
	return schema.Tick{
		SymbolID: binary.LittleEndian.Uint32(src[0:4]),
		Flags:    binary.LittleEndian.Uint16(src[4:6]),
		Reserved: binary.LittleEndian.Uint16(src[6:8]),
		Price:    math.Float64frombits(binary.LittleEndian.Uint64(src[8:16])),
		Volume:   math.Float64frombits(binary.LittleEndian.Uint64(src[16:24])),
		Turnover: math.Float64frombits(binary.LittleEndian.Uint64(src[24:32])),
	}, true
}
