package codec

import (
	"encoding/binary"

	"main/internal/schema"
)

const TimerPayloadSize = 8

// EncodeTimer serializes a timer payload.
func EncodeTimer(dst []byte, timer schema.Timer) []byte {
	if cap(dst) < TimerPayloadSize {
		dst = make([]byte, TimerPayloadSize)
	} else {
		dst = dst[:TimerPayloadSize]
	}

	binary.LittleEndian.PutUint32(dst[0:4], timer.SymbolID)
	binary.LittleEndian.PutUint32(dst[4:8], timer.Reserved)

	return dst
}

// DecodeTimer parses a fixed-size timer payload.
func DecodeTimer(src []byte) (schema.Timer, bool) {
	if len(src) < TimerPayloadSize {
		return schema.Timer{}, false
	}
	return schema.Timer{
		SymbolID: binary.LittleEndian.Uint32(src[0:4]),
		Reserved: binary.LittleEndian.Uint32(src[4:8]),
	}, true
}
