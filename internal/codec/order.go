package codec

import (
	"encoding/binary"
	"math"

	"main/internal/schema"
)

const OrderIntentPayloadSize = 32

// EncodeOrderIntent serializes an order intent into a fixed-size payload.
func EncodeOrderIntent(dst []byte, intent schema.OrderIntent) []byte {
	if cap(dst) < OrderIntentPayloadSize {
		dst = make([]byte, OrderIntentPayloadSize)
	} else {
		dst = dst[:OrderIntentPayloadSize]
	}

	binary.LittleEndian.PutUint64(dst[0:8], intent.OrderID)
	binary.LittleEndian.PutUint32(dst[8:12], intent.SymbolID)
	binary.LittleEndian.PutUint16(dst[12:14], uint16(intent.Side))
	binary.LittleEndian.PutUint16(dst[14:16], uint16(intent.Type))
	binary.LittleEndian.PutUint64(dst[16:24], math.Float64bits(intent.Price))
	binary.LittleEndian.PutUint64(dst[24:32], math.Float64bits(intent.Qty))

	return dst
}

// DecodeOrderIntent parses a fixed-size order intent payload.
func DecodeOrderIntent(src []byte) (schema.OrderIntent, bool) {
	if len(src) < OrderIntentPayloadSize {
		return schema.OrderIntent{}, false
	}
	return schema.OrderIntent{
		OrderID:  binary.LittleEndian.Uint64(src[0:8]),
		SymbolID: binary.LittleEndian.Uint32(src[8:12]),
		Side:     schema.OrderSide(binary.LittleEndian.Uint16(src[12:14])),
		Type:     schema.OrderType(binary.LittleEndian.Uint16(src[14:16])),
		Price:    math.Float64frombits(binary.LittleEndian.Uint64(src[16:24])),
		Qty:      math.Float64frombits(binary.LittleEndian.Uint64(src[24:32])),
	}, true
}
