package codec

import (
	"encoding/binary"
	"math"

	"main/internal/schema"
)

const OrderAckPayloadSize = 40

// EncodeOrderAck serializes an order acknowledgment into a fixed-size payload.
func EncodeOrderAck(dst []byte, ack schema.OrderAck) []byte {
	if cap(dst) < OrderAckPayloadSize {
		dst = make([]byte, OrderAckPayloadSize)
	} else {
		dst = dst[:OrderAckPayloadSize]
	}

	binary.LittleEndian.PutUint64(dst[0:8], ack.OrderID)
	binary.LittleEndian.PutUint32(dst[8:12], ack.SymbolID)
	binary.LittleEndian.PutUint16(dst[12:14], uint16(ack.Status))
	binary.LittleEndian.PutUint16(dst[14:16], uint16(ack.Reason))
	binary.LittleEndian.PutUint64(dst[16:24], math.Float64bits(ack.Price))
	binary.LittleEndian.PutUint64(dst[24:32], math.Float64bits(ack.Qty))
	binary.LittleEndian.PutUint64(dst[32:40], math.Float64bits(ack.LeavesQty))

	return dst
}

// DecodeOrderAck parses a fixed-size order acknowledgment payload.
func DecodeOrderAck(src []byte) (schema.OrderAck, bool) {
	if len(src) < OrderAckPayloadSize {
		return schema.OrderAck{}, false
	}
	return schema.OrderAck{
		OrderID:   binary.LittleEndian.Uint64(src[0:8]),
		SymbolID:  binary.LittleEndian.Uint32(src[8:12]),
		Status:    schema.OrderAckStatus(binary.LittleEndian.Uint16(src[12:14])),
		Reason:    schema.OrderAckReason(binary.LittleEndian.Uint16(src[14:16])),
		Price:     math.Float64frombits(binary.LittleEndian.Uint64(src[16:24])),
		Qty:       math.Float64frombits(binary.LittleEndian.Uint64(src[24:32])),
		LeavesQty: math.Float64frombits(binary.LittleEndian.Uint64(src[32:40])),
	}, true
}
