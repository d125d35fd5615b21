package codec

import (
	"encoding/binary"
	"math"

	"main/internal/schema"
)

const RiskDecisionPayloadSize = 40

// EncodeRiskDecision serializes a risk decision into a fixed-size payload.
func EncodeRiskDecision(dst []byte, decision schema.RiskDecision) []byte {
	if cap(dst) < RiskDecisionPayloadSize {
		dst = make([]byte, RiskDecisionPayloadSize)
	} else {
		dst = dst[:RiskDecisionPayloadSize]
	}

	binary.LittleEndian.PutUint64(dst[0:8], decision.OrderID)
	binary.LittleEndian.PutUint32(dst[8:12], decision.SymbolID)
	binary.LittleEndian.PutUint16(dst[12:14], uint16(decision.Action))
	binary.LittleEndian.PutUint16(dst[14:16], uint16(decision.Reason))
	binary.LittleEndian.PutUint64(dst[16:24], math.Float64bits(decision.ProposedQty))
	binary.LittleEndian.PutUint64(dst[24:32], math.Float64bits(decision.ProposedPrice))
	binary.LittleEndian.PutUint64(dst[32:40], math.Float64bits(decision.CurrentPos))

	return dst
}

// DecodeRiskDecision parses a fixed-size risk decision payload.
func DecodeRiskDecision(src []byte) (schema.RiskDecision, bool) {
	if len(src) < RiskDecisionPayloadSize {
		return schema.RiskDecision{}, false
	}
	return schema.RiskDecision{
		OrderID:       binary.LittleEndian.Uint64(src[0:8]),
		SymbolID:      binary.LittleEndian.Uint32(src[8:12]),
		Action:        schema.RiskAction(binary.LittleEndian.Uint16(src[12:14])),
		Reason:        schema.RiskReason(binary.LittleEndian.Uint16(src[14:16])),
		ProposedQty:   math.Float64frombits(binary.LittleEndian.Uint64(src[16:24])),
		ProposedPrice: math.Float64frombits(binary.LittleEndian.Uint64(src[24:32])),
		CurrentPos:    math.Float64frombits(binary.LittleEndian.Uint64(src[32:40])),
	}, true
}
