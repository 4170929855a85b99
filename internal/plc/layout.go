package plc

import (
	"math"

	"vitals_go/internal/models"
	"vitals_go/pkg/utils"
)

// Offsets no DB de sinais vitais (big-endian, tipos S7)
const (
	OffsetBPM        = 0  // INT
	OffsetConfidence = 2  // REAL
	OffsetSpO2       = 6  // REAL
	OffsetQuality    = 10 // REAL
	OffsetActivity   = 14 // INT
	OffsetFlags      = 16 // BYTE
	OffsetStatus     = 17 // BYTE
	OffsetSeq        = 18 // DINT

	RecordSize = 22
)

// Bits do byte de flags
const (
	FlagWorn      = 1 << 0
	FlagBPMValid  = 1 << 1
	FlagSpO2Valid = 1 << 2
)

// ActivityCode converte a atividade para o código gravado no PLC
func ActivityCode(a models.Activity) int16 {
	switch a {
	case models.ActivityStationary:
		return 1
	case models.ActivityLight:
		return 2
	case models.ActivityActive:
		return 3
	}
	return 0
}

// StatusCode converte o status do sensor para o código gravado no PLC
func StatusCode(status string) byte {
	switch status {
	case models.StatusOK:
		return 1
	case models.StatusNotWorn:
		return 2
	case models.StatusNoSignal:
		return 3
	case models.StatusConnectionFailure:
		return 4
	}
	return 0
}

// EncodeVitals monta o registro gravado no DB
func EncodeVitals(res models.VitalsResult, status string) []byte {
	buf := make([]byte, RecordSize)
	var flags byte

	if res.IsWorn {
		flags |= FlagWorn
	}
	if res.HeartRateBPM != nil {
		flags |= FlagBPMValid
		copy(buf[OffsetBPM:], utils.Int16ToBytes(utils.ClampInt16(*res.HeartRateBPM)))
	}
	copy(buf[OffsetConfidence:], utils.Float32ToBytes(float32(res.HeartRateConfidence)))

	if res.SpO2Percent != nil {
		flags |= FlagSpO2Valid
		copy(buf[OffsetSpO2:], utils.Float32ToBytes(float32(*res.SpO2Percent)))
		if res.SpO2Quality != nil {
			copy(buf[OffsetQuality:], utils.Float32ToBytes(float32(*res.SpO2Quality)))
		}
	}

	copy(buf[OffsetActivity:], utils.Int16ToBytes(ActivityCode(res.Activity)))
	buf[OffsetFlags] = flags
	buf[OffsetStatus] = StatusCode(status)
	copy(buf[OffsetSeq:], utils.Int32ToBytes(int32(res.Seq&math.MaxInt32)))
	return buf
}
