package utils

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Float32ToBytes converte um float32 para 4 bytes big-endian (REAL do S7)
func Float32ToBytes(val float32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, math.Float32bits(val))
	return b
}

// BytesToFloat32 converte 4 bytes big-endian para float32
func BytesToFloat32(b []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b))
}

// Int16ToBytes converte um int16 para 2 bytes big-endian (INT do S7)
func Int16ToBytes(val int16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(val))
	return b
}

// Int32ToBytes converte um int32 para 4 bytes big-endian (DINT do S7)
func Int32ToBytes(val int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(val))
	return b
}

// FormatFloat formata um float com precisão específica, sem zeros à direita
func FormatFloat(value float64, precision int) string {
	s := strconv.FormatFloat(value, 'f', precision, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

// FormatOptionalInt formata um inteiro opcional, "-" quando ausente
func FormatOptionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

// FormatOptionalFloat formata um float opcional, "-" quando ausente
func FormatOptionalFloat(v *float64, precision int) string {
	if v == nil {
		return "-"
	}
	return FormatFloat(*v, precision)
}

// ClampInt16 limita um inteiro ao intervalo de int16
func ClampInt16(v int) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// ParseBool aceita true/false, 1/0, yes/no, sim/não
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "sim", "on":
		return true, nil
	case "0", "false", "no", "não", "nao", "off":
		return false, nil
	}
	return false, fmt.Errorf("valor booleano inválido: %q", s)
}
