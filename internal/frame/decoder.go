// Package frame decodifica os frames binários enviados pelo wearable.
//
// Layout (little-endian, 18 bytes mínimos):
//
//	0  u32 Red
//	4  u32 IR
//	8  u32 Green
//	12 i16 AccelX
//	14 i16 AccelY
//	16 i16 AccelZ
//
// Bytes excedentes são ignorados.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"vitals_go/internal/models"
)

// Size é o tamanho mínimo de um frame válido
const Size = 18

// AccelScale converte contagens do acelerômetro em g
const AccelScale = 16384.0

// ErrInvalidFrame indica um frame menor que Size
var ErrInvalidFrame = errors.New("frame inválido")

// Decode decodifica um frame em uma amostra. O timestamp fica zerado;
// quem recebe o frame decide o relógio.
func Decode(b []byte) (models.ChannelSample, error) {
	if len(b) < Size {
		return models.ChannelSample{}, fmt.Errorf("%w: %d bytes (mínimo %d)", ErrInvalidFrame, len(b), Size)
	}

	le := binary.LittleEndian
	return models.ChannelSample{
		Red:    le.Uint32(b[0:4]),
		IR:     le.Uint32(b[4:8]),
		Green:  le.Uint32(b[8:12]),
		AccelX: int16(le.Uint16(b[12:14])),
		AccelY: int16(le.Uint16(b[14:16])),
		AccelZ: int16(le.Uint16(b[16:18])),
	}, nil
}

// DecodeAt decodifica o frame e marca a amostra com o timestamp informado
func DecodeAt(b []byte, ts time.Time) (models.ChannelSample, error) {
	s, err := Decode(b)
	if err != nil {
		return s, err
	}
	s.Timestamp = ts
	return s, nil
}

// Encode produz o frame de 18 bytes correspondente à amostra
func Encode(s models.ChannelSample) []byte {
	b := make([]byte, Size)
	le := binary.LittleEndian
	le.PutUint32(b[0:4], s.Red)
	le.PutUint32(b[4:8], s.IR)
	le.PutUint32(b[8:12], s.Green)
	le.PutUint16(b[12:14], uint16(s.AccelX))
	le.PutUint16(b[14:16], uint16(s.AccelY))
	le.PutUint16(b[16:18], uint16(s.AccelZ))
	return b
}

// Accel é a aceleração normalizada em g
type Accel struct {
	X, Y, Z float64
}

// Normalize converte as contagens brutas da amostra em g
func Normalize(s models.ChannelSample) Accel {
	return Accel{
		X: float64(s.AccelX) / AccelScale,
		Y: float64(s.AccelY) / AccelScale,
		Z: float64(s.AccelZ) / AccelScale,
	}
}

// Magnitude retorna a norma euclidiana da aceleração
func (a Accel) Magnitude() float64 {
	return math.Sqrt(a.X*a.X + a.Y*a.Y + a.Z*a.Z)
}

// ToCounts converte um valor em g para contagens int16, com saturação
func ToCounts(g float64) int16 {
	v := math.Round(g * AccelScale)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
