package frame

import (
	"errors"
	"math"
	"testing"

	"vitals_go/internal/models"
)

func TestDecodeExact(t *testing.T) {
	b := []byte{
		0x78, 0x56, 0x34, 0x12, // Red
		0x01, 0x00, 0x00, 0x00, // IR
		0xFF, 0xFF, 0xFF, 0xFF, // Green
		0x00, 0x40, // AccelX = 16384
		0x00, 0xC0, // AccelY = -16384
		0xFF, 0xFF, // AccelZ = -1
	}

	s, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Red != 0x12345678 || s.IR != 1 || s.Green != math.MaxUint32 {
		t.Fatalf("canais ópticos incorretos: %+v", s)
	}
	if s.AccelX != 16384 || s.AccelY != -16384 || s.AccelZ != -1 {
		t.Fatalf("acelerômetro incorreto: %+v", s)
	}

	a := Normalize(s)
	if a.X != 1.0 || a.Y != -1.0 {
		t.Fatalf("normalização incorreta: %+v", a)
	}
	want := math.Sqrt(2 + math.Pow(1.0/AccelScale, 2))
	if math.Abs(a.Magnitude()-want) > 1e-12 {
		t.Fatalf("magnitude = %v, esperado %v", a.Magnitude(), want)
	}
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	s := models.ChannelSample{Red: 10, IR: 20, Green: 30, AccelX: -5, AccelY: 6, AccelZ: 16384}
	b := append(Encode(s), 0xAA, 0xBB, 0xCC)

	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != s {
		t.Fatalf("got %+v, want %+v", got, s)
	}
}

func TestDecodeShortFrame(t *testing.T) {
	for _, n := range []int{0, 1, 12, 17} {
		_, err := Decode(make([]byte, n))
		if !errors.Is(err, ErrInvalidFrame) {
			t.Fatalf("len %d: esperado ErrInvalidFrame, got %v", n, err)
		}
	}
}

func TestEncodeRoundTripExtremes(t *testing.T) {
	s := models.ChannelSample{
		Red: math.MaxUint32, IR: 0, Green: 1 << 31,
		AccelX: math.MinInt16, AccelY: math.MaxInt16, AccelZ: 0,
	}
	got, err := Decode(Encode(s))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != s {
		t.Fatalf("got %+v, want %+v", got, s)
	}
}

func TestToCountsSaturates(t *testing.T) {
	if ToCounts(1.0) != 16384 {
		t.Fatalf("ToCounts(1) = %d", ToCounts(1.0))
	}
	if ToCounts(10) != math.MaxInt16 || ToCounts(-10) != math.MinInt16 {
		t.Fatal("esperado saturação nos limites int16")
	}
}
