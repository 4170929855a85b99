package utils

import (
	"testing"
	"time"
)

func TestS7Encodings(t *testing.T) {
	if b := Int16ToBytes(-2); b[0] != 0xFF || b[1] != 0xFE {
		t.Fatalf("Int16ToBytes(-2) = % X", b)
	}
	if b := Int32ToBytes(0x01020304); b[0] != 1 || b[3] != 4 {
		t.Fatalf("Int32ToBytes = % X", b)
	}
	if v := BytesToFloat32(Float32ToBytes(97.25)); v != 97.25 {
		t.Fatalf("float32 = %v", v)
	}
}

func TestFormatFloat(t *testing.T) {
	cases := map[float64]string{97.50: "97.5", 100: "100", 0.126: "0.13"}
	for in, want := range cases {
		if got := FormatFloat(in, 2); got != want {
			t.Errorf("FormatFloat(%v) = %q, want %q", in, got, want)
		}
	}
	if FormatOptionalInt(nil) != "-" || FormatOptionalFloat(nil, 1) != "-" {
		t.Error("ausente deve ser formatado como -")
	}
}

func TestParseTimestamp(t *testing.T) {
	ms, err := ParseTimestamp("1700000000123")
	if err != nil || UnixMillis(ms) != 1700000000123 {
		t.Fatalf("ms: %v %v", ms, err)
	}
	sec, err := ParseTimestamp("1700000000")
	if err != nil || sec.Unix() != 1700000000 {
		t.Fatalf("s: %v %v", sec, err)
	}
	if _, err := ParseTimestamp("ontem"); err == nil {
		t.Fatal("esperado erro")
	}
}

func TestFormatDuration(t *testing.T) {
	if got := FormatDuration(90 * time.Minute); got != "1h 30m 0s" {
		t.Fatalf("got %q", got)
	}
	if got := FormatDuration(42 * time.Second); got != "42s" {
		t.Fatalf("got %q", got)
	}
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"1", "true", "SIM"} {
		if v, err := ParseBool(s); err != nil || !v {
			t.Errorf("ParseBool(%q) = %v, %v", s, v, err)
		}
	}
	if _, err := ParseBool("talvez"); err == nil {
		t.Error("esperado erro")
	}
}
