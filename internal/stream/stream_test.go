package stream

import (
	"bytes"
	"testing"
	"time"

	"vitals_go/internal/frame"
	"vitals_go/internal/models"
)

func TestSplitFrames(t *testing.T) {
	one := frame.Encode(models.ChannelSample{Red: 1, IR: 2, Green: 3})
	two := frame.Encode(models.ChannelSample{Red: 4, IR: 5, Green: 6})

	batch := SplitFrames(append(append([]byte{}, one...), two...))
	if len(batch) != 2 || !bytes.Equal(batch[0], one) || !bytes.Equal(batch[1], two) {
		t.Fatalf("lote dividido incorretamente: %v", batch)
	}

	odd := SplitFrames([]byte{1, 2, 3})
	if len(odd) != 1 || len(odd[0]) != 3 {
		t.Fatalf("mensagem de tamanho ímpar deveria seguir inteira: %v", odd)
	}
}

func TestCodecs(t *testing.T) {
	bpm := 64
	spo2 := 98.5
	in := models.VitalsResult{
		Seq:          42,
		DeviceID:     "abc",
		HeartRateBPM: &bpm,
		IsWorn:       true,
		SpO2Percent:  &spo2,
		Activity:     models.ActivityLight,
		Timestamp:    time.Unix(1700000000, 0).UTC(),
	}

	for _, name := range []string{"json", "msgpack"} {
		codec, err := NewCodec(name)
		if err != nil {
			t.Fatalf("NewCodec(%s): %v", name, err)
		}
		data, err := codec.Marshal(in)
		if err != nil {
			t.Fatalf("%s Marshal: %v", name, err)
		}
		var out models.VitalsResult
		if err := codec.Unmarshal(data, &out); err != nil {
			t.Fatalf("%s Unmarshal: %v", name, err)
		}
		if out.Seq != 42 || out.HeartRateBPM == nil || *out.HeartRateBPM != 64 ||
			out.SpO2Percent == nil || *out.SpO2Percent != 98.5 || out.Activity != models.ActivityLight ||
			!out.Timestamp.Equal(in.Timestamp) {
			t.Fatalf("%s: resultado decodificado diverge: %+v", name, out)
		}
	}

	if _, err := NewCodec("xml"); err == nil {
		t.Fatal("codec desconhecido deveria falhar")
	}
}

func TestMsgpackIsSmaller(t *testing.T) {
	res := models.VitalsResult{Seq: 1, Activity: models.ActivityStationary, Timestamp: time.Now()}
	j, _ := jsonCodec{}.Marshal(res)
	m, _ := msgpackCodec{}.Marshal(res)
	if len(m) >= len(j) {
		t.Fatalf("msgpack (%d bytes) deveria ser menor que json (%d bytes)", len(m), len(j))
	}
}
