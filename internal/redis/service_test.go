package redis

import (
	"errors"
	"testing"
	"time"

	"vitals_go/internal/config"
	"vitals_go/internal/models"
)

func TestHistoryMember(t *testing.T) {
	m := historyMember(1700000000123, 97.5)
	if m != "1700000000123:97.5" {
		t.Fatalf("member = %q", m)
	}
	v, ok := parseHistoryMember(m)
	if !ok || v != 97.5 {
		t.Fatalf("parse = %v, %v", v, ok)
	}
	if _, ok := parseHistoryMember("sem-separador"); ok {
		t.Fatal("esperado falha sem separador")
	}
}

func TestDisabledServiceIsOffline(t *testing.T) {
	s, err := NewService(config.RedisConfig{Enabled: false, Prefix: "teste"})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Shutdown()

	if s.IsConnected() {
		t.Fatal("serviço desabilitado não deve estar conectado")
	}

	bpm := 70
	if err := s.WriteVitals(&models.VitalsResult{HeartRateBPM: &bpm, Timestamp: time.Now()}); err != nil {
		t.Fatalf("escrita offline deve ser ignorada: %v", err)
	}
	if err := s.WriteStatus(models.SensorStatus{Status: models.StatusOK}); err != nil {
		t.Fatalf("status offline deve ser ignorado: %v", err)
	}
	if _, err := s.GetCurrentVitals(); !errors.Is(err, ErrOffline) {
		t.Fatalf("esperado ErrOffline, got %v", err)
	}
	if _, err := s.GetHistory(MetricBPM, time.Time{}); !errors.Is(err, ErrOffline) {
		t.Fatalf("esperado ErrOffline, got %v", err)
	}
	if _, err := s.GetHistory("temperatura", time.Time{}); !errors.Is(err, ErrUnknownMetric) {
		t.Fatalf("esperado ErrUnknownMetric, got %v", err)
	}
	if s.key("bpm", "history") != "teste:bpm:history" {
		t.Fatalf("chave = %q", s.key("bpm", "history"))
	}
}
