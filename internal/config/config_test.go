package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := getDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("padrão inválido: %v", err)
	}
	if cfg.Pipeline.PPGSampleRate != 50 || cfg.Pipeline.SpO2BufferCapacity != 2000 {
		t.Fatalf("pipeline padrão inesperado: %+v", cfg.Pipeline)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	data := `{"server":{"port":9090},"sensor":{"source":"tcp","host":"10.0.0.5"},"pipeline":{"maxHeartRate":200}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Sensor.Source != SourceTCP || cfg.Sensor.Host != "10.0.0.5" {
		t.Fatalf("valores do arquivo não aplicados: %+v", cfg)
	}
	// Campos ausentes mantêm o padrão
	if cfg.Pipeline.MaxHeartRate != 200 || cfg.Pipeline.MinHeartRate != 40 {
		t.Fatalf("pipeline: %+v", cfg.Pipeline)
	}
	if cfg.Redis.Prefix != "vitals" {
		t.Fatalf("prefixo Redis = %q", cfg.Redis.Prefix)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vitals.yaml")
	data := `
sensor:
  source: nats
nats:
  url: nats://broker:4222
  codec: msgpack
pipeline:
  hrBandpass:
    low: 0.7
    high: 4
    order: 2
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sensor.Source != SourceNATS || cfg.NATS.Codec != "msgpack" || cfg.NATS.FrameSubject != "vitals.frames" {
		t.Fatalf("yaml não aplicado: %+v", cfg.NATS)
	}
	if cfg.Pipeline.HRBandpass.Order != 2 || cfg.Pipeline.HRBandpass.Low != 0.7 {
		t.Fatalf("banda: %+v", cfg.Pipeline.HRBandpass)
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	os.WriteFile(path, []byte(`{"sensor":{"source":"ble"}}`), 0644)
	if _, err := Load(path); err == nil {
		t.Fatal("esperado erro para fonte desconhecida")
	}

	os.WriteFile(path, []byte(`{"server":`), 0644)
	if _, err := Load(path); err == nil {
		t.Fatal("esperado erro de decodificação")
	}

	if _, err := Load(filepath.Join(dir, "nao_existe.json")); err == nil {
		t.Fatal("esperado erro para arquivo inexistente")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	env := map[string]string{
		"VITALS_SERVER_PORT":   "8181",
		"VITALS_REDIS_ENABLED": "false",
		"VITALS_MQTT_BROKER":   "tcp://mqtt:1883",
		"VITALS_LOG_LEVEL":     "debug",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := getDefaultConfig()
	if err := applyEnvironmentOverrides(&cfg, lookup); err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8181 || cfg.Redis.Enabled || cfg.MQTT.Broker != "tcp://mqtt:1883" || cfg.Log.Level != "debug" {
		t.Fatalf("overrides não aplicados: %+v", cfg)
	}

	env["VITALS_SERVER_PORT"] = "abc"
	if err := applyEnvironmentOverrides(&cfg, lookup); err == nil {
		t.Fatal("esperado erro para porta inválida")
	}
}
