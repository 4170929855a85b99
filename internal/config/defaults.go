package config

import "vitals_go/internal/vitals"

// getDefaultConfig retorna uma configuração padrão
func getDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:              8080,
			ReadTimeoutMs:     30000,
			WriteTimeoutMs:    30000,
			ShutdownTimeoutMs: 10000,
			AllowedOrigins:    []string{"*"},
		},
		Sensor: SensorConfig{
			Source:               SourceSimulator,
			Host:                 "127.0.0.1",
			Port:                 7070,
			DialTimeoutMs:        5000,
			ReadTimeoutMs:        5000,
			ReconnectDelayMs:     2000,
			MaxConsecutiveErrors: 5,
			QueueSize:            256,
			AsyncRedis:           true,
			Simulator: SimulatorConfig{
				HeartRate:      72,
				SpO2:           97,
				MotionEverySec: 30,
				MotionSec:      3,
				AccelNoise:     0.003,
				OpticalNoise:   2,
				Seed:           1,
				Realtime:       true,
			},
		},
		Pipeline: vitals.DefaultConfig(),
		Redis: RedisConfig{
			Host:        "localhost",
			Port:        6379,
			Prefix:      "vitals",
			Enabled:     true,
			HistorySize: 1000,
		},
		NATS: NATSConfig{
			Enabled:       false,
			URL:           "nats://127.0.0.1:4222",
			Name:          "vitals-monitor",
			FrameSubject:  "vitals.frames",
			ResultSubject: "vitals.results",
			Codec:         "json",
		},
		MQTT: MQTTConfig{
			Enabled:     false,
			Broker:      "tcp://127.0.0.1:1883",
			ClientID:    "vitals-monitor",
			Topic:       "vitals/results",
			StatusTopic: "vitals/status",
			QoS:         0,
			TimeoutMs:   2000,
		},
		PLC: PLCConfig{
			Enabled:      false,
			Host:         "192.168.1.100",
			Rack:         0,
			Slot:         1,
			DBNumber:     20,
			UpdateRateMs: 500,
			TimeoutMs:    5000,
		},
		Discovery: DiscoveryConfig{
			Enabled: true,
			Service: "_vitals._tcp",
			Domain:  "local.",
		},
		Log: LogConfig{
			Level:  "info",
			Dir:    "logs",
			File:   true,
			Prefix: "vitals",
		},
	}
}
