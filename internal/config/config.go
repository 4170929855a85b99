package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"vitals_go/internal/vitals"
	"vitals_go/pkg/utils"
)

// Config representa a configuração completa da aplicação
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Sensor    SensorConfig    `json:"sensor" yaml:"sensor"`
	Pipeline  vitals.Config   `json:"pipeline" yaml:"pipeline"`
	Redis     RedisConfig     `json:"redis" yaml:"redis"`
	NATS      NATSConfig      `json:"nats" yaml:"nats"`
	MQTT      MQTTConfig      `json:"mqtt" yaml:"mqtt"`
	PLC       PLCConfig       `json:"plc" yaml:"plc"`
	Discovery DiscoveryConfig `json:"discovery" yaml:"discovery"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// ServerConfig contém configurações do servidor HTTP/WebSocket
type ServerConfig struct {
	Port              int      `json:"port" yaml:"port"`
	ReadTimeoutMs     int      `json:"readTimeoutMs" yaml:"readTimeoutMs"`
	WriteTimeoutMs    int      `json:"writeTimeoutMs" yaml:"writeTimeoutMs"`
	ShutdownTimeoutMs int      `json:"shutdownTimeoutMs" yaml:"shutdownTimeoutMs"`
	AllowedOrigins    []string `json:"allowedOrigins" yaml:"allowedOrigins"`
}

func (c ServerConfig) ReadTimeout() time.Duration     { return utils.Millis(c.ReadTimeoutMs) }
func (c ServerConfig) WriteTimeout() time.Duration    { return utils.Millis(c.WriteTimeoutMs) }
func (c ServerConfig) ShutdownTimeout() time.Duration { return utils.Millis(c.ShutdownTimeoutMs) }

// Fontes de frames suportadas
const (
	SourceTCP       = "tcp"
	SourceNATS      = "nats"
	SourceSimulator = "simulator"
)

// SensorConfig contém configurações da ingestão de frames do wearable
type SensorConfig struct {
	Source               string          `json:"source" yaml:"source"`
	Host                 string          `json:"host" yaml:"host"`
	Port                 int             `json:"port" yaml:"port"`
	DialTimeoutMs        int             `json:"dialTimeoutMs" yaml:"dialTimeoutMs"`
	ReadTimeoutMs        int             `json:"readTimeoutMs" yaml:"readTimeoutMs"`
	ReconnectDelayMs     int             `json:"reconnectDelayMs" yaml:"reconnectDelayMs"`
	MaxConsecutiveErrors int             `json:"maxConsecutiveErrors" yaml:"maxConsecutiveErrors"`
	QueueSize            int             `json:"queueSize" yaml:"queueSize"`
	AsyncRedis           bool            `json:"asyncRedis" yaml:"asyncRedis"`
	Debug                bool            `json:"debug" yaml:"debug"`
	Simulator            SimulatorConfig `json:"simulator" yaml:"simulator"`
}

func (c SensorConfig) DialTimeout() time.Duration    { return utils.Millis(c.DialTimeoutMs) }
func (c SensorConfig) ReadTimeout() time.Duration    { return utils.Millis(c.ReadTimeoutMs) }
func (c SensorConfig) ReconnectDelay() time.Duration { return utils.Millis(c.ReconnectDelayMs) }

// SimulatorConfig contém parâmetros do wearable simulado
type SimulatorConfig struct {
	HeartRate      float64 `json:"heartRate" yaml:"heartRate"`
	SpO2           float64 `json:"spo2" yaml:"spo2"`
	MotionEverySec int     `json:"motionEverySec" yaml:"motionEverySec"`
	MotionSec      int     `json:"motionSec" yaml:"motionSec"`
	AccelNoise     float64 `json:"accelNoise" yaml:"accelNoise"`
	OpticalNoise   float64 `json:"opticalNoise" yaml:"opticalNoise"`
	Seed           int64   `json:"seed" yaml:"seed"`
	Realtime       bool    `json:"realtime" yaml:"realtime"`
}

// RedisConfig contém configurações do Redis
type RedisConfig struct {
	Host        string `json:"host" yaml:"host"`
	Port        int    `json:"port" yaml:"port"`
	Password    string `json:"password" yaml:"password"`
	DB          int    `json:"db" yaml:"db"`
	Prefix      string `json:"prefix" yaml:"prefix"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	HistorySize int    `json:"historySize" yaml:"historySize"`
}

// NATSConfig contém configurações do NATS (ingestão e publicação)
type NATSConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	URL           string `json:"url" yaml:"url"`
	Name          string `json:"name" yaml:"name"`
	FrameSubject  string `json:"frameSubject" yaml:"frameSubject"`
	ResultSubject string `json:"resultSubject" yaml:"resultSubject"`
	Codec         string `json:"codec" yaml:"codec"`
}

// MQTTConfig contém configurações do broker MQTT
type MQTTConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Broker      string `json:"broker" yaml:"broker"`
	ClientID    string `json:"clientId" yaml:"clientId"`
	Topic       string `json:"topic" yaml:"topic"`
	StatusTopic string `json:"statusTopic" yaml:"statusTopic"`
	QoS         byte   `json:"qos" yaml:"qos"`
	Retained    bool   `json:"retained" yaml:"retained"`
	TimeoutMs   int    `json:"timeoutMs" yaml:"timeoutMs"`
}

func (c MQTTConfig) Timeout() time.Duration { return utils.Millis(c.TimeoutMs) }

// PLCConfig contém configurações para exportação ao PLC S7
type PLCConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	Host         string `json:"host" yaml:"host"`
	Rack         int    `json:"rack" yaml:"rack"`
	Slot         int    `json:"slot" yaml:"slot"`
	DBNumber     int    `json:"dbNumber" yaml:"dbNumber"`
	UpdateRateMs int    `json:"updateRateMs" yaml:"updateRateMs"`
	TimeoutMs    int    `json:"timeoutMs" yaml:"timeoutMs"`
}

func (c PLCConfig) UpdateRate() time.Duration { return utils.Millis(c.UpdateRateMs) }
func (c PLCConfig) Timeout() time.Duration    { return utils.Millis(c.TimeoutMs) }

// DiscoveryConfig contém configurações do anúncio mDNS
type DiscoveryConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Instance string `json:"instance" yaml:"instance"`
	Service  string `json:"service" yaml:"service"`
	Domain   string `json:"domain" yaml:"domain"`
}

// LogConfig contém configurações de log
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Dir    string `json:"dir" yaml:"dir"`
	File   bool   `json:"file" yaml:"file"`
	Prefix string `json:"prefix" yaml:"prefix"`
}

// candidates são os arquivos procurados quando nenhum caminho é informado
var candidates = []string{"config.json", "config.yaml", "config.yml"}

// Load carrega a configuração padrão, aplica o arquivo (JSON ou YAML) e as
// variáveis de ambiente VITALS_*. path vazio procura os arquivos padrão no
// diretório atual.
func Load(path string) (*Config, error) {
	cfg := getDefaultConfig()

	if path == "" {
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnvironmentOverrides(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("erro ao ler configuração %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("erro ao decodificar configuração %s: %w", path, err)
	}
	return nil
}

// Validate verifica a consistência da configuração
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("porta do servidor inválida: %d", c.Server.Port)
	}
	switch c.Sensor.Source {
	case SourceTCP, SourceSimulator:
	case SourceNATS:
		if c.NATS.URL == "" || c.NATS.FrameSubject == "" {
			return fmt.Errorf("fonte nats requer url e frameSubject")
		}
	default:
		return fmt.Errorf("fonte de frames desconhecida: %q", c.Sensor.Source)
	}
	switch c.NATS.Codec {
	case "json", "msgpack":
	default:
		return fmt.Errorf("codec NATS desconhecido: %q", c.NATS.Codec)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("QoS MQTT inválido: %d", c.MQTT.QoS)
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	return nil
}
