// Package emitter publica os resultados do pipeline em brokers MQTT.
package emitter

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"vitals_go/internal/config"
	"vitals_go/internal/models"
	"vitals_go/pkg/logger"
	"vitals_go/pkg/utils"
)

// ErrNotConnected indica publicação sem conexão com o broker
var ErrNotConnected = errors.New("mqtt não conectado")

var log = logger.For("mqtt")

// Payload é a forma compacta publicada para cada resultado
type Payload struct {
	Device      string   `json:"device"`
	Seq         uint64   `json:"seq"`
	BPM         *int     `json:"bpm"`
	Confidence  float64  `json:"confidence"`
	SpO2        *float64 `json:"spo2"`
	SpO2Quality *float64 `json:"spo2Quality,omitempty"`
	Worn        bool     `json:"worn"`
	Activity    string   `json:"activity"`
	Timestamp   int64    `json:"ts"`
}

// NewPayload converte um resultado para o formato publicado
func NewPayload(res models.VitalsResult) Payload {
	return Payload{
		Device:      res.DeviceID,
		Seq:         res.Seq,
		BPM:         res.HeartRateBPM,
		Confidence:  res.HeartRateConfidence,
		SpO2:        res.SpO2Percent,
		SpO2Quality: res.SpO2Quality,
		Worn:        res.IsWorn,
		Activity:    string(res.Activity),
		Timestamp:   utils.UnixMillis(res.Timestamp),
	}
}

// Stats contém estatísticas do emissor
type Stats struct {
	Connected bool              `json:"connected"`
	Published map[string]uint64 `json:"published"`
	Errors    uint64            `json:"errors"`
}

// MQTTEmitter publica resultados e status em um broker MQTT
type MQTTEmitter struct {
	cfg    config.MQTTConfig
	client mqtt.Client

	mu        sync.RWMutex
	published map[string]uint64
	errors    uint64
	connected bool
}

// NewMQTTEmitter cria um emissor ainda desconectado
func NewMQTTEmitter(cfg config.MQTTConfig) *MQTTEmitter {
	return &MQTTEmitter{
		cfg:       cfg,
		published: make(map[string]uint64),
	}
}

// Connect conecta ao broker com reconexão automática
func (e *MQTTEmitter) Connect() error {
	clientID := e.cfg.ClientID
	if clientID == "" {
		clientID = "vitals"
	}
	clientID += "-" + uuid.New().String()[:8]

	opts := mqtt.NewClientOptions()
	opts.AddBroker(e.cfg.Broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.setConnected(true)
		log.Infof("Conectado ao broker %s como %s", e.cfg.Broker, clientID)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.setConnected(false)
		log.Warnf("Conexão com o broker perdida, reconectando: %v", err)
	}

	e.client = mqtt.NewClient(opts)

	token := e.client.Connect()
	if !token.WaitTimeout(e.timeout()) {
		return fmt.Errorf("timeout ao conectar ao broker MQTT %s", e.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("erro ao conectar ao broker MQTT: %w", err)
	}
	e.setConnected(true)
	return nil
}

func (e *MQTTEmitter) timeout() time.Duration {
	if t := e.cfg.Timeout(); t > 0 {
		return t
	}
	return 2 * time.Second
}

func (e *MQTTEmitter) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

func (e *MQTTEmitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

// PublishVitals publica um resultado sem bloquear o chamador
func (e *MQTTEmitter) PublishVitals(res models.VitalsResult) {
	if err := e.publish(e.cfg.Topic, e.cfg.Retained, NewPayload(res)); err != nil && !errors.Is(err, ErrNotConnected) {
		log.Errorf("Erro ao publicar resultado: %v", err)
	}
}

// PublishStatus publica o status do sensor, sempre retido
func (e *MQTTEmitter) PublishStatus(status models.SensorStatus) {
	if e.cfg.StatusTopic == "" {
		return
	}
	if err := e.publish(e.cfg.StatusTopic, true, status); err != nil && !errors.Is(err, ErrNotConnected) {
		log.Errorf("Erro ao publicar status: %v", err)
	}
}

func (e *MQTTEmitter) publish(topic string, retained bool, v interface{}) error {
	if !e.isConnected() {
		e.countError()
		return ErrNotConnected
	}

	payload, err := json.Marshal(v)
	if err != nil {
		e.countError()
		return fmt.Errorf("erro ao serializar payload: %w", err)
	}

	token := e.client.Publish(topic, e.cfg.QoS, retained, payload)
	go func() {
		if !token.WaitTimeout(e.timeout()) {
			e.countError()
			log.Warnf("Timeout ao publicar em %s", topic)
			return
		}
		if err := token.Error(); err != nil {
			e.countError()
			log.Errorf("Falha ao publicar em %s: %v", topic, err)
			return
		}
		e.mu.Lock()
		e.published[topic]++
		e.mu.Unlock()
	}()
	return nil
}

func (e *MQTTEmitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}

// Disconnect fecha a conexão com o broker
func (e *MQTTEmitter) Disconnect() {
	if e.client != nil {
		// também interrompe as tentativas de reconexão pendentes
		e.client.Disconnect(250)
		log.Infof("Desconectado do broker")
	}
	e.setConnected(false)
}

// Stats retorna as estatísticas do emissor
func (e *MQTTEmitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	published := make(map[string]uint64, len(e.published))
	for k, v := range e.published {
		published[k] = v
	}
	return Stats{Connected: e.connected, Published: published, Errors: e.errors}
}
