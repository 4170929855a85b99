package models

import "time"

// ChannelSample é uma amostra decodificada de um frame do sensor
type ChannelSample struct {
	Red       uint32    `json:"red" msgpack:"red"`
	IR        uint32    `json:"ir" msgpack:"ir"`
	Green     uint32    `json:"green" msgpack:"green"`
	AccelX    int16     `json:"accelX" msgpack:"accelX"`
	AccelY    int16     `json:"accelY" msgpack:"accelY"`
	AccelZ    int16     `json:"accelZ" msgpack:"accelZ"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
}

// HeartRateResult é o resultado de uma atualização do estimador de frequência cardíaca
type HeartRateResult struct {
	BPM        *int    `json:"bpm,omitempty" msgpack:"bpm,omitempty"` // nil quando não há estimativa
	Confidence float64 `json:"confidence" msgpack:"confidence"`       // [0,1]
	IsWorn     bool    `json:"isWorn" msgpack:"isWorn"`
}

// SpO2Result é o resultado calculado de saturação de oxigênio
type SpO2Result struct {
	SpO2    float64 `json:"spo2" msgpack:"spo2"`       // [50,100]
	Quality float64 `json:"quality" msgpack:"quality"` // [0,1]
}

// Activity classifica o nível de movimento do usuário
type Activity string

const (
	ActivityUnknown    Activity = "unknown"
	ActivityStationary Activity = "stationary"
	ActivityLight      Activity = "light"
	ActivityActive     Activity = "active"
)

// VitalsResult é o resultado por frame processado pelo pipeline
type VitalsResult struct {
	Seq                 uint64    `json:"seq" msgpack:"seq"`
	DeviceID            string    `json:"deviceId,omitempty" msgpack:"deviceId,omitempty"`
	HeartRateBPM        *int      `json:"heartRateBpm,omitempty" msgpack:"heartRateBpm,omitempty"`
	HeartRateConfidence float64   `json:"heartRateConfidence" msgpack:"heartRateConfidence"`
	IsWorn              bool      `json:"isWorn" msgpack:"isWorn"`
	SpO2Percent         *float64  `json:"spo2Percent,omitempty" msgpack:"spo2Percent,omitempty"`
	SpO2Quality         *float64  `json:"spo2Quality,omitempty" msgpack:"spo2Quality,omitempty"`
	Activity            Activity  `json:"activity" msgpack:"activity"`
	AccelMagnitude      float64   `json:"accelMagnitude" msgpack:"accelMagnitude"`
	Timestamp           time.Time `json:"timestamp" msgpack:"timestamp"`

	// Epoch é o número de resets do pipeline antes deste resultado
	Epoch uint64 `json:"-" msgpack:"-"`
}

// HasHeartRate indica se o resultado carrega uma frequência cardíaca válida
func (r VitalsResult) HasHeartRate() bool {
	return r.HeartRateBPM != nil
}

// HasSpO2 indica se o resultado carrega uma leitura de SpO2
func (r VitalsResult) HasSpO2() bool {
	return r.SpO2Percent != nil
}

// VitalsChange representa uma mudança relevante em um sinal vital
type VitalsChange struct {
	Metric      string    `json:"metric"`              // "bpm", "spo2" ou "worn"
	OldValue    *float64  `json:"old_value,omitempty"` // Valor anterior (nil quando ausente)
	NewValue    *float64  `json:"new_value,omitempty"` // Valor novo (nil quando ausente)
	ChangeValue float64   `json:"change_value"`        // Diferença, zero se um dos lados for ausente
	Timestamp   time.Time `json:"timestamp"`           // Momento da mudança
}

// SensorStatus representa o status atual do sensor
type SensorStatus struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	DeviceID       string    `json:"deviceId,omitempty"`
	LastError      string    `json:"lastError,omitempty"`
	ErrorCount     int       `json:"errorCount,omitempty"`
	InvalidFrames  uint64    `json:"invalidFrames,omitempty"`
	ConnectionInfo string    `json:"connectionInfo,omitempty"`
}

// Status possíveis do sensor
const (
	StatusInitializing      = "initializing"
	StatusOK                = "ok"
	StatusNotWorn           = "not_worn"
	StatusNoSignal          = "no_signal"
	StatusConnectionFailure = "connection_failure"
)

// HistoryPoint representa um ponto de histórico de um sinal vital
type HistoryPoint struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// PipelineStats contém contadores do pipeline de processamento
type PipelineStats struct {
	Processed     uint64 `json:"processed"`
	InvalidFrames uint64 `json:"invalidFrames"`
	Resets        uint64 `json:"resets"`
}
