// Package vitals implementa o pipeline de sinais vitais: cancelamento de
// artefatos de movimento, estimativa de frequência cardíaca, SpO2 com
// bloqueio por movimento e classificação de atividade.
//
// O pacote não faz I/O. Persistência, transporte e apresentação ficam com os
// consumidores dos resultados.
package vitals

import (
	"fmt"

	"vitals_go/internal/dsp"
)

// BandConfig define a faixa do filtro de frequência cardíaca
type BandConfig struct {
	Low   float64 `json:"low" yaml:"low"`
	High  float64 `json:"high" yaml:"high"`
	Order int     `json:"order" yaml:"order"`
}

// Config contém os parâmetros de construção do pipeline
type Config struct {
	PPGSampleRate            float64    `json:"ppgSampleRate" yaml:"ppgSampleRate"`
	AccelSampleRate          float64    `json:"accelSampleRate" yaml:"accelSampleRate"`
	HRBandpass               BandConfig `json:"hrBandpass" yaml:"hrBandpass"`
	MinHeartRate             int        `json:"minHeartRate" yaml:"minHeartRate"`
	MaxHeartRate             int        `json:"maxHeartRate" yaml:"maxHeartRate"`
	MinPeakDistanceSeconds   float64    `json:"minPeakDistanceSeconds" yaml:"minPeakDistanceSeconds"`
	PeakProminenceMultiplier float64    `json:"peakProminenceMultiplier" yaml:"peakProminenceMultiplier"`
	MotionStabilityThreshold float64    `json:"motionStabilityThreshold" yaml:"motionStabilityThreshold"`
	SpO2BufferCapacity       int        `json:"spo2BufferCapacity" yaml:"spo2BufferCapacity"`
	HRBufferSeconds          float64    `json:"hrBufferSeconds" yaml:"hrBufferSeconds"`
	HRMinBufferSeconds       float64    `json:"hrMinBufferSeconds" yaml:"hrMinBufferSeconds"`
	FlatSignalStdDev         float64    `json:"flatSignalStdDev" yaml:"flatSignalStdDev"`
	NLMSTaps                 int        `json:"nlmsTaps" yaml:"nlmsTaps"`
	NLMSStep                 float64    `json:"nlmsStep" yaml:"nlmsStep"`
	ActivityWindowSeconds    float64    `json:"activityWindowSeconds" yaml:"activityWindowSeconds"`
}

// DefaultConfig retorna a configuração padrão para um wearable a 50 Hz
func DefaultConfig() Config {
	return Config{
		PPGSampleRate:            50,
		AccelSampleRate:          100,
		HRBandpass:               BandConfig{Low: 0.5, High: 8.0, Order: 4},
		MinHeartRate:             40,
		MaxHeartRate:             180,
		MinPeakDistanceSeconds:   0.4,
		PeakProminenceMultiplier: 0.5,
		MotionStabilityThreshold: 1.05,
		SpO2BufferCapacity:       2000,
		HRBufferSeconds:          10,
		HRMinBufferSeconds:       3,
		FlatSignalStdDev:         1.0,
		NLMSTaps:                 dsp.DefaultTaps,
		NLMSStep:                 dsp.DefaultMu,
		ActivityWindowSeconds:    1,
	}
}

// Validate verifica a consistência da configuração
func (c Config) Validate() error {
	if c.PPGSampleRate <= 0 {
		return fmt.Errorf("ppgSampleRate deve ser positivo: %v", c.PPGSampleRate)
	}
	if c.MinHeartRate <= 0 || c.MaxHeartRate <= c.MinHeartRate {
		return fmt.Errorf("faixa de frequência cardíaca inválida: %d-%d", c.MinHeartRate, c.MaxHeartRate)
	}
	if c.HRBufferSeconds <= 0 || c.HRMinBufferSeconds <= 0 || c.HRMinBufferSeconds > c.HRBufferSeconds {
		return fmt.Errorf("janelas do buffer de FC inválidas: mínimo %.1fs, total %.1fs", c.HRMinBufferSeconds, c.HRBufferSeconds)
	}
	if c.MotionStabilityThreshold <= 0 {
		return fmt.Errorf("limiar de estabilidade deve ser positivo: %v", c.MotionStabilityThreshold)
	}
	if c.PeakProminenceMultiplier < 0 || c.MinPeakDistanceSeconds < 0 {
		return fmt.Errorf("parâmetros de detecção de picos negativos")
	}
	return c.bandpass().Validate()
}

func (c Config) bandpass() dsp.BandpassConfig {
	return dsp.BandpassConfig{
		Type:       "bandpass",
		Low:        c.HRBandpass.Low,
		High:       c.HRBandpass.High,
		SampleRate: c.PPGSampleRate,
		Order:      c.HRBandpass.Order,
	}
}

// samples converte segundos em número de amostras PPG
func (c Config) samples(seconds float64) int {
	n := int(seconds*c.PPGSampleRate + 0.5)
	if n < 1 {
		n = 1
	}
	return n
}

// WarmupSamples retorna quantos frames o estimador de FC precisa antes da
// primeira estimativa
func (c Config) WarmupSamples() int {
	return c.samples(c.HRMinBufferSeconds)
}
