package dsp

import (
	"errors"
	"fmt"
)

// ErrInvalidFilter indica parâmetros de filtro inconsistentes
var ErrInvalidFilter = errors.New("configuração de filtro inválida")

// BandpassConfig descreve um filtro passa-faixa Butterworth
type BandpassConfig struct {
	Type       string  `json:"type" yaml:"type"`
	Low        float64 `json:"low" yaml:"low"`
	High       float64 `json:"high" yaml:"high"`
	SampleRate float64 `json:"sampleRate" yaml:"sampleRate"`
	Order      int     `json:"order" yaml:"order"`
}

// DefaultBandpassConfig retorna a faixa usada para PPG a 50 Hz
func DefaultBandpassConfig() BandpassConfig {
	return BandpassConfig{Type: "bandpass", Low: 0.5, High: 8.0, SampleRate: 50, Order: 4}
}

// Validate verifica se a configuração produz um filtro estável
func (c BandpassConfig) Validate() error {
	switch {
	case c.Type != "" && c.Type != "bandpass":
		return fmt.Errorf("%w: tipo %q não suportado", ErrInvalidFilter, c.Type)
	case c.Order < 1:
		return fmt.Errorf("%w: ordem %d", ErrInvalidFilter, c.Order)
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: taxa de amostragem %v", ErrInvalidFilter, c.SampleRate)
	case c.Low <= 0 || c.High >= c.SampleRate/2 || c.Low >= c.High:
		return fmt.Errorf("%w: faixa %.2f-%.2f Hz com fs=%.1f Hz", ErrInvalidFilter, c.Low, c.High, c.SampleRate)
	}
	return nil
}

// Bandpass é uma cascata passa-alta + passa-baixa Butterworth, cada uma da
// ordem configurada.
type Bandpass struct {
	cfg      BandpassConfig
	sections []Biquad
}

// NewBandpass cria o filtro a partir da configuração
func NewBandpass(cfg BandpassConfig) (*Bandpass, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var sections []Biquad
	for _, q := range ButterworthQ(cfg.Order) {
		sections = append(sections, HighPass(cfg.Low, cfg.SampleRate, q))
	}
	if cfg.Order%2 == 1 {
		sections = append(sections, HighPass1(cfg.Low, cfg.SampleRate))
	}
	for _, q := range ButterworthQ(cfg.Order) {
		sections = append(sections, LowPass(cfg.High, cfg.SampleRate, q))
	}
	if cfg.Order%2 == 1 {
		sections = append(sections, LowPass1(cfg.High, cfg.SampleRate))
	}

	return &Bandpass{cfg: cfg, sections: sections}, nil
}

// Config retorna a configuração do filtro
func (b *Bandpass) Config() BandpassConfig { return b.cfg }

// Filter processa uma amostra de forma causal
func (b *Bandpass) Filter(x float64) float64 {
	for i := range b.sections {
		x = b.sections[i].Filter(x)
	}
	return x
}

// FiltFilt filtra o sinal completo com fase zero. O estado causal não é afetado.
func (b *Bandpass) FiltFilt(signal []float64) []float64 {
	out := signal
	for i := range b.sections {
		out = b.sections[i].FiltFilt(out)
	}
	if len(b.sections) == 0 {
		out = append([]float64(nil), signal...)
	}
	return out
}

// Reset limpa o histórico mantendo os coeficientes
func (b *Bandpass) Reset() {
	for i := range b.sections {
		b.sections[i].Reset()
	}
}
