package vitals

import (
	"math"

	"vitals_go/internal/dsp"
	"vitals_go/internal/models"
)

// SpO2Calculator converte janelas Red/IR (mesmo tamanho, mais antiga
// primeiro) em uma leitura de SpO2. Retorna false quando os dados não
// permitem uma estimativa.
type SpO2Calculator interface {
	Calculate(red, ir []int32) (models.SpO2Result, bool)
}

// SpO2 válido
const (
	MinSpO2 = 50.0
	MaxSpO2 = 100.0
)

// SpO2Estimator acumula Red/IR continuamente e só recalcula quando o
// acelerômetro indica repouso
type SpO2Estimator struct {
	red, ir    *dsp.Ring[int32]
	calculator SpO2Calculator
	threshold  float64
	last       *models.SpO2Result
}

// NewSpO2Estimator cria o estimador
func NewSpO2Estimator(cfg Config, calculator SpO2Calculator) *SpO2Estimator {
	return &SpO2Estimator{
		red:        dsp.NewRing[int32](cfg.SpO2BufferCapacity),
		ir:         dsp.NewRing[int32](cfg.SpO2BufferCapacity),
		calculator: calculator,
		threshold:  cfg.MotionStabilityThreshold,
	}
}

// Update adiciona as amostras e retorna a leitura atual. Em movimento a
// última leitura é mantida.
func (s *SpO2Estimator) Update(red, ir uint32, accelMagnitude float64) *models.SpO2Result {
	s.red.Append(saturate(red))
	s.ir.Append(saturate(ir))

	if accelMagnitude >= s.threshold {
		return s.current()
	}

	res, ok := s.calculator.Calculate(s.red.Snapshot(), s.ir.Snapshot())
	if !ok || math.IsNaN(res.SpO2) || res.SpO2 < MinSpO2 || res.SpO2 > MaxSpO2 {
		s.last = nil
		return nil
	}
	res.Quality = clamp01(res.Quality)
	s.last = &res
	return s.current()
}

// current retorna uma cópia da última leitura
func (s *SpO2Estimator) current() *models.SpO2Result {
	if s.last == nil {
		return nil
	}
	res := *s.last
	return &res
}

// Len retorna o número de amostras em cada buffer
func (s *SpO2Estimator) Len() int { return s.red.Len() }

// Cap retorna a capacidade dos buffers
func (s *SpO2Estimator) Cap() int { return s.red.Cap() }

// Reset limpa os buffers e a leitura mantida
func (s *SpO2Estimator) Reset() {
	s.red.Reset()
	s.ir.Reset()
	s.last = nil
}

// saturate limita contagens ópticas ao domínio int32 dos buffers
func saturate(v uint32) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(v)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
