// Package oximetry calcula SpO2 por razão de razões a partir das janelas
// Red/IR acumuladas pelo pipeline.
package oximetry

import (
	"vitals_go/internal/models"
)

// Padrões da calculadora
const (
	DefaultMinSamples = 100
	DefaultWindow     = 250
	DefaultMinDC      = 1000
)

// Calibração linear empírica SpO2 = A - B*R
const (
	calibrationA = 104.0
	calibrationB = 17.0
)

// RatioCalculator implementa vitals.SpO2Calculator
type RatioCalculator struct {
	MinSamples int     // amostras mínimas para calcular
	Window     int     // amostras mais recentes consideradas
	MinDC      float64 // nível DC mínimo indicando contato
}

// NewRatioCalculator cria a calculadora com os valores padrão
func NewRatioCalculator() *RatioCalculator {
	return &RatioCalculator{
		MinSamples: DefaultMinSamples,
		Window:     DefaultWindow,
		MinDC:      DefaultMinDC,
	}
}

// Calculate retorna SpO2 e qualidade, ou false quando não há dados
// suficientes ou o sinal não é plausível
func (c *RatioCalculator) Calculate(red, ir []int32) (models.SpO2Result, bool) {
	n := len(red)
	if len(ir) < n {
		n = len(ir)
	}
	if n < c.MinSamples || n == 0 {
		return models.SpO2Result{}, false
	}
	if c.Window > 0 && n > c.Window {
		red = red[len(red)-c.Window:]
		ir = ir[len(ir)-c.Window:]
	} else {
		red = red[len(red)-n:]
		ir = ir[len(ir)-n:]
	}

	redAC, redDC := acdc(red)
	irAC, irDC := acdc(ir)
	if redDC < c.MinDC || irDC < c.MinDC || irAC == 0 || redAC == 0 {
		return models.SpO2Result{}, false
	}

	r := (redAC / redDC) / (irAC / irDC)
	spo2 := calibrationA - calibrationB*r
	if spo2 < 50 || spo2 > 100 {
		return models.SpO2Result{}, false
	}

	quality := perfusionQuality(irAC / irDC * 100)
	if r < 0.3 || r > 3.0 {
		quality /= 2
	}
	return models.SpO2Result{SpO2: spo2, Quality: quality}, true
}

// acdc retorna a amplitude pico a pico e a média da janela
func acdc(x []int32) (ac, dc float64) {
	lo, hi := x[0], x[0]
	var sum float64
	for _, v := range x {
		sum += float64(v)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return float64(hi) - float64(lo), sum / float64(len(x))
}

// perfusionQuality mapeia o índice de perfusão (%) para [0,1]
func perfusionQuality(pi float64) float64 {
	const lo, hi = 0.1, 2.0
	switch {
	case pi <= lo:
		return 0
	case pi >= hi:
		return 1
	}
	return (pi - lo) / (hi - lo)
}
