package vitals

import (
	"vitals_go/internal/dsp"
	"vitals_go/internal/models"
)

// Limiares de desvio padrão da magnitude (g)
const (
	stationaryStdDev = 0.02
	lightStdDev      = 0.15
)

// ActivityClassifier classifica o movimento pela variabilidade da magnitude
// do acelerômetro em uma janela curta
type ActivityClassifier struct {
	window *dsp.Ring[float64]
}

// NewActivityClassifier cria o classificador com a janela configurada
func NewActivityClassifier(cfg Config) *ActivityClassifier {
	seconds := cfg.ActivityWindowSeconds
	if seconds <= 0 {
		seconds = 1
	}
	return &ActivityClassifier{window: dsp.NewRing[float64](cfg.samples(seconds))}
}

// Update adiciona uma magnitude e retorna a classificação atual
func (a *ActivityClassifier) Update(magnitude float64) models.Activity {
	a.window.Append(magnitude)
	if a.window.Len()*2 < a.window.Cap() {
		return models.ActivityUnknown
	}

	_, std := meanStd(a.window.Snapshot())
	switch {
	case std < stationaryStdDev:
		return models.ActivityStationary
	case std < lightStdDev:
		return models.ActivityLight
	default:
		return models.ActivityActive
	}
}

// Len retorna o número de amostras na janela
func (a *ActivityClassifier) Len() int { return a.window.Len() }

// Reset limpa a janela
func (a *ActivityClassifier) Reset() { a.window.Reset() }
