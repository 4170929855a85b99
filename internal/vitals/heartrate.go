package vitals

import (
	"math"
	"sort"

	"vitals_go/internal/dsp"
	"vitals_go/internal/models"
)

// HeartRateEstimator mantém a janela do canal verde e estima a frequência
// cardíaca pelo intervalo mediano entre picos
type HeartRateEstimator struct {
	cfg        Config
	buffer     *dsp.Ring[float64]
	filter     *dsp.Bandpass
	minSamples int
}

// NewHeartRateEstimator cria o estimador a partir da configuração
func NewHeartRateEstimator(cfg Config) (*HeartRateEstimator, error) {
	filter, err := dsp.NewBandpass(cfg.bandpass())
	if err != nil {
		return nil, err
	}
	return &HeartRateEstimator{
		cfg:        cfg,
		buffer:     dsp.NewRing[float64](cfg.samples(cfg.HRBufferSeconds)),
		filter:     filter,
		minSamples: cfg.samples(cfg.HRMinBufferSeconds),
	}, nil
}

// Update adiciona uma amostra e reavalia a janela completa
func (h *HeartRateEstimator) Update(sample float64) models.HeartRateResult {
	h.buffer.Append(sample)
	if h.buffer.Len() < h.minSamples {
		return models.HeartRateResult{}
	}

	filtered := h.filter.FiltFilt(h.buffer.Snapshot())
	_, std := meanStd(filtered)
	if std <= h.cfg.FlatSignalStdDev {
		return models.HeartRateResult{}
	}

	// Sinal presente: a partir daqui o sensor está em contato, mesmo sem BPM
	result := models.HeartRateResult{IsWorn: true}

	minDistance := int(math.Round(h.cfg.MinPeakDistanceSeconds * h.cfg.PPGSampleRate))
	peaks := dsp.FindPeaks(filtered, minDistance, std*h.cfg.PeakProminenceMultiplier)
	if len(peaks) < 2 {
		return result
	}

	bpm, ok := h.bpmFromPeaks(peaks)
	if !ok {
		return result
	}
	result.BPM = &bpm
	result.Confidence = 1
	return result
}

// bpmFromPeaks converte os índices dos picos em BPM pelo IBI mediano
func (h *HeartRateEstimator) bpmFromPeaks(peaks []int) (int, bool) {
	minIBI := 60 / float64(h.cfg.MaxHeartRate)
	maxIBI := 60 / float64(h.cfg.MinHeartRate)

	intervals := make([]float64, 0, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		ibi := float64(peaks[i]-peaks[i-1]) / h.cfg.PPGSampleRate
		if ibi >= minIBI && ibi <= maxIBI {
			intervals = append(intervals, ibi)
		}
	}
	if len(intervals) == 0 {
		return 0, false
	}

	bpm := int(math.Round(60 / median(intervals)))
	if bpm < h.cfg.MinHeartRate || bpm > h.cfg.MaxHeartRate {
		return 0, false
	}
	return bpm, true
}

// Len retorna o número de amostras na janela
func (h *HeartRateEstimator) Len() int { return h.buffer.Len() }

// Cap retorna a capacidade da janela
func (h *HeartRateEstimator) Cap() int { return h.buffer.Cap() }

// Reset limpa a janela e o histórico do filtro
func (h *HeartRateEstimator) Reset() {
	h.buffer.Reset()
	h.filter.Reset()
}

func meanStd(x []float64) (float64, float64) {
	if len(x) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range x {
		sum += v
	}
	mean := sum / float64(len(x))

	var sq float64
	for _, v := range x {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(x)))
}

// median ordena uma cópia do slice
func median(x []float64) float64 {
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
