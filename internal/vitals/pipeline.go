package vitals

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"vitals_go/internal/dsp"
	"vitals_go/internal/frame"
	"vitals_go/internal/models"
)

// ErrNoCalculator indica que o pipeline foi criado sem calculadora de SpO2
var ErrNoCalculator = errors.New("calculadora de SpO2 não informada")

// Pipeline processa amostras em ordem de chegada e produz um resultado por
// frame. Process e Reset são mutuamente exclusivos.
type Pipeline struct {
	mu sync.Mutex

	cfg      Config
	deviceID string
	now      func() time.Time

	motion   *dsp.NLMS
	hr       *HeartRateEstimator
	spo2     *SpO2Estimator
	activity *ActivityClassifier

	stats models.PipelineStats
}

// Option configura um Pipeline na construção
type Option func(*Pipeline)

// WithDeviceID identifica a sessão do dispositivo nos resultados
func WithDeviceID(id string) Option {
	return func(p *Pipeline) { p.deviceID = id }
}

// WithClock substitui o relógio usado quando a amostra não tem timestamp
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline cria todos os estágios a partir da configuração
func NewPipeline(cfg Config, calculator SpO2Calculator, opts ...Option) (*Pipeline, error) {
	if calculator == nil {
		return nil, ErrNoCalculator
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuração do pipeline: %w", err)
	}

	hr, err := NewHeartRateEstimator(cfg)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:      cfg,
		now:      time.Now,
		motion:   dsp.NewNLMS(cfg.NLMSTaps, cfg.NLMSStep, 0),
		hr:       hr,
		spo2:     NewSpO2Estimator(cfg, calculator),
		activity: NewActivityClassifier(cfg),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Process executa um ciclo completo para a amostra
func (p *Pipeline) Process(sample models.ChannelSample) models.VitalsResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.process(sample)
}

// ProcessFrame decodifica e processa um frame bruto. Frames inválidos
// retornam frame.ErrInvalidFrame sem alterar nenhum estado de sinal.
func (p *Pipeline) ProcessFrame(b []byte) (models.VitalsResult, error) {
	sample, err := frame.Decode(b)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.stats.InvalidFrames++
		return models.VitalsResult{}, err
	}
	return p.process(sample), nil
}

func (p *Pipeline) process(sample models.ChannelSample) models.VitalsResult {
	magnitude := frame.Normalize(sample).Magnitude()
	cleaned := p.motion.Filter(float64(sample.Green), magnitude)
	hr := p.hr.Update(cleaned)
	spo2 := p.spo2.Update(sample.Red, sample.IR, magnitude)
	activity := p.activity.Update(magnitude)

	p.stats.Processed++

	ts := sample.Timestamp
	if ts.IsZero() {
		ts = p.now()
	}

	result := models.VitalsResult{
		Seq:                 p.stats.Processed,
		DeviceID:            p.deviceID,
		HeartRateBPM:        hr.BPM,
		HeartRateConfidence: hr.Confidence,
		IsWorn:              hr.IsWorn,
		Activity:            activity,
		AccelMagnitude:      magnitude,
		Timestamp:           ts,
		Epoch:               p.stats.Resets,
	}
	if spo2 != nil {
		value, quality := spo2.SpO2, spo2.Quality
		result.SpO2Percent = &value
		result.SpO2Quality = &quality
	}
	return result
}

// Reset limpa compensador, janelas, buffers de SpO2 e filtros
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.motion.Reset()
	p.hr.Reset()
	p.spo2.Reset()
	p.activity.Reset()
	p.stats.Resets++
}

// Stats retorna os contadores do pipeline
func (p *Pipeline) Stats() models.PipelineStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// BufferSizes retorna o tamanho atual das janelas de FC, SpO2 e atividade
func (p *Pipeline) BufferSizes() (hr, spo2, activity int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hr.Len(), p.spo2.Len(), p.activity.Len()
}

// Config retorna a configuração do pipeline
func (p *Pipeline) Config() Config { return p.cfg }

// DeviceID retorna o identificador da sessão
func (p *Pipeline) DeviceID() string { return p.deviceID }
