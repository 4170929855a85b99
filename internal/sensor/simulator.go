package sensor

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"vitals_go/internal/config"
	"vitals_go/internal/frame"
	"vitals_go/internal/models"
)

// Níveis DC e amplitudes dos canais ópticos simulados
const (
	simIRDC     = 50000.0
	simIRAmp    = 1000.0
	simRedDC    = 40000.0
	simGreenDC  = 30000.0
	simGreenAmp = 800.0
	simAmbient  = 150.0 // leitura com o sensor fora do pulso

	simMotionHz = 2.0
)

// Simulator gera amostras determinísticas de um wearable: PPG na frequência
// cardíaca configurada, razão Red/IR coerente com o SpO2 alvo e rajadas
// periódicas de movimento.
type Simulator struct {
	mu sync.Mutex

	cfg   config.SimulatorConfig
	fs    float64
	rng   *rand.Rand
	phase float64
	n     int
	worn  bool
}

// NewSimulator cria um simulador para a taxa de amostragem PPG informada
func NewSimulator(cfg config.SimulatorConfig, sampleRate float64) *Simulator {
	return &Simulator{
		cfg:  cfg,
		fs:   sampleRate,
		rng:  rand.New(rand.NewSource(cfg.Seed)),
		worn: true,
	}
}

// SetWorn coloca ou retira o sensor simulado do pulso
func (s *Simulator) SetWorn(worn bool) {
	s.mu.Lock()
	s.worn = worn
	s.mu.Unlock()
}

// SetHeartRate altera a frequência cardíaca simulada
func (s *Simulator) SetHeartRate(bpm float64) {
	s.mu.Lock()
	s.cfg.HeartRate = bpm
	s.mu.Unlock()
}

// SetSpO2 altera a saturação simulada
func (s *Simulator) SetSpO2(spo2 float64) {
	s.mu.Lock()
	s.cfg.SpO2 = spo2
	s.mu.Unlock()
}

// inMotion indica se o instante t está dentro de uma rajada de movimento
func (s *Simulator) inMotion(t float64) bool {
	if s.cfg.MotionEverySec <= 0 || s.cfg.MotionSec <= 0 {
		return false
	}
	return math.Mod(t, float64(s.cfg.MotionEverySec)) >= float64(s.cfg.MotionEverySec-s.cfg.MotionSec)
}

// Next gera a próxima amostra
func (s *Simulator) Next() models.ChannelSample {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := float64(s.n) / s.fs
	s.n++

	s.phase += 2 * math.Pi * s.cfg.HeartRate / 60 / s.fs
	if s.phase >= 2*math.Pi {
		s.phase -= 2 * math.Pi
	}
	// Fundamental com um segundo harmônico pequeno: um único pico por batimento
	pulse := math.Sin(s.phase) + 0.15*math.Sin(2*s.phase+0.5)

	ax, ay, az := s.noise(s.cfg.AccelNoise), s.noise(s.cfg.AccelNoise), 1+s.noise(s.cfg.AccelNoise)
	var artefact float64
	if s.inMotion(t) {
		m := math.Sin(2 * math.Pi * simMotionHz * t)
		ax += 0.5 * m
		az += 0.3 * m
		artefact = 400 * m
	}

	sample := models.ChannelSample{
		AccelX: frame.ToCounts(ax),
		AccelY: frame.ToCounts(ay),
		AccelZ: frame.ToCounts(az),
	}

	if !s.worn {
		sample.Red, sample.IR, sample.Green = simAmbient, simAmbient, simAmbient
		return sample
	}

	// R = (ACred/DCred)/(ACir/DCir) a partir da calibração SpO2 = 104 - 17R
	ratio := (104 - s.cfg.SpO2) / 17
	redAmp := ratio * (simIRAmp / simIRDC) * simRedDC

	sample.IR = optical(simIRDC + simIRAmp*pulse + s.noise(s.cfg.OpticalNoise))
	sample.Red = optical(simRedDC + redAmp*pulse + s.noise(s.cfg.OpticalNoise))
	sample.Green = optical(simGreenDC + simGreenAmp*pulse + artefact + s.noise(s.cfg.OpticalNoise))
	return sample
}

// NextFrame gera e codifica a próxima amostra
func (s *Simulator) NextFrame() []byte {
	return frame.Encode(s.Next())
}

func (s *Simulator) noise(amplitude float64) float64 {
	if amplitude == 0 {
		return 0
	}
	return amplitude * (2*s.rng.Float64() - 1)
}

func optical(v float64) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(math.Round(v))
}

// SimulatorSource entrega frames do simulador ao pipeline
type SimulatorSource struct {
	sim      *Simulator
	interval time.Duration
	realtime bool

	// Limit encerra a fonte após Limit frames (0 = sem limite)
	Limit int
}

// NewSimulatorSource cria a fonte simulada
func NewSimulatorSource(cfg config.SimulatorConfig, sampleRate float64) *SimulatorSource {
	return &SimulatorSource{
		sim:      NewSimulator(cfg, sampleRate),
		interval: time.Duration(float64(time.Second) / sampleRate),
		realtime: cfg.Realtime,
	}
}

// Simulator expõe o gerador para controle externo
func (s *SimulatorSource) Simulator() *Simulator { return s.sim }

// Name identifica a fonte
func (s *SimulatorSource) Name() string { return "simulator" }

// Run gera frames até ctx ser cancelado ou o limite ser atingido
func (s *SimulatorSource) Run(ctx context.Context, sink Sink) error {
	sink.Connected("simulador")

	var tick <-chan time.Time
	if s.realtime {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for sent := 0; s.Limit == 0 || sent < s.Limit; sent++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		f := Frame{Data: s.sim.NextFrame(), ReceivedAt: time.Now()}
		if err := sink.Deliver(ctx, f); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return nil
}
