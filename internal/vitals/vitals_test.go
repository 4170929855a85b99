package vitals

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"vitals_go/internal/frame"
	"vitals_go/internal/models"
)

// fakeCalculator conta as chamadas e retorna um valor fixo
type fakeCalculator struct {
	mu     sync.Mutex
	calls  int
	result models.SpO2Result
	absent bool
}

func (f *fakeCalculator) Calculate(red, ir []int32) (models.SpO2Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.absent {
		return models.SpO2Result{}, false
	}
	return f.result, true
}

func (f *fakeCalculator) set(spo2 float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.result = models.SpO2Result{SpO2: spo2, Quality: 0.8}
}

func (f *fakeCalculator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestPipeline(t *testing.T, cfg Config, calc SpO2Calculator) *Pipeline {
	t.Helper()
	p, err := NewPipeline(cfg, calc, WithDeviceID("teste"))
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

// sinusoid gera uma amostra com o canal verde senoidal e o acelerômetro em 1 g
func sinusoid(i int, freq float64, accelZ int16) models.ChannelSample {
	green := 100000 + 1000*math.Sin(2*math.Pi*freq*float64(i)/50)
	return models.ChannelSample{
		Red: 80000, IR: 90000, Green: uint32(green),
		AccelZ: accelZ,
	}
}

func TestRecoverableSinusoid(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig(), &fakeCalculator{result: models.SpO2Result{SpO2: 97, Quality: 1}})

	for i := 0; i < 300; i++ {
		res := p.Process(sinusoid(i, 1.2, 16384))

		if i < 149 {
			if res.HasHeartRate() || res.IsWorn || res.HeartRateConfidence != 0 {
				t.Fatalf("frame %d: esperado dados insuficientes, got %+v", i, res)
			}
			continue
		}
		if !res.HasHeartRate() {
			t.Fatalf("frame %d: sem BPM após janela mínima", i)
		}
		if bpm := *res.HeartRateBPM; bpm < 69 || bpm > 75 {
			t.Fatalf("frame %d: bpm = %d, esperado 72±3", i, bpm)
		}
		if !res.IsWorn || res.HeartRateConfidence <= 0 {
			t.Fatalf("frame %d: esperado worn com confiança, got %+v", i, res)
		}
	}
}

// uniformNoise é um ruído uniforme determinístico em [-1, 1)
func uniformNoise(i int) float64 {
	v := math.Sin(float64(i)*12.9898) * 43758.5453
	return 2*(v-math.Floor(v)) - 1
}

// wearableSample reproduz o simulador do sensor: pulso a 72 bpm com um
// harmônico, ruído de 0.003 g por eixo e, dentro da rajada, movimento de 2 Hz
// acoplado ao canal verde
func wearableSample(i int, phase float64, moving bool) models.ChannelSample {
	tt := float64(i) / 50
	pulse := math.Sin(phase) + 0.15*math.Sin(2*phase+0.5)

	ax := 0.003 * uniformNoise(3*i)
	ay := 0.003 * uniformNoise(3*i+1)
	az := 1 + 0.003*uniformNoise(3*i+2)
	var artefact float64
	if moving {
		m := math.Sin(2 * math.Pi * 2 * tt)
		ax += 0.5 * m
		az += 0.3 * m
		artefact = 400 * m
	}
	return models.ChannelSample{
		Red:    80000,
		IR:     90000,
		Green:  uint32(math.Round(30000 + 800*pulse + artefact)),
		AccelX: frame.ToCounts(ax),
		AccelY: frame.ToCounts(ay),
		AccelZ: frame.ToCounts(az),
	}
}

func TestHeartRateRecoversAfterMotionBurst(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig(), &fakeCalculator{result: models.SpO2Result{SpO2: 97, Quality: 1}})

	const (
		burstStart = 27 * 50
		burstEnd   = 30 * 50
		total      = 40 * 50
	)
	var phase float64
	for i := 0; i < total; i++ {
		phase += 2 * math.Pi * 72 / 60 / 50
		if phase >= 2*math.Pi {
			phase -= 2 * math.Pi
		}
		res := p.Process(wearableSample(i, phase, i >= burstStart && i < burstEnd))

		if i < burstEnd {
			continue
		}
		if !res.HasHeartRate() {
			t.Fatalf("frame %d (%.1fs): sem BPM após a rajada", i, float64(i)/50)
		}
		if bpm := *res.HeartRateBPM; bpm < 69 || bpm > 75 {
			t.Fatalf("frame %d (%.1fs): bpm = %d, esperado 72±3", i, float64(i)/50, bpm)
		}
	}
}

func TestFlatSignalRejected(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig(), &fakeCalculator{})

	var res models.VitalsResult
	for i := 0; i < 250; i++ {
		res = p.Process(models.ChannelSample{Green: 50000, AccelZ: 16384})
	}
	if res.HasHeartRate() || res.IsWorn || res.HeartRateConfidence != 0 {
		t.Fatalf("sinal constante: esperado sem BPM e não vestido, got %+v", res)
	}
}

func TestMotionGatingHoldsSpO2(t *testing.T) {
	calc := &fakeCalculator{}
	calc.set(96.5)
	p := newTestPipeline(t, DefaultConfig(), calc)

	var res models.VitalsResult
	for i := 0; i < 20; i++ {
		res = p.Process(sinusoid(i, 1.2, 16384))
	}
	if !res.HasSpO2() || *res.SpO2Percent != 96.5 {
		t.Fatalf("esperado SpO2 estável 96.5, got %+v", res.SpO2Percent)
	}

	calls := calc.count()
	calc.set(70)

	moving := frame.ToCounts(1.3)
	for i := 0; i < 60; i++ {
		res = p.Process(sinusoid(20+i, 1.2, moving))
		if res.AccelMagnitude <= 1.05 {
			t.Fatalf("magnitude %.3f não caracteriza movimento", res.AccelMagnitude)
		}
		if !res.HasSpO2() || *res.SpO2Percent != 96.5 || *res.SpO2Quality != 0.8 {
			t.Fatalf("frame de movimento %d: SpO2 alterado para %v", i, res.SpO2Percent)
		}
	}
	if calc.count() != calls {
		t.Fatalf("calculadora chamada durante movimento: %d -> %d", calls, calc.count())
	}

	// De volta ao repouso, o valor é recalculado
	res = p.Process(sinusoid(100, 1.2, 16384))
	if !res.HasSpO2() || *res.SpO2Percent != 70 {
		t.Fatalf("esperado recálculo após repouso, got %v", res.SpO2Percent)
	}
}

func TestSpO2OutOfRangeIsAbsent(t *testing.T) {
	calc := &fakeCalculator{}
	calc.set(120)
	p := newTestPipeline(t, DefaultConfig(), calc)

	res := p.Process(sinusoid(0, 1.2, 16384))
	if res.HasSpO2() {
		t.Fatalf("SpO2 fora da faixa deve ser ausente, got %v", *res.SpO2Percent)
	}

	calc.set(98)
	calc.absent = true
	res = p.Process(sinusoid(1, 1.2, 16384))
	if res.HasSpO2() {
		t.Fatal("calculadora ausente deve produzir SpO2 ausente")
	}
}

func TestSpO2Saturation(t *testing.T) {
	if saturate(math.MaxUint32) != math.MaxInt32 {
		t.Fatal("esperado saturação em MaxInt32")
	}
	if saturate(12345) != 12345 {
		t.Fatal("valor dentro da faixa alterado")
	}
}

func TestMalformedFrameLeavesState(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig(), &fakeCalculator{})
	for i := 0; i < 10; i++ {
		p.Process(sinusoid(i, 1.2, 16384))
	}
	hr, spo2, act := p.BufferSizes()

	_, err := p.ProcessFrame(make([]byte, 10))
	if !errors.Is(err, frame.ErrInvalidFrame) {
		t.Fatalf("esperado ErrInvalidFrame, got %v", err)
	}

	hr2, spo22, act2 := p.BufferSizes()
	if hr != hr2 || spo2 != spo22 || act != act2 {
		t.Fatalf("buffers alterados: (%d,%d,%d) -> (%d,%d,%d)", hr, spo2, act, hr2, spo22, act2)
	}
	if st := p.Stats(); st.InvalidFrames != 1 || st.Processed != 10 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestBuffersBounded(t *testing.T) {
	for _, capacity := range []int{1, 7, 2000} {
		cfg := DefaultConfig()
		cfg.SpO2BufferCapacity = capacity
		p := newTestPipeline(t, cfg, &fakeCalculator{result: models.SpO2Result{SpO2: 97}})

		for i := 0; i < 5000; i++ {
			if _, err := p.ProcessFrame(frame.Encode(sinusoid(i, 1.2, 16384))); err != nil {
				t.Fatal(err)
			}
			hr, spo2, act := p.BufferSizes()
			if hr > p.hr.Cap() || spo2 > capacity || act > p.activity.window.Cap() {
				t.Fatalf("cap %d, frame %d: buffers (%d,%d,%d) excedem capacidade", capacity, i, hr, spo2, act)
			}
		}
		if _, spo2, _ := p.BufferSizes(); spo2 != capacity {
			t.Fatalf("cap %d: buffer SpO2 com %d amostras", capacity, spo2)
		}
	}
}

func TestResetIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	once := newTestPipeline(t, cfg, &fakeCalculator{result: models.SpO2Result{SpO2: 97, Quality: 1}})
	twice := newTestPipeline(t, cfg, &fakeCalculator{result: models.SpO2Result{SpO2: 97, Quality: 1}})

	for i := 0; i < 200; i++ {
		once.Process(sinusoid(i, 1.5, 16384))
		twice.Process(sinusoid(i, 0.9, 16000))
	}
	once.Reset()
	twice.Reset()
	twice.Reset()

	if hr, spo2, act := twice.BufferSizes(); hr != 0 || spo2 != 0 || act != 0 {
		t.Fatalf("reset não limpou buffers: %d %d %d", hr, spo2, act)
	}

	for i := 0; i < 300; i++ {
		a := once.Process(sinusoid(i, 1.2, 16384))
		b := twice.Process(sinusoid(i, 1.2, 16384))
		if !sameVitals(a, b) {
			t.Fatalf("frame %d diverge após reset: %+v vs %+v", i, a, b)
		}
	}
}

func sameVitals(a, b models.VitalsResult) bool {
	if a.HasHeartRate() != b.HasHeartRate() || a.HasSpO2() != b.HasSpO2() {
		return false
	}
	if a.HasHeartRate() && *a.HeartRateBPM != *b.HeartRateBPM {
		return false
	}
	if a.HasSpO2() && *a.SpO2Percent != *b.SpO2Percent {
		return false
	}
	return a.IsWorn == b.IsWorn && a.HeartRateConfidence == b.HeartRateConfidence && a.Activity == b.Activity
}

func TestSequenceOrder(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig(), &fakeCalculator{})
	for i := 1; i <= 50; i++ {
		res := p.Process(sinusoid(i, 1.2, 16384))
		if res.Seq != uint64(i) {
			t.Fatalf("seq = %d, esperado %d", res.Seq, i)
		}
		if res.DeviceID != "teste" {
			t.Fatalf("deviceID = %q", res.DeviceID)
		}
	}
}

func TestActivityClassifier(t *testing.T) {
	a := NewActivityClassifier(DefaultConfig())

	if got := a.Update(1); got != models.ActivityUnknown {
		t.Fatalf("janela vazia: got %s", got)
	}
	var got models.Activity
	for i := 0; i < 50; i++ {
		got = a.Update(1.0)
	}
	if got != models.ActivityStationary {
		t.Fatalf("repouso: got %s", got)
	}

	for i := 0; i < 50; i++ {
		got = a.Update(1 + 0.1*math.Sin(float64(i)))
	}
	if got != models.ActivityLight {
		t.Fatalf("movimento leve: got %s", got)
	}

	for i := 0; i < 50; i++ {
		got = a.Update(1 + 0.8*math.Sin(float64(i)))
	}
	if got != models.ActivityActive {
		t.Fatalf("movimento intenso: got %s", got)
	}

	a.Reset()
	if a.Len() != 0 {
		t.Fatal("reset não limpou a janela")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("config padrão inválida: %v", err)
	}
	cfg := DefaultConfig()
	cfg.HRBandpass.High = 30
	if err := cfg.Validate(); err == nil {
		t.Fatal("esperado erro para corte acima de Nyquist")
	}
	cfg = DefaultConfig()
	cfg.MaxHeartRate = 30
	if err := cfg.Validate(); err == nil {
		t.Fatal("esperado erro para faixa de FC invertida")
	}
	if _, err := NewPipeline(DefaultConfig(), nil); !errors.Is(err, ErrNoCalculator) {
		t.Fatalf("esperado ErrNoCalculator, got %v", err)
	}
}

func TestRunnerPreservesOrderAndResets(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig(), &fakeCalculator{})
	r := NewRunner(p, 8)

	var invalid int
	var invalidMu sync.Mutex
	r.OnInvalidFrame(func(err error) {
		invalidMu.Lock()
		invalid++
		invalidMu.Unlock()
	})
	r.Start()

	var got []models.VitalsResult
	collected := make(chan struct{})
	go func() {
		for res := range r.Results() {
			got = append(got, res)
		}
		close(collected)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < 100; i++ {
		if err := r.Submit(ctx, frame.Encode(sinusoid(i, 1.2, 16384))); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		if i == 49 {
			if err := r.Submit(ctx, []byte{1, 2, 3}); err != nil {
				t.Fatalf("Submit inválido: %v", err)
			}
			if err := r.RequestReset(ctx); err != nil {
				t.Fatalf("RequestReset: %v", err)
			}
			if hr, _, _ := p.BufferSizes(); hr != 0 {
				t.Fatalf("reset aplicado parcialmente: %d amostras", hr)
			}
		}
	}

	if err := r.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case <-collected:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout aguardando resultados")
	}

	if len(got) != 100 {
		t.Fatalf("esperado 100 resultados, got %d", len(got))
	}
	for i, res := range got {
		if res.Seq != uint64(i+1) {
			t.Fatalf("resultado %d fora de ordem: seq %d", i, res.Seq)
		}
	}
	if invalid != 1 {
		t.Fatalf("esperado 1 frame inválido, got %d", invalid)
	}
	if st := p.Stats(); st.Resets != 1 {
		t.Fatalf("esperado 1 reset, got %d", st.Resets)
	}

	if err := r.Submit(ctx, frame.Encode(sinusoid(0, 1.2, 16384))); !errors.Is(err, ErrRunnerClosed) {
		t.Fatalf("esperado ErrRunnerClosed, got %v", err)
	}
}

func TestRunnerSubmitHonoursContext(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig(), &fakeCalculator{})
	r := NewRunner(p, 1)
	// Sem Start: a fila enche e Submit deve respeitar o contexto
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := r.Submit(ctx, frame.Encode(sinusoid(0, 1.2, 16384))); err != nil {
		t.Fatalf("primeiro Submit: %v", err)
	}
	if err := r.Submit(ctx, frame.Encode(sinusoid(1, 1.2, 16384))); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("esperado DeadlineExceeded, got %v", err)
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second)
	defer closeCancel()
	go func() {
		for range r.Results() {
		}
	}()
	if err := r.Close(closeCtx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
