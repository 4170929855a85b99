package dsp

import "math"

// Biquad é uma seção IIR de segunda ordem em forma direta II transposta.
// Coeficientes já normalizados por a0. Seções de primeira ordem usam
// B[2] = A[2] = 0.
type Biquad struct {
	B [3]float64
	A [3]float64 // A[0] é sempre 1
	w [2]float64
}

// Filter processa uma amostra atualizando o estado interno
func (f *Biquad) Filter(x float64) float64 {
	y := f.w[0] + f.B[0]*x
	f.w[0] = f.w[1] - f.A[1]*y + f.B[1]*x
	f.w[1] = f.B[2]*x - f.A[2]*y
	return y
}

// Reset zera o estado interno
func (f *Biquad) Reset() {
	f.w = [2]float64{}
}

// steadyState retorna o estado para uma entrada constante unitária
func (f *Biquad) steadyState() [2]float64 {
	kdc := (f.B[0] + f.B[1] + f.B[2]) / (1 + f.A[1] + f.A[2])
	var si [2]float64
	si[1] = f.B[2] - kdc*f.A[2]
	si[0] = si[1] + f.B[1] - kdc*f.A[1]
	return si
}

// filtPad é o número de amostras refletidas em cada extremidade
const filtPad = 6

// FiltFilt aplica a seção para frente e para trás (fase zero), com reflexão
// ímpar nas bordas e estado inicial de regime (Gustafsson, 1996). O estado
// interno é preservado e o slice de entrada não é alterado.
func (f *Biquad) FiltFilt(signal []float64) []float64 {
	n := len(signal)
	if n <= filtPad {
		out := make([]float64, n)
		copy(out, signal)
		return out
	}

	saved := f.w
	defer func() { f.w = saved }()

	si := f.steadyState()
	v := make([]float64, 0, n+2*filtPad)

	first := signal[0]*2 - signal[filtPad]
	f.w = [2]float64{si[0] * first, si[1] * first}
	for i := filtPad; i >= 1; i-- {
		v = append(v, f.Filter(signal[0]*2-signal[i]))
	}
	for _, x := range signal {
		v = append(v, f.Filter(x))
	}
	last := signal[n-1]
	for i := 1; i <= filtPad; i++ {
		v = append(v, f.Filter(last*2-signal[n-1-i]))
	}

	f.w = [2]float64{si[0] * v[len(v)-1], si[1] * v[len(v)-1]}
	for i := len(v) - 1; i >= 0; i-- {
		v[i] = f.Filter(v[i])
	}

	return v[filtPad : n+filtPad]
}

// newBiquad normaliza os coeficientes por a0
func newBiquad(b0, b1, b2, a0, a1, a2 float64) Biquad {
	return Biquad{
		B: [3]float64{b0 / a0, b1 / a0, b2 / a0},
		A: [3]float64{1, a1 / a0, a2 / a0},
	}
}

// LowPass cria uma seção passa-baixa de segunda ordem (RBJ)
func LowPass(cutoff, sampleRate, q float64) Biquad {
	w0 := 2 * math.Pi * cutoff / sampleRate
	cos, alpha := math.Cos(w0), math.Sin(w0)/(2*q)
	return newBiquad((1-cos)/2, 1-cos, (1-cos)/2, 1+alpha, -2*cos, 1-alpha)
}

// HighPass cria uma seção passa-alta de segunda ordem (RBJ)
func HighPass(cutoff, sampleRate, q float64) Biquad {
	w0 := 2 * math.Pi * cutoff / sampleRate
	cos, alpha := math.Cos(w0), math.Sin(w0)/(2*q)
	return newBiquad((1+cos)/2, -(1 + cos), (1+cos)/2, 1+alpha, -2*cos, 1-alpha)
}

// LowPass1 cria uma seção passa-baixa de primeira ordem (bilinear com pré-distorção)
func LowPass1(cutoff, sampleRate float64) Biquad {
	k := math.Tan(math.Pi * cutoff / sampleRate)
	return Biquad{
		B: [3]float64{k / (1 + k), k / (1 + k), 0},
		A: [3]float64{1, (k - 1) / (k + 1), 0},
	}
}

// HighPass1 cria uma seção passa-alta de primeira ordem (bilinear com pré-distorção)
func HighPass1(cutoff, sampleRate float64) Biquad {
	k := math.Tan(math.Pi * cutoff / sampleRate)
	return Biquad{
		B: [3]float64{1 / (1 + k), -1 / (1 + k), 0},
		A: [3]float64{1, (k - 1) / (k + 1), 0},
	}
}

// ButterworthQ retorna os fatores de qualidade das seções de segunda ordem
// de um Butterworth de ordem n. Para n ímpar sobra uma seção de primeira ordem.
func ButterworthQ(n int) []float64 {
	qs := make([]float64, 0, n/2)
	for k := 0; k < n/2; k++ {
		qs = append(qs, 1/(2*math.Sin(float64(2*k+1)*math.Pi/float64(2*n))))
	}
	return qs
}
