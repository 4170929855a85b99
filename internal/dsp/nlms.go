package dsp

// Valores padrão do cancelador adaptativo
const (
	DefaultTaps = 16
	DefaultMu   = 0.05

	// ReferenceFloor é o nível (em g) abaixo do qual a referência é tratada
	// como ruído do acelerômetro e os pesos não se adaptam
	ReferenceFloor = 0.01
	// frozenLeak é a fração dos pesos esquecida por amostra com a adaptação
	// congelada
	frozenLeak = 0.002

	// referenceHPAlpha é o coeficiente do passa-alta que remove a gravidade
	// da referência do acelerômetro
	referenceHPAlpha = 0.95
	// dcAlpha é o fator da média exponencial do nível DC do sinal primário
	dcAlpha = 0.01
)

// NLMS é um cancelador adaptativo de ruído (LMS normalizado). O sinal de
// referência (magnitude do acelerômetro) tem a componente DC removida antes
// da filtragem, de modo que um sensor parado não altera o sinal primário.
//
// O regularizador padrão é taps·ReferenceFloor². Enquanto a potência da linha
// de atraso fica abaixo dele os pesos não se adaptam e decaem lentamente em
// direção a zero.
type NLMS struct {
	mu, eps float64
	weights []float64
	delay   []float64

	refPrevIn  float64
	refPrevOut float64
	refPrimed  bool

	dc       float64
	dcPrimed bool
}

// NewNLMS cria um cancelador. Valores não positivos usam os padrões; eps
// também define a potência mínima de referência para adaptar.
func NewNLMS(taps int, mu, eps float64) *NLMS {
	if taps < 1 {
		taps = DefaultTaps
	}
	if mu <= 0 {
		mu = DefaultMu
	}
	if eps <= 0 {
		eps = DefaultEps(taps)
	}
	return &NLMS{
		mu:      mu,
		eps:     eps,
		weights: make([]float64, taps),
		delay:   make([]float64, taps),
	}
}

// DefaultEps retorna o regularizador para a referência no piso de ruído
func DefaultEps(taps int) float64 {
	return float64(taps) * ReferenceFloor * ReferenceFloor
}

// Filter recebe uma amostra do sinal e da referência de ruído e retorna o
// sinal com a parcela correlacionada à referência removida
func (n *NLMS) Filter(signal, noiseReference float64) float64 {
	ref := n.highPass(noiseReference)

	copy(n.delay[1:], n.delay[:len(n.delay)-1])
	n.delay[0] = ref

	if !n.dcPrimed {
		n.dc = signal
		n.dcPrimed = true
	} else {
		n.dc += dcAlpha * (signal - n.dc)
	}

	var y, power float64
	for i, r := range n.delay {
		y += n.weights[i] * r
		power += r * r
	}

	if power < n.eps {
		for i := range n.weights {
			n.weights[i] *= 1 - frozenLeak
		}
		return signal - y
	}

	e := (signal - n.dc) - y
	step := n.mu / (n.eps + power)
	for i, r := range n.delay {
		n.weights[i] += step * e * r
	}

	return signal - y
}

// highPass é um bloqueador de DC de primeira ordem; a primeira amostra
// após o reset produz 0
func (n *NLMS) highPass(x float64) float64 {
	if !n.refPrimed {
		n.refPrevIn = x
		n.refPrevOut = 0
		n.refPrimed = true
		return 0
	}
	y := referenceHPAlpha * (n.refPrevOut + x - n.refPrevIn)
	n.refPrevIn = x
	n.refPrevOut = y
	return y
}

// Weights retorna uma cópia dos coeficientes adaptados
func (n *NLMS) Weights() []float64 {
	return append([]float64(nil), n.weights...)
}

// Reset zera pesos, linha de atraso e os rastreadores de DC
func (n *NLMS) Reset() {
	for i := range n.weights {
		n.weights[i] = 0
		n.delay[i] = 0
	}
	n.refPrevIn, n.refPrevOut, n.refPrimed = 0, 0, false
	n.dc, n.dcPrimed = 0, false
}
