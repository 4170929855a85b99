package dsp

// FindPeaks retorna os índices, em ordem crescente, dos máximos locais
// estritos (vizinhança ±2) cuja proeminência atinge minProminence e que
// distam pelo menos minDistance do último pico aceito. minDistance também é
// a largura das janelas usadas no cálculo da proeminência.
func FindPeaks(signal []float64, minDistance int, minProminence float64) []int {
	n := len(signal)
	if n < 5 {
		return nil
	}
	if minDistance < 1 {
		minDistance = 1
	}

	var peaks []int
	last := -minDistance
	for i := 2; i < n-2; i++ {
		x := signal[i]
		if !(x > signal[i-1] && x > signal[i-2] && x > signal[i+1] && x > signal[i+2]) {
			continue
		}
		if i-last < minDistance {
			continue
		}
		if prominence(signal, i, minDistance) < minProminence {
			continue
		}
		peaks = append(peaks, i)
		last = i
	}
	return peaks
}

// prominence calcula a altura do pico em relação ao maior dos mínimos das
// janelas à esquerda e à direita
func prominence(signal []float64, i, width int) float64 {
	lo := i - width
	if lo < 0 {
		lo = 0
	}
	hi := i + 1 + width
	if hi > len(signal) {
		hi = len(signal)
	}

	leftMin := minOf(signal[lo:i])
	rightMin := minOf(signal[i+1 : hi])
	base := leftMin
	if rightMin > base {
		base = rightMin
	}
	return signal[i] - base
}

func minOf(s []float64) float64 {
	m := s[0]
	for _, v := range s[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
