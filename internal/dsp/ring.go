// Package dsp reúne os blocos de processamento de sinal usados pelo pipeline
// de sinais vitais: buffer circular, filtros IIR, cancelamento adaptativo de
// ruído e detecção de picos. Nenhum tipo deste pacote é seguro para uso
// concorrente; a sincronização fica a cargo de quem os possui.
package dsp

// Ring é um buffer FIFO de capacidade fixa. Ao encher, Append descarta a
// amostra mais antiga.
type Ring[T any] struct {
	data  []T
	start int
	size  int
}

// NewRing cria um buffer com a capacidade informada. Capacidades menores que
// 1 são tratadas como 1.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{data: make([]T, capacity)}
}

// Append adiciona um valor ao final do buffer
func (r *Ring[T]) Append(v T) {
	c := len(r.data)
	if r.size < c {
		r.data[(r.start+r.size)%c] = v
		r.size++
		return
	}
	r.data[r.start] = v
	r.start = (r.start + 1) % c
}

// Snapshot retorna uma cópia do conteúdo, do mais antigo para o mais recente
func (r *Ring[T]) Snapshot() []T {
	out := make([]T, r.size)
	c := len(r.data)
	for i := 0; i < r.size; i++ {
		out[i] = r.data[(r.start+i)%c]
	}
	return out
}

// Len retorna o número de elementos armazenados
func (r *Ring[T]) Len() int { return r.size }

// Cap retorna a capacidade do buffer
func (r *Ring[T]) Cap() int { return len(r.data) }

// Reset esvazia o buffer mantendo a capacidade
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.data {
		r.data[i] = zero
	}
	r.start = 0
	r.size = 0
}
