// Package sensor liga as fontes de frames do wearable ao pipeline de sinais
// vitais e distribui os resultados.
package sensor

import (
	"context"
	"time"
)

// Frame é um registro bruto recebido de uma fonte. Reattach indica que o
// sensor foi recolocado e o estado do pipeline deve ser descartado.
type Frame struct {
	Data       []byte
	ReceivedAt time.Time
	Reattach   bool
}

// Sink recebe os eventos de uma fonte
type Sink interface {
	// Deliver entrega um frame; bloqueia enquanto o pipeline estiver cheio
	Deliver(ctx context.Context, f Frame) error
	// Connected informa que a fonte está recebendo dados
	Connected(info string)
	// Disconnected informa a perda da fonte
	Disconnected(err error)
}

// Source produz frames até ctx ser cancelado
type Source interface {
	Name() string
	Run(ctx context.Context, sink Sink) error
}
