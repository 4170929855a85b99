package vitals

import (
	"context"
	"errors"
	"sync"
	"time"

	"vitals_go/internal/models"
)

// ErrRunnerClosed é retornado por Submit e RequestReset após Close
var ErrRunnerClosed = errors.New("runner encerrado")

// DefaultQueueSize é a capacidade padrão da fila de entrada
const DefaultQueueSize = 256

type job struct {
	data  []byte
	at    time.Time
	reset bool
	ack   chan struct{}
}

// Runner executa o pipeline em uma goroutine dedicada. Frames e pedidos de
// reset compartilham a mesma fila, portanto um reset é aplicado após o frame
// em processamento e antes de qualquer frame enviado depois dele. Os
// resultados saem em ordem de decodificação.
type Runner struct {
	pipeline *Pipeline
	in       chan job
	out      chan models.VitalsResult

	quit  chan struct{} // fecha ao iniciar Close
	drain chan struct{} // fecha quando não há mais produtores em andamento
	kill  chan struct{} // fecha se Close expirar
	done  chan struct{}

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
	start    sync.Once
	stop     sync.Once
	abort    sync.Once

	onInvalid func(error)
}

// NewRunner cria um runner para o pipeline. queueSize < 1 usa DefaultQueueSize.
func NewRunner(p *Pipeline, queueSize int) *Runner {
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}
	return &Runner{
		pipeline: p,
		in:       make(chan job, queueSize),
		out:      make(chan models.VitalsResult, queueSize),
		quit:     make(chan struct{}),
		drain:    make(chan struct{}),
		kill:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// OnInvalidFrame registra uma função chamada (na goroutine do runner) para
// cada frame descartado. Deve ser chamado antes de Start.
func (r *Runner) OnInvalidFrame(fn func(error)) {
	r.onInvalid = fn
}

// Start inicia a goroutine de processamento
func (r *Runner) Start() {
	r.start.Do(func() { go r.loop() })
}

// Results retorna o canal de resultados, fechado quando o runner termina
func (r *Runner) Results() <-chan models.VitalsResult {
	return r.out
}

// Pipeline retorna o pipeline controlado pelo runner
func (r *Runner) Pipeline() *Pipeline {
	return r.pipeline
}

// Submit enfileira uma cópia do frame. Bloqueia enquanto a fila estiver
// cheia; nunca descarta um frame silenciosamente.
func (r *Runner) Submit(ctx context.Context, data []byte) error {
	return r.SubmitAt(ctx, data, time.Time{})
}

// SubmitAt enfileira o frame com o timestamp de recepção informado
func (r *Runner) SubmitAt(ctx context.Context, data []byte, at time.Time) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	return r.enqueue(ctx, job{data: buf, at: at})
}

// RequestReset enfileira um reset e aguarda sua aplicação
func (r *Runner) RequestReset(ctx context.Context) error {
	ack := make(chan struct{})
	if err := r.enqueue(ctx, job{reset: true, ack: ack}); err != nil {
		return err
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		select {
		case <-ack:
			return nil
		default:
			return ErrRunnerClosed
		}
	}
}

func (r *Runner) enqueue(ctx context.Context, j job) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRunnerClosed
	}
	r.inflight.Add(1)
	r.mu.Unlock()
	defer r.inflight.Done()

	select {
	case r.in <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.quit:
		return ErrRunnerClosed
	}
}

// Close processa os itens já enfileirados e encerra o runner. Se ctx expirar
// antes, os resultados pendentes são abandonados.
func (r *Runner) Close(ctx context.Context) error {
	r.stop.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.quit)

		go func() {
			r.inflight.Wait()
			close(r.drain)
		}()
	})
	r.Start()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		r.abort.Do(func() { close(r.kill) })
		<-r.done
		return ctx.Err()
	}
}

func (r *Runner) loop() {
	defer close(r.done)
	defer close(r.out)

	for {
		select {
		case j := <-r.in:
			if !r.handle(j) {
				return
			}
		case <-r.drain:
			for {
				select {
				case j := <-r.in:
					if !r.handle(j) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// handle processa um item; retorna false se o runner foi abortado
func (r *Runner) handle(j job) bool {
	if j.reset {
		r.pipeline.Reset()
		close(j.ack)
		return true
	}

	res, err := r.pipeline.ProcessFrame(j.data)
	if err != nil {
		if r.onInvalid != nil {
			r.onInvalid(err)
		}
		return true
	}
	if !j.at.IsZero() {
		res.Timestamp = j.at
	}

	select {
	case r.out <- res:
		return true
	case <-r.kill:
		return false
	}
}
