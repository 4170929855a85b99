package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"vitals_go/internal/frame"
	"vitals_go/internal/sensor"
	"vitals_go/pkg/logger"
)

// AttachSuffix é acrescentado ao subject de frames para o controle de recolocação
const AttachSuffix = ".attach"

const subscriptionBuffer = 1024

// SplitFrames separa uma mensagem em frames. Mensagens cujo tamanho é
// múltiplo de frame.Size são lotes; qualquer outro tamanho segue inteiro para
// que o pipeline o conte como inválido.
func SplitFrames(data []byte) [][]byte {
	if len(data) == 0 || len(data)%frame.Size != 0 {
		return [][]byte{data}
	}
	out := make([][]byte, 0, len(data)/frame.Size)
	for off := 0; off < len(data); off += frame.Size {
		out = append(out, data[off:off+frame.Size])
	}
	return out
}

// Source recebe frames publicados em um subject NATS
type Source struct {
	conn    *nats.Conn
	subject string
}

// NewSource cria a fonte para o subject de frames
func NewSource(conn *nats.Conn, subject string) *Source {
	return &Source{conn: conn, subject: subject}
}

// Name identifica a fonte
func (s *Source) Name() string { return "nats:" + s.subject }

// Run assina os subjects de frames e de recolocação até ctx ser cancelado
func (s *Source) Run(ctx context.Context, sink sensor.Sink) error {
	msgs := make(chan *nats.Msg, subscriptionBuffer)

	frames, err := s.conn.ChanSubscribe(s.subject, msgs)
	if err != nil {
		return fmt.Errorf("erro ao assinar %s: %w", s.subject, err)
	}
	defer frames.Unsubscribe()

	attach, err := s.conn.ChanSubscribe(s.subject+AttachSuffix, msgs)
	if err != nil {
		return fmt.Errorf("erro ao assinar %s%s: %w", s.subject, AttachSuffix, err)
	}
	defer attach.Unsubscribe()

	logger.Infof("Recebendo frames do NATS em %s", s.subject)
	sink.Connected(s.conn.ConnectedUrl())

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgs:
			now := time.Now()
			if msg.Subject == s.subject+AttachSuffix || len(msg.Data) == 0 {
				if err := sink.Deliver(ctx, sensor.Frame{Reattach: true, ReceivedAt: now}); err != nil {
					return err
				}
				continue
			}
			for _, data := range SplitFrames(msg.Data) {
				if err := sink.Deliver(ctx, sensor.Frame{Data: data, ReceivedAt: now}); err != nil {
					return err
				}
			}
		}
	}
}
