package stream

import (
	"sync/atomic"

	"github.com/nats-io/nats.go"

	"vitals_go/internal/models"
	"vitals_go/pkg/logger"
)

// Publisher publica resultados e status do sensor no NATS
type Publisher struct {
	conn          *nats.Conn
	subject       string
	statusSubject string
	codec         Codec

	published uint64
	failed    uint64
}

// NewPublisher cria o publicador. Status vão para <subject>.status.
func NewPublisher(conn *nats.Conn, subject string, codec Codec) *Publisher {
	return &Publisher{
		conn:          conn,
		subject:       subject,
		statusSubject: subject + ".status",
		codec:         codec,
	}
}

// PublishVitals publica um resultado do pipeline
func (p *Publisher) PublishVitals(res models.VitalsResult) {
	p.publish(p.subject, res)
}

// PublishStatus publica uma mudança de status
func (p *Publisher) PublishStatus(status models.SensorStatus) {
	p.publish(p.statusSubject, status)
}

func (p *Publisher) publish(subject string, v interface{}) {
	data, err := p.codec.Marshal(v)
	if err == nil {
		err = p.conn.Publish(subject, data)
	}
	if err != nil {
		// Loga a primeira falha e depois a cada 100
		if n := atomic.AddUint64(&p.failed, 1); n%100 == 1 {
			logger.Errorf("Erro ao publicar em %s (%d falhas): %v", subject, n, err)
		}
		return
	}
	atomic.AddUint64(&p.published, 1)
}

// Stats retorna os contadores de publicação
func (p *Publisher) Stats() (published, failed uint64) {
	return atomic.LoadUint64(&p.published), atomic.LoadUint64(&p.failed)
}
