package sensor

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"vitals_go/internal/config"
	"vitals_go/pkg/logger"
)

// MaxRecordSize é o maior payload representável no prefixo de 16 bits
const MaxRecordSize = 0xFFFF

// ReadRecord lê um registro "u16 LE tamanho || payload". Um registro de
// tamanho zero retorna payload vazio e não nulo.
func ReadRecord(r io.Reader) ([]byte, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint16(hdr[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}

// WriteRecord escreve um registro com prefixo de tamanho
func WriteRecord(w io.Writer, payload []byte) error {
	if len(payload) > MaxRecordSize {
		return fmt.Errorf("registro de %d bytes excede o limite de %d", len(payload), MaxRecordSize)
	}
	buf := make([]byte, 2+len(payload))
	binary.LittleEndian.PutUint16(buf, uint16(len(payload)))
	copy(buf[2:], payload)
	_, err := w.Write(buf)
	return err
}

// TCPSource lê frames da ponte do wearable por TCP e reconecta após falhas
type TCPSource struct {
	addr           string
	dialTimeout    time.Duration
	readTimeout    time.Duration
	reconnectDelay time.Duration
}

// NewTCPSource cria uma fonte TCP a partir da configuração do sensor
func NewTCPSource(cfg config.SensorConfig) *TCPSource {
	return &TCPSource{
		addr:           net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		dialTimeout:    cfg.DialTimeout(),
		readTimeout:    cfg.ReadTimeout(),
		reconnectDelay: cfg.ReconnectDelay(),
	}
}

// Name identifica a fonte
func (t *TCPSource) Name() string { return "tcp://" + t.addr }

// Run conecta e lê registros até ctx ser cancelado
func (t *TCPSource) Run(ctx context.Context, sink Sink) error {
	dialer := net.Dialer{Timeout: t.dialTimeout}

	for {
		if ctx.Err() != nil {
			return nil
		}

		logger.Infof("Tentando conectar ao sensor em %s...", t.addr)
		conn, err := dialer.DialContext(ctx, "tcp", t.addr)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			sink.Disconnected(fmt.Errorf("erro ao conectar ao sensor: %w", err))
		} else {
			logger.Infof("Conectado ao sensor em %s", t.addr)
			sink.Connected(t.addr)
			err = t.readLoop(ctx, conn, sink)
			conn.Close()
			if ctx.Err() != nil {
				return nil
			}
			sink.Disconnected(err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(t.reconnectDelay):
		}
	}
}

func (t *TCPSource) readLoop(ctx context.Context, conn net.Conn, sink Sink) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	reader := bufio.NewReader(conn)
	for {
		if t.readTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(t.readTimeout))
		}
		payload, err := ReadRecord(reader)
		if err != nil {
			return fmt.Errorf("erro ao ler do sensor: %w", err)
		}

		f := Frame{Data: payload, ReceivedAt: time.Now(), Reattach: len(payload) == 0}
		if err := sink.Deliver(ctx, f); err != nil {
			return err
		}
	}
}
