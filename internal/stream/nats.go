// Package stream integra o pipeline ao NATS: ingestão de frames publicados
// por pontes de wearables e publicação dos resultados.
package stream

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"vitals_go/internal/config"
	"vitals_go/pkg/logger"
)

// Connect abre a conexão NATS com reconexão infinita
func Connect(cfg config.NATSConfig) (*nats.Conn, error) {
	name := cfg.Name
	if name == "" {
		name = "vitals-monitor"
	}

	nc, err := nats.Connect(
		cfg.URL,
		nats.Name(name),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("NATS desconectado: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Infof("NATS reconectado a %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("erro ao conectar ao NATS em %s: %w", cfg.URL, err)
	}

	logger.Infof("Conectado ao NATS em %s", nc.ConnectedUrl())
	return nc, nil
}
