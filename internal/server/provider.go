package server

import (
	"context"
	"errors"
	"time"

	"vitals_go/internal/models"
	"vitals_go/internal/redis"
	"vitals_go/internal/sensor"
)

// hubProvider atende os comandos dos clientes WebSocket com o serviço do
// sensor e o histórico do Redis
type hubProvider struct {
	sensor *sensor.Service
	store  *redis.Service
}

func (p *hubProvider) CurrentStatus() models.SensorStatus {
	return p.sensor.GetStatus()
}

// History mantém a semântica da API REST: Redis offline devolve lista vazia
func (p *hubProvider) History(metric string, since time.Time) ([]models.HistoryPoint, error) {
	history, err := p.store.GetHistory(metric, since)
	if errors.Is(err, redis.ErrOffline) {
		return []models.HistoryPoint{}, nil
	}
	return history, err
}

func (p *hubProvider) Reset(ctx context.Context) error {
	return p.sensor.Reset(ctx)
}
