package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"vitals_go/internal/config"
	"vitals_go/internal/models"
	"vitals_go/pkg/logger"
	"vitals_go/pkg/utils"
)

// Métricas com histórico no Redis
const (
	MetricBPM  = "bpm"
	MetricSpO2 = "spo2"
)

// ErrOffline indica que o Redis está desabilitado ou sem conexão
var ErrOffline = errors.New("Redis não conectado ou desabilitado")

// ErrUnknownMetric indica uma métrica sem histórico
var ErrUnknownMetric = errors.New("métrica desconhecida")

// Service gerencia a conexão e operações com o Redis
type Service struct {
	client    *redis.Client
	ctx       context.Context
	cancel    context.CancelFunc
	prefix    string
	config    config.RedisConfig
	connected bool
	mutex     sync.RWMutex

	historySize int
	maxChanges  int
}

// NewService cria um novo serviço Redis. Falhas de conexão deixam o serviço
// em modo offline em vez de retornar erro.
func NewService(cfg config.RedisConfig) (*Service, error) {
	ctx, cancel := context.WithCancel(context.Background())

	historySize := cfg.HistorySize
	if historySize <= 0 {
		historySize = 1000
	}

	service := &Service{
		ctx:         ctx,
		cancel:      cancel,
		prefix:      cfg.Prefix,
		config:      cfg,
		historySize: historySize,
		maxChanges:  100,
	}

	if !cfg.Enabled {
		logger.Info("Serviço Redis desabilitado por configuração")
		return service, nil
	}

	service.client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := service.TestConnection(); err != nil {
		logger.Warnf("Aviso: %v. O Redis será utilizado em modo offline.", err)
	}
	go service.monitorConnection(reconnectInterval)
	return service, nil
}

// Intervalo entre tentativas de reconexão em modo offline
const reconnectInterval = 5 * time.Second

// monitorConnection tenta reconectar enquanto o serviço estiver offline
func (s *Service) monitorConnection(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.IsConnected() {
				continue
			}
			if err := s.TestConnection(); err != nil {
				logger.Debugf("Redis ainda offline: %v", err)
			}
		}
	}
}

// TestConnection testa a conexão com o Redis
func (s *Service) TestConnection() error {
	if !s.config.Enabled || s.client == nil {
		return fmt.Errorf("serviço Redis desabilitado")
	}

	result, err := s.client.Ping(s.ctx).Result()
	if err != nil {
		s.setConnected(false)
		return fmt.Errorf("erro ao conectar ao Redis: %w", err)
	}

	logger.Infof("Conexão com o Redis estabelecida. Resposta: %s", result)
	s.setConnected(true)
	return nil
}

// IsConnected verifica se o serviço está conectado
func (s *Service) IsConnected() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.connected && s.config.Enabled
}

func (s *Service) setConnected(v bool) {
	s.mutex.Lock()
	s.connected = v
	s.mutex.Unlock()
}

func (s *Service) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

// historyMember codifica um ponto como "timestamp:valor" para que valores
// repetidos não colidam no ZSET
func historyMember(ts int64, value float64) string {
	return strconv.FormatInt(ts, 10) + ":" + strconv.FormatFloat(value, 'f', -1, 64)
}

func parseHistoryMember(member string) (float64, bool) {
	i := strings.IndexByte(member, ':')
	if i < 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(member[i+1:], 64)
	return v, err == nil
}

// WriteVitals grava o resultado atual e acrescenta BPM/SpO2 ao histórico
func (s *Service) WriteVitals(v *models.VitalsResult) error {
	if !s.IsConnected() {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("erro ao serializar sinais vitais: %w", err)
	}

	pipe := s.client.Pipeline()
	ts := utils.UnixMillis(v.Timestamp)

	pipe.Set(s.ctx, s.key("current"), data, 0)
	pipe.Set(s.ctx, s.key("timestamp"), ts, 0)
	pipe.Set(s.ctx, s.key("worn"), strconv.FormatBool(v.IsWorn), 0)
	pipe.Set(s.ctx, s.key("activity"), string(v.Activity), 0)

	if v.HeartRateBPM != nil {
		s.appendHistory(pipe, MetricBPM, ts, float64(*v.HeartRateBPM))
	}
	if v.SpO2Percent != nil {
		s.appendHistory(pipe, MetricSpO2, ts, *v.SpO2Percent)
	}

	if _, err := pipe.Exec(s.ctx); err != nil {
		s.setConnected(false)
		return fmt.Errorf("erro ao escrever sinais vitais no Redis: %w", err)
	}
	return nil
}

func (s *Service) appendHistory(pipe redis.Pipeliner, metric string, ts int64, value float64) {
	histKey := s.key(metric, "history")
	pipe.Set(s.ctx, s.key(metric), value, 0)
	pipe.ZAdd(s.ctx, histKey, &redis.Z{Score: float64(ts), Member: historyMember(ts, value)})
	pipe.ZRemRangeByRank(s.ctx, histKey, 0, int64(-(s.historySize + 1)))
}

// WriteChanges registra mudanças relevantes dos sinais vitais
func (s *Service) WriteChanges(changes []models.VitalsChange) error {
	if !s.IsConnected() || len(changes) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	allKey := s.key("changes")
	limit := int64(-(s.maxChanges + 1))

	for _, change := range changes {
		data, err := json.Marshal(change)
		if err != nil {
			continue
		}
		ts := utils.UnixMillis(change.Timestamp)
		pipe.ZAdd(s.ctx, allKey, &redis.Z{Score: float64(ts), Member: string(data)})
		pipe.Incr(s.ctx, s.key(change.Metric, "change_count"))
	}
	pipe.ZRemRangeByRank(s.ctx, allKey, 0, limit)

	if _, err := pipe.Exec(s.ctx); err != nil {
		s.setConnected(false)
		return fmt.Errorf("erro ao escrever mudanças no Redis: %w", err)
	}

	logger.Debugf("Registradas %d mudanças de sinais vitais no Redis", len(changes))
	return nil
}

// WriteStatus grava o status do sensor
func (s *Service) WriteStatus(status models.SensorStatus) error {
	if !s.IsConnected() {
		return nil
	}

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("erro ao serializar status: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(s.ctx, s.key("status"), data, 0)
	if status.LastError != "" {
		pipe.Set(s.ctx, s.key("ultimo_erro"), status.LastError, 0)
	}

	if _, err := pipe.Exec(s.ctx); err != nil {
		s.setConnected(false)
		return fmt.Errorf("erro ao escrever status no Redis: %w", err)
	}
	return nil
}

// GetStatus obtém o último status gravado
func (s *Service) GetStatus() (*models.SensorStatus, error) {
	if !s.IsConnected() {
		return nil, ErrOffline
	}

	data, err := s.client.Get(s.ctx, s.key("status")).Bytes()
	if err != nil {
		return nil, fmt.Errorf("erro ao obter status: %w", err)
	}

	var status models.SensorStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("status corrompido no Redis: %w", err)
	}
	return &status, nil
}

// GetCurrentVitals obtém o último resultado gravado
func (s *Service) GetCurrentVitals() (*models.VitalsResult, error) {
	if !s.IsConnected() {
		return nil, ErrOffline
	}

	data, err := s.client.Get(s.ctx, s.key("current")).Bytes()
	if err != nil {
		return nil, fmt.Errorf("erro ao obter sinais vitais: %w", err)
	}

	var v models.VitalsResult
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("sinais vitais corrompidos no Redis: %w", err)
	}
	return &v, nil
}

// GetHistory obtém o histórico de uma métrica a partir de since (zero = tudo)
func (s *Service) GetHistory(metric string, since time.Time) ([]models.HistoryPoint, error) {
	if metric != MetricBPM && metric != MetricSpO2 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
	}
	if !s.IsConnected() {
		return nil, ErrOffline
	}

	min := "-inf"
	if !since.IsZero() {
		min = strconv.FormatInt(utils.UnixMillis(since), 10)
	}

	items, err := s.client.ZRangeByScoreWithScores(s.ctx, s.key(metric, "history"), &redis.ZRangeBy{
		Min: min,
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("erro ao obter histórico de %s: %w", metric, err)
	}

	history := make([]models.HistoryPoint, 0, len(items))
	for _, item := range items {
		member, ok := item.Member.(string)
		if !ok {
			continue
		}
		value, ok := parseHistoryMember(member)
		if !ok {
			continue
		}
		history = append(history, models.HistoryPoint{
			Value:     value,
			Timestamp: utils.FromUnixMillis(int64(item.Score)),
		})
	}
	return history, nil
}

// GetChanges obtém as mudanças mais recentes, da mais nova para a mais antiga
func (s *Service) GetChanges(limit int) ([]models.VitalsChange, error) {
	if !s.IsConnected() {
		return nil, ErrOffline
	}
	if limit <= 0 {
		limit = 50
	}

	members, err := s.client.ZRevRange(s.ctx, s.key("changes"), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("erro ao obter mudanças: %w", err)
	}

	changes := make([]models.VitalsChange, 0, len(members))
	for _, m := range members {
		var c models.VitalsChange
		if err := json.Unmarshal([]byte(m), &c); err != nil {
			continue
		}
		changes = append(changes, c)
	}
	return changes, nil
}

// Shutdown encerra graciosamente o serviço Redis
func (s *Service) Shutdown() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.cancel()
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			logger.Errorf("Erro ao fechar conexão com Redis: %v", err)
		} else {
			logger.Info("Conexão com o Redis fechada")
		}
	}
	s.connected = false
}
