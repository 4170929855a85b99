package sensor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"vitals_go/internal/config"
	"vitals_go/internal/models"
	"vitals_go/internal/oximetry"
	"vitals_go/internal/vitals"
	"vitals_go/pkg/logger"
)

// ResultHandler recebe cada resultado do pipeline
type ResultHandler func(result models.VitalsResult)

// StatusHandler recebe cada mudança de status do sensor
type StatusHandler func(status models.SensorStatus)

// Broadcaster envia resultados aos clientes em tempo real
type Broadcaster interface {
	BroadcastVitals(v models.VitalsResult)
	BroadcastChanges(changes []models.VitalsChange)
	BroadcastStatus(status models.SensorStatus)
}

// Store persiste resultados, mudanças e status
type Store interface {
	IsConnected() bool
	WriteVitals(v *models.VitalsResult) error
	WriteChanges(changes []models.VitalsChange) error
	WriteStatus(status models.SensorStatus) error
}

// ServiceStats resume o estado do serviço
type ServiceStats struct {
	SessionID        string               `json:"sessionId"`
	Source           string               `json:"source"`
	Running          bool                 `json:"running"`
	Uptime           string               `json:"uptime"`
	Pipeline         models.PipelineStats `json:"pipeline"`
	HRBuffer         int                  `json:"hrBuffer"`
	SpO2Buffer       int                  `json:"spo2Buffer"`
	ActivityBuffer   int                  `json:"activityBuffer"`
	Reattachments    uint64               `json:"reattachments"`
	DroppedStoreJobs uint64               `json:"droppedStoreJobs"`
}

type storeJob struct {
	vitals  *models.VitalsResult
	changes []models.VitalsChange
}

// Service liga uma fonte de frames ao pipeline de sinais vitais e distribui
// os resultados para WebSocket, handlers registrados e Redis
type Service struct {
	cfg       config.SensorConfig
	sessionID string
	source    Source
	pipeline  *vitals.Pipeline
	runner    *vitals.Runner
	warmup    int

	store Store
	hub   Broadcaster

	ctx       context.Context
	cancel    context.CancelFunc
	running   bool
	startedAt time.Time
	wg        sync.WaitGroup
	mutex     sync.RWMutex

	status            models.SensorStatus
	lastResult        *models.VitalsResult
	consecutiveErrors int
	sinceReset        int
	epoch             uint64
	changes           changeTracker

	resultHandlers []ResultHandler
	statusHandlers []StatusHandler
	handlersLock   sync.RWMutex

	storeQueue    chan storeJob
	droppedStore  uint64
	reattachments uint64
	invalidLogged uint64
}

// NewService cria o serviço com uma nova sessão de dispositivo. store e hub
// podem ser nil.
func NewService(cfg config.SensorConfig, pipelineCfg vitals.Config, source Source, store Store, hub Broadcaster) (*Service, error) {
	if source == nil {
		return nil, errors.New("fonte de frames não informada")
	}

	sessionID := uuid.New().String()
	pipeline, err := vitals.NewPipeline(pipelineCfg, oximetry.NewRatioCalculator(), vitals.WithDeviceID(sessionID))
	if err != nil {
		return nil, fmt.Errorf("erro ao criar pipeline: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		cfg:        cfg,
		sessionID:  sessionID,
		source:     source,
		pipeline:   pipeline,
		runner:     vitals.NewRunner(pipeline, cfg.QueueSize),
		warmup:     pipelineCfg.WarmupSamples(),
		store:      store,
		hub:        hub,
		ctx:        ctx,
		cancel:     cancel,
		storeQueue: make(chan storeJob, 256),
		status: models.SensorStatus{
			Status:    models.StatusInitializing,
			Timestamp: time.Now(),
			DeviceID:  sessionID,
		},
	}
	s.runner.OnInvalidFrame(s.invalidFrame)
	return s, nil
}

// Start inicia a fonte, o runner e os consumidores
func (s *Service) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}
	logger.Infof("Iniciando serviço do sensor (fonte: %s, sessão: %s)", s.source.Name(), s.sessionID)

	s.runner.Start()
	s.startedAt = time.Now()
	s.running = true

	s.wg.Add(3)
	go s.consumeResults()
	go s.writeStore()

	go func() {
		defer s.wg.Done()
		if err := s.source.Run(s.ctx, s); err != nil && !errors.Is(err, vitals.ErrRunnerClosed) {
			logger.Errorf("Fonte %s encerrada com erro: %v", s.source.Name(), err)
			s.Disconnected(err)
		}
	}()
	go s.monitorStats()
	return nil
}

// Stop para a fonte, esvazia o runner e aguarda os consumidores
func (s *Service) Stop(ctx context.Context) error {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return nil
	}
	s.running = false
	s.mutex.Unlock()

	logger.Info("Parando serviço do sensor")
	s.cancel()
	err := s.runner.Close(ctx)
	s.wg.Wait()
	return err
}

// IsRunning verifica se o serviço está em execução
func (s *Service) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}

// SessionID retorna o identificador da sessão do dispositivo
func (s *Service) SessionID() string { return s.sessionID }

// Deliver implementa Sink
func (s *Service) Deliver(ctx context.Context, f Frame) error {
	if f.Reattach {
		atomic.AddUint64(&s.reattachments, 1)
		logger.Info("Sensor recolocado, reiniciando pipeline")
		return s.Reset(ctx)
	}
	return s.runner.SubmitAt(ctx, f.Data, f.ReceivedAt)
}

// Connected implementa Sink
func (s *Service) Connected(info string) {
	s.mutex.Lock()
	if s.consecutiveErrors > 0 {
		logger.Infof("Comunicação com o sensor restaurada após %d tentativas", s.consecutiveErrors)
	}
	s.consecutiveErrors = 0
	s.status.ConnectionInfo = info
	s.mutex.Unlock()

	s.updateStatus(models.StatusInitializing, "")
}

// Disconnected implementa Sink
func (s *Service) Disconnected(err error) {
	s.mutex.Lock()
	s.consecutiveErrors++
	attempts := s.consecutiveErrors
	s.mutex.Unlock()

	msg := ""
	if err != nil {
		msg = err.Error()
	}
	logger.Errorf("Erro ao comunicar com o sensor: %v. Tentativa %d", err, attempts)

	if attempts > s.cfg.MaxConsecutiveErrors {
		s.updateStatus(models.StatusConnectionFailure, msg)
	}
}

// Reset descarta o estado do pipeline após os frames já enfileirados
func (s *Service) Reset(ctx context.Context) error {
	if err := s.runner.RequestReset(ctx); err != nil {
		return err
	}
	s.updateStatus(models.StatusInitializing, "")
	return nil
}

// RegisterResultHandler registra uma função para receber cada resultado
func (s *Service) RegisterResultHandler(handler ResultHandler) {
	s.handlersLock.Lock()
	defer s.handlersLock.Unlock()
	s.resultHandlers = append(s.resultHandlers, handler)
}

// RegisterStatusHandler registra uma função para receber mudanças de status
func (s *Service) RegisterStatusHandler(handler StatusHandler) {
	s.handlersLock.Lock()
	defer s.handlersLock.Unlock()
	s.statusHandlers = append(s.statusHandlers, handler)
}

// GetStatus retorna o status atual do sensor
func (s *Service) GetStatus() models.SensorStatus {
	s.mutex.RLock()
	status := s.status
	s.mutex.RUnlock()
	status.InvalidFrames = s.pipeline.Stats().InvalidFrames
	return status
}

// GetLastVitals retorna o último resultado do pipeline
func (s *Service) GetLastVitals() *models.VitalsResult {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.lastResult == nil {
		return nil
	}
	v := *s.lastResult
	return &v
}

// Stats retorna as estatísticas do serviço
func (s *Service) Stats() ServiceStats {
	hr, spo2, activity := s.pipeline.BufferSizes()

	s.mutex.RLock()
	running, started := s.running, s.startedAt
	s.mutex.RUnlock()

	var uptime time.Duration
	if running {
		uptime = time.Since(started)
	}

	return ServiceStats{
		SessionID:        s.sessionID,
		Source:           s.source.Name(),
		Running:          running,
		Uptime:           uptime.Round(time.Second).String(),
		Pipeline:         s.pipeline.Stats(),
		HRBuffer:         hr,
		SpO2Buffer:       spo2,
		ActivityBuffer:   activity,
		Reattachments:    atomic.LoadUint64(&s.reattachments),
		DroppedStoreJobs: atomic.LoadUint64(&s.droppedStore),
	}
}

func (s *Service) invalidFrame(err error) {
	// Loga o primeiro e depois a cada 100 para não inundar o log
	if n := atomic.AddUint64(&s.invalidLogged, 1); n == 1 || n%100 == 0 || s.cfg.Debug {
		logger.Warnf("Frame descartado (%d no total): %v", n, err)
	}
}

// consumeResults processa os resultados na ordem do runner
func (s *Service) consumeResults() {
	defer s.wg.Done()
	defer close(s.storeQueue)

	for res := range s.runner.Results() {
		s.handleResult(res)
	}
}

func (s *Service) handleResult(res models.VitalsResult) {
	s.mutex.Lock()
	// Resultados ainda enfileirados de antes do reset contam para a época antiga
	if res.Epoch != s.epoch {
		s.epoch = res.Epoch
		s.sinceReset = 0
	}
	s.sinceReset++
	warming := s.sinceReset < s.warmup
	changes := s.changes.update(res)
	copied := res
	s.lastResult = &copied
	s.mutex.Unlock()

	s.updateStatus(statusFor(res, warming), "")

	if s.cfg.Debug {
		for _, c := range changes {
			logger.Debugf("Mudança em %s: %s -> %s", c.Metric,
				formatValue(c.OldValue), formatValue(c.NewValue))
		}
	}

	// PRIORIDADE 1: WebSocket
	if s.hub != nil {
		s.hub.BroadcastVitals(res)
		s.hub.BroadcastChanges(changes)
	}

	// PRIORIDADE 2: handlers registrados
	s.notifyResultHandlers(res)

	// PRIORIDADE 3: Redis
	if s.store == nil || !s.store.IsConnected() {
		return
	}
	job := storeJob{vitals: &copied, changes: changes}
	if !s.cfg.AsyncRedis {
		s.persist(job)
		return
	}
	select {
	case s.storeQueue <- job:
	default:
		if n := atomic.AddUint64(&s.droppedStore, 1); n%100 == 1 {
			logger.Warnf("Fila do Redis cheia, %d gravações descartadas", n)
		}
	}
}

// statusFor deriva o status do sensor de um resultado
func statusFor(res models.VitalsResult, warming bool) string {
	switch {
	case warming:
		return models.StatusInitializing
	case !res.IsWorn:
		return models.StatusNotWorn
	case !res.HasHeartRate():
		return models.StatusNoSignal
	default:
		return models.StatusOK
	}
}

func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

// writeStore grava no Redis fora do caminho dos resultados, em ordem
func (s *Service) writeStore() {
	defer s.wg.Done()
	for job := range s.storeQueue {
		s.persist(job)
	}
}

func (s *Service) persist(job storeJob) {
	if err := s.store.WriteVitals(job.vitals); err != nil {
		logger.Errorf("Erro ao escrever sinais vitais no Redis: %v", err)
	}
	if len(job.changes) > 0 {
		if err := s.store.WriteChanges(job.changes); err != nil {
			logger.Errorf("Erro ao escrever mudanças no Redis: %v", err)
		}
	}
}

// updateStatus atualiza o status e notifica apenas quando ele muda
func (s *Service) updateStatus(status string, errorMsg string) {
	s.mutex.Lock()
	if s.status.Status == status && s.status.LastError == errorMsg {
		s.mutex.Unlock()
		return
	}
	previous := s.status.Status
	s.status.Status = status
	s.status.Timestamp = time.Now()
	s.status.LastError = errorMsg
	s.status.ErrorCount = s.consecutiveErrors
	snapshot := s.status
	s.mutex.Unlock()

	snapshot.InvalidFrames = s.pipeline.Stats().InvalidFrames

	if status == models.StatusConnectionFailure {
		logger.Warnf("Status do sensor alterado para %s: %s", status, errorMsg)
	} else {
		logger.Infof("Status do sensor: %s -> %s", previous, status)
	}

	if s.store != nil && s.store.IsConnected() {
		if err := s.store.WriteStatus(snapshot); err != nil {
			logger.Errorf("Erro ao escrever status no Redis: %v", err)
		}
	}
	if s.hub != nil {
		s.hub.BroadcastStatus(snapshot)
	}

	s.handlersLock.RLock()
	handlers := s.statusHandlers
	s.handlersLock.RUnlock()
	for _, handler := range handlers {
		handler(snapshot)
	}
}

func (s *Service) notifyResultHandlers(res models.VitalsResult) {
	s.handlersLock.RLock()
	handlers := s.resultHandlers
	s.handlersLock.RUnlock()

	for _, handler := range handlers {
		handler(res)
	}
}

// monitorStats registra estatísticas periódicas
func (s *Service) monitorStats() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			stats := s.pipeline.Stats()
			logger.Infof("Estatísticas do pipeline: %d frames (%.1f/s), %d inválidos, %d resets",
				stats.Processed, float64(stats.Processed-last)/60, stats.InvalidFrames, stats.Resets)
			last = stats.Processed
		}
	}
}
