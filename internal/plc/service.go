package plc

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"vitals_go/internal/config"
	"vitals_go/internal/models"
	"vitals_go/pkg/logger"
)

// Stats contém os contadores do serviço PLC
type Stats struct {
	Enabled   bool   `json:"enabled"`
	Connected bool   `json:"connected"`
	Writes    uint64 `json:"writes"`
	Failures  uint64 `json:"failures"`
	DBNumber  int    `json:"dbNumber"`
}

// PLCService grava o último resultado do pipeline em um DB do PLC na taxa
// configurada
type PLCService struct {
	writer DBWriter
	config config.PLCConfig
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mutex   sync.RWMutex
	latest  *models.VitalsResult
	status  string
	dirty   bool
	running bool

	writes   uint64
	failures uint64
}

// NewPLCService cria o serviço. writer nil usa o cliente S7 real.
func NewPLCService(cfg config.PLCConfig, writer DBWriter) *PLCService {
	if writer == nil {
		writer = NewS7Client(cfg)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PLCService{
		writer: writer,
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		status: models.StatusInitializing,
	}
}

// Start inicia o loop de atualização. Falhas de conexão são tentadas de novo
// a cada ciclo.
func (s *PLCService) Start() error {
	if !s.config.Enabled {
		logger.Info("Serviço PLC desabilitado por configuração")
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.running {
		return nil
	}

	if err := s.writer.Connect(); err != nil {
		logger.Warnf("Erro na conexão inicial com o PLC: %v. Tentando novamente no ciclo de atualização.", err)
	}

	go s.runUpdateLoop()
	s.running = true
	logger.Infof("Serviço PLC iniciado (DB%d, a cada %v)", s.config.DBNumber, s.config.UpdateRate())
	return nil
}

// Stop para o serviço e desconecta do PLC
func (s *PLCService) Stop() {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return
	}
	s.running = false
	s.mutex.Unlock()

	s.cancel()
	<-s.done
	s.writer.Disconnect()
	logger.Info("Serviço PLC parado")
}

// IsRunning verifica se o serviço está em execução
func (s *PLCService) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}

// UpdateVitals guarda o resultado para o próximo ciclo
func (s *PLCService) UpdateVitals(res models.VitalsResult) {
	s.mutex.Lock()
	s.latest = &res
	s.dirty = true
	s.mutex.Unlock()
}

// UpdateStatus guarda o status do sensor para o próximo ciclo
func (s *PLCService) UpdateStatus(status models.SensorStatus) {
	s.mutex.Lock()
	s.status = status.Status
	s.dirty = true
	s.mutex.Unlock()
}

func (s *PLCService) runUpdateLoop() {
	defer close(s.done)

	rate := s.config.UpdateRate()
	if rate <= 0 {
		rate = 500 * time.Millisecond
	}
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.flush()
		}
	}
}

// flush grava o último resultado, se houver algo novo
func (s *PLCService) flush() {
	s.mutex.Lock()
	if s.latest == nil || !s.dirty {
		s.mutex.Unlock()
		return
	}
	data := EncodeVitals(*s.latest, s.status)
	s.dirty = false
	s.mutex.Unlock()

	if err := s.writer.WriteDataBlock(s.config.DBNumber, 0, data); err != nil {
		s.mutex.Lock()
		s.dirty = true
		s.mutex.Unlock()
		if n := atomic.AddUint64(&s.failures, 1); n%20 == 1 {
			logger.Error("Falha ao escrever sinais vitais no PLC", err)
		}
		return
	}
	atomic.AddUint64(&s.writes, 1)
}

// Stats retorna os contadores do serviço
func (s *PLCService) Stats() Stats {
	return Stats{
		Enabled:   s.config.Enabled,
		Connected: s.writer.IsConnected(),
		Writes:    atomic.LoadUint64(&s.writes),
		Failures:  atomic.LoadUint64(&s.failures),
		DBNumber:  s.config.DBNumber,
	}
}
