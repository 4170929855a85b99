package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"

	"vitals_go/internal/config"
	"vitals_go/internal/discovery"
	"vitals_go/internal/emitter"
	"vitals_go/internal/plc"
	"vitals_go/internal/redis"
	"vitals_go/internal/sensor"
	"vitals_go/internal/stream"
	"vitals_go/internal/websocket"
	"vitals_go/pkg/logger"
)

// Version é a versão anunciada em /info e no mDNS
const Version = "1.0.0"

// Server encapsula o servidor HTTP com todos os componentes
type Server struct {
	config           *config.Config
	httpServer       *http.Server
	router           *chi.Mux
	sensorService    *sensor.Service
	redisService     *redis.Service
	plcService       *plc.PLCService
	mqttEmitter      *emitter.MQTTEmitter
	natsConn         *nats.Conn
	publisher        *stream.Publisher
	wsHub            *websocket.Hub
	discoveryService *discovery.Service
	serverInfo       ServerInfo
}

// ServerInfo contém informações sobre o servidor
type ServerInfo struct {
	IP           string
	Port         int
	StartTime    time.Time
	Connections  int
	Version      string
	WebSocketURL string
	APIURL       string
}

// NewServer cria uma nova instância do servidor
func NewServer(cfg *config.Config) (*Server, error) {
	server := &Server{
		config: cfg,
		serverInfo: ServerInfo{
			StartTime: time.Now(),
			Version:   Version,
			Port:      cfg.Server.Port,
		},
	}

	ip, err := discovery.LocalIP()
	if err != nil {
		logger.Warnf("IP local não encontrado, usando localhost: %v", err)
		ip = "localhost"
	}
	server.serverInfo.IP = ip
	server.serverInfo.WebSocketURL = fmt.Sprintf("ws://%s:%d/ws", ip, cfg.Server.Port)
	server.serverInfo.APIURL = fmt.Sprintf("http://%s:%d/api", ip, cfg.Server.Port)

	if err := server.initComponents(); err != nil {
		server.closeComponents()
		return nil, err
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		IdleTimeout:  120 * time.Second,
	}

	return server, nil
}

// initComponents inicializa todos os componentes do servidor
func (s *Server) initComponents() error {
	s.wsHub = websocket.NewHub()
	go s.wsHub.Run()

	redisService, err := redis.NewService(s.config.Redis)
	if err != nil {
		return fmt.Errorf("erro ao inicializar serviço Redis: %w", err)
	}
	s.redisService = redisService

	if err := s.initNATS(); err != nil {
		return err
	}

	source, err := s.newSource()
	if err != nil {
		return err
	}

	sensorService, err := sensor.NewService(s.config.Sensor, s.config.Pipeline, source, s.redisService, s.wsHub)
	if err != nil {
		return fmt.Errorf("erro ao inicializar serviço do sensor: %w", err)
	}
	s.sensorService = sensorService
	s.wsHub.SetProvider(&hubProvider{sensor: sensorService, store: s.redisService})

	if s.config.PLC.Enabled {
		s.plcService = plc.NewPLCService(s.config.PLC, nil)
		s.sensorService.RegisterResultHandler(s.plcService.UpdateVitals)
		s.sensorService.RegisterStatusHandler(s.plcService.UpdateStatus)
	}

	if s.config.MQTT.Enabled {
		s.mqttEmitter = emitter.NewMQTTEmitter(s.config.MQTT)
		s.sensorService.RegisterResultHandler(s.mqttEmitter.PublishVitals)
		s.sensorService.RegisterStatusHandler(s.mqttEmitter.PublishStatus)
	}

	if s.natsConn != nil && s.config.NATS.Enabled && s.config.NATS.ResultSubject != "" {
		codec, err := stream.NewCodec(s.config.NATS.Codec)
		if err != nil {
			return err
		}
		s.publisher = stream.NewPublisher(s.natsConn, s.config.NATS.ResultSubject, codec)
		s.sensorService.RegisterResultHandler(s.publisher.PublishVitals)
		s.sensorService.RegisterStatusHandler(s.publisher.PublishStatus)
	}

	if s.config.Discovery.Enabled {
		s.discoveryService = discovery.NewService(s.config.Discovery, s.config.Server.Port, map[string]string{
			"ws":      "/ws",
			"api":     "/api",
			"session": sensorService.SessionID(),
		})
	}

	return nil
}

// initNATS conecta ao NATS quando ele é fonte de frames ou destino de resultados.
// Como fonte a conexão é obrigatória; como destino a falha só é registrada.
func (s *Server) initNATS() error {
	asSource := s.config.Sensor.Source == config.SourceNATS
	if !asSource && !s.config.NATS.Enabled {
		return nil
	}

	conn, err := stream.Connect(s.config.NATS)
	if err != nil {
		if asSource {
			return fmt.Errorf("erro ao conectar ao NATS: %w", err)
		}
		logger.Warnf("NATS indisponível, publicação de resultados desativada: %v", err)
		return nil
	}
	s.natsConn = conn
	return nil
}

// newSource escolhe a fonte de frames configurada
func (s *Server) newSource() (sensor.Source, error) {
	switch s.config.Sensor.Source {
	case config.SourceTCP:
		return sensor.NewTCPSource(s.config.Sensor), nil
	case config.SourceNATS:
		return stream.NewSource(s.natsConn, s.config.NATS.FrameSubject), nil
	case config.SourceSimulator:
		return sensor.NewSimulatorSource(s.config.Sensor.Simulator, s.config.Pipeline.PPGSampleRate), nil
	}
	return nil, fmt.Errorf("fonte de frames desconhecida: %q", s.config.Sensor.Source)
}

// StartServices inicia todos os serviços sem abrir a porta HTTP
func (s *Server) StartServices() error {
	if s.discoveryService != nil {
		if err := s.discoveryService.Start(); err != nil {
			logger.Warnf("Erro ao iniciar serviço de descoberta: %v", err)
		}
	}

	if s.plcService != nil {
		if err := s.plcService.Start(); err != nil {
			logger.Errorf("Erro ao iniciar serviço PLC: %v", err)
		}
	}

	if s.mqttEmitter != nil {
		// o cliente continua tentando em segundo plano
		if err := s.mqttEmitter.Connect(); err != nil {
			logger.Warnf("MQTT ainda não conectado: %v", err)
		}
	}

	if err := s.sensorService.Start(); err != nil {
		return fmt.Errorf("erro ao iniciar serviço do sensor: %w", err)
	}
	return nil
}

// Start inicia os serviços e bloqueia servindo HTTP
func (s *Server) Start() error {
	if err := s.StartServices(); err != nil {
		return err
	}

	s.logServerInfo()

	logger.Infof("Iniciando servidor HTTP na porta %d", s.config.Server.Port)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("erro ao iniciar servidor HTTP: %w", err)
	}
	return nil
}

// Handler retorna o router HTTP com todas as rotas
func (s *Server) Handler() http.Handler { return s.router }

// Shutdown encerra graciosamente o servidor e todos os serviços
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Iniciando shutdown do servidor")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("Erro ao encerrar servidor HTTP: %v", err)
	}

	if s.discoveryService != nil {
		s.discoveryService.Stop()
	}

	var firstErr error
	if s.sensorService != nil {
		if err := s.sensorService.Stop(ctx); err != nil {
			logger.Errorf("Erro ao parar serviço do sensor: %v", err)
			firstErr = err
		}
	}

	s.closeComponents()

	logger.Info("Shutdown completo")
	return firstErr
}

// closeComponents libera o que initComponents abriu, na ordem inversa de dependência
func (s *Server) closeComponents() {
	if s.plcService != nil {
		s.plcService.Stop()
	}
	if s.mqttEmitter != nil {
		s.mqttEmitter.Disconnect()
	}
	if s.natsConn != nil {
		if err := s.natsConn.Drain(); err != nil {
			s.natsConn.Close()
		}
	}
	if s.wsHub != nil {
		s.wsHub.Shutdown()
	}
	if s.redisService != nil {
		s.redisService.Shutdown()
	}
}

// GetServerInfo retorna informações sobre o servidor
func (s *Server) GetServerInfo() ServerInfo {
	info := s.serverInfo
	info.Connections = s.wsHub.ClientCount()
	return info
}

// logServerInfo exibe informações do servidor no log
func (s *Server) logServerInfo() {
	logger.Info("===============================================")
	logger.Info("             Vitals Monitor Server             ")
	logger.Info("===============================================")
	logger.Infof("Versão: %s", s.serverInfo.Version)
	logger.Infof("Sessão: %s", s.sensorService.SessionID())
	logger.Infof("Fonte de frames: %s", s.sensorService.Stats().Source)
	logger.Infof("Endereço IP: %s", s.serverInfo.IP)
	logger.Infof("Porta HTTP: %d", s.serverInfo.Port)
	logger.Infof("WebSocket URL: %s", s.serverInfo.WebSocketURL)
	logger.Infof("API URL: %s", s.serverInfo.APIURL)
	if s.discoveryService != nil {
		logger.Infof("mDNS: %s.%s.%s",
			s.discoveryService.InstanceName(),
			s.discoveryService.ServiceType(),
			s.discoveryService.Domain())
	}
	logger.Info("===============================================")
	logger.Info("Servidor pronto para conexões!")
}
